package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/quality-ledger/quality-ledger/internal/telemetry"
)

func TestMetricsMiddleware_RecordsRequest(t *testing.T) {
	router := gin.New()
	router.Use(MetricsMiddleware())
	router.GET("/audits/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(telemetry.HTTPRequestsTotal.WithLabelValues("GET", "/audits/:id", "200"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audits/7", nil))

	after := testutil.ToFloat64(telemetry.HTTPRequestsTotal.WithLabelValues("GET", "/audits/:id", "200"))
	if after != before+1 {
		t.Errorf("counter = %v, want %v", after, before+1)
	}
}

func TestMetricsMiddleware_NoRouteLabel(t *testing.T) {
	router := gin.New()
	router.Use(MetricsMiddleware())

	before := testutil.ToFloat64(telemetry.HTTPRequestsTotal.WithLabelValues("GET", "<no-route>", "404"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/definitely-not-registered", nil))

	after := testutil.ToFloat64(telemetry.HTTPRequestsTotal.WithLabelValues("GET", "<no-route>", "404"))
	if after != before+1 {
		t.Errorf("counter = %v, want %v", after, before+1)
	}
}
