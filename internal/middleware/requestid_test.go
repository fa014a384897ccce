package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestRequestID_GeneratedWhenMissing(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware())

	var seen string
	router.GET("/", func(c *gin.Context) {
		seen = c.GetString(RequestIDKey)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(w, req)

	echoed := w.Header().Get(RequestIDHeader)
	if echoed == "" {
		t.Fatal("expected X-Request-ID response header")
	}
	if echoed != seen {
		t.Errorf("header %q != context value %q", echoed, seen)
	}
	if _, err := uuid.Parse(echoed); err != nil {
		t.Errorf("generated ID is not a UUID: %v", err)
	}
}

func TestRequestID_InboundReused(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-id-1")
	router.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "upstream-id-1" {
		t.Errorf("X-Request-ID = %q, want upstream-id-1", got)
	}
}
