// Package telemetry provides application-level observability for the quality ledger.
//
// All metrics are registered against the default Prometheus registry and served on
// a side-channel HTTP server started by main.go (default port 9090, configured via
// QL_TELEMETRY_PROMETHEUS_PORT). The endpoint is GET /metrics in the Prometheus
// text exposition format; it is not served by the Gin router and so stays off the
// public ingress and outside any rate-limiting middleware.
//
// HTTP metrics use c.FullPath() (route template such as /api/v1/audits/:id/approve)
// rather than the raw URL to prevent unbounded label cardinality from user-supplied
// path segments.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts requests by method, route template, and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration is a latency histogram by method and route template.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	// AuditsInitiatedTotal counts audit initiations by audit type.
	AuditsInitiatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audits_initiated_total",
			Help: "Total number of audits initiated, by audit type.",
		},
		[]string{"audit_type"},
	)

	// AuditApprovalsTotal counts recorded audit approvals.
	AuditApprovalsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_approvals_total",
			Help: "Total number of audit approvals recorded.",
		},
	)

	// AuditsCompletedTotal counts completions by compliance band (compliant,
	// warning, non_compliant).
	AuditsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audits_completed_total",
			Help: "Total number of audits completed, by compliance band.",
		},
		[]string{"band"},
	)

	// LedgerAnchorsTotal counts ledger anchor attempts by outcome (ok, retried, failed).
	LedgerAnchorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_anchors_total",
			Help: "Total number of ledger anchor attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	// AlertsEmittedTotal counts derived alerts by category and severity.
	AlertsEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_emitted_total",
			Help: "Total number of alerts emitted, by category and severity.",
		},
		[]string{"category", "severity"},
	)

	// ScheduledAuditRunsTotal counts schedule-runner activations by outcome.
	ScheduledAuditRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduled_audit_runs_total",
			Help: "Total number of scheduled audits the runner attempted to initiate, by outcome.",
		},
		[]string{"outcome"},
	)

	// DBConnectionsOpen gauges the connection pool, polled by StartDBPoolMetrics.
	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_open",
			Help: "Current number of open database connections.",
		},
	)
)

// StartDBPoolMetrics polls the database pool every interval and publishes the open
// connection count. It runs until stop is closed.
func StartDBPoolMetrics(database *sql.DB, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				DBConnectionsOpen.Set(float64(database.Stats().OpenConnections))
			case <-stop:
				return
			}
		}
	}()
	slog.Debug("database pool metrics started", "interval", interval.String())
}
