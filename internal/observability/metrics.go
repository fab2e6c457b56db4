package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec
	authAttemptsTotal  *prometheus.CounterVec
	auditEntriesTotal  *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "extension_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "extension_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "extension_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		authAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "extension_auth_attempts_total",
			Help: "Authentication attempts by method and outcome.",
		}, []string{"method", "outcome"})

		auditEntriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "extension_audit_entries_total",
			Help: "Committed audit entries by operation and entity type.",
		}, []string{"op", "entity"})

		prometheus.MustRegister(httpRequestsTotal, httpLatencySeconds, httpErrorsTotal, authAttemptsTotal, auditEntriesTotal)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// AuthAttempts exposes the authentication attempt counter.
func AuthAttempts() *prometheus.CounterVec {
	RegisterMetrics()
	return authAttemptsTotal
}

// AuditEntries exposes the audit entry counter.
func AuditEntries() *prometheus.CounterVec {
	RegisterMetrics()
	return auditEntriesTotal
}
