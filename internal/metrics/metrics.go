// Package metrics exposes Prometheus collectors for the dashboard service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minidash_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "minidash_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Ingestion Metrics
	ParsedRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minidash_parsed_rows_total",
			Help: "Rows produced by the input parser",
		},
		[]string{"format"},
	)

	ParseErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minidash_parse_errors_total",
			Help: "Parse requests rejected with a diagnostic",
		},
		[]string{"reason"},
	)

	// Upstream Metrics
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "minidash_upstream_request_duration_seconds",
			Help:    "Duration of upstream report calls in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"report", "outcome"},
	)

	ReportCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minidash_report_cache_hits_total",
			Help: "Upstream reports served from the report cache",
		},
		[]string{"report"},
	)

	ReportCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minidash_report_cache_misses_total",
			Help: "Upstream reports fetched because the cache had no entry",
		},
		[]string{"report"},
	)

	ReportCachePurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "minidash_report_cache_purged_total",
			Help: "Cached reports removed by cleanup or manual purge",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Job Metrics
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minidash_job_runs_total",
			Help: "Background job executions",
		},
		[]string{"job", "outcome"},
	)
)

// RecordAPIRequest records one handled request
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordUpstreamCall records one upstream report call
func RecordUpstreamCall(report string, err error, duration time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	UpstreamRequestDuration.WithLabelValues(report, outcome).Observe(duration.Seconds())
}

// RecordJobRun records the result of a background job run
func RecordJobRun(job string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	JobRunsTotal.WithLabelValues(job, outcome).Inc()
}
