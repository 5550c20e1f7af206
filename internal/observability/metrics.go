package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	eventsTotal         *prometheus.CounterVec
	sinkFailuresTotal   prometheus.Counter
	flaggedEventsTotal  *prometheus.CounterVec
	exportRowsTotal     *prometheus.CounterVec
	adminRequestsTotal  *prometheus.CounterVec
	adminLatencySeconds *prometheus.HistogramVec
	adminErrorsTotal    *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the
// telemetry service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		eventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activity_events_total",
			Help: "Total number of activity log events accepted for writing.",
		}, []string{"type", "result"})

		sinkFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "activity_sink_failures_total",
			Help: "Total number of failed activity log store writes.",
		})

		flaggedEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activity_flagged_events_total",
			Help: "Events whose (type, action) pair is outside the recognized catalog.",
		}, []string{"type"})

		exportRowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activity_export_rows_total",
			Help: "Rows materialized by the export pipeline, per target.",
		}, []string{"target"})

		adminRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_requests_total",
			Help: "Total number of admin API requests served.",
		}, []string{"method", "route", "status"})

		adminLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "admin_latency_seconds",
			Help:    "Latency distribution for admin API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		adminErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_errors_total",
			Help: "Total number of error responses returned by admin endpoints.",
		}, []string{"method", "route", "status"})

		prometheus.MustRegister(
			eventsTotal,
			sinkFailuresTotal,
			flaggedEventsTotal,
			exportRowsTotal,
			adminRequestsTotal,
			adminLatencySeconds,
			adminErrorsTotal,
		)
	})
}

// Events exposes the accepted-events counter.
func Events() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsTotal
}

// SinkFailures exposes the failed-write counter.
func SinkFailures() prometheus.Counter {
	RegisterMetrics()
	return sinkFailuresTotal
}

// FlaggedEvents exposes the unrecognized-pair counter.
func FlaggedEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return flaggedEventsTotal
}

// ExportRows exposes the export row counter.
func ExportRows() *prometheus.CounterVec {
	RegisterMetrics()
	return exportRowsTotal
}

// AdminRequests exposes the counter for admin requests.
func AdminRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return adminRequestsTotal
}

// AdminLatency exposes the latency histogram for admin requests.
func AdminLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return adminLatencySeconds
}

// AdminErrors exposes the counter for admin error responses.
func AdminErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return adminErrorsTotal
}
