package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowstate_http_requests_total",
		Help: "API requests by route pattern and status code",
	}, []string{"route", "code"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flowstate_http_request_duration_seconds",
		Help:    "API request latency by route pattern",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"route"})

	// reportsComputed counts computed metrics. The full report
	// counts as "all".
	reportsComputed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowstate_reports_computed_total",
		Help: "Flow metrics computed by metric name",
	}, []string{"metric"})

	snapshotSessions = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "flowstate_snapshot_sessions",
		Help:    "Sessions loaded per report snapshot",
		Buckets: []float64{0, 10, 50, 100, 500, 1000, 5000, 10000},
	})

	importedSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowstate_imported_sessions_total",
		Help: "Sessions written by imports",
	})

	importFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowstate_import_failures_total",
		Help: "Export files that failed to import",
	})
)
