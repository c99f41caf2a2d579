// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_writes_total",
			Help: "Total number of command writes by entity and outcome",
		},
		[]string{"entity", "outcome"},
	)

	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_report_exports_total",
			Help: "Total number of spreadsheet report exports",
		},
		[]string{"target", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)
