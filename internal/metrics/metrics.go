package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// TransitionsTotal counts stage transition attempts by outcome.
	// result is "accepted" or "rejected".
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vehicle_transitions_total",
			Help: "Total number of vehicle stage transition attempts",
		},
		[]string{"stage", "event_type", "result"},
	)
)
