package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyforge_gateway_requests_total",
			Help: "Total number of proxied requests to the AI gateway by endpoint and status.",
		},
		[]string{"endpoint", "status"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storyforge_gateway_request_duration_seconds",
			Help:    "Histogram of AI gateway request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)
