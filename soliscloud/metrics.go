package soliscloud

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	callsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soliscloud_api_calls_total",
			Help: "API calls by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)
	callDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "soliscloud_api_call_duration_seconds",
			Help:    "Round-trip duration of API calls, excluding limiter wait",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
	limiterWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "soliscloud_api_limiter_wait_seconds",
			Help:    "Time spent waiting on the rate-limiter gate",
			Buckets: []float64{0.001, 0.01, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
	lastStatusGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "soliscloud_api_last_status_code",
			Help: "Last HTTP status code returned by the API server",
		},
	)
)

// MetricsCollectors exposes the shared client instrumentation for
// registration with a Prometheus registry.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		callsTotal,
		callDuration,
		limiterWait,
		lastStatusGauge,
	}
}

func observeCall(endpoint, outcome string, start time.Time) {
	callsTotal.WithLabelValues(endpoint, outcome).Inc()
	callDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
