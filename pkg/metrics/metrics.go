package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by flow (admin|oauth) and result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flagforge_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"flow", "result"},
	)

	// FlagSubmissions counts grader round trips by outcome (accepted|rejected|error).
	FlagSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flagforge_flag_submissions_total",
			Help: "Total number of flag submissions",
		},
		[]string{"outcome"},
	)

	// RealtimeClients tracks currently connected websocket subscribers.
	RealtimeClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flagforge_realtime_clients",
			Help: "Number of connected realtime clients",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flagforge_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
