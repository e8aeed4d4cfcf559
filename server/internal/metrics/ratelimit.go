package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RateLimitChecks counts rate limit checks by scope and result.
	RateLimitChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kabinet_ratelimit_checks_total",
			Help: "Total number of rate limit checks",
		},
		[]string{"scope", "allowed"},
	)

	// RateLimitTrackedClients tracks the number of live per-client limiters.
	RateLimitTrackedClients = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kabinet_ratelimit_tracked_clients",
			Help: "Number of clients with an active rate limit bucket",
		},
		[]string{"scope"},
	)
)

// registerRateLimitMetrics registers all rate limiting metrics.
func registerRateLimitMetrics() error {
	return register(
		RateLimitChecks,
		RateLimitTrackedClients,
	)
}
