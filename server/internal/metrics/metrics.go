// Package metrics provides Prometheus metrics for the Kabinet development server.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the global Prometheus registry for all metrics.
	Registry = prometheus.NewRegistry()

	// initialized tracks whether metrics have been initialized.
	initialized = false
	initMu      sync.Mutex
)

// Init initializes the metrics registry with all collectors.
// It is safe to call more than once.
func Init() error {
	initMu.Lock()
	defer initMu.Unlock()

	if initialized {
		return nil
	}

	// Register Go runtime collectors
	if err := Registry.Register(collectors.NewGoCollector()); err != nil {
		return err
	}
	if err := Registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return err
	}

	for _, fn := range []func() error{
		registerHTTPMetrics,
		registerRateLimitMetrics,
		registerDatabaseMetrics,
		registerGraphQLMetrics,
	} {
		if err := fn(); err != nil {
			return err
		}
	}

	initialized = true
	return nil
}

// MustInit initializes metrics and panics on error.
// Use this for application startup where metrics are required.
func MustInit() {
	if err := Init(); err != nil {
		panic("failed to initialize metrics: " + err.Error())
	}
}

func register(collectors ...prometheus.Collector) error {
	for _, c := range collectors {
		if err := Registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Request metrics share the route labels gin reports, so /graphql queries,
// mutations and websocket upgrades land in one series per status.
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kabinet_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kabinet_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds, websocket upgrades excluded",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"method", "path"},
	)

	HTTPResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kabinet_http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(128, 8, 6),
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kabinet_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

func registerHTTPMetrics() error {
	return register(HTTPRequestsTotal, HTTPRequestDuration, HTTPResponseSize, HTTPRequestsInFlight)
}

// RequestStarted marks a request in flight and returns the func ending it.
func RequestStarted() func() {
	HTTPRequestsInFlight.Inc()
	return HTTPRequestsInFlight.Dec
}

// CountRequest records a finished request without timing it.
func CountRequest(method, route string, status int) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// ObserveRequest records a finished request with its duration and, when
// known (size >= 0), its response size.
func ObserveRequest(method, route string, status int, elapsed time.Duration, size int) {
	CountRequest(method, route, status)
	HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
	if size >= 0 {
		HTTPResponseSize.WithLabelValues(method, route).Observe(float64(size))
	}
}
