package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// GraphQLOperations counts resolved operations by name, kind and outcome.
	GraphQLOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kabinet_graphql_operations_total",
			Help: "Total number of GraphQL operations resolved",
		},
		[]string{"operation", "kind", "status"},
	)

	// GraphQLOperationDuration measures resolver duration in seconds.
	GraphQLOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kabinet_graphql_operation_duration_seconds",
			Help:    "GraphQL operation resolve duration in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// ActiveSubscriptions tracks running subscriptions.
	ActiveSubscriptions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kabinet_graphql_active_subscriptions",
			Help: "Number of GraphQL subscriptions currently streaming",
		},
		[]string{"operation"},
	)

	// WebSocketConnections tracks open graphql-transport-ws connections.
	WebSocketConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kabinet_websocket_connections",
			Help: "Number of open GraphQL websocket connections",
		},
	)

	// PodEvents counts published pod events by kind.
	PodEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kabinet_pod_events_total",
			Help: "Total number of pod events published to subscribers",
		},
		[]string{"kind"},
	)
)

// registerGraphQLMetrics registers all GraphQL-related metrics.
func registerGraphQLMetrics() error {
	return register(
		GraphQLOperations,
		GraphQLOperationDuration,
		ActiveSubscriptions,
		WebSocketConnections,
		PodEvents,
	)
}
