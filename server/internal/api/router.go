// Package api wires the development server's HTTP routes and middleware.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"kabinet.io/kabinet/server/internal/api/handlers"
	"kabinet.io/kabinet/server/internal/api/middleware"
	"kabinet.io/kabinet/server/internal/metrics"
)

// Default per-IP rate limit.
const (
	DefaultRateLimitRPS   = 100.0
	DefaultRateLimitBurst = 200
)

// RouterConfig holds configuration for setting up the HTTP router.
type RouterConfig struct {
	// Resolver answers GraphQL operations.
	Resolver handlers.Resolver

	// DB is pinged by the readiness probe.
	DB handlers.Pinger

	// Logger is the Zap logger for request logging.
	Logger *zap.Logger

	// Secret is the HS256 secret bearer tokens are verified with.
	Secret string

	// Insecure accepts unauthenticated callers.
	Insecure bool

	// InstanceID is this server instance's ID.
	InstanceID string

	// Version is reported by the liveness probe.
	Version string

	// AllowOrigins is the list of allowed CORS origins.
	// Use []string{"*"} to allow all origins.
	AllowOrigins []string

	// RateLimitRPS and RateLimitBurst bound requests per client IP.
	// Zero values use the defaults; a negative RPS disables limiting.
	RateLimitRPS   float64
	RateLimitBurst int

	// WSInitTimeout bounds the wait for connection_init.
	WSInitTimeout time.Duration
}

// SetupRouter creates and configures the Gin HTTP router with all routes and middleware.
//
// This function sets up:
// - Global middleware (recovery, metrics, logging, CORS, rate limiting)
// - Health check and metrics endpoints (no auth required)
// - POST /graphql for queries and mutations (bearer token auth)
// - GET /graphql for graphql-transport-ws subscriptions
//
// The returned function stops the rate limiter's background cleanup.
func SetupRouter(config *RouterConfig) (*gin.Engine, func()) {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()

	// Recovery middleware (recover from panics)
	router.Use(gin.Recovery())

	// Metrics middleware (should be early to capture all requests)
	router.Use(middleware.MetricsMiddleware())

	router.Use(middleware.RequestLogger(logger))

	if len(config.AllowOrigins) > 0 {
		router.Use(middleware.CORS(config.AllowOrigins))
	}

	stop := func() {}
	if config.RateLimitRPS >= 0 {
		rps, burst := config.RateLimitRPS, config.RateLimitBurst
		if rps == 0 {
			rps = DefaultRateLimitRPS
		}
		if burst <= 0 {
			burst = DefaultRateLimitBurst
		}
		limiter := middleware.NewRateLimiter("ip", rps, burst, time.Minute)
		router.Use(middleware.RateLimitByIP(limiter))
		stop = limiter.Stop
	}

	authConfig := &middleware.AuthConfig{
		Secret:   config.Secret,
		Insecure: config.Insecure,
	}

	healthHandler := handlers.NewHealthHandler(config.DB, config.InstanceID, config.Version)
	graphqlHandler := handlers.NewGraphQLHandler(config.Resolver)
	wsHandler := handlers.NewWSHandler(config.Resolver, authConfig, config.WSInitTimeout)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
		metrics.Registry,
		promhttp.HandlerOpts{},
	)))

	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Liveness)
		health.GET("/ready", healthHandler.Readiness)
	}

	graphql := router.Group("/graphql")
	graphql.Use(middleware.RequireToken(authConfig))
	{
		graphql.POST("", graphqlHandler.Execute)
		graphql.GET("", wsHandler.Serve)
	}

	return router, stop
}
