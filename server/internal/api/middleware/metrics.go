package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"kabinet.io/kabinet/server/internal/metrics"
)

// MetricsMiddleware records Prometheus metrics for every request: a counter
// by method, route and status, plus duration and response size histograms.
//
// WebSocket upgrades are only counted. Their connections outlive the handler
// and are tracked by the websocket connection gauge instead.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isWebSocketUpgrade(c) {
			c.Next()
			metrics.CountRequest(c.Request.Method, routeLabel(c), c.Writer.Status())
			return
		}

		done := metrics.RequestStarted()
		defer done()

		start := time.Now()
		c.Next()
		metrics.ObserveRequest(c.Request.Method, routeLabel(c), c.Writer.Status(), time.Since(start), c.Writer.Size())
	}
}

// routeLabel keeps label cardinality bounded for unknown paths.
func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}

func isWebSocketUpgrade(c *gin.Context) bool {
	return strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
}
