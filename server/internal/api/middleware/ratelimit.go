package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"kabinet.io/kabinet/models"
	"kabinet.io/kabinet/sdk"
	"kabinet.io/kabinet/server/internal/metrics"
)

// RateLimiter implements token bucket rate limiting.
//
// This struct manages rate limiters for different identifiers (IP addresses,
// token subjects) with periodic cleanup of idle limiters.
type RateLimiter struct {
	scope    string
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	cleanup  time.Duration
	stop     chan struct{}
	once     sync.Once
}

// NewRateLimiter creates a new rate limiter and starts its cleanup loop.
//
// Parameters:
//   - scope: Metrics label naming what is limited (e.g., "ip")
//   - rps: Requests per second allowed
//   - burst: Burst size (number of requests that can be made in quick succession)
//   - cleanup: How often to clean up idle limiters (e.g., 1 minute)
//
// Returns:
//   - Configured RateLimiter; call Stop to end the cleanup loop
func NewRateLimiter(scope string, rps float64, burst int, cleanup time.Duration) *RateLimiter {
	rl := &RateLimiter{
		scope:    scope,
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
		cleanup:  cleanup,
		stop:     make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop ends the cleanup loop.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// getLimiter gets or creates a rate limiter for the given identifier.
func (rl *RateLimiter) getLimiter(identifier string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[identifier]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[identifier] = limiter
		metrics.RateLimitTrackedClients.WithLabelValues(rl.scope).Set(float64(len(rl.limiters)))
	}

	return limiter
}

// cleanupLoop periodically removes limiters whose bucket has refilled.
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for identifier, limiter := range rl.limiters {
		if limiter.Tokens() >= float64(rl.burst) {
			delete(rl.limiters, identifier)
		}
	}
	metrics.RateLimitTrackedClients.WithLabelValues(rl.scope).Set(float64(len(rl.limiters)))
}

// Allow reports whether a request from identifier may proceed.
func (rl *RateLimiter) Allow(identifier string) bool {
	allowed := rl.getLimiter(identifier).Allow()
	metrics.RateLimitChecks.WithLabelValues(rl.scope, strconv.FormatBool(allowed)).Inc()
	return allowed
}

// Tracked returns the number of identifiers with a live limiter.
func (rl *RateLimiter) Tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// RateLimitByIP creates middleware that rate limits requests by client IP address.
//
// Parameters:
//   - limiter: Limiter shared by all requests
//
// Returns:
//   - Gin middleware handler function
//
// Example:
//
//	limiter := NewRateLimiter("ip", 10.0, 20, time.Minute) // 10 req/s, burst of 20
//	router.Use(RateLimitByIP(limiter))
func RateLimitByIP(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, sdk.Response{
				Errors: sdk.GraphQLErrors{{
					Message:    models.ErrRateLimited.Error(),
					Extensions: map[string]interface{}{"code": models.ErrorCode(models.ErrRateLimited)},
				}},
			})
			return
		}

		c.Next()
	}
}
