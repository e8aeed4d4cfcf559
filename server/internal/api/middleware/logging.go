// Package middleware provides HTTP middleware for the Kabinet development
// server.
//
// This package implements bearer token authentication, rate limiting, request
// logging, metrics collection and CORS handling for all API requests.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"kabinet.io/kabinet/internal/logging"
)

// Gin context keys set by the middleware.
const (
	keyLogger    = "logger"
	keyRequestID = "request_id"
	keySubject   = "subject"
)

// HeaderRequestID echoes the request ID back to the client.
const HeaderRequestID = "X-Request-ID"

// RequestLogger creates a middleware that logs all HTTP requests using structured logging.
//
// This middleware:
// - Generates a unique request ID for tracing (or keeps the client's X-Request-ID)
// - Creates a request-scoped logger with standard fields
// - Stores logger in both Gin and request context
// - Logs request completion with duration, at a level chosen by status
//
// Parameters:
//   - logger: Zap logger instance
//
// Returns:
//   - Gin middleware handler function
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header(HeaderRequestID, requestID)

		start := time.Now()

		requestLogger := logger.With(
			zap.String(logging.FieldRequestID, requestID),
			zap.String(logging.FieldMethod, c.Request.Method),
			zap.String(logging.FieldPath, c.Request.URL.Path),
			zap.String(logging.FieldRemoteAddr, c.ClientIP()),
			zap.String(logging.FieldUserAgent, c.Request.UserAgent()),
		)

		c.Set(keyLogger, requestLogger)
		c.Set(keyRequestID, requestID)

		// Store in request context for non-gin code
		ctx := logging.WithLogger(c.Request.Context(), requestLogger)
		c.Request = c.Request.WithContext(ctx)

		requestLogger.Debug("request started")

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.Int(logging.FieldStatusCode, status),
			zap.Duration(logging.FieldDuration, duration),
			zap.Int("response_size", c.Writer.Size()),
		}
		if subject := GetSubject(c); subject != "" {
			fields = append(fields, zap.String(logging.FieldSubject, subject))
		}
		if op := c.GetString(logging.FieldOperation); op != "" {
			fields = append(fields, zap.String(logging.FieldOperation, op))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String(logging.FieldError, c.Errors.String()))
		}

		// Log at appropriate level based on status code
		if status >= 500 {
			requestLogger.Error("request completed with server error", fields...)
		} else if status >= 400 {
			requestLogger.Warn("request completed with client error", fields...)
		} else {
			requestLogger.Info("request completed", fields...)
		}
	}
}

// GetLogger retrieves the request-scoped logger from Gin context.
// Returns a no-op logger if not found.
func GetLogger(c *gin.Context) *zap.Logger {
	if logger, exists := c.Get(keyLogger); exists {
		if l, ok := logger.(*zap.Logger); ok {
			return l
		}
	}
	return zap.NewNop()
}

// GetRequestID retrieves the request ID from Gin context.
// Returns empty string if not found.
func GetRequestID(c *gin.Context) string {
	return c.GetString(keyRequestID)
}

// GetSubject retrieves the authenticated caller from Gin context.
// Returns empty string for anonymous requests.
func GetSubject(c *gin.Context) string {
	return c.GetString(keySubject)
}
