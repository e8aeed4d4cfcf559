// Package handlers provides HTTP handlers for the Kabinet development server.
//
// This package implements the GraphQL endpoint (HTTP and graphql-transport-ws)
// and the health checks.
package handlers

import (
	"github.com/gin-gonic/gin"

	"kabinet.io/kabinet/models"
	"kabinet.io/kabinet/sdk"
	"kabinet.io/kabinet/server/internal/api/middleware"
)

// ErrorResponse represents a standardized non GraphQL error response.
type ErrorResponse struct {
	// Error is the error code (e.g., "unhealthy").
	Error string `json:"error"`

	// Message is a human-readable error message.
	Message string `json:"message"`

	// RequestID is the unique request ID for tracing.
	RequestID string `json:"request_id,omitempty"`
}

// respondError sends a standardized error response.
//
// Parameters:
//   - c: Gin context
//   - statusCode: HTTP status code
//   - errorCode: Error code string (e.g., "unhealthy")
//   - message: Human-readable error message
func respondError(c *gin.Context, statusCode int, errorCode string, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestID: middleware.GetRequestID(c),
	})
}

// respondGraphQLError sends err as a GraphQL error response, so SDK clients
// can decode it like any resolver failure.
func respondGraphQLError(c *gin.Context, statusCode int, err error) {
	extensions := map[string]interface{}{"code": models.ErrorCode(err)}
	if id := middleware.GetRequestID(c); id != "" {
		extensions["requestId"] = id
	}
	c.AbortWithStatusJSON(statusCode, sdk.Response{
		Errors: sdk.GraphQLErrors{{Message: err.Error(), Extensions: extensions}},
	})
}
