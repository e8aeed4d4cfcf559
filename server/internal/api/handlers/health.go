package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
//
// This handler provides liveness and readiness checks for container
// orchestrators and the CLI's status probe.
type HealthHandler struct {
	db         Pinger
	instanceID string
	version    string
}

// NewHealthHandler creates a new health check handler.
//
// Parameters:
//   - db: Database used for readiness checks
//   - instanceID: This server instance's ID
//   - version: Server version reported by the probes
func NewHealthHandler(db Pinger, instanceID, version string) *HealthHandler {
	return &HealthHandler{
		db:         db,
		instanceID: instanceID,
		version:    version,
	}
}

// LivenessResponse represents the liveness probe response.
type LivenessResponse struct {
	Status     string `json:"status"`
	InstanceID string `json:"instance_id"`
	Version    string `json:"version,omitempty"`
}

// ReadinessResponse represents the readiness probe response.
type ReadinessResponse struct {
	Status     string `json:"status"`
	InstanceID string `json:"instance_id"`
	Database   string `json:"database"`
}

// Liveness handles GET /health/live.
//
// This endpoint always returns 200 OK as long as the HTTP server is running.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:     "ok",
		InstanceID: h.instanceID,
		Version:    h.version,
	})
}

// Readiness handles GET /health/ready.
//
// Returns:
//   - 200 OK if ready to serve traffic
//   - 503 Service Unavailable if the database is unreachable
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		respondError(c, http.StatusServiceUnavailable, "unhealthy", "Database unavailable")
		return
	}

	c.JSON(http.StatusOK, ReadinessResponse{
		Status:     "ready",
		InstanceID: h.instanceID,
		Database:   "connected",
	})
}
