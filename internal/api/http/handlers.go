package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/rdesk/internal/host"
	"github.com/GriffinCanCode/rdesk/internal/infrastructure/monitoring"
)

// StatusSource reports the live desktop state. *host.Host satisfies it.
type StatusSource interface {
	Status(ctx context.Context) (host.Status, error)
}

// Handlers serves the operational endpoints
type Handlers struct {
	status  StatusSource
	metrics *monitoring.Metrics
	version string
	timeout time.Duration
}

// NewHandlers creates a handler set
func NewHandlers(status StatusSource, metrics *monitoring.Metrics, version string) *Handlers {
	return &Handlers{
		status:  status,
		metrics: metrics,
		version: version,
		timeout: 2 * time.Second,
	}
}

// Root describes the service
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "rdesk",
		"version": h.version,
		"connect": "/connect",
	})
}

// Health reports whether the desktop loop answers
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	st, err := h.status.Status(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"peers":  len(st.Peers),
		"frame":  st.Frame,
	})
}

// StatusResponse is the body of the status endpoint
type StatusResponse struct {
	Timestamp time.Time           `json:"timestamp"`
	Version   string              `json:"version"`
	Desktop   host.Status         `json:"desktop"`
	Metrics   monitoring.Snapshot `json:"metrics"`
}

// Status reports the desktop layout, the connected viewers and traffic
// counters
func (h *Handlers) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	st, err := h.status.Status(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, StatusResponse{
		Timestamp: time.Now(),
		Version:   h.version,
		Desktop:   st,
		Metrics:   h.metrics.Snapshot(),
	})
}

// Metrics serves the Prometheus exposition
func (h *Handlers) Metrics(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}
