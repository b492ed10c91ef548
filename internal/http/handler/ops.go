package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/librenews/skywire/internal/consumer"
)

const healthCheckTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a plain function, e.g. a redis client's Ping, to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

type StatusSource interface {
	Status() consumer.Status
}

// OpsHandler serves the health and status endpoints.
type OpsHandler struct {
	checks  map[string]Pinger
	status  StatusSource
	version string
}

func NewOpsHandler(checks map[string]Pinger, status StatusSource, version string) *OpsHandler {
	return &OpsHandler{
		checks:  checks,
		status:  status,
		version: version,
	}
}

// Health pings every dependency; any failure makes the whole check 503.
func (h *OpsHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	results := make(gin.H, len(h.checks))
	healthy := true
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			healthy = false
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": results})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": results})
}

func (h *OpsHandler) Status(c *gin.Context) {
	if h.status == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "consumer not running"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"version":  h.version,
		"consumer": h.status.Status(),
	})
}
