package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/erp/syncengine/internal/infrastructure/logger"
	"github.com/erp/syncengine/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// healthCheckTimeout bounds each dependency probe
const healthCheckTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger
type PingerFunc func(ctx context.Context) error

// Ping calls f(ctx)
func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// SystemHandler serves health and build information
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	startTime time.Time
	checks    map[string]Pinger
}

// NewSystemHandler creates a new SystemHandler. checks are probed on every health request.
func NewSystemHandler(name, version string, checks map[string]Pinger) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		startTime: time.Now(),
		checks:    checks,
	}
}

// HealthResponse represents the health response
type HealthResponse struct {
	Status    string            `json:"status"`
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	GoVersion string            `json:"go_version"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Health handles GET /health. Any failing check answers 503.
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:    "ok",
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
	}
	for name, check := range h.checks {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		err := check.Ping(ctx)
		cancel()
		if err != nil {
			logger.FromContext(c.Request.Context()).Warn("health check failed",
				zap.String("check", name),
				zap.Error(err),
			)
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, dto.Ok(resp))
}
