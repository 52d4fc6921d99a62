package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemHandler_Health(t *testing.T) {
	healthy := PingerFunc(func(context.Context) error { return nil })
	down := PingerFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name   string
		checks map[string]Pinger
		status int
		state  string
	}{
		{"no checks", nil, http.StatusOK, "ok"},
		{"database up", map[string]Pinger{"database": healthy}, http.StatusOK, "ok"},
		{"database down", map[string]Pinger{"database": down, "redis": healthy}, http.StatusServiceUnavailable, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSystemHandler("syncengine", "1.2.0", tt.checks)
			router := gin.New()
			router.GET("/health", h.Health)

			w := serve(router, http.MethodGet, "/health", "")
			require.Equal(t, tt.status, w.Code)

			var resp HealthResponse
			decodeSuccess(t, w, &resp)
			assert.Equal(t, tt.state, resp.Status)
			assert.Equal(t, "syncengine", resp.Name)
			assert.Equal(t, "1.2.0", resp.Version)
			assert.NotEmpty(t, resp.GoVersion)
			assert.NotEmpty(t, resp.Uptime)
			assert.Len(t, resp.Checks, len(tt.checks))
		})
	}
}

func TestSystemHandler_Health_ReportsFailure(t *testing.T) {
	h := NewSystemHandler("syncengine", "dev", map[string]Pinger{
		"database": PingerFunc(func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return errors.New("too many connections")
		}),
	})
	router := gin.New()
	router.GET("/health", h.Health)

	w := serve(router, http.MethodGet, "/health", "")

	var resp HealthResponse
	decodeSuccess(t, w, &resp)
	assert.Equal(t, "too many connections", resp.Checks["database"])
}
