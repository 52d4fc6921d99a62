package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestCORSWithConfig(t *testing.T) {
	tests := []struct {
		name        string
		origins     []string
		method      string
		origin      string
		status      int
		allowOrigin string
	}{
		{"no origins configured", nil, http.MethodGet, "https://ops.example.com", http.StatusOK, ""},
		{"preflight always answered", nil, http.MethodOptions, "https://ops.example.com", http.StatusNoContent, ""},
		{"allowed origin", []string{"https://ops.example.com"}, http.MethodGet, "https://ops.example.com", http.StatusOK, "https://ops.example.com"},
		{"unlisted origin", []string{"https://ops.example.com"}, http.MethodGet, "https://evil.example.com", http.StatusOK, ""},
		{"allowed preflight", []string{"https://ops.example.com"}, http.MethodOptions, "https://ops.example.com", http.StatusNoContent, "https://ops.example.com"},
		{"wildcard", []string{"*"}, http.MethodGet, "https://any.example.com", http.StatusOK, "*"},
		{"server to server", []string{"*"}, http.MethodPost, "", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(CORSWithConfig(OperatorCORSConfig(tt.origins)))
			router.GET("/api/v1/sync/runs", func(c *gin.Context) { c.Status(http.StatusOK) })
			router.POST("/api/v1/sync/runs", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(tt.method, "/api/v1/sync/runs", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.allowOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
			if tt.allowOrigin != "" {
				assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
				assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
			}
		})
	}
}
