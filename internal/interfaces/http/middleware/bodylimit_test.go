package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/syncengine/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestBodyLimit(t *testing.T) {
	newRouter := func(limit int64) *gin.Engine {
		router := gin.New()
		router.Use(BodyLimit(limit))
		router.POST("/api/v1/webhooks/invoice", func(c *gin.Context) {
			if _, err := io.ReadAll(c.Request.Body); err != nil {
				c.Status(http.StatusRequestEntityTooLarge)
				return
			}
			c.Status(http.StatusNoContent)
		})
		return router
	}

	t.Run("within limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(1024).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/invoice", strings.NewReader(`{"id":"INV-1"}`)))
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("content length over limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(100).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/invoice", strings.NewReader(strings.Repeat("x", 200))))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, dto.ErrCodeRequestTooLarge, decodeError(t, w).Code)
	})

	t.Run("chunked body over limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/invoice", strings.NewReader(strings.Repeat("x", 200)))
		req.ContentLength = -1
		w := httptest.NewRecorder()
		newRouter(100).ServeHTTP(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("zero disables limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(0).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/invoice", strings.NewReader(strings.Repeat("x", 200))))
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
