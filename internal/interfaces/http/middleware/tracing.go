// Package middleware provides HTTP middleware for the sync engine API.
package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig configures Tracing
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	SkipPaths   []string // not traced, e.g. health probes
}

// Tracing starts an otelgin server span per request, named after the route
// pattern. A disabled config yields a pass-through handler.
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return otelgin.Middleware(cfg.ServiceName, otelgin.WithFilter(func(r *http.Request) bool {
		return !slices.Contains(cfg.SkipPaths, r.URL.Path)
	}))
}

// SpanErrorMarker marks the server span as failed for 4xx/5xx responses.
// Place it after Tracing.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		status := c.Writer.Status()
		if !span.IsRecording() || status < http.StatusBadRequest {
			return
		}
		span.SetStatus(codes.Error, http.StatusText(status))
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
}

// TracingAttributeInjector tags the current span with the request ID, the
// token subject and the object type of the route. Place it after Tracing
// and the JWT middleware.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			var attrs []attribute.KeyValue
			if id := c.GetString("request_id"); id != "" {
				attrs = append(attrs, attribute.String("request_id", id))
			}
			if subject := Subject(c); subject != "" {
				attrs = append(attrs, attribute.String("subject", subject))
			}
			if objectType := c.Param("type"); objectType != "" {
				attrs = append(attrs, attribute.String("object_type", objectType))
			}
			span.SetAttributes(attrs...)
		}
		c.Next()
	}
}
