package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MaxRequestIDLength is the maximum length kept from a caller supplied request ID.
const MaxRequestIDLength = 128

// RequestIDHeader carries the request ID in both directions. Webhook senders
// can set it to correlate their delivery with our audit logs.
const RequestIDHeader = "X-Request-ID"

// RequestID stores the caller's request ID, or a fresh UUID, under
// "request_id" and echoes it in the response
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := sanitizeRequestID(c.GetHeader(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader(RequestIDHeader)
}

// sanitizeRequestID keeps printable ASCII so the value is safe to log and echo
func sanitizeRequestID(id string) string {
	id = strings.Map(func(r rune) rune {
		if r < '!' || r > '~' {
			return -1
		}
		return r
	}, id)
	if len(id) > MaxRequestIDLength {
		id = id[:MaxRequestIDLength]
	}
	return id
}

// Timeout bounds the request context. A manual run stops starting new
// objects once it expires; the object in flight finishes.
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
