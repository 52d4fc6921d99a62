package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/erp/syncengine/internal/interfaces/http/dto"
)

// BodyLimit rejects bodies over maxBytes. Declared lengths are checked up front;
// chunked bodies fail on read. maxBytes <= 0 disables the limit.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.Failure(
				dto.ErrCodeRequestTooLarge, "Request body is too large", getRequestID(c)))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
