package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// GinMiddleware puts a request-scoped logger on the request context and writes
// one access line per request. Requests to skipPaths get the logger but no line.
func GinMiddleware(log *zap.Logger, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		begin := time.Now()
		requestID := c.GetString("request_id")
		reqLog := log.With(
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.Request = c.Request.WithContext(withRequestID(WithContext(c.Request.Context(), reqLog), requestID))

		c.Next()

		if skip[c.Request.URL.Path] {
			return
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(begin)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if route := c.FullPath(); route != "" {
			fields = append(fields, zap.String("route", route))
		}
		// webhook senders may put the shared secret in the query string
		if q := c.Request.URL.Query(); len(q) > 0 && !q.Has("secret") {
			fields = append(fields, zap.String("query", c.Request.URL.RawQuery))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}
		if ce := reqLog.Check(accessLevel(status), "HTTP Request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

func accessLevel(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

// Recovery turns a handler panic into a logged 500
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		log.Error("Panic recovered",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Any("error", recovered),
			zap.Stack("stacktrace"),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error_message": "internal server error"})
	})
}
