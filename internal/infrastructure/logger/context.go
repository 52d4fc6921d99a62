package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	requestIDKey
	subjectKey
)

// WithContext attaches a logger to ctx
func WithContext(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext returns the logger attached to ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if log, ok := ctx.Value(loggerKey).(*zap.Logger); ok && log != nil {
		return log
	}
	return zap.NewNop()
}

// WithSubject records the authenticated API subject in ctx and tags log with it.
func WithSubject(ctx context.Context, log *zap.Logger, subject string) (context.Context, *zap.Logger) {
	log = log.With(zap.String("subject", subject))
	ctx = context.WithValue(ctx, subjectKey, subject)
	return WithContext(ctx, log), log
}

// GetSubject returns the API subject stored by WithSubject
func GetSubject(ctx context.Context) string {
	subject, _ := ctx.Value(subjectKey).(string)
	return subject
}

func withRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID returns the request ID set by GinMiddleware
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithTraceContext tags log with the trace and span IDs of the span in ctx.
// log is returned as is when ctx carries no valid span.
func WithTraceContext(ctx context.Context, log *zap.Logger) *zap.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return log
	}
	return log.With(
		zap.Stringer("trace_id", sc.TraceID()),
		zap.Stringer("span_id", sc.SpanID()),
	)
}
