package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func contextWithSpan(t *testing.T) context.Context {
	t.Helper()
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "test")
	t.Cleanup(func() { span.End() })
	return ctx
}

func TestFromContext(t *testing.T) {
	l := zap.NewExample()
	assert.Same(t, l, FromContext(WithContext(context.Background(), l)))
	assert.NotNil(t, FromContext(context.Background()))
	assert.NotNil(t, FromContext(WithContext(context.Background(), nil)))
}

func TestWithSubject(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)

	ctx, l := WithSubject(context.Background(), zap.New(core), "ops@example.com")
	l.Info("retry requested")

	assert.Equal(t, "ops@example.com", GetSubject(ctx))
	assert.Same(t, l, FromContext(ctx))
	require.Len(t, recorded.All(), 1)
	assert.Equal(t, "ops@example.com", recorded.All()[0].ContextMap()["subject"])

	assert.Empty(t, GetSubject(context.Background()))
}

func TestRequestID(t *testing.T) {
	ctx := withRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", GetRequestID(ctx))

	bare := context.Background()
	assert.Equal(t, bare, withRequestID(bare, ""))
	assert.Empty(t, GetRequestID(bare))
}

func TestWithTraceContext(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	assert.Same(t, base, WithTraceContext(context.Background(), base))

	WithTraceContext(contextWithSpan(t), base).Info("traced")
	require.Len(t, recorded.All(), 1)
	fields := recorded.All()[0].ContextMap()
	assert.Len(t, fields["trace_id"], 32)
	assert.Len(t, fields["span_id"], 16)
}
