package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap/zaptest"

	"github.com/erp/syncengine/internal/infrastructure/config"
)

func TestSetup_Disabled(t *testing.T) {
	p, err := Setup(context.Background(), config.TelemetryConfig{ServiceName: "syncengine"}, "1.2.3", zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Equal(t, otel.GetMeterProvider(), p.MeterProvider())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSetup_Enabled(t *testing.T) {
	prevTP, prevMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
	})

	// gRPC exporters connect lazily, so no collector is needed
	p, err := Setup(context.Background(), config.TelemetryConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:4317",
		SamplingRatio:     0.5,
		ServiceName:       "syncengine",
		Insecure:          true,
	}, "", zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.True(t, p.Enabled())
	assert.Same(t, p.meter, p.MeterProvider())
	assert.Same(t, p.tracer, otel.GetTracerProvider())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// export to the missing collector fails; shutdown still returns
	_ = p.Shutdown(ctx)
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(3).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Equal(t, sdktrace.TraceIDRatioBased(0.25).Description(), sampler(0.25).Description())
}
