package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTP metric attribute keys
var (
	attrHTTPMethod     = attribute.Key("http_method")
	attrHTTPRoute      = attribute.Key("http_route")
	attrHTTPStatusCode = attribute.Key("http_status_code")
)

// httpDurationBuckets covers fast admin reads up to webhook deliveries that
// wait on remote systems.
var httpDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

type httpMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	active   metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requests, err := meter.Int64Counter("http_server_request_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("http_server_request_duration_seconds",
		metric.WithDescription("HTTP request latency distribution in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(httpDurationBuckets...))
	if err != nil {
		return nil, err
	}
	active, err := meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}
	return &httpMetrics{requests: requests, duration: duration, active: active}, nil
}

// HTTPMetrics counts requests and records their latency by method and route
// pattern. A nil provider disables it.
func HTTPMetrics(mp metric.MeterProvider) gin.HandlerFunc {
	if mp == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return HTTPMetricsWithMeter(mp.Meter("syncengine/http"))
}

// HTTPMetricsWithMeter is HTTPMetrics on an existing meter
func HTTPMetricsWithMeter(meter metric.Meter) gin.HandlerFunc {
	m, err := newHTTPMetrics(meter)
	if err != nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()

		m.active.Add(ctx, 1)
		c.Next()
		m.active.Add(ctx, -1)

		// the matched pattern keeps cardinality low
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		base := []attribute.KeyValue{
			attrHTTPMethod.String(c.Request.Method),
			attrHTTPRoute.String(route),
		}
		m.requests.Add(ctx, 1, metric.WithAttributes(append(base, attrHTTPStatusCode.Int(c.Writer.Status()))...))
		m.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(base...))
	}
}
