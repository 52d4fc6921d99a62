package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of sync spans
const TracerName = "syncengine"

// Span attribute keys for sync spans.
const (
	SpanAttrObjectType = "object_type"
	SpanAttrObjectID   = "object_id"
	SpanAttrMethod     = "method"
	SpanAttrOutcome    = "outcome"
	SpanAttrTrigger    = "trigger"
	SpanAttrEvent      = "webhook_event"
)

// SpanOption adds start options to a span
type SpanOption func(*[]attribute.KeyValue)

// WithAttribute sets a string attribute when the span starts. Empty values are dropped.
func WithAttribute(key, value string) SpanOption {
	return func(attrs *[]attribute.KeyValue) {
		if value != "" {
			*attrs = append(*attrs, attribute.String(key, value))
		}
	}
}

// StartServiceSpan starts an internal span named "{service}.{operation}",
// e.g. "dispatcher.webhook". The caller ends it.
func StartServiceSpan(ctx context.Context, service, operation string, opts ...SpanOption) (context.Context, trace.Span) {
	var attrs []attribute.KeyValue
	for _, opt := range opts {
		opt(&attrs)
	}
	return otel.Tracer(TracerName).Start(ctx, service+"."+operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// SetAttribute sets a string attribute on a running span
func SetAttribute(span trace.Span, key, value string) {
	if span == nil || value == "" {
		return
	}
	span.SetAttributes(attribute.String(key, value))
}

// RecordError records err on the span and marks it failed. A nil error is ignored.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
