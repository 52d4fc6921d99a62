package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/erp/syncengine/internal/domain/reconciliation"
)

const syncMeterName = "syncengine/reconciliation"

// Metric attribute keys
var (
	AttrObjectType = attribute.Key("object_type")
	AttrMethod     = attribute.Key("method")
	AttrOutcome    = attribute.Key("outcome")
	AttrRunStatus  = attribute.Key("run_status")
)

// RunDurationBuckets are bucket boundaries for a synchronizer run (seconds).
// Runs page through remote systems, so the range reaches into minutes.
var RunDurationBuckets = []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800}

// SyncMetrics records synchronization measurements as OpenTelemetry instruments.
// It satisfies the application layer's Metrics interface.
//
// Instruments:
//   - sync_attempts_total{object_type,method,outcome}
//   - sync_audit_write_failures_total{object_type}
//   - sync_run_duration_seconds{object_type,run_status}
//   - sync_last_run_timestamp_seconds{object_type}
type SyncMetrics struct {
	attempts      metric.Int64Counter
	auditFailures metric.Int64Counter
	runDuration   metric.Float64Histogram
	lastRun       metric.Int64Gauge
}

// NewSyncMetrics creates the sync instruments on the given meter.
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	attempts, err := meter.Int64Counter("sync_attempts_total",
		metric.WithDescription("Number of synchronization attempts by object type, method and outcome"),
		metric.WithUnit("{attempt}"))
	if err != nil {
		return nil, fmt.Errorf("sync metrics: %w", err)
	}
	auditFailures, err := meter.Int64Counter("sync_audit_write_failures_total",
		metric.WithDescription("Number of attempts whose audit record could not be written"),
		metric.WithUnit("{failure}"))
	if err != nil {
		return nil, fmt.Errorf("sync metrics: %w", err)
	}
	runDuration, err := meter.Float64Histogram("sync_run_duration_seconds",
		metric.WithDescription("Duration of a scheduled or manual synchronizer run"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(RunDurationBuckets...))
	if err != nil {
		return nil, fmt.Errorf("sync metrics: %w", err)
	}
	lastRun, err := meter.Int64Gauge("sync_last_run_timestamp_seconds",
		metric.WithDescription("Unix time at which the last run of a synchronizer finished"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("sync metrics: %w", err)
	}

	return &SyncMetrics{
		attempts:      attempts,
		auditFailures: auditFailures,
		runDuration:   runDuration,
		lastRun:       lastRun,
	}, nil
}

// NewSyncMetricsFromProvider creates the sync instruments on the provider's meter.
func NewSyncMetricsFromProvider(mp metric.MeterProvider) (*SyncMetrics, error) {
	return NewSyncMetrics(mp.Meter(syncMeterName))
}

// RecordAttempt counts one attempt to reconcile an object.
func (m *SyncMetrics) RecordAttempt(ctx context.Context, t reconciliation.ObjectType, method reconciliation.Method, outcome reconciliation.Outcome) {
	m.attempts.Add(ctx, 1, metric.WithAttributes(
		AttrObjectType.String(t.String()),
		AttrMethod.String(method.String()),
		AttrOutcome.String(outcome.String()),
	))
}

// RecordAuditWriteFailure counts an audit record that was lost.
func (m *SyncMetrics) RecordAuditWriteFailure(ctx context.Context, t reconciliation.ObjectType) {
	m.auditFailures.Add(ctx, 1, metric.WithAttributes(AttrObjectType.String(t.String())))
}

// RecordRun records the duration of a finished run.
func (m *SyncMetrics) RecordRun(ctx context.Context, t reconciliation.ObjectType, status reconciliation.RunStatus, duration time.Duration) {
	typeAttr := AttrObjectType.String(t.String())
	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(typeAttr, AttrRunStatus.String(status.String())))
	m.lastRun.Record(ctx, time.Now().Unix(), metric.WithAttributes(typeAttr))
}
