package reconciliation

import (
	"context"
	"time"

	"github.com/erp/syncengine/internal/domain/reconciliation"
)

// Metrics records synchronization measurements
type Metrics interface {
	RecordAttempt(ctx context.Context, t reconciliation.ObjectType, method reconciliation.Method, outcome reconciliation.Outcome)
	RecordAuditWriteFailure(ctx context.Context, t reconciliation.ObjectType)
	RecordRun(ctx context.Context, t reconciliation.ObjectType, status reconciliation.RunStatus, duration time.Duration)
}

// NoopMetrics discards every measurement
type NoopMetrics struct{}

func (NoopMetrics) RecordAttempt(context.Context, reconciliation.ObjectType, reconciliation.Method, reconciliation.Outcome) {
}

func (NoopMetrics) RecordAuditWriteFailure(context.Context, reconciliation.ObjectType) {}

func (NoopMetrics) RecordRun(context.Context, reconciliation.ObjectType, reconciliation.RunStatus, time.Duration) {
}

var _ Metrics = NoopMetrics{}
