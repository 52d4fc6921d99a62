package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the state of a batch synchronization run
type RunStatus string

const (
	RunStatusPending RunStatus = "PENDING"
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusPartial RunStatus = "PARTIAL"
	RunStatusFailed  RunStatus = "FAILED"
)

// IsValid checks if the status is valid
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusPending, RunStatusRunning, RunStatusSuccess, RunStatusPartial, RunStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the run has finished
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusSuccess || s == RunStatusPartial || s == RunStatusFailed
}

// String returns the string representation
func (s RunStatus) String() string {
	return string(s)
}

// SyncRun summarises one batch run of a synchronizer
type SyncRun struct {
	ID          uuid.UUID
	Type        ObjectType
	Trigger     TriggerSource
	Status      RunStatus
	Disabled    bool
	Total       int
	Succeeded   int
	Failed      int
	Skipped     int
	Cursor      string
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// NewSyncRun creates a pending run
func NewSyncRun(t ObjectType, trigger TriggerSource) *SyncRun {
	return &SyncRun{
		ID:        uuid.New(),
		Type:      t,
		Trigger:   trigger,
		Status:    RunStatusPending,
		StartedAt: time.Now(),
	}
}

// Start marks the run as running
func (r *SyncRun) Start() {
	r.Status = RunStatusRunning
	r.StartedAt = time.Now()
}

// Record counts the outcome of one attempt
func (r *SyncRun) Record(outcome Outcome) {
	r.Total++
	switch outcome {
	case OutcomeFailed:
		r.Failed++
	case OutcomeSkipped:
		r.Skipped++
	default:
		r.Succeeded++
	}
}

// Skip counts an object that was not attempted because it already succeeded
func (r *SyncRun) Skip() {
	r.Total++
	r.Skipped++
}

// Complete derives the final status from the counters
func (r *SyncRun) Complete() {
	now := time.Now()
	r.CompletedAt = &now
	switch {
	case r.Failed == 0:
		r.Status = RunStatusSuccess
	case r.Succeeded > 0 || r.Skipped > 0:
		r.Status = RunStatusPartial
	default:
		r.Status = RunStatusFailed
	}
}

// Fail marks the whole run as failed
func (r *SyncRun) Fail(err error) {
	now := time.Now()
	r.CompletedAt = &now
	r.Status = RunStatusFailed
	r.Error = ErrorMessage(err)
}

// MarkDisabled completes a run that did nothing because the synchronizer is disabled
func (r *SyncRun) MarkDisabled() {
	r.Disabled = true
	r.Complete()
}

// Duration returns how long the run took, or zero while it is running
func (r *SyncRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// SyncRunRepository persists run summaries
type SyncRunRepository interface {
	Save(ctx context.Context, run *SyncRun) error
	FindByID(ctx context.Context, id uuid.UUID) (*SyncRun, error)
	// ListRecent returns the latest runs, optionally restricted to one type
	ListRecent(ctx context.Context, t ObjectType, limit int) ([]SyncRun, error)
}
