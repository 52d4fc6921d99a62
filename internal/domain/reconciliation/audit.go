package reconciliation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SynchronizedObjectRecord is one audit entry: the outcome of a single
// synchronization attempt. Records are append-only and an object may
// accumulate many of them over time, including failed ones.
type SynchronizedObjectRecord struct {
	ID           uuid.UUID
	ObjectID     string
	Type         ObjectType
	Succeeded    bool
	Outcome      Outcome
	Source       TriggerSource
	Method       Method
	TargetURL    string
	ErrorMessage string
	ExtraData    map[string]any
	ArchiveKey   string
	CreatedAt    time.Time
}

// NewSynchronizedObjectRecord creates a pending audit record for an attempt
func NewSynchronizedObjectRecord(objectID string, t ObjectType, source TriggerSource, method Method) *SynchronizedObjectRecord {
	return &SynchronizedObjectRecord{
		ID:        uuid.New(),
		ObjectID:  objectID,
		Type:      t,
		Source:    source,
		Method:    method,
		ExtraData: make(map[string]any),
		CreatedAt: time.Now(),
	}
}

// MarkSucceeded records a successful outcome
func (r *SynchronizedObjectRecord) MarkSucceeded(outcome Outcome) {
	r.Succeeded = true
	r.Outcome = outcome
	r.ErrorMessage = ""
}

// MarkFailed records a failed outcome with the error's message
func (r *SynchronizedObjectRecord) MarkFailed(err error) {
	r.Succeeded = false
	r.Outcome = OutcomeFailed
	r.ErrorMessage = ErrorMessage(err)
	if r.ErrorMessage == "" {
		r.ErrorMessage = "unknown error"
	}
}

// WithExtra attaches a diagnostic value to the record
func (r *SynchronizedObjectRecord) WithExtra(key string, value any) *SynchronizedObjectRecord {
	if r.ExtraData == nil {
		r.ExtraData = make(map[string]any)
	}
	r.ExtraData[key] = value
	return r
}

// Validate checks the record before it is appended
func (r *SynchronizedObjectRecord) Validate() error {
	if strings.TrimSpace(r.ObjectID) == "" {
		return fmt.Errorf("%w: object id is required", ErrInvalidRecord)
	}
	if !r.Type.IsValid() {
		return fmt.Errorf("%w: unknown object type %q", ErrInvalidRecord, r.Type)
	}
	if !r.Source.IsValid() {
		return fmt.Errorf("%w: unknown trigger source %q", ErrInvalidRecord, r.Source)
	}
	if !r.Method.IsValid() {
		return fmt.Errorf("%w: unknown method %q", ErrInvalidRecord, r.Method)
	}
	if r.Outcome == "" {
		return fmt.Errorf("%w: outcome is required", ErrInvalidRecord)
	}
	if r.Succeeded != r.Outcome.Succeeded() {
		return fmt.Errorf("%w: outcome %q contradicts succeeded=%t", ErrInvalidRecord, r.Outcome, r.Succeeded)
	}
	return nil
}

// AuditFilter narrows audit listings
type AuditFilter struct {
	Type      ObjectType
	ObjectID  string
	Succeeded *bool
	Source    TriggerSource
	Method    Method
	Page      int
	PageSize  int
}

// AuditLogRepository is the append-only store of synchronization attempts
type AuditLogRepository interface {
	// Append writes a record. It never fails silently: any storage problem is
	// returned to the caller, which must escalate it.
	Append(ctx context.Context, record *SynchronizedObjectRecord) error

	// HasSucceeded reports whether an attempt with the method succeeded and
	// actually reached the target system. Skipped no-ops do not count.
	HasSucceeded(ctx context.Context, t ObjectType, objectID string, method Method) (bool, error)

	// FindByID returns a record or ErrRecordNotFound
	FindByID(ctx context.Context, id uuid.UUID) (*SynchronizedObjectRecord, error)

	// List returns records matching the filter, newest first
	List(ctx context.Context, filter AuditFilter) ([]SynchronizedObjectRecord, error)

	// Count returns the number of records matching the filter
	Count(ctx context.Context, filter AuditFilter) (int64, error)
}
