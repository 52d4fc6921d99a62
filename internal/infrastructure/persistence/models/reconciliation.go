package models

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/syncengine/internal/domain/reconciliation"
)

var reconciliationLogger = zap.L().Named("reconciliation.models")

// ---------------------------------------------------------------------------
// Identity mappings
// ---------------------------------------------------------------------------

// IdentityMappingModel is the persistence model for an identity mapping.
// The composite unique index is what makes Put a conditional insert.
type IdentityMappingModel struct {
	ID             uint                      `gorm:"primaryKey;autoIncrement"`
	Type           reconciliation.ObjectType `gorm:"type:varchar(32);not null;uniqueIndex:idx_identity_mappings_key,priority:1"`
	SourceService  reconciliation.Service    `gorm:"type:varchar(32);not null;uniqueIndex:idx_identity_mappings_key,priority:2"`
	TargetService  reconciliation.Service    `gorm:"type:varchar(32);not null;uniqueIndex:idx_identity_mappings_key,priority:3"`
	SourceObjectID string                    `gorm:"type:varchar(100);not null;uniqueIndex:idx_identity_mappings_key,priority:4"`
	TargetObjectID string                    `gorm:"type:varchar(100);not null;index"`
	CreatedAt      time.Time                 `gorm:"not null"`
}

// TableName returns the table name for GORM
func (IdentityMappingModel) TableName() string {
	return "identity_mappings"
}

// ToDomain converts the persistence model to a domain IdentityMapping
func (m *IdentityMappingModel) ToDomain() reconciliation.IdentityMapping {
	return reconciliation.IdentityMapping{
		MappingKey:     reconciliation.NewMappingKey(m.Type, m.SourceService, m.TargetService, m.SourceObjectID),
		TargetObjectID: m.TargetObjectID,
		CreatedAt:      m.CreatedAt,
	}
}

// IdentityMappingModelFromDomain creates a persistence model from a domain mapping
func IdentityMappingModelFromDomain(mp *reconciliation.IdentityMapping) *IdentityMappingModel {
	createdAt := mp.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return &IdentityMappingModel{
		Type:           mp.Type,
		SourceService:  mp.SourceService,
		TargetService:  mp.TargetService,
		SourceObjectID: mp.SourceObjectID,
		TargetObjectID: mp.TargetObjectID,
		CreatedAt:      createdAt,
	}
}

// ---------------------------------------------------------------------------
// Audit records
// ---------------------------------------------------------------------------

// SynchronizedObjectModel is the persistence model for one synchronization attempt
type SynchronizedObjectModel struct {
	ID            uuid.UUID                    `gorm:"type:uuid;primary_key"`
	ObjectID      string                       `gorm:"type:varchar(100);not null;index:idx_synchronized_objects_lookup,priority:2"`
	Type          reconciliation.ObjectType    `gorm:"type:varchar(32);not null;index:idx_synchronized_objects_lookup,priority:1"`
	Succeeded     bool                         `gorm:"not null;index"`
	Outcome       reconciliation.Outcome       `gorm:"type:varchar(16);not null"`
	Source        reconciliation.TriggerSource `gorm:"type:varchar(16);not null"`
	Method        reconciliation.Method        `gorm:"type:varchar(16);not null;index:idx_synchronized_objects_lookup,priority:3"`
	TargetURL     string                       `gorm:"type:varchar(500)"`
	ErrorMessage  string                       `gorm:"type:text"`
	ExtraDataJSON string                       `gorm:"column:extra_data;type:jsonb;default:'{}'"`
	ArchiveKey    string                       `gorm:"type:varchar(300)"`
	CreatedAt     time.Time                    `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (SynchronizedObjectModel) TableName() string {
	return "synchronized_objects"
}

// ToDomain converts the persistence model to a domain record
func (m *SynchronizedObjectModel) ToDomain() *reconciliation.SynchronizedObjectRecord {
	record := &reconciliation.SynchronizedObjectRecord{
		ID:           m.ID,
		ObjectID:     m.ObjectID,
		Type:         m.Type,
		Succeeded:    m.Succeeded,
		Outcome:      m.Outcome,
		Source:       m.Source,
		Method:       m.Method,
		TargetURL:    m.TargetURL,
		ErrorMessage: m.ErrorMessage,
		ExtraData:    make(map[string]any),
		ArchiveKey:   m.ArchiveKey,
		CreatedAt:    m.CreatedAt,
	}
	if m.ExtraDataJSON != "" && m.ExtraDataJSON != "{}" {
		if err := json.Unmarshal([]byte(m.ExtraDataJSON), &record.ExtraData); err != nil {
			reconciliationLogger.Warn("failed to parse extra_data JSON",
				zap.String("record_id", m.ID.String()),
				zap.Error(err),
			)
		}
	}
	return record
}

// SynchronizedObjectModelFromDomain creates a persistence model from a domain record
func SynchronizedObjectModelFromDomain(r *reconciliation.SynchronizedObjectRecord) *SynchronizedObjectModel {
	m := &SynchronizedObjectModel{
		ID:            r.ID,
		ObjectID:      r.ObjectID,
		Type:          r.Type,
		Succeeded:     r.Succeeded,
		Outcome:       r.Outcome,
		Source:        r.Source,
		Method:        r.Method,
		TargetURL:     r.TargetURL,
		ErrorMessage:  r.ErrorMessage,
		ExtraDataJSON: "{}",
		ArchiveKey:    r.ArchiveKey,
		CreatedAt:     r.CreatedAt,
	}
	if len(r.ExtraData) > 0 {
		if b, err := json.Marshal(r.ExtraData); err == nil {
			m.ExtraDataJSON = string(b)
		}
	}
	return m
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

// SyncSettingModel is one row of the synchronization key/value store
type SyncSettingModel struct {
	Key       string    `gorm:"type:varchar(150);primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncSettingModel) TableName() string {
	return "sync_settings"
}

// ToDomain converts the persistence model to a domain Setting
func (m *SyncSettingModel) ToDomain() reconciliation.Setting {
	return reconciliation.Setting{Key: m.Key, Value: m.Value, UpdatedAt: m.UpdatedAt}
}

// ---------------------------------------------------------------------------
// Runs
// ---------------------------------------------------------------------------

// SyncRunModel is the persistence model for a batch run summary
type SyncRunModel struct {
	ID          uuid.UUID                    `gorm:"type:uuid;primary_key"`
	Type        reconciliation.ObjectType    `gorm:"type:varchar(32);not null;index"`
	Trigger     reconciliation.TriggerSource `gorm:"column:trigger_source;type:varchar(16);not null"`
	Status      reconciliation.RunStatus     `gorm:"type:varchar(16);not null"`
	Disabled    bool                         `gorm:"not null;default:false"`
	Total       int                          `gorm:"not null;default:0"`
	Succeeded   int                          `gorm:"not null;default:0"`
	Failed      int                          `gorm:"not null;default:0"`
	Skipped     int                          `gorm:"not null;default:0"`
	Cursor      string                       `gorm:"type:varchar(100)"`
	Error       string                       `gorm:"type:text"`
	StartedAt   time.Time                    `gorm:"not null;index"`
	CompletedAt *time.Time
}

// TableName returns the table name for GORM
func (SyncRunModel) TableName() string {
	return "sync_runs"
}

// ToDomain converts the persistence model to a domain SyncRun
func (m *SyncRunModel) ToDomain() *reconciliation.SyncRun {
	return &reconciliation.SyncRun{
		ID:          m.ID,
		Type:        m.Type,
		Trigger:     m.Trigger,
		Status:      m.Status,
		Disabled:    m.Disabled,
		Total:       m.Total,
		Succeeded:   m.Succeeded,
		Failed:      m.Failed,
		Skipped:     m.Skipped,
		Cursor:      m.Cursor,
		Error:       m.Error,
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
	}
}

// SyncRunModelFromDomain creates a persistence model from a domain SyncRun
func SyncRunModelFromDomain(r *reconciliation.SyncRun) *SyncRunModel {
	return &SyncRunModel{
		ID:          r.ID,
		Type:        r.Type,
		Trigger:     r.Trigger,
		Status:      r.Status,
		Disabled:    r.Disabled,
		Total:       r.Total,
		Succeeded:   r.Succeeded,
		Failed:      r.Failed,
		Skipped:     r.Skipped,
		Cursor:      r.Cursor,
		Error:       r.Error,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
	}
}
