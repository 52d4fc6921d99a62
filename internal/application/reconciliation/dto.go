package reconciliation

import (
	"time"

	"github.com/erp/syncengine/internal/domain/reconciliation"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Response DTOs
// ---------------------------------------------------------------------------

// RecordResponse represents an audit record in API responses
type RecordResponse struct {
	ID           uuid.UUID      `json:"id"`
	ObjectID     string         `json:"object_id"`
	Type         string         `json:"type"`
	Succeeded    bool           `json:"succeeded"`
	Outcome      string         `json:"outcome"`
	Source       string         `json:"source"`
	Method       string         `json:"method"`
	TargetURL    string         `json:"target_url,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	ExtraData    map[string]any `json:"extra_data,omitempty"`
	ArchiveKey   string         `json:"archive_key,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// MappingResponse represents an identity mapping in API responses
type MappingResponse struct {
	Type           string    `json:"type"`
	SourceService  string    `json:"source_service"`
	TargetService  string    `json:"target_service"`
	SourceObjectID string    `json:"source_object_id"`
	TargetObjectID string    `json:"target_object_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// RunResponse represents a sync run in API responses
type RunResponse struct {
	ID          uuid.UUID  `json:"id"`
	Type        string     `json:"type"`
	Trigger     string     `json:"trigger"`
	Status      string     `json:"status"`
	Disabled    bool       `json:"disabled"`
	Total       int        `json:"total"`
	Succeeded   int        `json:"succeeded"`
	Failed      int        `json:"failed"`
	Skipped     int        `json:"skipped"`
	Cursor      string     `json:"cursor,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ResultResponse represents one attempt in API responses
type ResultResponse struct {
	RecordID     *uuid.UUID `json:"record_id,omitempty"`
	ObjectID     string     `json:"object_id,omitempty"`
	Type         string     `json:"type"`
	Method       string     `json:"method"`
	Outcome      string     `json:"outcome"`
	TargetID     string     `json:"target_id,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// SettingResponse represents a setting in API responses. Secrets are masked.
type SettingResponse struct {
	Key       string     `json:"key"`
	Value     string     `json:"value"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// ---------------------------------------------------------------------------
// Request DTOs
// ---------------------------------------------------------------------------

// RetryRequest asks for a manual re-attempt of one object
type RetryRequest struct {
	ID     string `json:"id" binding:"required"`
	Type   string `json:"type" binding:"required"`
	Method string `json:"method" binding:"required,oneof=create update delete"`
}

// RecordListFilter represents filter options for listing audit records
type RecordListFilter struct {
	Type      string `form:"type"`
	ObjectID  string `form:"object_id"`
	Succeeded *bool  `form:"succeeded"`
	Source    string `form:"source"`
	Method    string `form:"method"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
}

// MappingListFilter represents filter options for listing mappings
type MappingListFilter struct {
	Type           string `form:"type"`
	SourceObjectID string `form:"source_object_id"`
	TargetObjectID string `form:"target_object_id"`
	Page           int    `form:"page"`
	PageSize       int    `form:"page_size"`
}

// ---------------------------------------------------------------------------
// Conversion functions
// ---------------------------------------------------------------------------

// ToRecordResponse converts an audit record to a response DTO
func ToRecordResponse(r *reconciliation.SynchronizedObjectRecord) RecordResponse {
	return RecordResponse{
		ID:           r.ID,
		ObjectID:     r.ObjectID,
		Type:         r.Type.String(),
		Succeeded:    r.Succeeded,
		Outcome:      r.Outcome.String(),
		Source:       r.Source.String(),
		Method:       r.Method.String(),
		TargetURL:    r.TargetURL,
		ErrorMessage: r.ErrorMessage,
		ExtraData:    r.ExtraData,
		ArchiveKey:   r.ArchiveKey,
		CreatedAt:    r.CreatedAt,
	}
}

// ToMappingResponse converts an identity mapping to a response DTO
func ToMappingResponse(m *reconciliation.IdentityMapping) MappingResponse {
	return MappingResponse{
		Type:           m.Type.String(),
		SourceService:  m.SourceService.String(),
		TargetService:  m.TargetService.String(),
		SourceObjectID: m.SourceObjectID,
		TargetObjectID: m.TargetObjectID,
		CreatedAt:      m.CreatedAt,
	}
}

// ToRunResponse converts a sync run to a response DTO
func ToRunResponse(r *reconciliation.SyncRun) RunResponse {
	return RunResponse{
		ID:          r.ID,
		Type:        r.Type.String(),
		Trigger:     r.Trigger.String(),
		Status:      r.Status.String(),
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

// ToResultResponse converts an attempt result to a response DTO
func ToResultResponse(r *Result) ResultResponse {
	resp := ResultResponse{
		ObjectID: r.ObjectID,
		Type:     r.Type.String(),
		Method:   r.Method.String(),
		Outcome:  r.Outcome.String(),
		TargetID: r.TargetID,
	}
	if r.RecordID != uuid.Nil {
		id := r.RecordID
		resp.RecordID = &id
	}
	if err := r.Failure(); err != nil {
		resp.ErrorMessage = reconciliation.ErrorMessage(err)
	}
	return resp
}

// maskedValue replaces secret setting values in responses
const maskedValue = "********"

// ToSettingResponse converts a setting to a response DTO, masking secrets
func ToSettingResponse(s reconciliation.Setting) SettingResponse {
	resp := SettingResponse{Key: s.Key, Value: s.Value}
	if reconciliation.IsSecretSetting(s.Key) && s.Value != "" {
		resp.Value = maskedValue
	}
	if !s.UpdatedAt.IsZero() {
		updated := s.UpdatedAt
		resp.UpdatedAt = &updated
	}
	return resp
}
