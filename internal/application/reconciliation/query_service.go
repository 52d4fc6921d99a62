package reconciliation

import (
	"context"

	"github.com/erp/syncengine/internal/domain/reconciliation"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	defaultRunLimit = 50
)

// QueryService serves read-only views of audit records, mappings and runs
type QueryService struct {
	audit    reconciliation.AuditLogRepository
	mappings reconciliation.IdentityMappingReader
	runs     reconciliation.SyncRunRepository
}

// NewQueryService creates a new QueryService
func NewQueryService(
	audit reconciliation.AuditLogRepository,
	mappings reconciliation.IdentityMappingReader,
	runs reconciliation.SyncRunRepository,
) *QueryService {
	return &QueryService{
		audit:    audit,
		mappings: mappings,
		runs:     runs,
	}
}

// NormalizePage applies the default and maximum page size
func NormalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// ListRecords lists audit records, newest first
func (s *QueryService) ListRecords(ctx context.Context, filter RecordListFilter) ([]RecordResponse, int64, error) {
	page, pageSize := NormalizePage(filter.Page, filter.PageSize)
	domainFilter := reconciliation.AuditFilter{
		ObjectID:  filter.ObjectID,
		Succeeded: filter.Succeeded,
		Page:      page,
		PageSize:  pageSize,
	}
	if filter.Type != "" {
		t, err := reconciliation.ParseObjectType(filter.Type)
		if err != nil {
			return nil, 0, err
		}
		domainFilter.Type = t
	}
	if filter.Method != "" {
		m, err := reconciliation.ParseMethod(filter.Method)
		if err != nil {
			return nil, 0, err
		}
		domainFilter.Method = m
	}
	if filter.Source != "" {
		domainFilter.Source = reconciliation.TriggerSource(filter.Source)
	}

	records, err := s.audit.List(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.audit.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]RecordResponse, len(records))
	for i := range records {
		responses[i] = ToRecordResponse(&records[i])
	}
	return responses, total, nil
}

// GetRecord returns one audit record
func (s *QueryService) GetRecord(ctx context.Context, id uuid.UUID) (*RecordResponse, error) {
	record, err := s.audit.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToRecordResponse(record)
	return &resp, nil
}

// ListMappings lists identity mappings
func (s *QueryService) ListMappings(ctx context.Context, filter MappingListFilter) ([]MappingResponse, int64, error) {
	page, pageSize := NormalizePage(filter.Page, filter.PageSize)
	domainFilter := reconciliation.IdentityMappingFilter{
		SourceObjectID: filter.SourceObjectID,
		TargetObjectID: filter.TargetObjectID,
		Page:           page,
		PageSize:       pageSize,
	}
	if filter.Type != "" {
		t, err := reconciliation.ParseObjectType(filter.Type)
		if err != nil {
			return nil, 0, err
		}
		domainFilter.Type = t
	}

	mappings, err := s.mappings.List(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.mappings.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]MappingResponse, len(mappings))
	for i := range mappings {
		responses[i] = ToMappingResponse(&mappings[i])
	}
	return responses, total, nil
}

// ListRuns lists the most recent runs, optionally of one type
func (s *QueryService) ListRuns(ctx context.Context, objectType string, limit int) ([]RunResponse, error) {
	var t reconciliation.ObjectType
	if objectType != "" {
		parsed, err := reconciliation.ParseObjectType(objectType)
		if err != nil {
			return nil, err
		}
		t = parsed
	}
	if limit <= 0 || limit > maxPageSize {
		limit = defaultRunLimit
	}

	runs, err := s.runs.ListRecent(ctx, t, limit)
	if err != nil {
		return nil, err
	}
	responses := make([]RunResponse, len(runs))
	for i := range runs {
		responses[i] = ToRunResponse(&runs[i])
	}
	return responses, nil
}
