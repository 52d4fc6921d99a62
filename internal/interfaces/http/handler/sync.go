package handler

import (
	"context"
	"strconv"
	"time"

	appreconciliation "github.com/erp/syncengine/internal/application/reconciliation"
	"github.com/erp/syncengine/internal/domain/reconciliation"
	"github.com/erp/syncengine/internal/infrastructure/logger"
	"github.com/erp/syncengine/internal/interfaces/http/dto"
	"github.com/erp/syncengine/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// payloadURLExpiry is the lifetime of presigned archive links in record responses
const payloadURLExpiry = 15 * time.Minute

// SyncDispatcher triggers manual runs and retries
type SyncDispatcher interface {
	RunType(ctx context.Context, t reconciliation.ObjectType, trigger reconciliation.TriggerSource) (*appreconciliation.RunReport, error)
	Retry(ctx context.Context, objectID string, t reconciliation.ObjectType, method reconciliation.Method) (*appreconciliation.Result, error)
}

// SyncQueries serves the read side of the admin API
type SyncQueries interface {
	ListRecords(ctx context.Context, filter appreconciliation.RecordListFilter) ([]appreconciliation.RecordResponse, int64, error)
	GetRecord(ctx context.Context, id uuid.UUID) (*appreconciliation.RecordResponse, error)
	ListMappings(ctx context.Context, filter appreconciliation.MappingListFilter) ([]appreconciliation.MappingResponse, int64, error)
	ListRuns(ctx context.Context, objectType string, limit int) ([]appreconciliation.RunResponse, error)
}

// PayloadLocator resolves archived webhook payloads to download links
type PayloadLocator interface {
	PayloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}

// RunResultResponse is the body of a manual run
type RunResultResponse struct {
	Run     appreconciliation.RunResponse      `json:"run"`
	Results []appreconciliation.ResultResponse `json:"results,omitempty"`
}

// RecordDetailResponse is an audit record with an optional link to its archived payload
type RecordDetailResponse struct {
	appreconciliation.RecordResponse
	PayloadURL       string     `json:"payload_url,omitempty"`
	PayloadExpiresAt *time.Time `json:"payload_expires_at,omitempty"`
}

// SyncHandler serves the operator API for retries, runs and audit queries
type SyncHandler struct {
	BaseHandler
	dispatcher SyncDispatcher
	queries    SyncQueries
	payloads   PayloadLocator
}

// NewSyncHandler creates a new SyncHandler. payloads may be nil.
func NewSyncHandler(dispatcher SyncDispatcher, queries SyncQueries, payloads PayloadLocator) *SyncHandler {
	return &SyncHandler{
		dispatcher: dispatcher,
		queries:    queries,
		payloads:   payloads,
	}
}

// Retry handles POST /sync/retry. The object is re-fetched from its source
// system; success answers 204.
func (h *SyncHandler) Retry(c *gin.Context) {
	var req appreconciliation.RetryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	t, err := reconciliation.ParseObjectType(req.Type)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	method, err := reconciliation.ParseMethod(req.Method)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	logger.FromContext(c.Request.Context()).Info("manual retry requested",
		zap.String("object_type", t.String()),
		zap.String("object_id", req.ID),
		zap.String("method", method.String()),
		zap.String("subject", middleware.Subject(c)),
	)

	if _, err := h.dispatcher.Retry(c.Request.Context(), req.ID, t, method); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Run handles POST /sync/run/:type
func (h *SyncHandler) Run(c *gin.Context) {
	var req dto.TypeRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	t, err := reconciliation.ParseObjectType(req.Type)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	report, err := h.dispatcher.RunType(c.Request.Context(), t, reconciliation.TriggerManual)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := RunResultResponse{Run: appreconciliation.ToRunResponse(report.Run)}
	for _, result := range report.Results {
		resp.Results = append(resp.Results, appreconciliation.ToResultResponse(result))
	}
	h.Success(c, resp)
}

// ListRecords handles GET /sync/records
func (h *SyncHandler) ListRecords(c *gin.Context) {
	var filter appreconciliation.RecordListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindingError(c, err)
		return
	}

	records, total, err := h.queries.ListRecords(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := appreconciliation.NormalizePage(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, records, total, page, pageSize)
}

// GetRecord handles GET /sync/records/:id
func (h *SyncHandler) GetRecord(c *gin.Context) {
	var req dto.RecordRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	record, err := h.queries.GetRecord(c.Request.Context(), uuid.MustParse(req.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := RecordDetailResponse{RecordResponse: *record}
	if h.payloads != nil && record.ArchiveKey != "" {
		url, expiresAt, err := h.payloads.PayloadURL(c.Request.Context(), record.ArchiveKey, payloadURLExpiry)
		if err != nil {
			logger.FromContext(c.Request.Context()).Warn("failed to presign archived payload",
				zap.String("archive_key", record.ArchiveKey),
				zap.Error(err),
			)
		} else {
			resp.PayloadURL = url
			resp.PayloadExpiresAt = &expiresAt
		}
	}
	h.Success(c, resp)
}

// ListMappings handles GET /sync/mappings
func (h *SyncHandler) ListMappings(c *gin.Context) {
	var filter appreconciliation.MappingListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindingError(c, err)
		return
	}

	mappings, total, err := h.queries.ListMappings(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := appreconciliation.NormalizePage(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, mappings, total, page, pageSize)
}

// ListRuns handles GET /sync/runs?type=&limit=
func (h *SyncHandler) ListRuns(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.BadRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	runs, err := h.queries.ListRuns(c.Request.Context(), c.Query("type"), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, runs)
}
