package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appreconciliation "github.com/erp/syncengine/internal/application/reconciliation"
	"github.com/erp/syncengine/internal/domain/reconciliation"
	"github.com/erp/syncengine/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSyncDispatcher struct {
	mock.Mock
}

func (m *mockSyncDispatcher) RunType(ctx context.Context, t reconciliation.ObjectType, trigger reconciliation.TriggerSource) (*appreconciliation.RunReport, error) {
	args := m.Called(ctx, t, trigger)
	report, _ := args.Get(0).(*appreconciliation.RunReport)
	return report, args.Error(1)
}

func (m *mockSyncDispatcher) Retry(ctx context.Context, objectID string, t reconciliation.ObjectType, method reconciliation.Method) (*appreconciliation.Result, error) {
	args := m.Called(ctx, objectID, t, method)
	result, _ := args.Get(0).(*appreconciliation.Result)
	return result, args.Error(1)
}

type mockSyncQueries struct {
	mock.Mock
}

func (m *mockSyncQueries) ListRecords(ctx context.Context, filter appreconciliation.RecordListFilter) ([]appreconciliation.RecordResponse, int64, error) {
	args := m.Called(ctx, filter)
	records, _ := args.Get(0).([]appreconciliation.RecordResponse)
	return records, args.Get(1).(int64), args.Error(2)
}

func (m *mockSyncQueries) GetRecord(ctx context.Context, id uuid.UUID) (*appreconciliation.RecordResponse, error) {
	args := m.Called(ctx, id)
	record, _ := args.Get(0).(*appreconciliation.RecordResponse)
	return record, args.Error(1)
}

func (m *mockSyncQueries) ListMappings(ctx context.Context, filter appreconciliation.MappingListFilter) ([]appreconciliation.MappingResponse, int64, error) {
	args := m.Called(ctx, filter)
	mappings, _ := args.Get(0).([]appreconciliation.MappingResponse)
	return mappings, args.Get(1).(int64), args.Error(2)
}

func (m *mockSyncQueries) ListRuns(ctx context.Context, objectType string, limit int) ([]appreconciliation.RunResponse, error) {
	args := m.Called(ctx, objectType, limit)
	runs, _ := args.Get(0).([]appreconciliation.RunResponse)
	return runs, args.Error(1)
}

type stubLocator struct {
	url string
	err error
}

func (s stubLocator) PayloadURL(_ context.Context, key string, _ time.Duration) (string, time.Time, error) {
	if s.err != nil {
		return "", time.Time{}, s.err
	}
	return s.url + key, time.Now().Add(payloadURLExpiry), nil
}

func newSyncRouter(d SyncDispatcher, q SyncQueries, payloads PayloadLocator) *gin.Engine {
	h := NewSyncHandler(d, q, payloads)
	router := gin.New()
	router.POST("/sync/retry", h.Retry)
	router.POST("/sync/run/:type", h.Run)
	router.GET("/sync/records", h.ListRecords)
	router.GET("/sync/records/:id", h.GetRecord)
	router.GET("/sync/mappings", h.ListMappings)
	router.GET("/sync/runs", h.ListRuns)
	return router
}

func serve(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSyncHandler_Retry(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		d := new(mockSyncDispatcher)
		d.On("Retry", mock.Anything, "INV-42", reconciliation.ObjectTypeInvoice, reconciliation.MethodCreate).
			Return(&appreconciliation.Result{Outcome: reconciliation.OutcomeCreated}, nil)

		w := serve(newSyncRouter(d, nil, nil), http.MethodPost, "/sync/retry", `{"id":"INV-42","type":"invoice","method":"create"}`)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
		d.AssertExpectations(t)
	})

	t.Run("remote failure", func(t *testing.T) {
		d := new(mockSyncDispatcher)
		d.On("Retry", mock.Anything, "CN-1", reconciliation.ObjectTypeCreditNote, reconciliation.MethodUpdate).
			Return(nil, reconciliation.NewRemoteAPIError(reconciliation.ServiceAccounting, http.StatusBadRequest, "ledger closed"))

		w := serve(newSyncRouter(d, nil, nil), http.MethodPost, "/sync/retry", `{"id":"CN-1","type":"credit_note","method":"update"}`)

		assert.Equal(t, http.StatusBadGateway, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, dto.ErrCodeRemoteAPI, resp.Code)
		assert.Contains(t, resp.ErrorMessage, "ledger closed")
	})

	tests := []struct {
		name string
		body string
		code string
	}{
		{"unknown type", `{"id":"1","type":"quote","method":"create"}`, dto.ErrCodeUnknownType},
		{"invalid method", `{"id":"1","type":"invoice","method":"upsert"}`, dto.ErrCodeValidation},
		{"missing id", `{"type":"invoice","method":"create"}`, dto.ErrCodeValidation},
		{"malformed json", `{"id":`, dto.ErrCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := new(mockSyncDispatcher)
			w := serve(newSyncRouter(d, nil, nil), http.MethodPost, "/sync/retry", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Code)
			d.AssertNotCalled(t, "Retry", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSyncHandler_Run(t *testing.T) {
	run := reconciliation.NewSyncRun(reconciliation.ObjectTypePayment, reconciliation.TriggerManual)
	run.Total, run.Succeeded = 1, 1
	report := &appreconciliation.RunReport{
		Run: run,
		Results: []*appreconciliation.Result{{
			ObjectID: "PAY-9",
			Type:     reconciliation.ObjectTypePayment,
			Method:   reconciliation.MethodCreate,
			Outcome:  reconciliation.OutcomeCreated,
			TargetID: "77",
		}},
	}

	d := new(mockSyncDispatcher)
	d.On("RunType", mock.Anything, reconciliation.ObjectTypePayment, reconciliation.TriggerManual).Return(report, nil)
	router := newSyncRouter(d, nil, nil)

	w := serve(router, http.MethodPost, "/sync/run/payment", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp RunResultResponse
	decodeSuccess(t, w, &resp)
	assert.Equal(t, run.ID, resp.Run.ID)
	assert.Equal(t, "manual", resp.Run.Trigger)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "77", resp.Results[0].TargetID)
	assert.Equal(t, "created", resp.Results[0].Outcome)

	w = serve(router, http.MethodPost, "/sync/run/quote", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeUnknownType, decodeError(t, w).Code)
}

func TestSyncHandler_Run_ConfigurationError(t *testing.T) {
	d := new(mockSyncDispatcher)
	d.On("RunType", mock.Anything, reconciliation.ObjectTypeInvoice, reconciliation.TriggerManual).
		Return(nil, reconciliation.NewConfigurationError(reconciliation.SettingDebtorLedgerCode, reconciliation.ErrSettingMissing, ""))

	w := serve(newSyncRouter(d, nil, nil), http.MethodPost, "/sync/run/invoice", "")

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, dto.ErrCodeConfiguration, decodeError(t, w).Code)
}

func TestSyncHandler_ListRecords(t *testing.T) {
	succeeded := false
	q := new(mockSyncQueries)
	q.On("ListRecords", mock.Anything, appreconciliation.RecordListFilter{
		Type:      "invoice",
		Succeeded: &succeeded,
		Page:      2,
		PageSize:  10,
	}).Return([]appreconciliation.RecordResponse{{ID: uuid.New(), ObjectID: "INV-1", Type: "invoice"}}, int64(11), nil)

	w := serve(newSyncRouter(nil, q, nil), http.MethodGet, "/sync/records?type=invoice&succeeded=false&page=2&page_size=10", "")
	require.Equal(t, http.StatusOK, w.Code)

	var records []appreconciliation.RecordResponse
	meta := decodeSuccess(t, w, &records)
	require.Len(t, records, 1)
	require.NotNil(t, meta)
	assert.Equal(t, int64(11), meta.Total)
	assert.Equal(t, 2, meta.Page)
	assert.Equal(t, 10, meta.PageSize)
	q.AssertExpectations(t)
}

func TestSyncHandler_ListRecords_DefaultPage(t *testing.T) {
	q := new(mockSyncQueries)
	q.On("ListRecords", mock.Anything, appreconciliation.RecordListFilter{}).
		Return([]appreconciliation.RecordResponse{}, int64(0), nil)

	w := serve(newSyncRouter(nil, q, nil), http.MethodGet, "/sync/records", "")
	require.Equal(t, http.StatusOK, w.Code)

	meta := decodeSuccess(t, w, nil)
	require.NotNil(t, meta)
	page, pageSize := appreconciliation.NormalizePage(0, 0)
	assert.Equal(t, page, meta.Page)
	assert.Equal(t, pageSize, meta.PageSize)
}

func TestSyncHandler_GetRecord(t *testing.T) {
	id := uuid.New()
	record := &appreconciliation.RecordResponse{ID: id, ObjectID: "PT-3", Type: "pick_ticket", ArchiveKey: "webhooks/pt-3.json"}

	t.Run("with payload link", func(t *testing.T) {
		q := new(mockSyncQueries)
		q.On("GetRecord", mock.Anything, id).Return(record, nil)

		w := serve(newSyncRouter(nil, q, stubLocator{url: "https://bucket.example/"}), http.MethodGet, "/sync/records/"+id.String(), "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp RecordDetailResponse
		decodeSuccess(t, w, &resp)
		assert.Equal(t, "PT-3", resp.ObjectID)
		assert.Equal(t, "https://bucket.example/webhooks/pt-3.json", resp.PayloadURL)
		assert.NotNil(t, resp.PayloadExpiresAt)
	})

	t.Run("presign failure still answers", func(t *testing.T) {
		q := new(mockSyncQueries)
		q.On("GetRecord", mock.Anything, id).Return(record, nil)

		w := serve(newSyncRouter(nil, q, stubLocator{err: errors.New("no credentials")}), http.MethodGet, "/sync/records/"+id.String(), "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp RecordDetailResponse
		decodeSuccess(t, w, &resp)
		assert.Empty(t, resp.PayloadURL)
		assert.Equal(t, "webhooks/pt-3.json", resp.ArchiveKey)
	})

	t.Run("not found", func(t *testing.T) {
		q := new(mockSyncQueries)
		q.On("GetRecord", mock.Anything, id).Return(nil, reconciliation.ErrRecordNotFound)

		w := serve(newSyncRouter(nil, q, nil), http.MethodGet, "/sync/records/"+id.String(), "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeNotFound, decodeError(t, w).Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		q := new(mockSyncQueries)
		w := serve(newSyncRouter(nil, q, nil), http.MethodGet, "/sync/records/not-a-uuid", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		q.AssertNotCalled(t, "GetRecord", mock.Anything, mock.Anything)
	})
}

func TestSyncHandler_ListMappings(t *testing.T) {
	q := new(mockSyncQueries)
	q.On("ListMappings", mock.Anything, appreconciliation.MappingListFilter{Type: "payment", SourceObjectID: "PAY-1"}).
		Return([]appreconciliation.MappingResponse{{Type: "payment", SourceObjectID: "PAY-1", TargetObjectID: "501"}}, int64(1), nil)

	w := serve(newSyncRouter(nil, q, nil), http.MethodGet, "/sync/mappings?type=payment&source_object_id=PAY-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var mappings []appreconciliation.MappingResponse
	meta := decodeSuccess(t, w, &mappings)
	require.Len(t, mappings, 1)
	assert.Equal(t, "501", mappings[0].TargetObjectID)
	assert.Equal(t, int64(1), meta.Total)
}

func TestSyncHandler_ListRuns(t *testing.T) {
	q := new(mockSyncQueries)
	q.On("ListRuns", mock.Anything, "invoice", 5).
		Return([]appreconciliation.RunResponse{{ID: uuid.New(), Type: "invoice", Status: "success"}}, nil)
	q.On("ListRuns", mock.Anything, "", 0).Return(nil, errors.New("connection refused"))
	router := newSyncRouter(nil, q, nil)

	w := serve(router, http.MethodGet, "/sync/runs?type=invoice&limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	var runs []appreconciliation.RunResponse
	decodeSuccess(t, w, &runs)
	require.Len(t, runs, 1)

	w = serve(router, http.MethodGet, "/sync/runs?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(router, http.MethodGet, "/sync/runs", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, dto.ErrCodeInternal, decodeError(t, w).Code)
}
