package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	appreconciliation "github.com/erp/syncengine/internal/application/reconciliation"
	"github.com/erp/syncengine/internal/domain/reconciliation"
	"github.com/erp/syncengine/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSettingsService struct {
	mock.Mock
}

func (m *mockSettingsService) All(ctx context.Context) ([]reconciliation.Setting, error) {
	args := m.Called(ctx)
	settings, _ := args.Get(0).([]reconciliation.Setting)
	return settings, args.Error(1)
}

func (m *mockSettingsService) Set(ctx context.Context, key, value string) error {
	return m.Called(ctx, key, value).Error(0)
}

func newSettingsRouter(s SettingsService) *gin.Engine {
	h := NewSettingsHandler(s)
	router := gin.New()
	router.GET("/settings", h.List)
	router.PUT("/settings/:key", h.Update)
	return router
}

func TestSettingsHandler_List(t *testing.T) {
	s := new(mockSettingsService)
	s.On("All", mock.Anything).Return([]reconciliation.Setting{
		{Key: reconciliation.SettingWebhookSecret, Value: "hook-secret", UpdatedAt: time.Now()},
		{Key: reconciliation.EnabledKey(reconciliation.ObjectTypeInvoice), Value: "true"},
	}, nil)

	w := serve(newSettingsRouter(s), http.MethodGet, "/settings", "")
	require.Equal(t, http.StatusOK, w.Code)

	var settings []appreconciliation.SettingResponse
	decodeSuccess(t, w, &settings)
	require.Len(t, settings, 2)
	assert.NotEqual(t, "hook-secret", settings[0].Value)
	assert.NotNil(t, settings[0].UpdatedAt)
	assert.Equal(t, "true", settings[1].Value)
	assert.NotContains(t, w.Body.String(), "hook-secret")
}

func TestSettingsHandler_List_Error(t *testing.T) {
	s := new(mockSettingsService)
	s.On("All", mock.Anything).Return(nil, errors.New("database is locked"))

	w := serve(newSettingsRouter(s), http.MethodGet, "/settings", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, decodeError(t, w).ErrorMessage, "locked")
}

func TestSettingsHandler_Update(t *testing.T) {
	key := reconciliation.MaxBatchSizeKey(reconciliation.ObjectTypePayment)

	t.Run("success", func(t *testing.T) {
		s := new(mockSettingsService)
		s.On("Set", mock.Anything, key, "25").Return(nil)

		w := serve(newSettingsRouter(s), http.MethodPut, "/settings/"+key, `{"value":"25"}`)

		assert.Equal(t, http.StatusNoContent, w.Code)
		s.AssertExpectations(t)
	})

	t.Run("empty value is allowed", func(t *testing.T) {
		s := new(mockSettingsService)
		s.On("Set", mock.Anything, key, "").Return(nil)

		w := serve(newSettingsRouter(s), http.MethodPut, "/settings/"+key, `{"value":""}`)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("missing value", func(t *testing.T) {
		s := new(mockSettingsService)

		w := serve(newSettingsRouter(s), http.MethodPut, "/settings/"+key, `{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, decodeError(t, w).Code)
		s.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejected value", func(t *testing.T) {
		s := new(mockSettingsService)
		s.On("Set", mock.Anything, key, "lots").
			Return(reconciliation.NewConfigurationError(key, reconciliation.ErrSettingInvalid, "not an integer"))

		w := serve(newSettingsRouter(s), http.MethodPut, "/settings/"+key, `{"value":"lots"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeConfiguration, decodeError(t, w).Code)
	})
}
