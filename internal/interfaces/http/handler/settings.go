package handler

import (
	"context"

	appreconciliation "github.com/erp/syncengine/internal/application/reconciliation"
	"github.com/erp/syncengine/internal/domain/reconciliation"
	"github.com/erp/syncengine/internal/infrastructure/logger"
	"github.com/erp/syncengine/internal/interfaces/http/dto"
	"github.com/erp/syncengine/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SettingsService reads and writes engine settings
type SettingsService interface {
	All(ctx context.Context) ([]reconciliation.Setting, error)
	Set(ctx context.Context, key, value string) error
}

// SettingsHandler exposes the configuration service to operators
type SettingsHandler struct {
	BaseHandler
	settings SettingsService
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(settings SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// List handles GET /settings. Secret values are masked.
func (h *SettingsHandler) List(c *gin.Context) {
	settings, err := h.settings.All(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := make([]appreconciliation.SettingResponse, len(settings))
	for i, s := range settings {
		resp[i] = appreconciliation.ToSettingResponse(s)
	}
	h.Success(c, resp)
}

// Update handles PUT /settings/:key
func (h *SettingsHandler) Update(c *gin.Context) {
	var uri dto.KeyRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindingError(c, err)
		return
	}
	var req dto.SettingUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	if err := h.settings.Set(c.Request.Context(), uri.Key, *req.Value); err != nil {
		h.HandleError(c, err)
		return
	}

	logger.FromContext(c.Request.Context()).Info("setting updated",
		zap.String("key", uri.Key),
		zap.String("subject", middleware.Subject(c)),
	)
	h.NoContent(c)
}
