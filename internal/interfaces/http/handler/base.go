package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erp/syncengine/internal/domain/reconciliation"
	"github.com/erp/syncengine/internal/infrastructure/logger"
	"github.com/erp/syncengine/internal/interfaces/http/dto"
	"github.com/erp/syncengine/internal/interfaces/http/middleware"
)

// BaseHandler writes the response envelopes shared by all handlers
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.Ok(data))
}

// SuccessWithMeta writes one page of a listing
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.OkPage(data, dto.NewPageMeta(total, page, pageSize)))
}

func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error aborts with an ErrorResponse carrying the request ID
func (h *BaseHandler) Error(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.Failure(code, message, getRequestID(c)))
}

func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

func (h *BaseHandler) Unauthorized(c *gin.Context, code, message string) {
	h.Error(c, http.StatusUnauthorized, code, message)
}

// BindingError aborts with 400 for a request that failed binding
func (h *BaseHandler) BindingError(c *gin.Context, err error) {
	middleware.HandleValidationError(c, err)
}

// HandleError writes err with the status of its classification.
// Unclassified errors are logged and hidden behind a generic message.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	code, message := ClassifyError(err)
	if code == dto.ErrCodeInternal {
		logger.FromContext(c.Request.Context()).Error("Request failed",
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
	}
	h.Error(c, dto.HTTPStatus(code), code, message)
}

// ClassifyError returns the API error code for err and the message safe to show
func ClassifyError(err error) (code, message string) {
	var (
		mappingErr     *reconciliation.MappingError
		translationErr *reconciliation.TranslationError
		configErr      *reconciliation.ConfigurationError
		remoteErr      *reconciliation.RemoteAPIError
	)
	switch {
	case errors.As(err, &mappingErr):
		code = dto.ErrCodeMapping
	case errors.As(err, &translationErr):
		code = dto.ErrCodeTranslation
	case errors.As(err, &configErr):
		code = dto.ErrCodeConfiguration
	case errors.As(err, &remoteErr):
		code = dto.ErrCodeRemoteAPI
	case errors.Is(err, reconciliation.ErrUnknownObjectType),
		errors.Is(err, reconciliation.ErrUnknownMethod),
		errors.Is(err, reconciliation.ErrInvalidEvent),
		errors.Is(err, reconciliation.ErrSynchronizerNotRegistered):
		code = dto.ErrCodeUnknownType
	case errors.Is(err, reconciliation.ErrOperationNotSupported):
		code = dto.ErrCodeNotSupported
	case errors.Is(err, reconciliation.ErrRecordNotFound),
		errors.Is(err, reconciliation.ErrRunNotFound):
		code = dto.ErrCodeNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return dto.ErrCodeTimeout, "Request timed out"
	default:
		return dto.ErrCodeInternal, "An unexpected error occurred"
	}
	return code, reconciliation.ErrorMessage(err)
}
