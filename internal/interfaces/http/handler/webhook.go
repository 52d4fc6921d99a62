package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"time"

	appreconciliation "github.com/erp/syncengine/internal/application/reconciliation"
	"github.com/erp/syncengine/internal/domain/reconciliation"
	"github.com/erp/syncengine/internal/infrastructure/logger"
	"github.com/erp/syncengine/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebhookSecretHeader carries the shared secret of a webhook delivery
const WebhookSecretHeader = "X-Webhook-Secret"

// WebhookDispatcher processes one webhook event
type WebhookDispatcher interface {
	HandleWebhook(ctx context.Context, event string, payload []byte) (*appreconciliation.Result, error)
}

// WebhookSecretSource supplies the shared secret deliveries must present
type WebhookSecretSource interface {
	WebhookSecret(ctx context.Context) (string, error)
}

// WebhookHandler receives event deliveries from the order-management system.
// Processing failures are answered with 200 so the sender does not redeliver;
// the failure is in the audit log and can be retried manually.
type WebhookHandler struct {
	BaseHandler
	dispatcher WebhookDispatcher
	secrets    WebhookSecretSource
	timeout    time.Duration
}

// NewWebhookHandler creates a new WebhookHandler. A zero timeout leaves the
// request context unbounded.
func NewWebhookHandler(dispatcher WebhookDispatcher, secrets WebhookSecretSource, timeout time.Duration) *WebhookHandler {
	return &WebhookHandler{
		dispatcher: dispatcher,
		secrets:    secrets,
		timeout:    timeout,
	}
}

// HandleTyped handles POST /webhooks/:type where :type is the event name
// (e.g. invoice_create) and the body is the object itself
func (h *WebhookHandler) HandleTyped(c *gin.Context) {
	if !h.authenticate(c) {
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.readError(c, err)
		return
	}
	h.dispatch(c, c.Param("type"), payload)
}

// Handle handles POST /webhooks with an {event, payload} envelope
func (h *WebhookHandler) Handle(c *gin.Context) {
	if !h.authenticate(c) {
		return
	}

	var req dto.WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.readError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.Failure(dto.ErrCodeValidation,
			"Invalid webhook body: "+err.Error(), getRequestID(c)))
		return
	}
	h.dispatch(c, req.Event, req.Payload)
}

// authenticate compares the presented secret in constant time and writes 401 on mismatch
func (h *WebhookHandler) authenticate(c *gin.Context) bool {
	ctx := c.Request.Context()

	expected, err := h.secrets.WebhookSecret(ctx)
	if err != nil {
		logger.FromContext(ctx).Error("webhook secret unavailable, rejecting delivery", zap.Error(err))
		h.Unauthorized(c, dto.ErrCodeInvalidSecret, "Webhook secret is not configured")
		return false
	}

	presented := c.GetHeader(WebhookSecretHeader)
	if presented == "" {
		presented = c.Query("secret")
	}
	if presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) != 1 {
		logger.FromContext(ctx).Warn("webhook rejected, invalid secret", zap.String("client_ip", c.ClientIP()))
		h.Unauthorized(c, dto.ErrCodeInvalidSecret, "Invalid webhook secret")
		return false
	}
	return true
}

func (h *WebhookHandler) readError(c *gin.Context, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size")
		return
	}
	h.BadRequest(c, "Failed to read request body")
}

func (h *WebhookHandler) dispatch(c *gin.Context, event string, payload []byte) {
	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	log := logger.FromContext(ctx).With(zap.String("event", event))

	result, err := h.dispatcher.HandleWebhook(ctx, event, payload)
	if err != nil {
		code, _ := ClassifyError(err)
		log.Warn("webhook processing failed", zap.String("code", code), zap.Error(err))
		// An unroutable event is a sender misconfiguration; every other failure is 200 so it is not redelivered.
		status := http.StatusOK
		if code == dto.ErrCodeUnknownType {
			status = http.StatusBadRequest
		}
		c.JSON(status, dto.Failure(code, reconciliation.ErrorMessage(err), getRequestID(c)))
		return
	}

	if result != nil {
		log.Info("webhook processed",
			zap.String("object_id", result.ObjectID),
			zap.String("outcome", result.Outcome.String()),
		)
	}
	c.Status(http.StatusNoContent)
}
