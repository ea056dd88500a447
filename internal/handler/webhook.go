package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"dealership/internal/service"
)

// maxWebhookBodyBytes caps notification payloads.
const maxWebhookBodyBytes = 64 << 10

// signatureHeader carries the gateway's payload signature.
const signatureHeader = "Stripe-Signature"

// WebhookHandler handles asynchronous payment notifications.
type WebhookHandler struct {
	reconcileService *service.ReconcileService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(reconcileService *service.ReconcileService) *WebhookHandler {
	return &WebhookHandler{reconcileService: reconcileService}
}

// WebhookResponse acknowledges a verified notification.
type WebhookResponse struct {
	Received bool `json:"received"`
}

// HandleWebhook handles POST /api/webhook
//
// The body is read raw and verified before any decoding. Once verified the
// notification is always acknowledged with 200; store failures are logged by
// the reconcile service.
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(body)
	if err != nil {
		c.String(http.StatusBadRequest, "Webhook Error: %s", err.Error())
		return
	}

	event, err := h.reconcileService.VerifyEvent(payload, c.GetHeader(signatureHeader))
	if err != nil {
		c.String(http.StatusBadRequest, "Webhook Error: %s", err.Error())
		return
	}

	_, _ = h.reconcileService.HandleEvent(c.Request.Context(), event)

	respondJSON(c, http.StatusOK, WebhookResponse{Received: true})
}
