package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-notify-service/internal/events"
	"github.com/spec-kit/issue-notify-service/internal/webhook"
	apperrors "github.com/spec-kit/issue-notify-service/pkg/util"
)

// WebhookHandler is the receiver side of the webhook protocol: it verifies
// the signature header before trusting the body.
type WebhookHandler struct {
	signer *webhook.Signer
	logger *zap.Logger
}

// NewWebhookHandler returns a new handler instance.
func NewWebhookHandler(signer *webhook.Signer, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{signer: signer, logger: logger}
}

// Receive verifies and decodes an inbound webhook delivery. Every
// verification failure maps to the same rejection.
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	signature := c.Get(webhook.SignatureHeader)
	if signature == "" {
		return apperrors.NewValidationError("missing X-Signature header", nil)
	}

	body := c.Body()
	if err := h.signer.Verify(body, signature, time.Now()); err != nil {
		h.logger.Warn("webhook verification failed")
		return apperrors.NewSignatureInvalid()
	}

	decoded, err := events.DecodeWebhookBody(body)
	if err != nil {
		return apperrors.NewValidationError("invalid webhook payload", nil)
	}

	h.logger.Info("verified webhook received",
		zap.String("event", decoded.Event),
		zap.Int("issue_id", decoded.IssueID))

	return c.JSON(fiber.Map{
		"message":     "Webhook received and verified successfully",
		"event":       decoded.Event,
		"issue_id":    decoded.IssueID,
		"new_status":  decoded.NewStatus,
		"updated_by":  decoded.UpdatedBy,
		"received_at": time.Now().UTC(),
	})
}
