package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/issue-notify-service/internal/events"
	"github.com/spec-kit/issue-notify-service/internal/observability"
)

// SignatureHeader carries the webhook signature on the wire.
const SignatureHeader = "X-Signature"

// Sender delivers signed webhook notifications to a single external
// receiver. Delivery is fire-and-forget: failures are logged and counted,
// never retried, and never propagated to the primary workflow.
type Sender struct {
	url     string
	signer  *Signer
	client  *http.Client
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewSender builds a sender. An empty URL disables delivery.
func NewSender(url string, signer *Signer, timeout time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Sender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Sender{
		url:     url,
		signer:  signer,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		metrics: metrics,
	}
}

// Enabled reports whether a receiver URL is configured.
func (s *Sender) Enabled() bool {
	return s.url != ""
}

// Send signs and POSTs the payload. The signature timestamp is captured
// here, at send time.
func (s *Sender) Send(ctx context.Context, body events.WebhookBody) {
	if !s.Enabled() {
		return
	}

	payload, err := json.Marshal(body)
	if err != nil {
		s.logger.Error("webhook payload marshal failed", zap.Error(err))
		s.metrics.RecordWebhook(false)
		return
	}

	signature := s.signer.Sign(payload, time.Now().Unix())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		s.logger.Error("webhook request build failed", zap.Error(err))
		s.metrics.RecordWebhook(false)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, signature)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("webhook delivery failed",
			zap.String("event", body.Event),
			zap.Int("issue_id", body.IssueID),
			zap.Error(err))
		s.metrics.RecordWebhook(false)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		s.logger.Warn("webhook receiver rejected delivery",
			zap.String("event", body.Event),
			zap.Int("issue_id", body.IssueID),
			zap.Int("status", resp.StatusCode))
		s.metrics.RecordWebhook(false)
		return
	}

	s.metrics.RecordWebhook(true)
	s.logger.Debug("webhook delivered",
		zap.String("event", body.Event),
		zap.Int("issue_id", body.IssueID))
}
