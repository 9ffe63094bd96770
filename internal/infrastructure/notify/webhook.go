// Package notify delivers user-facing notifications emitted by cost events.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/application/costing"
	"go.uber.org/zap"
)

// Ensure implementations satisfy the coordinator's Notifier port
var (
	_ costing.Notifier = (*WebhookNotifier)(nil)
	_ costing.Notifier = (*LogNotifier)(nil)
)

// WebhookNotifier POSTs notifications to a configured webhook.
// Delivery is best effort: failures are logged, never surfaced to the
// event that produced the notification.
type WebhookNotifier struct {
	webhookURL string
	client     *http.Client
	logger     *zap.Logger
}

// NewWebhookNotifier creates a notifier targeting the given webhook URL.
func NewWebhookNotifier(webhookURL string, timeout time.Duration, logger *zap.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type webhookPayload struct {
	EstablishmentID string    `json:"establishment_id"`
	Message         string    `json:"message"`
	SentAt          time.Time `json:"sent_at"`
}

// Notify posts the message to the webhook.
func (n *WebhookNotifier) Notify(ctx context.Context, establishmentID uuid.UUID, message string) {
	body, err := json.Marshal(webhookPayload{
		EstablishmentID: establishmentID.String(),
		Message:         message,
		SentAt:          time.Now().UTC(),
	})
	if err != nil {
		n.logger.Error("failed to encode notification", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		n.logger.Error("failed to build notification request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("notification delivery failed",
			zap.String("establishment_id", establishmentID.String()),
			zap.Error(err),
		)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.Warn("notification rejected by webhook",
			zap.String("establishment_id", establishmentID.String()),
			zap.String("status", fmt.Sprintf("%d", resp.StatusCode)),
		)
		return
	}

	n.logger.Debug("notification delivered",
		zap.String("establishment_id", establishmentID.String()),
		zap.String("message", message),
	)
}

// LogNotifier writes notifications to the log only. Used when no webhook is
// configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the message.
func (n *LogNotifier) Notify(_ context.Context, establishmentID uuid.UUID, message string) {
	n.logger.Info("notification",
		zap.String("establishment_id", establishmentID.String()),
		zap.String("message", message),
	)
}
