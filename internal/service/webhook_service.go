package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/emeraldmc/appeals-api/internal/models"
)

type webhookMarker interface {
	MarkWebhookSent(ctx context.Context, id string) error
}

// WebhookService pushes newly created appeals to an optional chat-ops
// endpoint. Delivery is best-effort: one attempt, no retry, and a failure
// never surfaces to the submitting player.
type WebhookService struct {
	url     string
	client  *http.Client
	repo    webhookMarker
	metrics *MetricsService
	logger  *zap.Logger
}

// NewWebhookService constructs the forwarder. An empty URL disables delivery.
func NewWebhookService(url string, timeout time.Duration, repo webhookMarker, metrics *MetricsService, logger *zap.Logger) *WebhookService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookService{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		repo:    repo,
		metrics: metrics,
		logger:  logger,
	}
}

// Enabled reports whether an endpoint is configured.
func (s *WebhookService) Enabled() bool {
	return s != nil && s.url != ""
}

type webhookEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type webhookEmbed struct {
	Title     string              `json:"title"`
	Color     int                 `json:"color"`
	Fields    []webhookEmbedField `json:"fields"`
	Timestamp string              `json:"timestamp"`
}

type webhookPayload struct {
	Username string         `json:"username"`
	Content  string         `json:"content"`
	Embeds   []webhookEmbed `json:"embeds"`
}

// Notify performs a single delivery attempt and, on success, flips the
// appeal's webhook flag. Errors are logged and swallowed; the submission
// outcome never depends on this call.
func (s *WebhookService) Notify(ctx context.Context, appeal *models.Appeal) {
	if !s.Enabled() {
		s.metrics.RecordWebhookDelivery("skipped")
		return
	}

	if err := s.deliver(ctx, appeal); err != nil {
		s.metrics.RecordWebhookDelivery("failed")
		s.logger.Warn("webhook delivery failed",
			zap.String("appeal_id", appeal.ID),
			zap.Error(err))
		return
	}
	s.metrics.RecordWebhookDelivery("ok")

	if err := s.repo.MarkWebhookSent(ctx, appeal.ID); err != nil {
		s.logger.Warn("failed to mark webhook sent",
			zap.String("appeal_id", appeal.ID),
			zap.Error(err))
	}
}

// truncateReason caps the embed text at max bytes without splitting a
// multi-byte rune.
func truncateReason(reason string, max int) string {
	if len(reason) <= max {
		return reason
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(reason[cut]) {
		cut--
	}
	return reason[:cut] + "..."
}

func (s *WebhookService) deliver(ctx context.Context, appeal *models.Appeal) error {
	reason := truncateReason(appeal.AppealReason, 500)

	payload := webhookPayload{
		Username: "Ban Appeals",
		Content:  "New ban appeal submitted",
		Embeds: []webhookEmbed{{
			Title: fmt.Sprintf("Appeal from %s", appeal.Username),
			Color: 0x2ecc71,
			Fields: []webhookEmbedField{
				{Name: "Username", Value: appeal.Username, Inline: true},
				{Name: "Discord", Value: appeal.DiscordTag, Inline: true},
				{Name: "Ban Reason", Value: string(appeal.BanReason), Inline: true},
				{Name: "Appeal", Value: reason},
			},
			Timestamp: appeal.CreatedAt.UTC().Format(time.RFC3339),
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}
	return nil
}
