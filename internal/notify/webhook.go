package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/domain"
)

// WebhookConfig is the channel_config shape for a "webhook" delivery.
type WebhookConfig struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// WebhookChannel POSTs a JSON payload describing the analysis event to a
// caller-configured URL, the plainest channel: no SDK, just net/http.
type WebhookChannel struct {
	client *http.Client
}

// NewWebhookChannel constructs a WebhookChannel with timeout.
func NewWebhookChannel(timeout time.Duration) *WebhookChannel {
	return &WebhookChannel{client: &http.Client{Timeout: timeout}}
}

func (c *WebhookChannel) Type() string { return "webhook" }

type webhookPayload struct {
	EventID     string  `json:"event_id"`
	SourceID    string  `json:"source_id"`
	EventType   string  `json:"event_type"`
	Severity    string  `json:"severity"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
}

func (c *WebhookChannel) Send(ctx context.Context, event *domain.AnalysisEvent, delivery *domain.NotificationDelivery) (string, error) {
	var cfg WebhookConfig
	if err := json.Unmarshal([]byte(delivery.ChannelConfig), &cfg); err != nil || cfg.URL == "" {
		return "", apperrors.Validation("WebhookChannel.Send", "channel_config missing url")
	}

	body, err := json.Marshal(webhookPayload{
		EventID:     event.ID,
		SourceID:    event.SourceID,
		EventType:   event.EventType,
		Severity:    string(event.Severity),
		Confidence:  event.Confidence,
		Description: event.Description,
	})
	if err != nil {
		return "", apperrors.Validation("WebhookChannel.Send", "failed to encode payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", apperrors.External("WebhookChannel.Send", "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", newHTTPError("WebhookChannel.Send", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", newHTTPStatusError("WebhookChannel.Send", resp.StatusCode)
	}
	return fmt.Sprintf("webhook-%s", event.ID), nil
}
