package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/domain"
)

// SlackConfig is the channel_config shape for a "slack" delivery:
// a single incoming webhook URL plus the target channel override, the
// supplemental fourth channel variant beyond the distilled spec's three.
type SlackConfig struct {
	WebhookURL string `json:"webhook_url"`
	Channel    string `json:"channel,omitempty"`
}

// SlackChannel posts to a Slack incoming webhook via slack-go/slack.
type SlackChannel struct{}

// NewSlackChannel constructs a SlackChannel.
func NewSlackChannel() *SlackChannel { return &SlackChannel{} }

func (c *SlackChannel) Type() string { return "slack" }

func (c *SlackChannel) Send(ctx context.Context, event *domain.AnalysisEvent, delivery *domain.NotificationDelivery) (string, error) {
	var cfg SlackConfig
	if err := json.Unmarshal([]byte(delivery.ChannelConfig), &cfg); err != nil || cfg.WebhookURL == "" {
		return "", apperrors.Validation("SlackChannel.Send", "channel_config missing webhook_url")
	}

	msg := &slack.WebhookMessage{
		Channel: cfg.Channel,
		Text:    fmt.Sprintf("[%s] %s: %s", event.Severity, event.EventType, event.Description),
	}
	if err := slack.PostWebhookContext(ctx, cfg.WebhookURL, msg); err != nil {
		return "", apperrors.External("SlackChannel.Send", "slack webhook post failed", err)
	}
	return fmt.Sprintf("slack-%s", event.ID), nil
}
