package notify

import (
	"context"
	"encoding/json"
	"fmt"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/domain"
)

// WebPushConfig is the channel_config shape for a "webpush" delivery: the
// browser-issued push subscription to deliver to.
type WebPushConfig struct {
	Endpoint string `json:"endpoint"`
	Auth     string `json:"auth"`
	P256dh   string `json:"p256dh"`
}

// WebPushChannel sends a VAPID-signed, aes128gcm-encrypted push message
// via github.com/SherClockHolmes/webpush-go; no repo in the retrieval
// pack implements Web Push, so this is an out-of-pack ecosystem choice.
type WebPushChannel struct {
	vapidPublicKey  string
	vapidPrivateKey string
	subscriber      string
}

// NewWebPushChannel constructs a WebPushChannel. subscriber is the
// "mailto:" contact VAPID requires.
func NewWebPushChannel(vapidPublicKey, vapidPrivateKey, subscriber string) *WebPushChannel {
	return &WebPushChannel{
		vapidPublicKey:  vapidPublicKey,
		vapidPrivateKey: vapidPrivateKey,
		subscriber:      subscriber,
	}
}

func (c *WebPushChannel) Type() string { return "webpush" }

type webPushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (c *WebPushChannel) Send(ctx context.Context, event *domain.AnalysisEvent, delivery *domain.NotificationDelivery) (string, error) {
	var cfg WebPushConfig
	if err := json.Unmarshal([]byte(delivery.ChannelConfig), &cfg); err != nil || cfg.Endpoint == "" {
		return "", apperrors.Validation("WebPushChannel.Send", "channel_config missing endpoint")
	}

	payload, err := json.Marshal(webPushPayload{
		Title: fmt.Sprintf("%s alert", event.Severity),
		Body:  event.Description,
	})
	if err != nil {
		return "", apperrors.Validation("WebPushChannel.Send", "failed to encode payload")
	}

	sub := &webpush.Subscription{
		Endpoint: cfg.Endpoint,
		Keys: webpush.Keys{
			Auth:   cfg.Auth,
			P256dh: cfg.P256dh,
		},
	}

	resp, err := webpush.SendNotification(payload, sub, &webpush.Options{
		VAPIDPublicKey:  c.vapidPublicKey,
		VAPIDPrivateKey: c.vapidPrivateKey,
		Subscriber:      c.subscriber,
		TTL:             60,
	})
	if err != nil {
		return "", newHTTPError("WebPushChannel.Send", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", newHTTPStatusError("WebPushChannel.Send", resp.StatusCode)
	}
	return fmt.Sprintf("webpush-%s", event.ID), nil
}
