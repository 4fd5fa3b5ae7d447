package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/domain"
)

var pushoverAPIURL = "https://api.pushover.net/1/messages.json"

// PushoverConfig is the channel_config shape for a "pushover" delivery.
type PushoverConfig struct {
	AppToken string `json:"app_token"`
	UserKey  string `json:"user_key"`
}

// PushoverChannel posts to the Pushover messages API over a plain
// form-encoded net/http request; Pushover has no official Go SDK.
type PushoverChannel struct {
	client *http.Client
}

// NewPushoverChannel constructs a PushoverChannel with timeout.
func NewPushoverChannel(timeout time.Duration) *PushoverChannel {
	return &PushoverChannel{client: &http.Client{Timeout: timeout}}
}

func (c *PushoverChannel) Type() string { return "pushover" }

type pushoverResponse struct {
	Status  int      `json:"status"`
	Request string   `json:"request"`
	Errors  []string `json:"errors"`
}

func (c *PushoverChannel) Send(ctx context.Context, event *domain.AnalysisEvent, delivery *domain.NotificationDelivery) (string, error) {
	var cfg PushoverConfig
	if err := json.Unmarshal([]byte(delivery.ChannelConfig), &cfg); err != nil || cfg.AppToken == "" || cfg.UserKey == "" {
		return "", apperrors.Validation("PushoverChannel.Send", "channel_config missing app_token/user_key")
	}

	form := url.Values{
		"token":    {cfg.AppToken},
		"user":     {cfg.UserKey},
		"title":    {fmt.Sprintf("%s: %s", event.Severity, event.EventType)},
		"message":  {event.Description},
		"priority": {severityToPriority(event.Severity)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pushoverAPIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", apperrors.External("PushoverChannel.Send", "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", newHTTPError("PushoverChannel.Send", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", newHTTPStatusError("PushoverChannel.Send", resp.StatusCode)
	}

	var parsed pushoverResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", apperrors.External("PushoverChannel.Send", "failed to decode response", err)
	}
	if parsed.Status != 1 {
		return "", apperrors.External("PushoverChannel.Send", strings.Join(parsed.Errors, "; "))
	}
	return parsed.Request, nil
}

func severityToPriority(s domain.Severity) string {
	switch s {
	case domain.SeverityCritical:
		return strconv.Itoa(2)
	case domain.SeverityHigh:
		return strconv.Itoa(1)
	case domain.SeverityLow, domain.SeverityInfo:
		return strconv.Itoa(-1)
	default:
		return strconv.Itoa(0)
	}
}
