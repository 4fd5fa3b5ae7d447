package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryhub/capturectl/internal/domain"
)

func TestSlackChannel_SendPostsWebhookMessage(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	ch := NewSlackChannel()
	cfg, err := json.Marshal(SlackConfig{WebhookURL: srv.URL, Channel: "#alerts"})
	require.NoError(t, err)

	event := &domain.AnalysisEvent{ID: "evt-1", EventType: "motion", Severity: domain.SeverityHigh, Description: "moved"}
	delivery := &domain.NotificationDelivery{ChannelConfig: string(cfg)}

	externalID, err := ch.Send(context.Background(), event, delivery)
	require.NoError(t, err)
	assert.Equal(t, "slack-evt-1", externalID)
	assert.Equal(t, "#alerts", received["channel"])
}

func TestSlackChannel_SendRejectsMissingWebhookURL(t *testing.T) {
	ch := NewSlackChannel()
	event := &domain.AnalysisEvent{ID: "evt-1", Severity: domain.SeverityLow}
	delivery := &domain.NotificationDelivery{ChannelConfig: "{}"}

	_, err := ch.Send(context.Background(), event, delivery)
	assert.Error(t, err)
}
