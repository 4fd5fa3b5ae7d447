// Package notify implements the notification dispatch pipeline: per-event
// fan-out to one or more channel adapters (webhook, web push, Pushover,
// Slack), each guarded by its own circuit breaker and retried with
// exponential backoff, persisting delivery status through
// internal/persistence.
package notify

import (
	"context"

	"github.com/sentryhub/capturectl/internal/domain"
)

// Channel delivers one notification to a single external destination.
// ChannelConfig on the delivery row carries the destination-specific
// addressing (URL, subscription, token) as opaque JSON; each adapter
// knows how to parse its own shape.
type Channel interface {
	// Type returns the channel_type string this adapter handles, e.g.
	// "webhook", "webpush", "pushover", "slack".
	Type() string
	// Send delivers event to the destination described by
	// delivery.ChannelConfig, returning a provider-assigned external ID
	// on success.
	Send(ctx context.Context, event *domain.AnalysisEvent, delivery *domain.NotificationDelivery) (externalID string, err error)
}
