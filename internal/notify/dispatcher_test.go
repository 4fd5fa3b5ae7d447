package notify

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/breaker"
	"github.com/sentryhub/capturectl/internal/config"
	"github.com/sentryhub/capturectl/internal/domain"
	"github.com/sentryhub/capturectl/internal/logging"
	"github.com/sentryhub/capturectl/internal/persistence"
)

type fakeChannel struct {
	channelType string
	sendErr     error
	calls       int
}

func (c *fakeChannel) Type() string { return c.channelType }

func (c *fakeChannel) Send(ctx context.Context, event *domain.AnalysisEvent, delivery *domain.NotificationDelivery) (string, error) {
	c.calls++
	if c.sendErr != nil {
		return "", c.sendErr
	}
	return "ext-1", nil
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *persistence.NotificationDeliveryRepository, *persistence.AnalysisEventRepository) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "dispatcher_test.db")
	db, err := persistence.Open(config.DatabaseConfig{Path: dbPath, PoolSize: 4})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{
		Database: config.DatabaseConfig{PoolSize: 4},
		Breaker:  config.CircuitBreakerConfig{FailureThreshold: 5, SuccessThreshold: 1, RecoveryTimeoutSec: 1},
	}
	logger := logging.GetLogger("dispatcher-test")
	pool := persistence.NewPoolManager(db, cfg, logger)
	deliveries := persistence.NewNotificationDeliveryRepository(pool)
	events := persistence.NewAnalysisEventRepository(pool)

	return NewDispatcher(deliveries, logger), deliveries, events
}

func TestDispatcher_DispatchMarksDeliverySentOnSuccess(t *testing.T) {
	d, deliveries, events := newTestDispatcher(t)
	ctx := context.Background()

	event := &domain.AnalysisEvent{ID: "evt-1", SourceID: "cam-1", EventType: "motion", Severity: domain.SeverityHigh}
	require.NoError(t, events.Create(ctx, event))

	ch := &fakeChannel{channelType: "webhook"}
	d.RegisterChannel(ch, breaker.Config{FailureThreshold: 3, RecoveryTimeout: time.Second})

	delivery := &domain.NotificationDelivery{
		ID:              domain.NewID("delivery"),
		AnalysisEventID: event.ID,
		ChannelType:     "webhook",
		ChannelConfig:   "{}",
		Status:          domain.DeliveryPending,
		MaxAttempts:     3,
		ScheduledAt:     time.Now().UTC(),
	}
	require.NoError(t, deliveries.Create(ctx, delivery))

	err := d.Dispatch(ctx, event, delivery)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliverySent, delivery.Status)
	assert.Equal(t, "ext-1", delivery.ExternalID)
	assert.Equal(t, 1, ch.calls)

	stored, err := deliveries.GetByID(ctx, delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliverySent, stored.Status)
}

func TestDispatcher_DispatchMarksDeliveryFailedOnTerminalError(t *testing.T) {
	d, deliveries, events := newTestDispatcher(t)
	ctx := context.Background()

	event := &domain.AnalysisEvent{ID: "evt-2", SourceID: "cam-1", EventType: "motion", Severity: domain.SeverityLow}
	require.NoError(t, events.Create(ctx, event))

	ch := &fakeChannel{channelType: "webhook", sendErr: apperrors.Validation("fakeChannel.Send", "bad payload")}
	d.RegisterChannel(ch, breaker.Config{FailureThreshold: 3, RecoveryTimeout: time.Second})

	delivery := &domain.NotificationDelivery{
		ID:              domain.NewID("delivery"),
		AnalysisEventID: event.ID,
		ChannelType:     "webhook",
		ChannelConfig:   "{}",
		Status:          domain.DeliveryPending,
		MaxAttempts:     3,
		ScheduledAt:     time.Now().UTC(),
	}
	require.NoError(t, deliveries.Create(ctx, delivery))

	err := d.Dispatch(ctx, event, delivery)
	require.Error(t, err)
	assert.Equal(t, domain.DeliveryFailed, delivery.Status)
	assert.Equal(t, 1, ch.calls)
}

func TestDispatcher_DispatchReturnsErrorForUnknownChannelType(t *testing.T) {
	d, deliveries, events := newTestDispatcher(t)
	ctx := context.Background()

	event := &domain.AnalysisEvent{ID: "evt-3", SourceID: "cam-1", EventType: "motion", Severity: domain.SeverityLow}
	require.NoError(t, events.Create(ctx, event))

	delivery := &domain.NotificationDelivery{
		ID:              domain.NewID("delivery"),
		AnalysisEventID: event.ID,
		ChannelType:     "unregistered",
		ChannelConfig:   "{}",
		Status:          domain.DeliveryPending,
		MaxAttempts:     3,
		ScheduledAt:     time.Now().UTC(),
	}
	require.NoError(t, deliveries.Create(ctx, delivery))

	err := d.Dispatch(ctx, event, delivery)
	assert.Error(t, err)
}
