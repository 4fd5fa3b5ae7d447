package notify

import (
	"context"
	"time"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/breaker"
	"github.com/sentryhub/capturectl/internal/domain"
	"github.com/sentryhub/capturectl/internal/logging"
	"github.com/sentryhub/capturectl/internal/persistence"
	"github.com/sentryhub/capturectl/internal/retry"
)

// Dispatcher fans an AnalysisEvent out to every registered Channel that
// has a pending NotificationDelivery row, retrying transient failures
// with backoff and tripping a per-channel-type circuit breaker so one
// misbehaving provider can't consume every retry budget.
type Dispatcher struct {
	deliveries *persistence.NotificationDeliveryRepository
	channels   map[string]Channel
	breakers   map[string]*breaker.Breaker
	policy     retry.Policy
	logger     *logging.Logger
}

// NewDispatcher constructs an empty Dispatcher; call RegisterChannel for
// each channel type it should serve.
func NewDispatcher(deliveries *persistence.NotificationDeliveryRepository, logger *logging.Logger) *Dispatcher {
	return &Dispatcher{
		deliveries: deliveries,
		channels:   make(map[string]Channel),
		breakers:   make(map[string]*breaker.Breaker),
		policy:     DefaultRetryPolicy,
		logger:     logger,
	}
}

// RegisterChannel wires ch in under its own Type(), with its own circuit
// breaker.
func (d *Dispatcher) RegisterChannel(ch Channel, breakerCfg breaker.Config) {
	d.channels[ch.Type()] = ch
	d.breakers[ch.Type()] = breaker.New("notify."+ch.Type(), breakerCfg, d.logger)
}

// Dispatch delivers event through delivery's channel, retrying per
// DefaultRetryPolicy and guarded by that channel type's breaker. The
// delivery row is updated in place to reflect the outcome: Sent with an
// external ID on success, Failed with the terminal error otherwise.
func (d *Dispatcher) Dispatch(ctx context.Context, event *domain.AnalysisEvent, delivery *domain.NotificationDelivery) error {
	ch, ok := d.channels[delivery.ChannelType]
	if !ok {
		return apperrors.Validation("Dispatcher.Dispatch", "no channel registered for type "+delivery.ChannelType)
	}
	cb := d.breakers[delivery.ChannelType]

	var externalID string
	sendErr := retry.Do(ctx, d.policy, ClassifyDeliveryError, func(ctx context.Context) error {
		delivery.AttemptCount++
		return cb.Call(func() error {
			id, err := ch.Send(ctx, event, delivery)
			if err != nil {
				return err
			}
			externalID = id
			return nil
		})
	})

	now := time.Now().UTC()
	if sendErr != nil {
		delivery.Status = domain.DeliveryFailed
		delivery.FailedAt = &now
		delivery.ErrorMessage = sendErr.Error()
	} else {
		delivery.Status = domain.DeliverySent
		delivery.SentAt = &now
		delivery.ExternalID = externalID
	}

	if err := d.deliveries.Update(ctx, delivery); err != nil {
		d.logger.WithError(err).WithField("delivery_id", delivery.ID).Error("failed to persist delivery outcome")
	}
	return sendErr
}

// DispatchPendingRetries re-attempts every delivery the repository
// reports as due for retry (status pending/failed with attempts
// remaining), used by a periodic maintenance sweep.
func (d *Dispatcher) DispatchPendingRetries(ctx context.Context, eventsByID func(ctx context.Context, id string) (*domain.AnalysisEvent, error)) error {
	pending, err := d.deliveries.ListPendingRetry(ctx)
	if err != nil {
		return err
	}
	for _, delivery := range pending {
		event, err := eventsByID(ctx, delivery.AnalysisEventID)
		if err != nil {
			d.logger.WithError(err).WithField("delivery_id", delivery.ID).Warn("skipping retry, failed to load event")
			continue
		}
		_ = d.Dispatch(ctx, event, delivery)
	}
	return nil
}
