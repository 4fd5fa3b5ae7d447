package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/domain"
)

type notificationDeliveryRow struct {
	ID                string         `db:"id"`
	AnalysisEventID   string         `db:"analysis_event_id"`
	ChannelType       string         `db:"channel_type"`
	ChannelConfigJSON string         `db:"channel_config_json"`
	Status            string         `db:"status"`
	AttemptCount      int            `db:"attempt_count"`
	MaxAttempts       int            `db:"max_attempts"`
	ScheduledAt       string         `db:"scheduled_at"`
	SentAt            sql.NullString `db:"sent_at"`
	DeliveredAt       sql.NullString `db:"delivered_at"`
	FailedAt          sql.NullString `db:"failed_at"`
	ErrorMessage      string         `db:"error_message"`
	ExternalID        string         `db:"external_id"`
	MetadataJSON      string         `db:"metadata_json"`
	CreatedAt         string         `db:"created_at"`
	UpdatedAt         string         `db:"updated_at"`
}

func (r notificationDeliveryRow) toDomain() *domain.NotificationDelivery {
	d := &domain.NotificationDelivery{
		ID:              r.ID,
		AnalysisEventID: r.AnalysisEventID,
		ChannelType:     r.ChannelType,
		ChannelConfig:   r.ChannelConfigJSON,
		Status:          domain.DeliveryStatus(r.Status),
		AttemptCount:    r.AttemptCount,
		MaxAttempts:     r.MaxAttempts,
		ScheduledAt:     parseTime(r.ScheduledAt),
		ErrorMessage:    r.ErrorMessage,
		ExternalID:      r.ExternalID,
		MetadataJSON:    r.MetadataJSON,
		CreatedAt:       parseTime(r.CreatedAt),
		UpdatedAt:       parseTime(r.UpdatedAt),
	}
	if r.SentAt.Valid {
		d.SentAt = parseTimePtr(r.SentAt.String)
	}
	if r.DeliveredAt.Valid {
		d.DeliveredAt = parseTimePtr(r.DeliveredAt.String)
	}
	if r.FailedAt.Valid {
		d.FailedAt = parseTimePtr(r.FailedAt.String)
	}
	return d
}

// NotificationDeliveryRepository is the exclusive owner of notification
// delivery rows.
type NotificationDeliveryRepository struct {
	pool *PoolManager
}

// NewNotificationDeliveryRepository constructs a NotificationDeliveryRepository over pool.
func NewNotificationDeliveryRepository(pool *PoolManager) *NotificationDeliveryRepository {
	return &NotificationDeliveryRepository{pool: pool}
}

// Create inserts a new notification delivery row.
func (r *NotificationDeliveryRepository) Create(ctx context.Context, d *domain.NotificationDelivery) error {
	if err := d.Validate(); err != nil {
		return err
	}
	now := nowISO()
	d.CreatedAt, d.UpdatedAt = parseTime(now), parseTime(now)
	if d.ScheduledAt.IsZero() {
		d.ScheduledAt = parseTime(now)
	}

	return r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO notification_deliveries (id, analysis_event_id, channel_type, channel_config_json,
			 status, attempt_count, max_attempts, scheduled_at, sent_at, delivered_at, failed_at,
			 error_message, external_id, metadata_json, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.ID, d.AnalysisEventID, d.ChannelType, d.ChannelConfig,
			string(d.Status), d.AttemptCount, d.MaxAttempts, formatTimePtr(&d.ScheduledAt),
			formatTimePtr(d.SentAt), formatTimePtr(d.DeliveredAt), formatTimePtr(d.FailedAt),
			d.ErrorMessage, d.ExternalID, d.MetadataJSON, now, now,
		)
		if err != nil {
			return apperrors.Database("NotificationDeliveryRepository.Create", "failed to insert delivery", err)
		}
		return nil
	})
}

// GetByID returns the notification delivery with id.
func (r *NotificationDeliveryRepository) GetByID(ctx context.Context, id string) (*domain.NotificationDelivery, error) {
	var d *domain.NotificationDelivery
	err := r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		var row notificationDeliveryRow
		if err := db.GetContext(ctx, &row, `SELECT * FROM notification_deliveries WHERE id = ?`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.NotFound("NotificationDeliveryRepository.GetByID", "delivery not found")
			}
			return apperrors.Database("NotificationDeliveryRepository.GetByID", "failed to query delivery", err)
		}
		d = row.toDomain()
		return nil
	})
	return d, err
}

// ListByEvent returns deliveries for analysisEventID, one per channel.
func (r *NotificationDeliveryRepository) ListByEvent(ctx context.Context, analysisEventID string) ([]*domain.NotificationDelivery, error) {
	var out []*domain.NotificationDelivery
	err := r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		var rows []notificationDeliveryRow
		if err := db.SelectContext(ctx, &rows, `SELECT * FROM notification_deliveries WHERE analysis_event_id = ?`, analysisEventID); err != nil {
			return apperrors.Database("NotificationDeliveryRepository.ListByEvent", "failed to query deliveries", err)
		}
		for _, row := range rows {
			out = append(out, row.toDomain())
		}
		return nil
	})
	return out, err
}

// ListPendingRetry returns deliveries awaiting a retry attempt.
func (r *NotificationDeliveryRepository) ListPendingRetry(ctx context.Context) ([]*domain.NotificationDelivery, error) {
	var out []*domain.NotificationDelivery
	err := r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		var rows []notificationDeliveryRow
		if err := db.SelectContext(ctx, &rows,
			`SELECT * FROM notification_deliveries WHERE status IN (?, ?) ORDER BY scheduled_at ASC`,
			string(domain.DeliveryPending), string(domain.DeliveryRetry)); err != nil {
			return apperrors.Database("NotificationDeliveryRepository.ListPendingRetry", "failed to query deliveries", err)
		}
		for _, row := range rows {
			out = append(out, row.toDomain())
		}
		return nil
	})
	return out, err
}

// Update persists a delivery's status/attempt transition.
func (r *NotificationDeliveryRepository) Update(ctx context.Context, d *domain.NotificationDelivery) error {
	if err := d.Validate(); err != nil {
		return err
	}
	d.UpdatedAt = parseTime(nowISO())

	return r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		res, err := db.ExecContext(ctx,
			`UPDATE notification_deliveries SET status=?, attempt_count=?, sent_at=?, delivered_at=?,
			 failed_at=?, error_message=?, external_id=?, updated_at=? WHERE id=?`,
			string(d.Status), d.AttemptCount, formatTimePtr(d.SentAt), formatTimePtr(d.DeliveredAt),
			formatTimePtr(d.FailedAt), d.ErrorMessage, d.ExternalID, nowISO(), d.ID,
		)
		if err != nil {
			return apperrors.Database("NotificationDeliveryRepository.Update", "failed to update delivery", err)
		}
		affected, _ := res.RowsAffected()
		if affected == 0 {
			return apperrors.NotFound("NotificationDeliveryRepository.Update", "delivery not found")
		}
		return nil
	})
}
