package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/domain"
)

type scheduledJobRow struct {
	ID             string         `db:"id"`
	Name           string         `db:"name"`
	Kind           string         `db:"kind"`
	CronExpression string         `db:"cron_expression"`
	LastRun        sql.NullString `db:"last_run"`
	NextRun        sql.NullString `db:"next_run"`
	JitterMs       int            `db:"jitter_ms"`
	Enabled        bool           `db:"enabled"`
	ConfigJSON     string         `db:"config_json"`
	UserID         string         `db:"user_id"`
	TemplateID     sql.NullString `db:"template_id"`
}

func (r scheduledJobRow) toDomain() *domain.ScheduledJob {
	j := &domain.ScheduledJob{
		ID:             r.ID,
		Name:           r.Name,
		Kind:           domain.JobKind(r.Kind),
		CronExpression: r.CronExpression,
		JitterMs:       r.JitterMs,
		Enabled:        r.Enabled,
		ConfigJSON:     r.ConfigJSON,
		UserID:         r.UserID,
	}
	if r.LastRun.Valid {
		j.LastRun = parseTimePtr(r.LastRun.String)
	}
	if r.NextRun.Valid {
		j.NextRun = parseTimePtr(r.NextRun.String)
	}
	if r.TemplateID.Valid {
		tid := r.TemplateID.String
		j.TemplateID = &tid
	}
	return j
}

// ScheduledJobRepository is the exclusive owner of scheduled job rows.
type ScheduledJobRepository struct {
	pool *PoolManager
}

// NewScheduledJobRepository constructs a ScheduledJobRepository over pool.
func NewScheduledJobRepository(pool *PoolManager) *ScheduledJobRepository {
	return &ScheduledJobRepository{pool: pool}
}

// Create inserts a new scheduled job row.
func (r *ScheduledJobRepository) Create(ctx context.Context, j *domain.ScheduledJob) error {
	if err := j.Validate(); err != nil {
		return err
	}

	return r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO scheduled_jobs (id, name, kind, cron_expression, last_run, next_run,
			 jitter_ms, enabled, config_json, user_id, template_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			j.ID, j.Name, string(j.Kind), j.CronExpression, formatTimePtr(j.LastRun), formatTimePtr(j.NextRun),
			j.JitterMs, j.Enabled, j.ConfigJSON, j.UserID, j.TemplateID,
		)
		if err != nil {
			return apperrors.Database("ScheduledJobRepository.Create", "failed to insert job", err)
		}
		return nil
	})
}

// GetByID returns the scheduled job with id.
func (r *ScheduledJobRepository) GetByID(ctx context.Context, id string) (*domain.ScheduledJob, error) {
	var j *domain.ScheduledJob
	err := r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		var row scheduledJobRow
		if err := db.GetContext(ctx, &row, `SELECT * FROM scheduled_jobs WHERE id = ?`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.NotFound("ScheduledJobRepository.GetByID", "job not found")
			}
			return apperrors.Database("ScheduledJobRepository.GetByID", "failed to query job", err)
		}
		j = row.toDomain()
		return nil
	})
	return j, err
}

// ListEnabled returns every enabled scheduled job, for scheduler startup.
func (r *ScheduledJobRepository) ListEnabled(ctx context.Context) ([]*domain.ScheduledJob, error) {
	var out []*domain.ScheduledJob
	err := r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		var rows []scheduledJobRow
		if err := db.SelectContext(ctx, &rows, `SELECT * FROM scheduled_jobs WHERE enabled = 1`); err != nil {
			return apperrors.Database("ScheduledJobRepository.ListEnabled", "failed to query jobs", err)
		}
		for _, row := range rows {
			out = append(out, row.toDomain())
		}
		return nil
	})
	return out, err
}

// Update persists changes to a scheduled job.
func (r *ScheduledJobRepository) Update(ctx context.Context, j *domain.ScheduledJob) error {
	if err := j.Validate(); err != nil {
		return err
	}

	return r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		res, err := db.ExecContext(ctx,
			`UPDATE scheduled_jobs SET name=?, kind=?, cron_expression=?, last_run=?, next_run=?,
			 jitter_ms=?, enabled=?, config_json=? WHERE id=?`,
			j.Name, string(j.Kind), j.CronExpression, formatTimePtr(j.LastRun), formatTimePtr(j.NextRun),
			j.JitterMs, j.Enabled, j.ConfigJSON, j.ID,
		)
		if err != nil {
			return apperrors.Database("ScheduledJobRepository.Update", "failed to update job", err)
		}
		affected, _ := res.RowsAffected()
		if affected == 0 {
			return apperrors.NotFound("ScheduledJobRepository.Update", "job not found")
		}
		return nil
	})
}

// Delete removes a scheduled job permanently.
func (r *ScheduledJobRepository) Delete(ctx context.Context, id string) error {
	return r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		res, err := db.ExecContext(ctx, `DELETE FROM scheduled_jobs WHERE id = ?`, id)
		if err != nil {
			return apperrors.Database("ScheduledJobRepository.Delete", "failed to delete job", err)
		}
		affected, _ := res.RowsAffected()
		if affected == 0 {
			return apperrors.NotFound("ScheduledJobRepository.Delete", "job not found")
		}
		return nil
	})
}
