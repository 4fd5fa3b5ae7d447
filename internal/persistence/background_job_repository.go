package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/domain"
)

type backgroundJobRow struct {
	ID           string         `db:"id"`
	InputPath    string         `db:"input_path"`
	StreamID     sql.NullString `db:"stream_id"`
	Status       string         `db:"status"`
	ConfigJSON   string         `db:"config_json"`
	ResultSize   sql.NullInt64  `db:"result_size"`
	ErrorMessage string         `db:"error_message"`
	CreatedAt    string         `db:"created_at"`
	StartedAt    sql.NullString `db:"started_at"`
	CompletedAt  sql.NullString `db:"completed_at"`
	DurationMs   sql.NullInt64  `db:"duration_ms"`
	CreatedBy    string         `db:"created_by"`
	MetadataJSON string         `db:"metadata_json"`
}

func (r backgroundJobRow) toDomain() *domain.BackgroundSnapshotJob {
	j := &domain.BackgroundSnapshotJob{
		ID:           r.ID,
		InputPath:    r.InputPath,
		Status:       domain.JobStatus(r.Status),
		ConfigJSON:   r.ConfigJSON,
		ErrorMessage: r.ErrorMessage,
		CreatedAt:    parseTime(r.CreatedAt),
		CreatedBy:    r.CreatedBy,
		MetadataJSON: r.MetadataJSON,
	}
	if r.StreamID.Valid {
		sid := r.StreamID.String
		j.StreamID = &sid
	}
	if r.ResultSize.Valid {
		j.ResultSize = &r.ResultSize.Int64
	}
	if r.StartedAt.Valid {
		j.StartedAt = parseTimePtr(r.StartedAt.String)
	}
	if r.CompletedAt.Valid {
		j.CompletedAt = parseTimePtr(r.CompletedAt.String)
	}
	if r.DurationMs.Valid {
		j.DurationMs = &r.DurationMs.Int64
	}
	return j
}

// BackgroundJobRepository is the exclusive owner of background snapshot
// job rows.
type BackgroundJobRepository struct {
	pool *PoolManager
}

// NewBackgroundJobRepository constructs a BackgroundJobRepository over pool.
func NewBackgroundJobRepository(pool *PoolManager) *BackgroundJobRepository {
	return &BackgroundJobRepository{pool: pool}
}

// Create inserts a new background job row.
func (r *BackgroundJobRepository) Create(ctx context.Context, j *domain.BackgroundSnapshotJob) error {
	if err := j.Validate(); err != nil {
		return err
	}
	j.CreatedAt = parseTime(nowISO())

	return r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO background_snapshot_jobs (id, input_path, stream_id, status, config_json,
			 result_size, error_message, created_at, started_at, completed_at, duration_ms, created_by, metadata_json)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			j.ID, j.InputPath, j.StreamID, string(j.Status), j.ConfigJSON,
			j.ResultSize, j.ErrorMessage, formatTimePtr(&j.CreatedAt), formatTimePtr(j.StartedAt),
			formatTimePtr(j.CompletedAt), j.DurationMs, j.CreatedBy, j.MetadataJSON,
		)
		if err != nil {
			return apperrors.Database("BackgroundJobRepository.Create", "failed to insert job", err)
		}
		return nil
	})
}

// GetByID returns the background job with id.
func (r *BackgroundJobRepository) GetByID(ctx context.Context, id string) (*domain.BackgroundSnapshotJob, error) {
	var j *domain.BackgroundSnapshotJob
	err := r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		var row backgroundJobRow
		if err := db.GetContext(ctx, &row, `SELECT * FROM background_snapshot_jobs WHERE id = ?`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.NotFound("BackgroundJobRepository.GetByID", "job not found")
			}
			return apperrors.Database("BackgroundJobRepository.GetByID", "failed to query job", err)
		}
		j = row.toDomain()
		return nil
	})
	return j, err
}

// Update persists status/result transitions for a background job.
func (r *BackgroundJobRepository) Update(ctx context.Context, j *domain.BackgroundSnapshotJob) error {
	if err := j.Validate(); err != nil {
		return err
	}

	return r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		res, err := db.ExecContext(ctx,
			`UPDATE background_snapshot_jobs SET status=?, result_size=?, error_message=?,
			 started_at=?, completed_at=?, duration_ms=? WHERE id=?`,
			string(j.Status), j.ResultSize, j.ErrorMessage,
			formatTimePtr(j.StartedAt), formatTimePtr(j.CompletedAt), j.DurationMs, j.ID,
		)
		if err != nil {
			return apperrors.Database("BackgroundJobRepository.Update", "failed to update job", err)
		}
		affected, _ := res.RowsAffected()
		if affected == 0 {
			return apperrors.NotFound("BackgroundJobRepository.Update", "job not found")
		}
		return nil
	})
}

// ListPending returns jobs still awaiting or undergoing processing,
// oldest first, for worker pickup.
func (r *BackgroundJobRepository) ListPending(ctx context.Context) ([]*domain.BackgroundSnapshotJob, error) {
	var out []*domain.BackgroundSnapshotJob
	err := r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		var rows []backgroundJobRow
		if err := db.SelectContext(ctx, &rows,
			`SELECT * FROM background_snapshot_jobs WHERE status IN (?, ?) ORDER BY created_at ASC`,
			string(domain.JobStatusPending), string(domain.JobStatusProcessing)); err != nil {
			return apperrors.Database("BackgroundJobRepository.ListPending", "failed to query jobs", err)
		}
		for _, row := range rows {
			out = append(out, row.toDomain())
		}
		return nil
	})
	return out, err
}
