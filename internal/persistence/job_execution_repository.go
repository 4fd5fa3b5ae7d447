package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/domain"
)

type jobExecutionRow struct {
	ID          string        `db:"id"`
	JobID       string        `db:"job_id"`
	Status      string        `db:"status"`
	StartedAt   string        `db:"started_at"`
	CompletedAt sql.NullString `db:"completed_at"`
	DurationMs  sql.NullInt64 `db:"duration_ms"`
	ResultJSON  string        `db:"result_json"`
	Error       string        `db:"error"`
	RetryCount  int           `db:"retry_count"`
	ExecutedOn  string        `db:"executed_on"`
}

func (r jobExecutionRow) toDomain() *domain.JobExecution {
	e := &domain.JobExecution{
		ID:         r.ID,
		JobID:      r.JobID,
		Status:     domain.JobStatus(r.Status),
		StartedAt:  parseTime(r.StartedAt),
		ResultJSON: r.ResultJSON,
		Error:      r.Error,
		RetryCount: r.RetryCount,
		ExecutedOn: r.ExecutedOn,
	}
	if r.CompletedAt.Valid {
		e.CompletedAt = parseTimePtr(r.CompletedAt.String)
	}
	if r.DurationMs.Valid {
		e.DurationMs = &r.DurationMs.Int64
	}
	return e
}

// JobExecutionRepository is the exclusive owner of job execution rows.
type JobExecutionRepository struct {
	pool *PoolManager
}

// NewJobExecutionRepository constructs a JobExecutionRepository over pool.
func NewJobExecutionRepository(pool *PoolManager) *JobExecutionRepository {
	return &JobExecutionRepository{pool: pool}
}

// Create inserts a new job execution row.
func (r *JobExecutionRepository) Create(ctx context.Context, e *domain.JobExecution) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = parseTime(nowISO())
	}

	return r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO job_executions (id, job_id, status, started_at, completed_at, duration_ms,
			 result_json, error, retry_count, executed_on)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.JobID, string(e.Status), formatTimePtr(&e.StartedAt), formatTimePtr(e.CompletedAt),
			e.DurationMs, e.ResultJSON, e.Error, e.RetryCount, e.ExecutedOn,
		)
		if err != nil {
			return apperrors.Database("JobExecutionRepository.Create", "failed to insert execution", err)
		}
		return nil
	})
}

// Update persists status/result transitions for a job execution.
func (r *JobExecutionRepository) Update(ctx context.Context, e *domain.JobExecution) error {
	if err := e.Validate(); err != nil {
		return err
	}

	return r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		res, err := db.ExecContext(ctx,
			`UPDATE job_executions SET status=?, completed_at=?, duration_ms=?, result_json=?,
			 error=?, retry_count=? WHERE id=?`,
			string(e.Status), formatTimePtr(e.CompletedAt), e.DurationMs, e.ResultJSON, e.Error, e.RetryCount, e.ID,
		)
		if err != nil {
			return apperrors.Database("JobExecutionRepository.Update", "failed to update execution", err)
		}
		affected, _ := res.RowsAffected()
		if affected == 0 {
			return apperrors.NotFound("JobExecutionRepository.Update", "execution not found")
		}
		return nil
	})
}

// ListByJob returns executions for jobID, most-recent-first.
func (r *JobExecutionRepository) ListByJob(ctx context.Context, jobID string) ([]*domain.JobExecution, error) {
	var out []*domain.JobExecution
	err := r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		var rows []jobExecutionRow
		if err := db.SelectContext(ctx, &rows, `SELECT * FROM job_executions WHERE job_id = ? ORDER BY started_at DESC`, jobID); err != nil {
			return apperrors.Database("JobExecutionRepository.ListByJob", "failed to query executions", err)
		}
		for _, row := range rows {
			out = append(out, row.toDomain())
		}
		return nil
	})
	return out, err
}
