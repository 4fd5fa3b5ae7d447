package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/domain"
)

type captureRow struct {
	ID          string         `db:"id"`
	StreamID    string         `db:"stream_id"`
	UserID      string         `db:"user_id"`
	FilePath    string         `db:"file_path"`
	StorageURI  string         `db:"storage_uri"`
	ContentType string         `db:"content_type"`
	FileSize    int64          `db:"file_size"`
	Checksum    string         `db:"checksum"`
	Status      string         `db:"status"`
	StartedAt   string         `db:"started_at"`
	EndedAt     sql.NullString `db:"ended_at"`
	CreatedAt   string         `db:"created_at"`
	UpdatedAt   string         `db:"updated_at"`
}

func (r captureRow) toDomain() *domain.Capture {
	c := &domain.Capture{
		ID:          r.ID,
		StreamID:    r.StreamID,
		UserID:      r.UserID,
		FilePath:    r.FilePath,
		StorageURI:  r.StorageURI,
		ContentType: r.ContentType,
		FileSize:    r.FileSize,
		Checksum:    r.Checksum,
		Status:      domain.CaptureStatus(r.Status),
		StartedAt:   parseTime(r.StartedAt),
		CreatedAt:   parseTime(r.CreatedAt),
		UpdatedAt:   parseTime(r.UpdatedAt),
	}
	if r.EndedAt.Valid {
		c.EndedAt = parseTimePtr(r.EndedAt.String)
	}
	return c
}

// CaptureRepository is the exclusive owner of capture rows.
type CaptureRepository struct {
	pool *PoolManager
}

// NewCaptureRepository constructs a CaptureRepository over pool.
func NewCaptureRepository(pool *PoolManager) *CaptureRepository {
	return &CaptureRepository{pool: pool}
}

// Create inserts a new capture row.
func (r *CaptureRepository) Create(ctx context.Context, c *domain.Capture) error {
	if err := c.Validate(); err != nil {
		return err
	}
	now := nowISO()
	c.CreatedAt, c.UpdatedAt = parseTime(now), parseTime(now)
	if c.StartedAt.IsZero() {
		c.StartedAt = parseTime(now)
	}

	return r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO captures (id, stream_id, user_id, file_path, storage_uri, content_type,
			 file_size, checksum, status, started_at, ended_at, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.StreamID, c.UserID, c.FilePath, c.StorageURI, c.ContentType,
			c.FileSize, c.Checksum, string(c.Status), formatTimePtr(&c.StartedAt), formatTimePtr(c.EndedAt), now, now,
		)
		if err != nil {
			return apperrors.Database("CaptureRepository.Create", "failed to insert capture", err)
		}
		return nil
	})
}

// GetByID returns the capture with id.
func (r *CaptureRepository) GetByID(ctx context.Context, id string) (*domain.Capture, error) {
	var c *domain.Capture
	err := r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		var row captureRow
		if err := db.GetContext(ctx, &row, `SELECT * FROM captures WHERE id = ?`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.NotFound("CaptureRepository.GetByID", "capture not found")
			}
			return apperrors.Database("CaptureRepository.GetByID", "failed to query capture", err)
		}
		c = row.toDomain()
		return nil
	})
	return c, err
}

// ListByStream returns captures for streamID ordered most-recent-first.
func (r *CaptureRepository) ListByStream(ctx context.Context, streamID string) ([]*domain.Capture, error) {
	var out []*domain.Capture
	err := r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		var rows []captureRow
		if err := db.SelectContext(ctx, &rows, `SELECT * FROM captures WHERE stream_id = ? ORDER BY started_at DESC`, streamID); err != nil {
			return apperrors.Database("CaptureRepository.ListByStream", "failed to query captures", err)
		}
		for _, row := range rows {
			out = append(out, row.toDomain())
		}
		return nil
	})
	return out, err
}

// Update persists changes to an in-flight or completed capture.
func (r *CaptureRepository) Update(ctx context.Context, c *domain.Capture) error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.UpdatedAt = parseTime(nowISO())

	return r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		res, err := db.ExecContext(ctx,
			`UPDATE captures SET file_path=?, storage_uri=?, content_type=?, file_size=?, checksum=?,
			 status=?, ended_at=?, updated_at=? WHERE id=?`,
			c.FilePath, c.StorageURI, c.ContentType, c.FileSize, c.Checksum,
			string(c.Status), formatTimePtr(c.EndedAt), nowISO(), c.ID,
		)
		if err != nil {
			return apperrors.Database("CaptureRepository.Update", "failed to update capture", err)
		}
		affected, _ := res.RowsAffected()
		if affected == 0 {
			return apperrors.NotFound("CaptureRepository.Update", "capture not found")
		}
		return nil
	})
}
