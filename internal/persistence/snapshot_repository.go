package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/domain"
)

type snapshotRow struct {
	ID             string        `db:"id"`
	StreamID       string        `db:"stream_id"`
	UserID         string        `db:"user_id"`
	FilePath       string        `db:"file_path"`
	StorageURI     string        `db:"storage_uri"`
	ContentType    string        `db:"content_type"`
	Width          sql.NullInt64 `db:"width"`
	Height         sql.NullInt64 `db:"height"`
	FileSize       int64         `db:"file_size"`
	Checksum       string        `db:"checksum"`
	ETag           string        `db:"etag"`
	CapturedAt     string        `db:"captured_at"`
	CreatedAt      string        `db:"created_at"`
	UpdatedAt      string        `db:"updated_at"`
	PerceptualHash string        `db:"perceptual_hash"`
}

func (r snapshotRow) toDomain() *domain.Snapshot {
	s := &domain.Snapshot{
		ID:             r.ID,
		StreamID:       r.StreamID,
		UserID:         r.UserID,
		FilePath:       r.FilePath,
		StorageURI:     r.StorageURI,
		ContentType:    r.ContentType,
		FileSize:       r.FileSize,
		Checksum:       r.Checksum,
		ETag:           r.ETag,
		CapturedAt:     parseTime(r.CapturedAt),
		CreatedAt:      parseTime(r.CreatedAt),
		UpdatedAt:      parseTime(r.UpdatedAt),
		PerceptualHash: r.PerceptualHash,
	}
	if r.Width.Valid {
		w := int(r.Width.Int64)
		s.Width = &w
	}
	if r.Height.Valid {
		h := int(r.Height.Int64)
		s.Height = &h
	}
	return s
}

// SnapshotRepository is the exclusive owner of snapshot rows. Snapshots
// are immutable once written, so no Update is exposed.
type SnapshotRepository struct {
	pool *PoolManager
}

// NewSnapshotRepository constructs a SnapshotRepository over pool.
func NewSnapshotRepository(pool *PoolManager) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// Create inserts a new snapshot row.
func (r *SnapshotRepository) Create(ctx context.Context, s *domain.Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	now := nowISO()
	s.CreatedAt, s.UpdatedAt = parseTime(now), parseTime(now)
	if s.CapturedAt.IsZero() {
		s.CapturedAt = parseTime(now)
	}

	return r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO snapshots (id, stream_id, user_id, file_path, storage_uri, content_type,
			 width, height, file_size, checksum, etag, captured_at, created_at, updated_at, perceptual_hash)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID, s.StreamID, s.UserID, s.FilePath, s.StorageURI, s.ContentType,
			s.Width, s.Height, s.FileSize, s.Checksum, s.ETag,
			formatTimePtr(&s.CapturedAt), now, now, s.PerceptualHash,
		)
		if err != nil {
			return apperrors.Database("SnapshotRepository.Create", "failed to insert snapshot", err)
		}
		return nil
	})
}

// GetByID returns the snapshot with id.
func (r *SnapshotRepository) GetByID(ctx context.Context, id string) (*domain.Snapshot, error) {
	var s *domain.Snapshot
	err := r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		var row snapshotRow
		if err := db.GetContext(ctx, &row, `SELECT * FROM snapshots WHERE id = ?`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.NotFound("SnapshotRepository.GetByID", "snapshot not found")
			}
			return apperrors.Database("SnapshotRepository.GetByID", "failed to query snapshot", err)
		}
		s = row.toDomain()
		return nil
	})
	return s, err
}

// ListByStream returns snapshots for streamID ordered most-recent-first,
// capped at limit (0 means no cap).
func (r *SnapshotRepository) ListByStream(ctx context.Context, streamID string, limit int) ([]*domain.Snapshot, error) {
	var out []*domain.Snapshot
	err := r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		query := `SELECT * FROM snapshots WHERE stream_id = ? ORDER BY captured_at DESC`
		args := []interface{}{streamID}
		if limit > 0 {
			query += ` LIMIT ?`
			args = append(args, limit)
		}
		var rows []snapshotRow
		if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
			return apperrors.Database("SnapshotRepository.ListByStream", "failed to query snapshots", err)
		}
		for _, row := range rows {
			out = append(out, row.toDomain())
		}
		return nil
	})
	return out, err
}

// Delete removes a snapshot row permanently; callers are responsible for
// also removing the backing storage object.
func (r *SnapshotRepository) Delete(ctx context.Context, id string) error {
	return r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		res, err := db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
		if err != nil {
			return apperrors.Database("SnapshotRepository.Delete", "failed to delete snapshot", err)
		}
		affected, _ := res.RowsAffected()
		if affected == 0 {
			return apperrors.NotFound("SnapshotRepository.Delete", "snapshot not found")
		}
		return nil
	})
}
