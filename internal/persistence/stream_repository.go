package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/domain"
	"github.com/sentryhub/capturectl/internal/persistence/cache"
)

type streamRow struct {
	ID               string         `db:"id"`
	UserID           string         `db:"user_id"`
	Name             string         `db:"name"`
	Description      string         `db:"description"`
	ConfigJSON       string         `db:"config_json"`
	IsDefault        bool           `db:"is_default"`
	CreatedAt        string         `db:"created_at"`
	UpdatedAt        string         `db:"updated_at"`
	ExecutionStatus  string         `db:"execution_status"`
	LastExecutedAt   sql.NullString `db:"last_executed_at"`
	LastErrorMessage string         `db:"last_error_message"`
}

func (r streamRow) toDomain() *domain.Stream {
	s := &domain.Stream{
		ID:               r.ID,
		UserID:           r.UserID,
		Name:             r.Name,
		Description:      r.Description,
		ConfigJSON:       r.ConfigJSON,
		IsDefault:        r.IsDefault,
		CreatedAt:        parseTime(r.CreatedAt),
		UpdatedAt:        parseTime(r.UpdatedAt),
		ExecutionStatus:  domain.ExecutionStatus(r.ExecutionStatus),
		LastErrorMessage: r.LastErrorMessage,
	}
	if r.LastExecutedAt.Valid {
		s.LastExecutedAt = parseTimePtr(r.LastExecutedAt.String)
	}
	return s
}

// StreamRepository is the exclusive owner of stream rows, cached 200
// entries / 3m TTL per spec §4.6.
type StreamRepository struct {
	pool *PoolManager
	byID *cache.Cache[string, *domain.Stream]
}

// NewStreamRepository constructs a StreamRepository over pool.
func NewStreamRepository(pool *PoolManager) *StreamRepository {
	return &StreamRepository{pool: pool, byID: cache.New[string, *domain.Stream](200, 3*time.Minute)}
}

// Create inserts a new stream row.
func (r *StreamRepository) Create(ctx context.Context, s *domain.Stream) error {
	if err := s.Validate(); err != nil {
		return err
	}
	now := nowISO()
	s.CreatedAt, s.UpdatedAt = parseTime(now), parseTime(now)

	return r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO streams (id, user_id, name, description, config_json, is_default,
			 created_at, updated_at, execution_status, last_executed_at, last_error_message)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID, s.UserID, s.Name, s.Description, s.ConfigJSON, s.IsDefault,
			now, now, string(s.ExecutionStatus), formatTimePtr(s.LastExecutedAt), s.LastErrorMessage,
		)
		if err != nil {
			return apperrors.Database("StreamRepository.Create", "failed to insert stream", err)
		}
		return nil
	})
}

// GetByID returns the stream with id, consulting the cache first.
func (r *StreamRepository) GetByID(ctx context.Context, id string) (*domain.Stream, error) {
	if s, ok := r.byID.Get(id); ok {
		return s, nil
	}

	var s *domain.Stream
	err := r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		var row streamRow
		if err := db.GetContext(ctx, &row, `SELECT * FROM streams WHERE id = ?`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.NotFound("StreamRepository.GetByID", "stream not found")
			}
			return apperrors.Database("StreamRepository.GetByID", "failed to query stream", err)
		}
		s = row.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.byID.Set(id, s)
	return s, nil
}

// ListByUser returns every stream owned by userID, ordered by name.
func (r *StreamRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Stream, error) {
	var out []*domain.Stream
	err := r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		var rows []streamRow
		if err := db.SelectContext(ctx, &rows, `SELECT * FROM streams WHERE user_id = ? ORDER BY name`, userID); err != nil {
			return apperrors.Database("StreamRepository.ListByUser", "failed to query streams", err)
		}
		for _, row := range rows {
			out = append(out, row.toDomain())
		}
		return nil
	})
	return out, err
}

// Update persists changes to an existing stream and invalidates the cache.
func (r *StreamRepository) Update(ctx context.Context, s *domain.Stream) error {
	if err := s.Validate(); err != nil {
		return err
	}
	s.UpdatedAt = parseTime(nowISO())

	err := r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		res, err := db.ExecContext(ctx,
			`UPDATE streams SET name=?, description=?, config_json=?, is_default=?, updated_at=?,
			 execution_status=?, last_executed_at=?, last_error_message=? WHERE id=?`,
			s.Name, s.Description, s.ConfigJSON, s.IsDefault, nowISO(),
			string(s.ExecutionStatus), formatTimePtr(s.LastExecutedAt), s.LastErrorMessage, s.ID,
		)
		if err != nil {
			return apperrors.Database("StreamRepository.Update", "failed to update stream", err)
		}
		affected, _ := res.RowsAffected()
		if affected == 0 {
			return apperrors.NotFound("StreamRepository.Update", "stream not found")
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.byID.Invalidate(s.ID)
	return nil
}

// Delete removes a stream permanently.
func (r *StreamRepository) Delete(ctx context.Context, id string) error {
	err := r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		res, err := db.ExecContext(ctx, `DELETE FROM streams WHERE id = ?`, id)
		if err != nil {
			return apperrors.Database("StreamRepository.Delete", "failed to delete stream", err)
		}
		affected, _ := res.RowsAffected()
		if affected == 0 {
			return apperrors.NotFound("StreamRepository.Delete", "stream not found")
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.byID.Invalidate(id)
	return nil
}
