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

type apiKeyRow struct {
	ID         string         `db:"id"`
	UserID     string         `db:"user_id"`
	Name       string         `db:"name"`
	KeyHash    string         `db:"key_hash"`
	LastUsedAt sql.NullString `db:"last_used_at"`
	ExpiresAt  sql.NullString `db:"expires_at"`
	CreatedAt  string         `db:"created_at"`
	Revoked    bool           `db:"revoked"`
}

func (r apiKeyRow) toDomain() *domain.ApiKey {
	k := &domain.ApiKey{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Name,
		KeyHash:   r.KeyHash,
		CreatedAt: parseTime(r.CreatedAt),
		Revoked:   r.Revoked,
	}
	if r.LastUsedAt.Valid {
		k.LastUsedAt = parseTimePtr(r.LastUsedAt.String)
	}
	if r.ExpiresAt.Valid {
		k.ExpiresAt = parseTimePtr(r.ExpiresAt.String)
	}
	return k
}

// ApiKeyRepository is the exclusive owner of API key rows, cached by
// key hash per spec §4.6 (50 entries / 10m TTL — lookups are hash-only
// since the raw key is never persisted).
type ApiKeyRepository struct {
	pool      *PoolManager
	byKeyHash *cache.Cache[string, *domain.ApiKey]
}

// NewApiKeyRepository constructs an ApiKeyRepository over pool.
func NewApiKeyRepository(pool *PoolManager) *ApiKeyRepository {
	return &ApiKeyRepository{
		pool:      pool,
		byKeyHash: cache.New[string, *domain.ApiKey](50, 10*time.Minute),
	}
}

// Create inserts a new API key row.
func (r *ApiKeyRepository) Create(ctx context.Context, k *domain.ApiKey) error {
	if err := k.Validate(); err != nil {
		return err
	}
	k.CreatedAt = parseTime(nowISO())

	return r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO api_keys (id, user_id, name, key_hash, last_used_at, expires_at, created_at, revoked)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			k.ID, k.UserID, k.Name, k.KeyHash, formatTimePtr(k.LastUsedAt), formatTimePtr(k.ExpiresAt),
			formatTimePtr(&k.CreatedAt), k.Revoked,
		)
		if err != nil {
			return apperrors.Database("ApiKeyRepository.Create", "failed to insert key", err)
		}
		return nil
	})
}

// GetByKeyHash returns the key with keyHash, consulting the cache first.
func (r *ApiKeyRepository) GetByKeyHash(ctx context.Context, keyHash string) (*domain.ApiKey, error) {
	if k, ok := r.byKeyHash.Get(keyHash); ok {
		return k, nil
	}

	var k *domain.ApiKey
	err := r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		var row apiKeyRow
		if err := db.GetContext(ctx, &row, `SELECT * FROM api_keys WHERE key_hash = ?`, keyHash); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.NotFound("ApiKeyRepository.GetByKeyHash", "key not found")
			}
			return apperrors.Database("ApiKeyRepository.GetByKeyHash", "failed to query key", err)
		}
		k = row.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.byKeyHash.Set(keyHash, k)
	return k, nil
}

// ListByUser returns every API key owned by userID.
func (r *ApiKeyRepository) ListByUser(ctx context.Context, userID string) ([]*domain.ApiKey, error) {
	var out []*domain.ApiKey
	err := r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		var rows []apiKeyRow
		if err := db.SelectContext(ctx, &rows, `SELECT * FROM api_keys WHERE user_id = ?`, userID); err != nil {
			return apperrors.Database("ApiKeyRepository.ListByUser", "failed to query keys", err)
		}
		for _, row := range rows {
			out = append(out, row.toDomain())
		}
		return nil
	})
	return out, err
}

// TouchLastUsed stamps last_used_at to now and invalidates the cache.
func (r *ApiKeyRepository) TouchLastUsed(ctx context.Context, id string, keyHash string) error {
	now := nowISO()
	err := r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		_, err := db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = ? WHERE id = ?`, now, id)
		if err != nil {
			return apperrors.Database("ApiKeyRepository.TouchLastUsed", "failed to update key", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.byKeyHash.Invalidate(keyHash)
	return nil
}

// Revoke marks a key as revoked, invalidating the cache.
func (r *ApiKeyRepository) Revoke(ctx context.Context, id string, keyHash string) error {
	err := r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		res, err := db.ExecContext(ctx, `UPDATE api_keys SET revoked = 1 WHERE id = ?`, id)
		if err != nil {
			return apperrors.Database("ApiKeyRepository.Revoke", "failed to revoke key", err)
		}
		affected, _ := res.RowsAffected()
		if affected == 0 {
			return apperrors.NotFound("ApiKeyRepository.Revoke", "key not found")
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.byKeyHash.Invalidate(keyHash)
	return nil
}
