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

type userRow struct {
	ID           string `db:"id"`
	Username     string `db:"username"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	IsActive     bool   `db:"is_active"`
	CreatedAt    string `db:"created_at"`
	UpdatedAt    string `db:"updated_at"`
}

func (r userRow) toDomain() *domain.User {
	return &domain.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		IsActive:     r.IsActive,
		CreatedAt:    parseTime(r.CreatedAt),
		UpdatedAt:    parseTime(r.UpdatedAt),
	}
}

// UserRepository is the exclusive owner of user rows, sized caches per
// spec §4.6 (100 entries / 5m TTL by ID, plus a secondary email→User
// mirror of the same size).
type UserRepository struct {
	pool       *PoolManager
	byID       *cache.Cache[string, *domain.User]
	byEmail    *cache.Cache[string, *domain.User]
}

// NewUserRepository constructs a UserRepository over pool.
func NewUserRepository(pool *PoolManager) *UserRepository {
	return &UserRepository{
		pool:    pool,
		byID:    cache.New[string, *domain.User](100, 5*time.Minute),
		byEmail: cache.New[string, *domain.User](100, 5*time.Minute),
	}
}

// Create inserts a new user row, validating first.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	now := nowISO()
	u.CreatedAt, u.UpdatedAt = parseTime(now), parseTime(now)

	return r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO users (id, username, email, password_hash, is_active, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			u.ID, u.Username, u.Email, u.PasswordHash, u.IsActive, now, now,
		)
		if err != nil {
			return apperrors.Database("UserRepository.Create", "failed to insert user", err)
		}
		return nil
	})
}

// GetByID returns the user with id, consulting the ID cache first.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if u, ok := r.byID.Get(id); ok {
		return u, nil
	}

	var u *domain.User
	err := r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		var row userRow
		if err := db.GetContext(ctx, &row, `SELECT * FROM users WHERE id = ?`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.NotFound("UserRepository.GetByID", "user not found")
			}
			return apperrors.Database("UserRepository.GetByID", "failed to query user", err)
		}
		u = row.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.byID.Set(id, u)
	return u, nil
}

// GetByEmail returns the user with email, consulting the email cache first.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if u, ok := r.byEmail.Get(email); ok {
		return u, nil
	}

	var u *domain.User
	err := r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		var row userRow
		if err := db.GetContext(ctx, &row, `SELECT * FROM users WHERE email = ?`, email); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.NotFound("UserRepository.GetByEmail", "user not found")
			}
			return apperrors.Database("UserRepository.GetByEmail", "failed to query user", err)
		}
		u = row.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.byEmail.Set(email, u)
	return u, nil
}

// Update persists changes to an existing user and invalidates both caches.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	u.UpdatedAt = parseTime(nowISO())

	err := r.pool.Execute(ctx, func(ctx context.Context, db *sqlx.DB) error {
		res, err := db.ExecContext(ctx,
			`UPDATE users SET username=?, email=?, password_hash=?, is_active=?, updated_at=? WHERE id=?`,
			u.Username, u.Email, u.PasswordHash, u.IsActive, nowISO(), u.ID,
		)
		if err != nil {
			return apperrors.Database("UserRepository.Update", "failed to update user", err)
		}
		affected, _ := res.RowsAffected()
		if affected == 0 {
			return apperrors.NotFound("UserRepository.Update", "user not found")
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.byID.Invalidate(u.ID)
	r.byEmail.Invalidate(u.Email)
	return nil
}

// Deactivate soft-deletes a user by flipping is_active, per spec §3.
func (r *UserRepository) Deactivate(ctx context.Context, id string) error {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	u.IsActive = false
	return r.Update(ctx, u)
}
