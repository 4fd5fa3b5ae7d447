package persistence

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/breaker"
	"github.com/sentryhub/capturectl/internal/config"
	"github.com/sentryhub/capturectl/internal/logging"
	"github.com/sentryhub/capturectl/internal/retry"
)

// PoolManager wraps a *sqlx.DB with acquire/retry/backoff/circuit-breaker
// semantics per spec §4.6, generalized onto internal/breaker (shared with
// the notification dispatcher per spec §9's unification note) and a
// semaphore sized to database.pool_size.
type PoolManager struct {
	db      *sqlx.DB
	breaker *breaker.Breaker
	policy  retry.Policy
	logger  *logging.Logger

	semaphore chan struct{}

	active   int64
	waiting  int64
	failures int64
	timeouts int64
}

// NewPoolManager wraps db with the pool manager behavior, sizing the
// semaphore to cfg.Database.PoolSize and the breaker to cfg.Breaker.
func NewPoolManager(db *sqlx.DB, cfg config.Config, logger *logging.Logger) *PoolManager {
	size := cfg.Database.PoolSize
	if size <= 0 {
		size = 1
	}
	return &PoolManager{
		db: db,
		breaker: breaker.New("persistence", breaker.Config{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			SuccessThreshold: cfg.Breaker.SuccessThreshold,
			RecoveryTimeout:  time.Duration(cfg.Breaker.RecoveryTimeoutSec) * time.Second,
		}, logger),
		policy: retry.Policy{
			BaseDelay:  50 * time.Millisecond,
			MaxDelay:   5 * time.Second,
			MaxRetries: 3,
		},
		logger:    logger,
		semaphore: make(chan struct{}, size),
	}
}

// DB returns the underlying *sqlx.DB for repository construction.
func (p *PoolManager) DB() *sqlx.DB {
	return p.db
}

// Execute acquires a pool permit (blocking up to ctx's deadline), then
// runs op through the circuit breaker with retry-on-transient-failure.
func (p *PoolManager) Execute(ctx context.Context, op func(ctx context.Context, db *sqlx.DB) error) error {
	atomic.AddInt64(&p.waiting, 1)
	select {
	case p.semaphore <- struct{}{}:
		atomic.AddInt64(&p.waiting, -1)
	case <-ctx.Done():
		atomic.AddInt64(&p.waiting, -1)
		atomic.AddInt64(&p.timeouts, 1)
		return apperrors.Database("PoolManager.Execute", "timed out waiting for a pool permit", ctx.Err())
	}
	defer func() { <-p.semaphore }()

	atomic.AddInt64(&p.active, 1)
	defer atomic.AddInt64(&p.active, -1)

	err := p.breaker.Call(func() error {
		return retry.Do(ctx, p.policy, isTransient, func(ctx context.Context) error {
			return op(ctx, p.db)
		})
	})
	if err != nil {
		atomic.AddInt64(&p.failures, 1)
	}
	return err
}

// isTransient classifies sqlite "database is locked"/busy errors as
// retryable; everything else (constraint violations, syntax errors) is
// terminal.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return containsAny(msg, "database is locked", "busy", "timeout")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if indexOf(s, sub) >= 0 {
			return true
		}
	}
	return false
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

// Stats reports the pool manager's current counters, per spec §4.6's
// active/wait/failure/timeout metrics.
type Stats struct {
	Active   int64
	Waiting  int64
	Failures int64
	Timeouts int64
}

// Stats returns a snapshot of the pool's counters.
func (p *PoolManager) Stats() Stats {
	return Stats{
		Active:   atomic.LoadInt64(&p.active),
		Waiting:  atomic.LoadInt64(&p.waiting),
		Failures: atomic.LoadInt64(&p.failures),
		Timeouts: atomic.LoadInt64(&p.timeouts),
	}
}

// BreakerState exposes the shared breaker's current state for health checks.
func (p *PoolManager) BreakerState() breaker.State {
	return p.breaker.State()
}
