package persistence

import (
	"path/filepath"
	"testing"

	"github.com/sentryhub/capturectl/internal/config"
	"github.com/sentryhub/capturectl/internal/logging"
)

func newTestPool(t *testing.T) *PoolManager {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(config.DatabaseConfig{Path: dbPath, PoolSize: 4})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{
		Database: config.DatabaseConfig{PoolSize: 4},
		Breaker:  config.CircuitBreakerConfig{FailureThreshold: 5, SuccessThreshold: 1, RecoveryTimeoutSec: 1},
	}
	return NewPoolManager(db, cfg, logging.GetLogger("persistence-test"))
}
