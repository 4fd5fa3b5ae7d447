package persistence

import (
	"embed"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Open opens the sqlite-backed database at cfg.Path, enables WAL mode if
// configured, and applies pending goose migrations. Sqlite is the literal
// match for "file-based by default" (spec §6); no other SQL database
// appears anywhere in the retrieval pack.
func Open(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := cfg.Path
	if cfg.WALEnabled {
		dsn += "?_journal_mode=WAL"
	}

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, apperrors.Database("persistence.Open", "failed to open database", err)
	}

	db.SetMaxOpenConns(cfg.PoolSize)
	db.SetMaxIdleConns(cfg.PoolSize)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// migrate applies embedded goose migrations, idempotent at startup per
// spec §9's migration stance.
func migrate(db *sqlx.DB) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return apperrors.Database("persistence.migrate", "failed to set goose dialect", err)
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		return apperrors.Database("persistence.migrate", "failed to apply migrations", err)
	}
	return nil
}
