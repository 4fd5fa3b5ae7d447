package config

import (
	"net/url"
	"strings"

	"github.com/sentryhub/capturectl/internal/apperrors"
)

// Validate checks the invariants named in SPEC_FULL §6, mirroring the
// teacher's validateConfig/config_validation.go field-by-field style but
// scoped to this system's config groups.
func Validate(cfg *Config) error {
	const op = "config.Validate"

	if cfg.Database.PoolSize < 1 || cfg.Database.PoolSize > 100 {
		return apperrors.Validation(op, "database.pool_size must be in [1,100]")
	}

	if len(cfg.Security.JWTSecret) < 32 {
		return apperrors.Validation(op, "security.jwt_secret must be at least 32 characters")
	}
	a := cfg.Security.Argon2
	if a.MemoryCost < 1024 || a.MemoryCost > 1<<20 {
		return apperrors.Validation(op, "security.argon2.memory_cost must be in [1024,2^20]")
	}
	if a.TimeCost < 1 || a.TimeCost > 100 {
		return apperrors.Validation(op, "security.argon2.time_cost must be in [1,100]")
	}
	if a.Parallelism < 1 || a.Parallelism > 16 {
		return apperrors.Validation(op, "security.argon2.parallelism must be in [1,16]")
	}

	if cfg.External.WebhookBaseURL != "" {
		if _, err := url.ParseRequestURI(cfg.External.WebhookBaseURL); err != nil {
			return apperrors.Validation(op, "external.webhook_base_url must be a valid URL")
		}
	}

	if cfg.Update.Repository != "" {
		if cfg.Update.PublicKeyHex == "" {
			return apperrors.Validation(op, "update.public_key_hex is required when update.repository is set")
		}
		if cfg.Update.HealthURL == "" {
			return apperrors.Validation(op, "update.health_url is required when update.repository is set")
		}
	}

	switch strings.ToLower(cfg.Retention.Type) {
	case "age", "size", "manual", "":
	default:
		return apperrors.Validation(op, "retention.type must be one of age|size|manual")
	}

	return nil
}
