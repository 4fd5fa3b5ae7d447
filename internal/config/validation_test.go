package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func baseConfig() *Config {
	return &Config{
		Database: DatabaseConfig{PoolSize: 10},
		Security: SecurityConfig{
			JWTSecret: validSecret(),
			Argon2:    Argon2Config{MemoryCost: 19456, TimeCost: 2, Parallelism: 1},
		},
		Retention: RetentionPolicyConfig{Type: "age"},
	}
}

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, Validate(baseConfig()))
}

func TestValidate_PoolSizeOutOfRange(t *testing.T) {
	cfg := baseConfig()
	cfg.Database.PoolSize = 0
	assert.Error(t, Validate(cfg))

	cfg.Database.PoolSize = 101
	assert.Error(t, Validate(cfg))
}

func TestValidate_ShortJWTSecret(t *testing.T) {
	cfg := baseConfig()
	cfg.Security.JWTSecret = "short"
	assert.Error(t, Validate(cfg))
}

func TestValidate_Argon2OutOfRange(t *testing.T) {
	cfg := baseConfig()
	cfg.Security.Argon2.MemoryCost = 10
	assert.Error(t, Validate(cfg))

	cfg = baseConfig()
	cfg.Security.Argon2.Parallelism = 17
	assert.Error(t, Validate(cfg))
}

func TestValidate_InvalidWebhookURL(t *testing.T) {
	cfg := baseConfig()
	cfg.External.WebhookBaseURL = "not a url"
	assert.Error(t, Validate(cfg))
}

func TestValidate_UpdateRequiresKeyAndHealthURL(t *testing.T) {
	cfg := baseConfig()
	cfg.Update.Repository = "sentryhub/capturectl"
	assert.Error(t, Validate(cfg))

	cfg.Update.PublicKeyHex = "abcd"
	cfg.Update.HealthURL = "http://localhost/healthz"
	assert.NoError(t, Validate(cfg))
}

func TestValidate_InvalidRetentionType(t *testing.T) {
	cfg := baseConfig()
	cfg.Retention.Type = "bogus"
	assert.Error(t, Validate(cfg))
}
