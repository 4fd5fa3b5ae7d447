/*
API Key Manager Implementation

Requirements Coverage:
- REQ-SEC-014: Key Management
- REQ-SEC-015: Production API Key Management
- REQ-SEC-016: Key Rotation and Expiration

Test Categories: Unit/Integration
API Documentation Reference: docs/api/json_rpc_methods.md

Issues and validates API keys, persisting only their hash (never the
plaintext key) through the ApiKeyRepository.
*/

package security

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/sentryhub/capturectl/internal/domain"
	"github.com/sentryhub/capturectl/internal/logging"
)

const (
	apiKeyRandomBytes = 32
	apiKeyPrefix      = "sk_"
)

// apiKeyRepository is the persistence-layer surface APIKeyManager needs,
// satisfied by *persistence.ApiKeyRepository.
type apiKeyRepository interface {
	Create(ctx context.Context, k *domain.ApiKey) error
	GetByKeyHash(ctx context.Context, keyHash string) (*domain.ApiKey, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.ApiKey, error)
	TouchLastUsed(ctx context.Context, id string, keyHash string) error
	Revoke(ctx context.Context, id string, keyHash string) error
}

// APIKeyManager issues and validates API keys, storing only the SHA-256
// hash of the raw key (API keys are high-entropy random tokens, not
// passwords, so a fast cryptographic hash is the right primitive —
// unlike Argon2id, which is for low-entropy user-chosen secrets).
type APIKeyManager struct {
	repo   apiKeyRepository
	logger *logging.Logger
}

// NewAPIKeyManager creates a new API key manager backed by repo.
func NewAPIKeyManager(repo apiKeyRepository, logger *logging.Logger) (*APIKeyManager, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository cannot be nil")
	}
	if logger == nil {
		logger = logging.GetLogger("api-key-manager")
	}
	return &APIKeyManager{repo: repo, logger: logger}, nil
}

func hashAPIKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}

// GenerateKey mints a new API key for userID, returning the raw key
// (shown to the caller exactly once) and the persisted metadata record.
// ttl of zero means the key never expires.
func (km *APIKeyManager) GenerateKey(ctx context.Context, userID, name string, ttl time.Duration) (rawKey string, key *domain.ApiKey, err error) {
	randomBytes := make([]byte, apiKeyRandomBytes)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", nil, fmt.Errorf("failed to generate secure key: %w", err)
	}
	rawKey = apiKeyPrefix + hex.EncodeToString(randomBytes)

	key = &domain.ApiKey{
		ID:      domain.NewID("key"),
		UserID:  userID,
		Name:    name,
		KeyHash: hashAPIKey(rawKey),
	}
	if ttl > 0 {
		expires := time.Now().Add(ttl)
		key.ExpiresAt = &expires
	}

	if err := km.repo.Create(ctx, key); err != nil {
		return "", nil, err
	}

	km.logger.WithFields(logging.Fields{
		"key_id":  key.ID,
		"user_id": userID,
		"name":    name,
	}).Info("API key generated successfully")

	return rawKey, key, nil
}

// ValidateKey looks up rawKey by its hash, rejecting revoked or expired
// keys, and stamps last-used tracking on success.
func (km *APIKeyManager) ValidateKey(ctx context.Context, rawKey string) (*domain.ApiKey, error) {
	keyHash := hashAPIKey(rawKey)

	key, err := km.repo.GetByKeyHash(ctx, keyHash)
	if err != nil {
		return nil, err
	}
	if key.Revoked {
		return nil, fmt.Errorf("key has been revoked")
	}
	if key.ExpiresAt != nil && time.Now().After(*key.ExpiresAt) {
		return nil, fmt.Errorf("key has expired")
	}

	if err := km.repo.TouchLastUsed(ctx, key.ID, keyHash); err != nil {
		km.logger.WithError(err).WithField("key_id", key.ID).Warn("failed to record API key usage")
	}

	return key, nil
}

// RevokeKey revokes the key identified by id/keyHash.
func (km *APIKeyManager) RevokeKey(ctx context.Context, id, keyHash string) error {
	if err := km.repo.Revoke(ctx, id, keyHash); err != nil {
		return err
	}
	km.logger.WithField("key_id", id).Info("API key revoked successfully")
	return nil
}

// ListKeys returns every key owned by userID.
func (km *APIKeyManager) ListKeys(ctx context.Context, userID string) ([]*domain.ApiKey, error) {
	return km.repo.ListByUser(ctx, userID)
}

// RotateKey revokes the old key and mints a replacement with the same
// owner, name, and remaining time-to-live.
func (km *APIKeyManager) RotateKey(ctx context.Context, old *domain.ApiKey) (rawKey string, key *domain.ApiKey, err error) {
	var ttl time.Duration
	if old.ExpiresAt != nil {
		ttl = time.Until(*old.ExpiresAt)
		if ttl <= 0 {
			ttl = time.Nanosecond // already expired; new key inherits an expired ttl
		}
	}

	rawKey, key, err = km.GenerateKey(ctx, old.UserID, old.Name+" (rotated)", ttl)
	if err != nil {
		return "", nil, err
	}

	if err := km.RevokeKey(ctx, old.ID, old.KeyHash); err != nil {
		km.logger.WithError(err).WithField("key_id", old.ID).Error("failed to revoke old key during rotation")
	}

	km.logger.WithFields(logging.Fields{
		"old_key_id": old.ID,
		"new_key_id": key.ID,
	}).Info("API key rotated successfully")

	return rawKey, key, nil
}
