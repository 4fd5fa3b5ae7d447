/*
API Key Manager Unit Tests

Requirements Coverage:
- REQ-SEC-014: Key Management
- REQ-SEC-015: Production API Key Management

Test Categories: Unit
API Documentation Reference: docs/api/json_rpc_methods.md

Unit tests for API Key Manager following existing testing patterns.
Tests key generation, validation, revocation, and lifecycle management
against an in-memory fake of the repository interface.
*/

package security

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryhub/capturectl/internal/domain"
	"github.com/sentryhub/capturectl/internal/logging"
)

// fakeApiKeyRepository is an in-memory stand-in for
// *persistence.ApiKeyRepository, sufficient to exercise APIKeyManager
// without a database.
type fakeApiKeyRepository struct {
	mu   sync.Mutex
	keys map[string]*domain.ApiKey // by ID
}

func newFakeApiKeyRepository() *fakeApiKeyRepository {
	return &fakeApiKeyRepository{keys: make(map[string]*domain.ApiKey)}
}

func (f *fakeApiKeyRepository) Create(ctx context.Context, k *domain.ApiKey) error {
	if err := k.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	k.CreatedAt = time.Now()
	cp := *k
	f.keys[k.ID] = &cp
	return nil
}

func (f *fakeApiKeyRepository) GetByKeyHash(ctx context.Context, keyHash string) (*domain.ApiKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range f.keys {
		if k.KeyHash == keyHash {
			cp := *k
			return &cp, nil
		}
	}
	return nil, errKeyNotFound()
}

func (f *fakeApiKeyRepository) ListByUser(ctx context.Context, userID string) ([]*domain.ApiKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.ApiKey
	for _, k := range f.keys {
		if k.UserID == userID {
			cp := *k
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeApiKeyRepository) TouchLastUsed(ctx context.Context, id string, keyHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if k, ok := f.keys[id]; ok {
		now := time.Now()
		k.LastUsedAt = &now
	}
	return nil
}

func (f *fakeApiKeyRepository) Revoke(ctx context.Context, id string, keyHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, ok := f.keys[id]
	if !ok {
		return errKeyNotFound()
	}
	k.Revoked = true
	return nil
}

func errKeyNotFound() error {
	return errors.New("key not found")
}

func TestNewAPIKeyManager(t *testing.T) {
	t.Parallel()

	_, err := NewAPIKeyManager(nil, logging.GetLogger("test"))
	assert.Error(t, err)

	manager, err := NewAPIKeyManager(newFakeApiKeyRepository(), nil)
	require.NoError(t, err)
	assert.NotNil(t, manager)
}

func TestAPIKeyManager_GenerateKey(t *testing.T) {
	t.Parallel()

	manager, err := NewAPIKeyManager(newFakeApiKeyRepository(), logging.GetLogger("test"))
	require.NoError(t, err)

	rawKey, key, err := manager.GenerateKey(context.Background(), "user-1", "ci key", 90*24*time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, rawKey)
	assert.NotEmpty(t, key.KeyHash)
	assert.NotEqual(t, rawKey, key.KeyHash, "only the hash should be persisted")
	assert.Equal(t, "user-1", key.UserID)
	require.NotNil(t, key.ExpiresAt)
	assert.True(t, key.ExpiresAt.After(time.Now()))
}

func TestAPIKeyManager_GenerateKeyNeverExpires(t *testing.T) {
	t.Parallel()

	manager, err := NewAPIKeyManager(newFakeApiKeyRepository(), logging.GetLogger("test"))
	require.NoError(t, err)

	_, key, err := manager.GenerateKey(context.Background(), "user-1", "long-lived", 0)
	require.NoError(t, err)
	assert.Nil(t, key.ExpiresAt)
}

func TestAPIKeyManager_ValidateKey(t *testing.T) {
	t.Parallel()

	manager, err := NewAPIKeyManager(newFakeApiKeyRepository(), logging.GetLogger("test"))
	require.NoError(t, err)

	rawKey, key, err := manager.GenerateKey(context.Background(), "user-1", "ci key", 24*time.Hour)
	require.NoError(t, err)

	validated, err := manager.ValidateKey(context.Background(), rawKey)
	require.NoError(t, err)
	assert.Equal(t, key.ID, validated.ID)

	_, err = manager.ValidateKey(context.Background(), "sk_not_a_real_key")
	assert.Error(t, err)
}

func TestAPIKeyManager_ValidateKeyRejectsRevokedAndExpired(t *testing.T) {
	t.Parallel()

	manager, err := NewAPIKeyManager(newFakeApiKeyRepository(), logging.GetLogger("test"))
	require.NoError(t, err)

	rawKey, key, err := manager.GenerateKey(context.Background(), "user-1", "short-lived", time.Millisecond)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	_, err = manager.ValidateKey(context.Background(), rawKey)
	assert.Error(t, err, "expired key must be rejected")

	rawKey2, key2, err := manager.GenerateKey(context.Background(), "user-1", "revoked", 24*time.Hour)
	require.NoError(t, err)
	require.NoError(t, manager.RevokeKey(context.Background(), key2.ID, key2.KeyHash))

	_, err = manager.ValidateKey(context.Background(), rawKey2)
	assert.Error(t, err, "revoked key must be rejected")
	_ = key
}

func TestAPIKeyManager_ListKeys(t *testing.T) {
	t.Parallel()

	manager, err := NewAPIKeyManager(newFakeApiKeyRepository(), logging.GetLogger("test"))
	require.NoError(t, err)

	_, _, err = manager.GenerateKey(context.Background(), "user-1", "a", 24*time.Hour)
	require.NoError(t, err)
	_, _, err = manager.GenerateKey(context.Background(), "user-1", "b", 24*time.Hour)
	require.NoError(t, err)
	_, _, err = manager.GenerateKey(context.Background(), "user-2", "c", 24*time.Hour)
	require.NoError(t, err)

	keys, err := manager.ListKeys(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestAPIKeyManager_RotateKey(t *testing.T) {
	t.Parallel()

	manager, err := NewAPIKeyManager(newFakeApiKeyRepository(), logging.GetLogger("test"))
	require.NoError(t, err)

	_, oldKey, err := manager.GenerateKey(context.Background(), "user-1", "rotatable", 24*time.Hour)
	require.NoError(t, err)

	newRaw, newKey, err := manager.RotateKey(context.Background(), oldKey)
	require.NoError(t, err)
	assert.NotEmpty(t, newRaw)
	assert.NotEqual(t, oldKey.ID, newKey.ID)

	keys, err := manager.ListKeys(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, keys, 2)

	var oldSeen, newSeen bool
	for _, k := range keys {
		if k.ID == oldKey.ID {
			oldSeen = true
			assert.True(t, k.Revoked)
		}
		if k.ID == newKey.ID {
			newSeen = true
			assert.False(t, k.Revoked)
		}
	}
	assert.True(t, oldSeen)
	assert.True(t, newSeen)
}
