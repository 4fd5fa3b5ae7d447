package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryhub/capturectl/internal/config"
)

func testArgon2Config() config.Argon2Config {
	return config.Argon2Config{MemoryCost: 19456, TimeCost: 2, Parallelism: 1}
}

func TestHashAndVerifyPassword(t *testing.T) {
	encoded, err := HashPassword("correct horse battery staple", testArgon2Config())
	require.NoError(t, err)

	ok, err := VerifyPassword("correct horse battery staple", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong password", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPassword_DifferentSaltsEachTime(t *testing.T) {
	a, err := HashPassword("same password", testArgon2Config())
	require.NoError(t, err)
	b, err := HashPassword("same password", testArgon2Config())
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyPassword_RejectsMalformedHash(t *testing.T) {
	_, err := VerifyPassword("anything", "not-a-valid-hash")
	assert.Error(t, err)
}
