package update

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryhub/capturectl/internal/apperrors"
)

func TestSignatureVerifier_AcceptsValidSignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	data := []byte("release binary contents")
	digest := sha256.Sum256(data)
	signature := ed25519.Sign(priv, digest[:])

	verifier, err := NewSignatureVerifier(hex.EncodeToString(pub))
	require.NoError(t, err)

	assert.NoError(t, verifier.Verify(data, hex.EncodeToString(signature)))
}

func TestSignatureVerifier_RejectsSignatureOverDifferentData(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	original := []byte("release binary contents")
	tampered := []byte("tampered binary contents")
	digest := sha256.Sum256(original)
	signature := ed25519.Sign(priv, digest[:])

	verifier, err := NewSignatureVerifier(hex.EncodeToString(pub))
	require.NoError(t, err)

	err = verifier.Verify(tampered, hex.EncodeToString(signature))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestSignatureVerifier_RejectsMalformedSignatureLength(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	verifier, err := NewSignatureVerifier(hex.EncodeToString(pub))
	require.NoError(t, err)

	err = verifier.Verify([]byte("data"), "deadbeef")
	assert.Error(t, err)
}

func TestNewSignatureVerifier_RejectsWrongKeyLength(t *testing.T) {
	_, err := NewSignatureVerifier("deadbeef")
	assert.Error(t, err)
}
