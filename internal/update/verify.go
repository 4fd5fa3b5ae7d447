package update

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"

	"github.com/sentryhub/capturectl/internal/apperrors"
)

// SignatureVerifier checks a release asset's Ed25519 signature over the
// SHA-256 digest of its bytes.
type SignatureVerifier struct {
	publicKey ed25519.PublicKey
}

// NewSignatureVerifier decodes a 32-byte hex-encoded Ed25519 public key.
func NewSignatureVerifier(publicKeyHex string) (*SignatureVerifier, error) {
	const op = "NewSignatureVerifier"

	key, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return nil, apperrors.Validation(op, "public_key_hex is not valid hex")
	}
	if len(key) != ed25519.PublicKeySize {
		return nil, apperrors.Validation(op, "public key must be 32 bytes")
	}
	return &SignatureVerifier{publicKey: ed25519.PublicKey(key)}, nil
}

// Verify checks signatureHex (64 bytes hex) against the SHA-256 digest of
// data. A length mismatch or failed verification is a hard
// Validation("verification failed") error, never a panic.
func (v *SignatureVerifier) Verify(data []byte, signatureHex string) error {
	const op = "SignatureVerifier.Verify"

	signature, err := hex.DecodeString(signatureHex)
	if err != nil {
		return apperrors.Validation(op, "verification failed")
	}
	if len(signature) != ed25519.SignatureSize {
		return apperrors.Validation(op, "verification failed")
	}

	digest := sha256.Sum256(data)
	if !ed25519.Verify(v.publicKey, digest[:], signature) {
		return apperrors.Validation(op, "verification failed")
	}
	return nil
}
