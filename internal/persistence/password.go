package persistence

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/config"
)

const (
	argon2SaltLen = 16
	argon2KeyLen  = 32
)

// HashPassword encodes password as an Argon2id hash using cfg's cost
// parameters, in the "$argon2id$v=19$m=...,t=...,p=...$salt$hash" PHC
// format, promoting golang.org/x/crypto/argon2 from the teacher's
// indirect (via spf13/viper's transitive chain) to a direct dependency.
func HashPassword(password string, cfg config.Argon2Config) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", apperrors.External("HashPassword", "failed to read random salt", err)
	}

	hash := argon2.IDKey([]byte(password), salt, cfg.TimeCost, cfg.MemoryCost, cfg.Parallelism, argon2KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, cfg.MemoryCost, cfg.TimeCost, cfg.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword reports whether password matches encoded, an Argon2id
// hash produced by HashPassword. Comparison is constant-time.
func VerifyPassword(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, apperrors.Validation("VerifyPassword", "malformed password hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, apperrors.Validation("VerifyPassword", "malformed version field")
	}

	var memoryCost, timeCost uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memoryCost, &timeCost, &parallelism); err != nil {
		return false, apperrors.Validation("VerifyPassword", "malformed params field")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, apperrors.Validation("VerifyPassword", "malformed salt")
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, apperrors.Validation("VerifyPassword", "malformed hash")
	}

	got := argon2.IDKey([]byte(password), salt, timeCost, memoryCost, parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
