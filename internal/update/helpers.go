package update

import (
	"os"
	"strings"
	"time"

	"github.com/sentryhub/capturectl/internal/apperrors"
)

const (
	defaultHTTPTimeout   = 30 * time.Second
	defaultHealthRetries = 5
	defaultHealthDelay   = 2 * time.Second
)

type signedPair struct {
	binary       []byte
	signatureHex string
}

// readSignedPair loads the downloaded binary and its detached signature
// file (hex-encoded, whitespace-trimmed) from disk.
func readSignedPair(binaryPath, sigPath string) (signedPair, error) {
	const op = "update.readSignedPair"

	binary, err := os.ReadFile(binaryPath)
	if err != nil {
		return signedPair{}, apperrors.Storage(op, "failed to read downloaded binary", err)
	}
	sigBytes, err := os.ReadFile(sigPath)
	if err != nil {
		return signedPair{}, apperrors.Storage(op, "failed to read signature file", err)
	}
	return signedPair{binary: binary, signatureHex: strings.TrimSpace(string(sigBytes))}, nil
}
