package update

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sentryhub/capturectl/internal/apperrors"
)

// Strategy selects how a verified binary is activated.
type Strategy string

const (
	// StrategySidecar installs the new binary alongside the running one
	// and leaves activation to an external orchestrator (service
	// manager) after the health check passes.
	StrategySidecar Strategy = "sidecar"
	// StrategyInPlace replaces the running binary's install path
	// directly once the health check passes.
	StrategyInPlace Strategy = "in_place"
)

// Applier installs a downloaded, verified binary per Strategy.
type Applier struct {
	installDir string
	binaryName string
}

// NewApplier constructs an Applier rooted at installDir.
func NewApplier(installDir, binaryName string) *Applier {
	return &Applier{installDir: installDir, binaryName: binaryName}
}

// Apply installs candidatePath under strategy. Sidecar writes it next to
// the active binary under a versioned name and returns that path without
// touching the active binary; InPlace overwrites the active binary in
// place. Both assume the caller has already verified the candidate and
// will run the health gate before anything depends on the new binary.
func (a *Applier) Apply(strategy Strategy, candidatePath, version string) (installedPath string, err error) {
	const op = "Applier.Apply"

	switch strategy {
	case StrategySidecar:
		dest := filepath.Join(a.installDir, fmt.Sprintf("%s-%s", a.binaryName, version))
		if err := copyExecutable(candidatePath, dest); err != nil {
			return "", apperrors.Storage(op, "failed to install sidecar binary", err)
		}
		return dest, nil
	case StrategyInPlace:
		dest := filepath.Join(a.installDir, a.binaryName)
		if err := copyExecutable(candidatePath, dest); err != nil {
			return "", apperrors.Storage(op, "failed to install in-place binary", err)
		}
		return dest, nil
	default:
		return "", apperrors.Validation(op, fmt.Sprintf("unknown apply strategy %q", strategy))
	}
}

func copyExecutable(srcPath, destPath string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	return os.WriteFile(destPath, data, 0o755)
}
