package update

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplier_ApplySidecarInstallsVersionedBinary(t *testing.T) {
	installDir := t.TempDir()
	srcPath := filepath.Join(t.TempDir(), "candidate")
	require.NoError(t, os.WriteFile(srcPath, []byte("new binary"), 0o755))

	applier := NewApplier(installDir, "capturectl")
	installedPath, err := applier.Apply(StrategySidecar, srcPath, "v1.3.0")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(installDir, "capturectl-v1.3.0"), installedPath)

	data, err := os.ReadFile(installedPath)
	require.NoError(t, err)
	assert.Equal(t, "new binary", string(data))
}

func TestApplier_ApplyInPlaceOverwritesActiveBinary(t *testing.T) {
	installDir := t.TempDir()
	srcPath := filepath.Join(t.TempDir(), "candidate")
	require.NoError(t, os.WriteFile(srcPath, []byte("new binary"), 0o755))

	applier := NewApplier(installDir, "capturectl")
	installedPath, err := applier.Apply(StrategyInPlace, srcPath, "v1.3.0")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(installDir, "capturectl"), installedPath)
}

func TestApplier_ApplyRejectsUnknownStrategy(t *testing.T) {
	applier := NewApplier(t.TempDir(), "capturectl")
	_, err := applier.Apply("bogus", "/tmp/missing", "v1.0.0")
	assert.Error(t, err)
}
