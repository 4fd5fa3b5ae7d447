package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sentryhub/capturectl/internal/config"
	"github.com/sentryhub/capturectl/internal/logging"
)

func TestNewEngine_DefaultsWhenUnset(t *testing.T) {
	e := NewEngine(config.CaptureConfig{}, logging.GetLogger("capture-test"))
	assert.Equal(t, 2*time.Second, e.TerminationGrace)
	assert.Equal(t, 2*time.Second, e.KillGrace)
	assert.Equal(t, int64(10), e.Limiter.Snapshot().Max)
}

func TestNewEngine_UsesConfiguredValues(t *testing.T) {
	e := NewEngine(config.CaptureConfig{
		SnapshotPermits:              4,
		ProcessTerminationTimeoutSec: 1.5,
		ProcessKillTimeoutSec:        0.5,
	}, logging.GetLogger("capture-test"))
	assert.Equal(t, int64(4), e.Limiter.Snapshot().Max)
	assert.Equal(t, 1500*time.Millisecond, e.TerminationGrace)
	assert.Equal(t, 500*time.Millisecond, e.KillGrace)
}
