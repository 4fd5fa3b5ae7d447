package capture

import (
	"time"

	"github.com/sentryhub/capturectl/internal/config"
	"github.com/sentryhub/capturectl/internal/logging"
)

// Engine bundles the ProcessRunner and SnapshotLimiter every Source
// variant is constructed against, sized from config.CaptureConfig.
type Engine struct {
	Runner  *ProcessRunner
	Limiter *SnapshotLimiter

	TerminationGrace time.Duration
	KillGrace        time.Duration
}

// NewEngine builds an Engine from cfg.
func NewEngine(cfg config.CaptureConfig, logger *logging.Logger) *Engine {
	return &Engine{
		Runner:           NewProcessRunner(logger),
		Limiter:          NewSnapshotLimiter(cfg.SnapshotPermits),
		TerminationGrace: secondsToDuration(cfg.ProcessTerminationTimeoutSec),
		KillGrace:        secondsToDuration(cfg.ProcessKillTimeoutSec),
	}
}

func secondsToDuration(seconds float64) time.Duration {
	if seconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(seconds * float64(time.Second))
}
