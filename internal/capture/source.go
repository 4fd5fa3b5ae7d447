package capture

import (
	"context"
	"sync"
	"time"

	"github.com/sentryhub/capturectl/internal/apperrors"
)

// SnapshotOptions configures a single frame capture.
type SnapshotOptions struct {
	Format    string // "jpeg" unless overridden
	Quality   int    // 1-100
	MaxWidth  int    // 0 = no limit
	MaxHeight int    // 0 = no limit
	Timeout   time.Duration
}

func (o SnapshotOptions) withDefaults() SnapshotOptions {
	if o.Format == "" {
		o.Format = "jpeg"
	}
	if o.Quality <= 0 {
		o.Quality = 80
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	return o
}

// Handle is a started capture source: it can produce frames on demand and
// be stopped, and enforces the {Running, Stopped} state machine so a
// snapshot against a stopped handle fails fast instead of touching a dead
// process.
type Handle interface {
	Snapshot(ctx context.Context, opts SnapshotOptions) ([]byte, error)
	Stop(ctx context.Context) error
}

// Source is the capture-source abstraction every variant implements:
// FileSource, EncoderSource, PersistentEncoderSource, WebPageSource,
// ExtractorSource, and HardwareAccelProbe-augmented variants all start
// into a Handle.
type Source interface {
	Start(ctx context.Context) (Handle, error)
}

// status is the Capture handle's lifecycle state.
type status int

const (
	statusRunning status = iota
	statusStopped
)

// lifecycle is embedded by every Handle implementation to provide the
// shared Running/Stopped mutex-guarded state machine: snapshot() rejects
// once Stopped, and stop() is idempotent.
type lifecycle struct {
	mu     sync.Mutex
	state  status
	onStop func(ctx context.Context) error
}

func newLifecycle(onStop func(ctx context.Context) error) *lifecycle {
	return &lifecycle{state: statusRunning, onStop: onStop}
}

// guard returns an error if the handle is already stopped, otherwise nil.
func (l *lifecycle) guard() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == statusStopped {
		return apperrors.Validation("capture.Handle", "capture handle is stopped")
	}
	return nil
}

// stop transitions to Stopped and runs onStop exactly once.
func (l *lifecycle) stop(ctx context.Context) error {
	l.mu.Lock()
	if l.state == statusStopped {
		l.mu.Unlock()
		return nil
	}
	l.state = statusStopped
	l.mu.Unlock()

	if l.onStop == nil {
		return nil
	}
	return l.onStop(ctx)
}
