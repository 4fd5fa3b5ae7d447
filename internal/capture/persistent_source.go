package capture

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/logging"
)

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// PersistentEncoderSource keeps a long-lived encoder process emitting an
// MJPEG stream to stdout; a reader goroutine scans SOI/EOI boundaries and
// publishes the most recent complete frame. Snapshot requests return the
// latest frame without respawning the process.
type PersistentEncoderSource struct {
	Input     string
	ExtraArgs []string
	Program   string // defaults to "ffmpeg"
	Logger    *logging.Logger
}

// Start spawns the persistent encoder and its MJPEG-parsing reader.
func (s *PersistentEncoderSource) Start(ctx context.Context) (Handle, error) {
	program := s.Program
	if program == "" {
		program = "ffmpeg"
	}
	args := []string{"-y", "-i", s.Input}
	args = append(args, s.ExtraArgs...)
	args = append(args, "-f", "mjpeg", "pipe:1")

	cmd := exec.Command(program, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, apperrors.External("capture.PersistentEncoderSource.Start", "failed to attach stdout pipe", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, apperrors.External("capture.PersistentEncoderSource.Start", "failed to start persistent encoder", err)
	}

	h := &persistentHandle{
		cmd:    cmd,
		logger: s.Logger,
	}
	h.lifecycle = newLifecycle(h.shutdown)
	go h.scan(stdout)
	return h, nil
}

// persistentHandle holds the most recently decoded frame, updated by
// scan() and read by Snapshot without blocking on the encoder.
type persistentHandle struct {
	*lifecycle
	cmd    *exec.Cmd
	logger *logging.Logger

	mu       sync.Mutex
	latest   []byte
	hasFrame bool
}

// scan reads the MJPEG byte stream, extracting each FF D8 ... FF D9 frame
// and storing it as the latest.
func (h *persistentHandle) scan(r io.Reader) {
	buf := make([]byte, 0, 256*1024)
	chunk := make([]byte, 32*1024)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			for {
				start := bytes.Index(buf, jpegSOI)
				if start < 0 {
					if len(buf) > 1 {
						buf = buf[len(buf)-1:]
					}
					break
				}
				end := bytes.Index(buf[start+2:], jpegEOI)
				if end < 0 {
					if start > 0 {
						buf = buf[start:]
					}
					break
				}
				frameEnd := start + 2 + end + 2
				frame := make([]byte, frameEnd-start)
				copy(frame, buf[start:frameEnd])
				h.publish(frame)
				buf = buf[frameEnd:]
			}
		}
		if err != nil {
			if err != io.EOF && h.logger != nil {
				h.logger.WithError(err).Debug("persistent encoder stdout reader stopped")
			}
			return
		}
	}
}

func (h *persistentHandle) publish(frame []byte) {
	h.mu.Lock()
	h.latest = frame
	h.hasFrame = true
	h.mu.Unlock()
}

// Snapshot returns the most recently decoded frame without respawning the
// encoder.
func (h *persistentHandle) Snapshot(ctx context.Context, opts SnapshotOptions) ([]byte, error) {
	if err := h.guard(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.hasFrame {
		return nil, apperrors.External("capture.persistentHandle.Snapshot", "no frame decoded yet from persistent encoder", nil)
	}
	out := make([]byte, len(h.latest))
	copy(out, h.latest)
	return out, nil
}

func (h *persistentHandle) Stop(ctx context.Context) error {
	return h.lifecycle.stop(ctx)
}

// shutdown terminates the encoder process, SIGTERM first then SIGKILL
// after a short grace period, matching the one-shot runner's escalation.
func (h *persistentHandle) shutdown(ctx context.Context) error {
	if h.cmd.Process == nil {
		return nil
	}
	_ = h.cmd.Process.Signal(syscall.SIGTERM)

	done := make(chan error, 1)
	go func() { done <- h.cmd.Wait() }()

	select {
	case <-done:
		return nil
	case <-time.After(3 * time.Second):
		if err := h.cmd.Process.Kill(); err != nil {
			return apperrors.External("capture.persistentHandle.shutdown", "failed to kill persistent encoder", err)
		}
		<-done
		return nil
	}
}
