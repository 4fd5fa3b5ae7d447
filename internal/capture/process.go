// Package capture implements the capture-source abstraction layer: a
// Source polymorphic over {start, snapshot, stop}, the external-process
// supervision contract (CommandSpec/ProcessRunner) those sources spawn
// through, and the SnapshotLimiter bounding concurrent blocking I/O.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/logging"
)

const defaultCaptureLimit = 1 << 20 // 1 MiB

// CommandSpec describes an external process to run and supervise.
type CommandSpec struct {
	Program        string
	Args           []string
	Env            []string
	Dir            string
	Timeout        time.Duration
	KillAfterGrace time.Duration
	StdoutLimit    int64
	StderrLimit    int64
}

// Result holds the captured output of a completed or terminated process.
type Result struct {
	Stdout          []byte
	Stderr          []byte
	StdoutTruncated bool
	StderrTruncated bool
	ExitCode        int
	TimedOut        bool
	Duration        time.Duration
}

var (
	processDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "capture_process_duration_seconds",
		Help:    "Duration of external capture processes, tagged by program.",
		Buckets: prometheus.DefBuckets,
	}, []string{"program"})

	processOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "capture_process_outcomes_total",
		Help: "Outcomes of external capture processes, tagged by program and outcome.",
	}, []string{"program", "outcome"})
)

func init() {
	prometheus.MustRegister(processDuration, processOutcomes)
}

// ProcessRunner spawns and supervises CommandSpec-described processes,
// adapted from ffmpegManager's executeWithRetry / cleanupFFmpegProcess:
// SIGTERM, wait out a grace period, then SIGKILL, with bounded,
// truncation-flagged stdout/stderr capture and stderr piped to debug logs
// as it arrives.
type ProcessRunner struct {
	logger *logging.Logger
}

// NewProcessRunner constructs a ProcessRunner.
func NewProcessRunner(logger *logging.Logger) *ProcessRunner {
	return &ProcessRunner{logger: logger}
}

// Run spawns spec, waits for completion or timeout (escalating to
// SIGTERM then SIGKILL on timeout), and returns the captured output.
func (r *ProcessRunner) Run(ctx context.Context, spec CommandSpec) (Result, error) {
	stdoutLimit := spec.StdoutLimit
	if stdoutLimit <= 0 {
		stdoutLimit = defaultCaptureLimit
	}
	stderrLimit := spec.StderrLimit
	if stderrLimit <= 0 {
		stderrLimit = defaultCaptureLimit
	}

	cmd := exec.Command(spec.Program, spec.Args...)
	if len(spec.Env) > 0 {
		cmd.Env = spec.Env
	}
	cmd.Dir = spec.Dir

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, apperrors.External("capture.ProcessRunner.Run", "failed to attach stdout pipe", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, apperrors.External("capture.ProcessRunner.Run", "failed to attach stderr pipe", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		processOutcomes.WithLabelValues(spec.Program, "start_error").Inc()
		return Result{}, apperrors.External("capture.ProcessRunner.Run", "failed to start process", err)
	}

	var stdoutBuf, stderrBuf boundedBuffer
	stdoutBuf.limit = stdoutLimit
	stderrBuf.limit = stderrLimit

	var readers sync.WaitGroup
	readers.Add(2)
	go func() { defer readers.Done(); stdoutBuf.readFrom(stdoutPipe) }()
	go func() {
		defer readers.Done()
		r.streamStderrDebug(spec.Program, stderrPipe, &stderrBuf)
	}()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var timeoutCh <-chan time.Time
	if spec.Timeout > 0 {
		timer := time.NewTimer(spec.Timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	result := Result{}
	select {
	case err := <-done:
		readers.Wait()
		result.Duration = time.Since(start)
		result.Stdout, result.StdoutTruncated = stdoutBuf.bytes, stdoutBuf.truncated
		result.Stderr, result.StderrTruncated = stderrBuf.bytes, stderrBuf.truncated
		result.ExitCode = exitCode(cmd, err)
		r.recordOutcome(spec.Program, result.Duration, err)
		if err != nil {
			return result, apperrors.External("capture.ProcessRunner.Run", fmt.Sprintf("process exited with code %d", result.ExitCode), err)
		}
		return result, nil

	case <-timeoutCh:
		result.TimedOut = true
		r.terminate(cmd, done, spec.KillAfterGrace)
		readers.Wait()
		result.Duration = time.Since(start)
		result.Stdout, result.StdoutTruncated = stdoutBuf.bytes, stdoutBuf.truncated
		result.Stderr, result.StderrTruncated = stderrBuf.bytes, stderrBuf.truncated
		processOutcomes.WithLabelValues(spec.Program, "timeout").Inc()
		processDuration.WithLabelValues(spec.Program).Observe(result.Duration.Seconds())
		return result, apperrors.External("capture.ProcessRunner.Run", fmt.Sprintf("process timed out after %v", spec.Timeout), nil)

	case <-ctx.Done():
		r.terminate(cmd, done, spec.KillAfterGrace)
		readers.Wait()
		return result, ctx.Err()
	}
}

// terminate sends SIGTERM, waits grace for done (the process's Wait
// goroutine) to fire, then SIGKILL if it hasn't. done is drained by the
// caller afterward either way, so this never blocks past grace.
func (r *ProcessRunner) terminate(cmd *exec.Cmd, done <-chan error, grace time.Duration) {
	if cmd.Process == nil {
		return
	}
	if grace <= 0 {
		grace = 2 * time.Second
	}
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		r.logger.WithError(err).Warn("failed to send SIGTERM to capture process")
		return
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		if err := cmd.Process.Kill(); err != nil {
			r.logger.WithError(err).Error("failed to SIGKILL capture process after grace period")
		}
	}
}

func (r *ProcessRunner) streamStderrDebug(program string, rc io.Reader, buf *boundedBuffer) {
	tee := io.TeeReader(rc, buf)
	scan := bufioScanLines(tee, func(line string) {
		r.logger.WithField("program", program).Debug(line)
	})
	_ = scan
}

func (r *ProcessRunner) recordOutcome(program string, dur time.Duration, err error) {
	processDuration.WithLabelValues(program).Observe(dur.Seconds())
	if err == nil {
		processOutcomes.WithLabelValues(program, "success").Inc()
		return
	}
	processOutcomes.WithLabelValues(program, "failure").Inc()
}

func exitCode(cmd *exec.Cmd, err error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}

// boundedBuffer accumulates up to limit bytes, setting truncated once the
// source exceeds it; it keeps draining the reader so the pipe never blocks.
type boundedBuffer struct {
	mu        sync.Mutex
	limit     int64
	bytes     []byte
	truncated bool
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if int64(len(b.bytes)) < b.limit {
		room := b.limit - int64(len(b.bytes))
		if int64(len(p)) > room {
			b.bytes = append(b.bytes, p[:room]...)
			b.truncated = true
		} else {
			b.bytes = append(b.bytes, p...)
		}
	} else if len(p) > 0 {
		b.truncated = true
	}
	return len(p), nil
}

func (b *boundedBuffer) readFrom(r io.Reader) {
	_, _ = io.Copy(b, r)
}

// bufioScanLines scans tee line-by-line calling onLine for each, draining
// to EOF regardless of onLine errors (there are none: onLine never fails).
func bufioScanLines(r io.Reader, onLine func(string)) error {
	buf := make([]byte, 0, 4096)
	scratch := make([]byte, 4096)
	for {
		n, err := r.Read(scratch)
		if n > 0 {
			buf = append(buf, scratch[:n]...)
			for {
				idx := bytes.IndexByte(buf, '\n')
				if idx < 0 {
					break
				}
				onLine(string(bytes.TrimRight(buf[:idx], "\r")))
				buf = buf[idx+1:]
			}
		}
		if err != nil {
			if len(buf) > 0 {
				onLine(string(buf))
			}
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}
