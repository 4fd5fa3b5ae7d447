package capture

import (
	"context"
	"strconv"
	"time"

	"github.com/sentryhub/capturectl/internal/apperrors"
)

// EncoderSource spawns the external encoder fresh for every snapshot
// against a live input (a device path, RTSP URL, or any URI the encoder
// understands natively), as opposed to PersistentEncoderSource which
// keeps one process running across snapshots.
type EncoderSource struct {
	Input     string
	ExtraArgs []string
	Program   string // defaults to "ffmpeg"
	Limiter   *SnapshotLimiter
	Runner    *ProcessRunner
}

// Start returns a Handle that spawns the encoder per Snapshot call.
func (s *EncoderSource) Start(ctx context.Context) (Handle, error) {
	program := s.Program
	if program == "" {
		program = "ffmpeg"
	}
	return &oneShotHandle{
		lifecycle: newLifecycle(nil),
		runner:    s.Runner,
		limiter:   s.Limiter,
		program:   program,
		buildArgs: func(opts SnapshotOptions, outFormat string) []string {
			args := []string{"-y", "-i", s.Input}
			args = append(args, s.ExtraArgs...)
			args = append(args, "-frames:v", "1")
			if scale := scaleFilter(opts.MaxWidth, opts.MaxHeight); scale != "" {
				args = append(args, "-vf", scale)
			}
			args = append(args, "-qscale:v", strconv.Itoa(qualityToScaleFactor(opts.Quality)), "-f", outFormat, "pipe:1")
			return args
		},
	}, nil
}

// oneShotHandle runs the encoder fresh for every Snapshot call, grounded
// on ffmpegManager.TakeSnapshot/buildSnapshotCommand: build args, run
// through the ProcessRunner under the shared SnapshotLimiter, return
// stdout as the frame bytes.
type oneShotHandle struct {
	*lifecycle
	runner    *ProcessRunner
	limiter   *SnapshotLimiter
	program   string
	buildArgs func(opts SnapshotOptions, outFormat string) []string
}

func (h *oneShotHandle) Snapshot(ctx context.Context, opts SnapshotOptions) ([]byte, error) {
	if err := h.guard(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	release, err := h.limiter.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	outFormat := imageFormatFor(opts.Format)
	spec := CommandSpec{
		Program:        h.program,
		Args:           h.buildArgs(opts, outFormat),
		Timeout:        opts.Timeout,
		KillAfterGrace: 2 * time.Second,
	}
	result, err := h.runner.Run(ctx, spec)
	if err != nil {
		return nil, apperrors.External("capture.oneShotHandle.Snapshot", "encoder invocation failed", err)
	}
	if len(result.Stdout) == 0 {
		return nil, apperrors.External("capture.oneShotHandle.Snapshot", "encoder produced no output", nil)
	}
	return result.Stdout, nil
}

func (h *oneShotHandle) Stop(ctx context.Context) error {
	return h.lifecycle.stop(ctx)
}

// imageFormatFor maps a SnapshotOptions.Format to the encoder's -f muxer
// name.
func imageFormatFor(format string) string {
	switch format {
	case "png":
		return "image2"
	default:
		return "mjpeg"
	}
}
