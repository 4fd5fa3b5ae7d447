package capture

import (
	"context"
	"os"
	"strconv"

	"github.com/sentryhub/capturectl/internal/apperrors"
)

// FileSource extracts a single frame from a video file via the external
// encoder. Starting it only validates the path exists; the encoder runs
// per Snapshot call, so FileSource and EncoderSource share oneShotHandle.
type FileSource struct {
	Path    string
	Program string // defaults to "ffmpeg"
	Limiter *SnapshotLimiter
	Runner  *ProcessRunner
}

// Start validates the source file is present and returns a Handle that
// extracts a frame on each Snapshot call.
func (s *FileSource) Start(ctx context.Context) (Handle, error) {
	if _, err := os.Stat(s.Path); err != nil {
		return nil, apperrors.Validation("capture.FileSource.Start", "source file is not accessible: "+err.Error())
	}
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
			return buildFrameExtractArgs(s.Path, opts, outFormat)
		},
	}, nil
}

// buildFrameExtractArgs renders the ffmpeg argument list for extracting a
// single frame from input, applying the quality->qscale conversion and
// the aspect-ratio-preserving scale clause.
func buildFrameExtractArgs(input string, opts SnapshotOptions, outFormat string) []string {
	args := []string{"-y", "-i", input, "-frames:v", "1"}
	if scale := scaleFilter(opts.MaxWidth, opts.MaxHeight); scale != "" {
		args = append(args, "-vf", scale)
	}
	args = append(args, "-qscale:v", strconv.Itoa(qualityToScaleFactor(opts.Quality)), "-f", outFormat, "pipe:1")
	return args
}
