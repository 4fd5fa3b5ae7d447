package capture

import (
	"context"

	"github.com/sentryhub/capturectl/internal/apperrors"
)

// Downloader runs an external hosted-video extractor (e.g. a yt-dlp-style
// tool) to resolve SourceURL into a direct media URL or a materialized
// local file path.
type Downloader struct {
	Program string // defaults to "yt-dlp"
	Runner  *ProcessRunner
}

// Resolve invokes the downloader and returns the direct media URL it
// printed to stdout.
func (d *Downloader) Resolve(ctx context.Context, sourceURL string) (string, error) {
	program := d.Program
	if program == "" {
		program = "yt-dlp"
	}
	result, err := d.Runner.Run(ctx, CommandSpec{
		Program: program,
		Args:    []string{"-g", sourceURL},
	})
	if err != nil {
		return "", apperrors.External("capture.Downloader.Resolve", "hosted-video extractor failed", err)
	}
	direct := firstLine(result.Stdout)
	if direct == "" {
		return "", apperrors.External("capture.Downloader.Resolve", "hosted-video extractor produced no URL", nil)
	}
	return direct, nil
}

func firstLine(b []byte) string {
	for i, c := range b {
		if c == '\n' {
			return string(b[:i])
		}
	}
	return string(b)
}

// ExtractorSource resolves a hosted-video URL to a direct media URL via
// Downloader, then delegates frame extraction to an EncoderSource against
// the resolved URL. The resolution happens once at Start, matching the
// spec's "runs an external downloader, then extracts a frame" shape.
type ExtractorSource struct {
	SourceURL  string
	Downloader *Downloader
	Program    string // defaults to "ffmpeg"
	Limiter    *SnapshotLimiter
	Runner     *ProcessRunner
}

// Start resolves the direct media URL and returns an EncoderSource's
// Handle against it.
func (s *ExtractorSource) Start(ctx context.Context) (Handle, error) {
	direct, err := s.Downloader.Resolve(ctx, s.SourceURL)
	if err != nil {
		return nil, err
	}
	encoder := &EncoderSource{
		Input:   direct,
		Program: s.Program,
		Limiter: s.Limiter,
		Runner:  s.Runner,
	}
	return encoder.Start(ctx)
}
