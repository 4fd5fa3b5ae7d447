package capture

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"time"
)

// BrowserDriver adapts to a headless-browser automation backend. No
// production implementation ships in this package; wiring one in is a
// deployment concern (e.g. a chromedp-backed driver), and WebPageSource
// falls back to a synthetic frame when none is configured.
type BrowserDriver interface {
	Capture(ctx context.Context, opts WebPageOptions) ([]byte, error)
}

// WebPageOptions configures a web page capture.
type WebPageOptions struct {
	URL       string
	Selector  string
	BasicAuth string // "user:pass", empty if unauthenticated
	ViewportW int
	ViewportH int
	Timeout   time.Duration
}

// WebPageSource drives a headless browser via an external driver to
// capture a web page (or a sub-image of it via Selector). When Driver is
// nil it returns a synthetic 1x1 PNG, matching the teacher's test-mode
// fallback pattern for sources with no hardware/external dependency
// wired.
type WebPageSource struct {
	Options WebPageOptions
	Driver  BrowserDriver
}

// Start returns a Handle that calls through to Driver on each Snapshot.
func (s *WebPageSource) Start(ctx context.Context) (Handle, error) {
	return &webPageHandle{
		lifecycle: newLifecycle(nil),
		options:   s.Options,
		driver:    s.Driver,
	}, nil
}

type webPageHandle struct {
	*lifecycle
	options WebPageOptions
	driver  BrowserDriver
}

func (h *webPageHandle) Snapshot(ctx context.Context, opts SnapshotOptions) ([]byte, error) {
	if err := h.guard(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	if h.driver == nil {
		return syntheticPNG(), nil
	}

	wctx := ctx
	var cancel context.CancelFunc
	if opts.Timeout > 0 {
		wctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	return h.driver.Capture(wctx, h.options)
}

func (h *webPageHandle) Stop(ctx context.Context) error {
	return h.lifecycle.stop(ctx)
}

// syntheticPNG renders a 1x1 opaque black PNG, used when no BrowserDriver
// is wired (tests, or a deployment that has not configured one yet).
func syntheticPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.Black)
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
