package motion

import (
	"sync"
	"time"

	"github.com/sentryhub/capturectl/internal/apperrors"
)

// PixelDiffDetector is the deterministic, always-available algorithm: a
// per-pixel luminance delta against the previous frame, thresholded and
// counted. Pure stdlib/golang.org/x/image — no vision library is needed
// for a simple per-pixel comparison.
type PixelDiffDetector struct {
	cfg Config

	mu       sync.Mutex
	previous []byte
	prevW    int
	prevH    int
}

// NewPixelDiffDetector builds a PixelDiffDetector from cfg.
func NewPixelDiffDetector(cfg Config) *PixelDiffDetector {
	return &PixelDiffDetector{cfg: cfg}
}

// Detect compares frame (pre-resized 8-bit grayscale pixels, width*height
// bytes) against the previous call's frame. The first call after
// construction or Reset always yields "no motion", per spec §4.4.
func (d *PixelDiffDetector) Detect(frame []byte, width, height int) (Result, error) {
	start := time.Now()
	if len(frame) != width*height {
		return Result{}, apperrors.Validation("motion.PixelDiffDetector.Detect", "frame length does not match width*height")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	total := width * height
	threshold := d.cfg.Threshold * 255.0

	if d.previous == nil || d.prevW != width || d.prevH != height {
		d.previous = append([]byte(nil), frame...)
		d.prevW, d.prevH = width, height
		return Result{
			TotalPixels:      total,
			ProcessingTimeMs: elapsedMs(start),
			AlgorithmUsed:    AlgorithmPixelDiff,
		}, nil
	}

	changed := 0
	for i, cur := range frame {
		delta := int(cur) - int(d.previous[i])
		if delta < 0 {
			delta = -delta
		}
		if float64(delta) > threshold {
			changed++
		}
	}
	d.previous = append(d.previous[:0], frame...)

	changeRatio := float64(changed) / float64(total)
	minArea := d.cfg.MinChangeArea
	motionDetected := changed >= minArea

	var confidence float64
	if motionDetected {
		areaRatio := clampConfidence(float64(changed)/float64(maxInt(minArea, 1)), 0, 1)
		thresholdRatio := clampConfidence(1-d.cfg.Threshold, 0, 1)
		confidence = clampConfidence(0.7*areaRatio+0.3*thresholdRatio, 0.7, 0.99)
	} else {
		confidence = clampConfidence(changeRatio, 0, 0.6)
	}

	return Result{
		MotionDetected:   motionDetected,
		Confidence:       confidence,
		ChangeRatio:      changeRatio,
		ChangedPixels:    changed,
		TotalPixels:      total,
		ProcessingTimeMs: elapsedMs(start),
		AlgorithmUsed:    AlgorithmPixelDiff,
	}, nil
}

// Reset drops the previous frame, so the next Detect call yields "no
// motion" regardless of prior state.
func (d *PixelDiffDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.previous = nil
	d.prevW, d.prevH = 0, 0
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
