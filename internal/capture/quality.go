package capture

import "fmt"

// qualityToScaleFactor converts a 1-100 JPEG-style quality to the external
// encoder's 2-31 qscale range: (31*(100-q))/100 + 2. Quality is clamped to
// [1,100] first so out-of-range callers degrade to the nearest valid scale
// rather than producing a negative or zero qscale.
func qualityToScaleFactor(quality int) int {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	return (31*(100-quality))/100 + 2
}

// scaleFilter renders the ffmpeg scale clause preserving aspect ratio,
// or "" when neither dimension is set (no scaling requested).
func scaleFilter(maxWidth, maxHeight int) string {
	if maxWidth <= 0 && maxHeight <= 0 {
		return ""
	}
	w, h := maxWidth, maxHeight
	if w <= 0 {
		w = -1
	}
	if h <= 0 {
		h = -1
	}
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", w, h)
}
