package motion

import (
	"image"
	"image/draw"

	ximagedraw "golang.org/x/image/draw"
)

// toLuminance converts img to an 8-bit grayscale image.Gray, the "decode
// frame, convert to 8-bit luminance" step every algorithm shares.
func toLuminance(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}

// targetDims computes min(orig/downscale, max_dims), preserving aspect
// ratio by applying both constraints independently per spec §4.4 step 3.
func targetDims(origW, origH, downscale, maxWidth, maxHeight int) (int, int) {
	if downscale < 1 {
		downscale = 1
	}
	w, h := origW/downscale, origH/downscale
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if maxWidth > 0 && w > maxWidth {
		w = maxWidth
	}
	if maxHeight > 0 && h > maxHeight {
		h = maxHeight
	}
	return w, h
}

// resizeNearest resizes gray to (w, h) using nearest-neighbour sampling,
// grounded on golang.org/x/image/draw's NearestNeighbor scaler (the
// stdlib image/draw package has no resampling scaler of its own).
func resizeNearest(gray *image.Gray, w, h int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, w, h))
	ximagedraw.NearestNeighbor.Scale(dst, dst.Bounds(), gray, gray.Bounds(), ximagedraw.Over, nil)
	return dst
}

// preprocess runs the shared pipeline (decode/convert already done by the
// caller supplying an image.Image, grayscale, resize) and returns the
// resulting pixel buffer plus its dimensions.
func preprocess(img image.Image, cfg Config) (pix []byte, w, h int) {
	gray := toLuminance(img)
	bounds := gray.Bounds()
	w, h = targetDims(bounds.Dx(), bounds.Dy(), cfg.DownscaleFactor, cfg.MaxWidth, cfg.MaxHeight)
	resized := resizeNearest(gray, w, h)
	return resized.Pix, w, h
}
