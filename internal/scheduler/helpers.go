package scheduler

import (
	"bytes"
	"image"
	_ "image/jpeg"
	"math/bits"
)

// byteReader adapts a []byte frame to the io.Reader artifact storage
// expects, without an intermediate allocation beyond the bytes.Reader
// itself.
func byteReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}

// decodeJPEGOrNil decodes frame as a JPEG, returning nil on failure so
// callers can short-circuit rather than propagate a decode error through
// every handler that only uses the image for motion comparison.
func decodeJPEGOrNil(frame []byte) image.Image {
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil
	}
	return img
}

// perceptualHash computes a coarse 64-bit average-hash over frame's
// decoded pixels: downsample to 8x8 luminance, threshold against the
// mean, one bit per cell. It is intentionally simple (no DCT step) since
// SmartSnapshotHandler only needs a cheap near-duplicate signal, not a
// robust image fingerprint.
func perceptualHash(frame []byte) string {
	img := decodeJPEGOrNil(frame)
	if img == nil {
		return ""
	}
	const side = 8
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return ""
	}

	var samples [side * side]float64
	var sum float64
	for cy := 0; cy < side; cy++ {
		for cx := 0; cx < side; cx++ {
			px := bounds.Min.X + cx*w/side
			py := bounds.Min.Y + cy*h/side
			r, g, b, _ := img.At(px, py).RGBA()
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			samples[cy*side+cx] = lum
			sum += lum
		}
	}
	mean := sum / float64(side*side)

	var hash uint64
	for i, v := range samples {
		if v >= mean {
			hash |= 1 << uint(i)
		}
	}
	return formatHex(hash)
}

func formatHex(v uint64) string {
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = hexDigits[v&0xF]
		v >>= 4
	}
	return string(buf)
}

// hammingDistance counts differing bits between two hex-encoded 64-bit
// perceptual hashes. A malformed or empty hash compares as maximally
// different (always triggers a fresh store).
func hammingDistance(a, b string) int {
	av, aok := parseHex(a)
	bv, bok := parseHex(b)
	if !aok || !bok {
		return 64
	}
	return bits.OnesCount64(av ^ bv)
}

func parseHex(s string) (uint64, bool) {
	if len(s) != 16 {
		return 0, false
	}
	var v uint64
	for i := 0; i < len(s); i++ {
		c := s[i]
		var d uint64
		switch {
		case c >= '0' && c <= '9':
			d = uint64(c - '0')
		case c >= 'a' && c <= 'f':
			d = uint64(c-'a') + 10
		default:
			return 0, false
		}
		v = v<<4 | d
	}
	return v, true
}
