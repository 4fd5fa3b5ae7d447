package motion

import (
	"image"

	"github.com/sentryhub/capturectl/internal/apperrors"
)

// NewDetector builds the Detector named by cfg.Algorithm.
func NewDetector(cfg Config) (Detector, error) {
	switch cfg.Algorithm {
	case AlgorithmMOG2:
		return NewMOG2Detector(cfg)
	case AlgorithmPixelDiff, "":
		return NewPixelDiffDetector(cfg), nil
	default:
		return nil, apperrors.Validation("motion.NewDetector", "unknown algorithm: "+string(cfg.Algorithm))
	}
}

// DetectImage runs the shared preprocessing pipeline (grayscale, resize)
// against img, then Detect on det, per spec §4.4 steps 1-3.
func DetectImage(det Detector, img image.Image, cfg Config) (Result, error) {
	pix, w, h := preprocess(img, cfg)
	return det.Detect(pix, w, h)
}
