//go:build !mog2

package motion

import "github.com/sentryhub/capturectl/internal/apperrors"

// NewMOG2Detector is the default (unaccelerated) build: MOG2 requires
// gocv.io/x/gocv, which isn't linked in unless built with the "mog2" tag,
// so construction fails with KindExternal, matching spec's "falls back to
// software when probing fails" posture for optional acceleration.
func NewMOG2Detector(cfg Config) (Detector, error) {
	return nil, apperrors.External("motion.NewMOG2Detector", "mog2 support not compiled in (build with -tags mog2)")
}
