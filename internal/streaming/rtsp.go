package streaming

import "context"

// RTSPRepublisher republishes a session's frames to an RTSP media server.
// The concrete H.264 packaging and RTSP server process are out of scope;
// this interface exists so a real implementation can be wired in later
// without touching StreamSession.
type RTSPRepublisher interface {
	// Republish starts republishing session's frames under streamPath and
	// blocks until ctx is cancelled or republishing fails terminally.
	Republish(ctx context.Context, streamPath string, session *StreamSession) error
}

// NoopRepublisher is the default RTSPRepublisher: it accepts any session
// but performs no republishing, simply blocking until ctx is done.
type NoopRepublisher struct{}

// Republish implements RTSPRepublisher by waiting for ctx to be cancelled.
func (NoopRepublisher) Republish(ctx context.Context, streamPath string, session *StreamSession) error {
	<-ctx.Done()
	return ctx.Err()
}
