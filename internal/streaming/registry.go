package streaming

import (
	"context"
	"sync"
	"time"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/capture"
	"github.com/sentryhub/capturectl/internal/logging"
)

// Registry indexes live StreamSessions by source ID. A given source has at
// most one active session regardless of how many MJPEG viewers attach to
// it; GetOrStart creates the session on first access and reuses it for
// subsequent subscribers.
type Registry struct {
	sessions sync.Map // sourceID string -> *StreamSession

	pollInterval time.Duration
	subBuffer    int
	logger       *logging.Logger
}

// NewRegistry constructs a Registry. pollInterval and subBuffer are applied
// to every session it starts.
func NewRegistry(pollInterval time.Duration, subBuffer int, logger *logging.Logger) *Registry {
	return &Registry{
		pollInterval: pollInterval,
		subBuffer:    subBuffer,
		logger:       logger,
	}
}

// GetOrStart returns the existing session for sourceID, or starts a fresh
// one around newHandle's result if none is live. newHandle is only invoked
// when a new session must be created.
func (r *Registry) GetOrStart(ctx context.Context, sourceID string, newHandle func(context.Context) (capture.Handle, error), opts capture.SnapshotOptions) (*StreamSession, error) {
	if existing, ok := r.sessions.Load(sourceID); ok {
		return existing.(*StreamSession), nil
	}

	handle, err := newHandle(ctx)
	if err != nil {
		return nil, err
	}

	session := NewStreamSession(sourceID, handle, r.subBuffer, r.logger)
	actual, loaded := r.sessions.LoadOrStore(sourceID, session)
	if loaded {
		// Lost the race to a concurrent caller; discard our handle.
		_ = handle.Stop(ctx)
		return actual.(*StreamSession), nil
	}

	session.Start(r.pollInterval, opts)
	r.watch(sourceID, session)
	return session, nil
}

// watch removes sourceID from the registry once its session's producer
// exits, so a future GetOrStart starts a fresh session instead of reusing
// a dead one.
func (r *Registry) watch(sourceID string, session *StreamSession) {
	go func() {
		_ = session.Wait()
		r.sessions.Delete(sourceID)
	}()
}

// Lookup returns the live session for sourceID, if any.
func (r *Registry) Lookup(sourceID string) (*StreamSession, bool) {
	v, ok := r.sessions.Load(sourceID)
	if !ok {
		return nil, false
	}
	return v.(*StreamSession), true
}

// Stop tears down the session for sourceID, if one is live.
func (r *Registry) Stop(sourceID string) error {
	v, ok := r.sessions.Load(sourceID)
	if !ok {
		return apperrors.NotFound("streaming.Registry.Stop", "no active session for source")
	}
	v.(*StreamSession).Close()
	r.sessions.Delete(sourceID)
	return nil
}

// CloseAll tears down every live session, e.g. on server shutdown.
func (r *Registry) CloseAll() {
	r.sessions.Range(func(key, value any) bool {
		value.(*StreamSession).Close()
		r.sessions.Delete(key)
		return true
	})
}
