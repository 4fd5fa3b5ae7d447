package streaming

import (
	"context"
	"sync/atomic"

	"github.com/sentryhub/capturectl/internal/capture"
)

// fakeHandle is a capture.Handle test double that returns an incrementing
// counter as a fake frame body, or a fixed error after errorAfter calls.
type fakeHandle struct {
	calls      int32
	errorAfter int32
	err        error
	stopped    int32
}

func (f *fakeHandle) Snapshot(ctx context.Context, opts capture.SnapshotOptions) ([]byte, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if f.errorAfter > 0 && n > f.errorAfter {
		return nil, f.err
	}
	return []byte{byte(n)}, nil
}

func (f *fakeHandle) Stop(ctx context.Context) error {
	atomic.StoreInt32(&f.stopped, 1)
	return nil
}

func (f *fakeHandle) wasStopped() bool {
	return atomic.LoadInt32(&f.stopped) == 1
}
