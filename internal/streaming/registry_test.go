package streaming

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryhub/capturectl/internal/capture"
)

func TestRegistry_GetOrStartReusesSession(t *testing.T) {
	calls := 0
	reg := NewRegistry(5*time.Millisecond, 2, testLogger())

	newHandle := func(ctx context.Context) (capture.Handle, error) {
		calls++
		return &fakeHandle{}, nil
	}

	s1, err := reg.GetOrStart(context.Background(), "cam-1", newHandle, capture.SnapshotOptions{})
	require.NoError(t, err)
	s2, err := reg.GetOrStart(context.Background(), "cam-1", newHandle, capture.SnapshotOptions{})
	require.NoError(t, err)

	assert.Same(t, s1, s2)
	assert.Equal(t, 1, calls)

	reg.CloseAll()
}

func TestRegistry_StopRemovesSession(t *testing.T) {
	reg := NewRegistry(5*time.Millisecond, 2, testLogger())
	_, err := reg.GetOrStart(context.Background(), "cam-1", func(ctx context.Context) (capture.Handle, error) {
		return &fakeHandle{}, nil
	}, capture.SnapshotOptions{})
	require.NoError(t, err)

	require.NoError(t, reg.Stop("cam-1"))
	_, ok := reg.Lookup("cam-1")
	assert.False(t, ok)
}

func TestRegistry_StopUnknownSourceErrors(t *testing.T) {
	reg := NewRegistry(5*time.Millisecond, 2, testLogger())
	err := reg.Stop("nope")
	assert.Error(t, err)
}

func TestRegistry_RestartsAfterProducerDies(t *testing.T) {
	reg := NewRegistry(2*time.Millisecond, 2, testLogger())
	first := &fakeHandle{errorAfter: 1, err: assertErr{"boom"}}
	calls := 0

	newHandle := func(ctx context.Context) (capture.Handle, error) {
		calls++
		if calls == 1 {
			return first, nil
		}
		return &fakeHandle{}, nil
	}

	s1, err := reg.GetOrStart(context.Background(), "cam-1", newHandle, capture.SnapshotOptions{})
	require.NoError(t, err)
	require.NoError(t, s1.Wait())

	// Give the registry's watch goroutine a moment to evict the dead entry.
	assert.Eventually(t, func() bool {
		_, ok := reg.Lookup("cam-1")
		return !ok
	}, time.Second, time.Millisecond)

	s2, err := reg.GetOrStart(context.Background(), "cam-1", newHandle, capture.SnapshotOptions{})
	require.NoError(t, err)
	assert.NotSame(t, s1, s2)
	assert.Equal(t, 2, calls)

	reg.CloseAll()
}
