package streaming

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryhub/capturectl/internal/capture"
)

func TestStreamSession_StartPublishesFrames(t *testing.T) {
	handle := &fakeHandle{}
	session := NewStreamSession("cam-1", handle, 4, testLogger())

	ch, unsubscribe, err := session.Subscribe()
	require.NoError(t, err)
	defer unsubscribe()

	session.Start(5*time.Millisecond, capture.SnapshotOptions{})

	select {
	case frame := <-ch:
		assert.NotEmpty(t, frame)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a published frame")
	}

	session.Close()
	_ = session.Wait()
}

func TestStreamSession_StartStopsOnTerminalSnapshotError(t *testing.T) {
	handle := &fakeHandle{errorAfter: 1, err: assertErr{"boom"}}
	session := NewStreamSession("cam-1", handle, 4, testLogger())

	session.Start(2*time.Millisecond, capture.SnapshotOptions{})

	err := session.Wait()
	assert.Error(t, err)
	assert.True(t, handle.wasStopped())
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }
