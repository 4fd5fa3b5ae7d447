package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_DelayCapsAtMaxDelay(t *testing.T) {
	p := Policy{BaseDelay: 100 * time.Millisecond, MaxDelay: 200 * time.Millisecond}
	for attempt := 0; attempt < 10; attempt++ {
		assert.LessOrEqual(t, p.Delay(attempt), p.MaxDelay)
	}
}

func TestDo_SucceedsWithoutRetry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{MaxRetries: 3}, nil, func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesRetryableErrorsThenGivesUp(t *testing.T) {
	sentinel := errors.New("retryable")
	calls := 0
	err := Do(context.Background(), Policy{MaxRetries: 2, BaseDelay: time.Millisecond}, func(error) bool { return true },
		func(ctx context.Context) error {
			calls++
			return sentinel
		})
	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsImmediatelyOnTerminalError(t *testing.T) {
	terminal := errors.New("terminal")
	calls := 0
	err := Do(context.Background(), Policy{MaxRetries: 5, BaseDelay: time.Millisecond}, func(error) bool { return false },
		func(ctx context.Context) error {
			calls++
			return terminal
		})
	require.ErrorIs(t, err, terminal)
	assert.Equal(t, 1, calls)
}

func TestDo_HonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, Policy{MaxRetries: 3, BaseDelay: time.Second}, func(error) bool { return true },
		func(ctx context.Context) error { return errors.New("fail") })
	assert.ErrorIs(t, err, context.Canceled)
}
