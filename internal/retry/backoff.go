// Package retry provides the exponential-backoff-with-jitter math shared
// by the persistence pool manager, the notification dispatcher, and the
// artifact storage backends, generalized from the teacher's
// ffmpegManager.calculateBackoffDelay (internal/mediamtx/ffmpeg_manager.go).
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy controls exponential backoff with jitter: delay doubles per
// attempt starting from BaseDelay, capped at MaxDelay, with up to 25%
// jitter added to avoid thundering-herd retries.
type Policy struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	MaxRetries int
}

// Delay returns the backoff delay before attempt (0-indexed).
func (p Policy) Delay(attempt int) time.Duration {
	multiplier := int64(1) << uint(attempt)
	delay := time.Duration(int64(p.BaseDelay) * multiplier)

	if delay > 0 {
		jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
		delay += jitter
	}

	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// Classifier distinguishes retryable from terminal errors for a given
// attempt's result.
type Classifier func(err error) bool

// Do runs op, retrying per Policy while classify(err) reports retryable,
// sleeping Delay(attempt) between attempts, honoring ctx cancellation.
// Returns the last error once attempts are exhausted or a terminal error
// is hit.
func Do(ctx context.Context, p Policy, classify Classifier, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if classify != nil && !classify(lastErr) {
			return lastErr
		}
		if attempt == p.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Delay(attempt)):
		}
	}
	return lastErr
}
