package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.GetLogger("breaker-test")
}

func TestBreaker_OpensAfterFailureThreshold(t *testing.T) {
	b := New("db", Config{FailureThreshold: 2, RecoveryTimeout: time.Minute}, testLogger())

	failing := errors.New("boom")
	require.ErrorIs(t, b.Call(func() error { return failing }), failing)
	assert.Equal(t, StateClosed, b.State())

	require.ErrorIs(t, b.Call(func() error { return failing }), failing)
	assert.Equal(t, StateOpen, b.State())

	err := b.Call(func() error { return nil })
	assert.True(t, apperrors.Is(err, apperrors.KindCircuitBreakerOpen))
}

func TestBreaker_RequiresConsecutiveSuccessesToClose(t *testing.T) {
	b := New("notify", Config{FailureThreshold: 1, RecoveryTimeout: 0, SuccessThreshold: 2}, testLogger())

	require.Error(t, b.Call(func() error { return errors.New("fail") }))
	require.Equal(t, StateOpen, b.State())

	// RecoveryTimeout is 0, so the next call is admitted as a half-open trial.
	require.NoError(t, b.Call(func() error { return nil }))
	assert.Equal(t, StateHalfOpen, b.State(), "one success is not enough when SuccessThreshold is 2")

	require.NoError(t, b.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_FailureDuringHalfOpenReopensImmediately(t *testing.T) {
	b := New("notify", Config{FailureThreshold: 1, RecoveryTimeout: 0, SuccessThreshold: 3}, testLogger())

	require.Error(t, b.Call(func() error { return errors.New("fail") }))
	require.NoError(t, b.Call(func() error { return nil }))
	assert.Equal(t, StateHalfOpen, b.State())

	require.Error(t, b.Call(func() error { return errors.New("fail again") }))
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_Reset(t *testing.T) {
	b := New("db", Config{FailureThreshold: 1, RecoveryTimeout: time.Hour}, testLogger())
	require.Error(t, b.Call(func() error { return errors.New("fail") }))
	require.Equal(t, StateOpen, b.State())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 0, b.FailureCount())
}
