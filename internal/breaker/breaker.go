// Package breaker provides a shared three-state circuit breaker used by
// both the persistence pool manager and the notification dispatcher, per
// the decision to unify what the teacher originally kept as two separate
// hand-rolled implementations (internal/mediamtx/circuit_breaker.go).
package breaker

import (
	"sync"
	"time"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/logging"
)

// State is the circuit breaker's current state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// Config controls the failure/recovery/success thresholds.
type Config struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// breaker from Closed.
	FailureThreshold int
	// RecoveryTimeout is how long the breaker stays Open before
	// admitting a single HalfOpen trial call.
	RecoveryTimeout time.Duration
	// SuccessThreshold is the number of consecutive successful trial
	// calls required in HalfOpen before the breaker closes. The
	// teacher's original closed on the first success; this field is the
	// fix that generalizes it to a configurable count.
	SuccessThreshold int
}

// Breaker is a named circuit breaker guarding one operation or resource.
type Breaker struct {
	config Config
	logger *logging.Logger
	name   string

	mutex           sync.RWMutex
	state           State
	failureCount    int
	successCount    int
	lastFailureTime time.Time
}

// New creates a Breaker in the Closed state.
func New(name string, config Config, logger *logging.Logger) *Breaker {
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}
	return &Breaker{
		config: config,
		logger: logger,
		name:   name,
		state:  StateClosed,
	}
}

// Call executes operation with circuit breaker protection, returning
// apperrors.CircuitBreakerOpen without invoking operation if the breaker
// is open.
func (b *Breaker) Call(operation func() error) error {
	if !b.allow() {
		return apperrors.CircuitBreakerOpen("Breaker.Call", b.name)
	}

	err := operation()
	if err != nil {
		b.recordFailure()
		return err
	}
	b.recordSuccess()
	return nil
}

// allow decides whether a call may proceed, transitioning Open→HalfOpen
// once RecoveryTimeout has elapsed.
func (b *Breaker) allow() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.state != StateOpen {
		return true
	}
	if time.Since(b.lastFailureTime) <= b.config.RecoveryTimeout {
		return false
	}
	b.state = StateHalfOpen
	b.successCount = 0
	b.logger.WithFields(logging.Fields{
		"circuit_breaker": b.name,
		"state":           StateHalfOpen,
	}).Info("circuit breaker transitioning to half-open")
	return true
}

func (b *Breaker) recordFailure() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.failureCount++
	b.successCount = 0
	b.lastFailureTime = time.Now()

	if b.state == StateHalfOpen || b.failureCount >= b.config.FailureThreshold {
		b.state = StateOpen
		b.logger.WithFields(logging.Fields{
			"circuit_breaker": b.name,
			"failure_count":   b.failureCount,
		}).Warn("circuit breaker opened")
	}
}

// recordSuccess requires SuccessThreshold consecutive successes while
// HalfOpen before closing; any intervening failure (handled above)
// resets successCount and reopens immediately.
func (b *Breaker) recordSuccess() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.failureCount = 0

	if b.state != StateHalfOpen {
		return
	}

	b.successCount++
	if b.successCount >= b.config.SuccessThreshold {
		b.state = StateClosed
		b.successCount = 0
		b.logger.WithFields(logging.Fields{
			"circuit_breaker": b.name,
		}).Info("circuit breaker closed after consecutive successes")
	}
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.state
}

// FailureCount returns the current consecutive-failure count.
func (b *Breaker) FailureCount() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.failureCount
}

// Reset forces the breaker back to Closed, clearing counters.
func (b *Breaker) Reset() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.state = StateClosed
	b.failureCount = 0
	b.successCount = 0
	b.lastFailureTime = time.Time{}
}
