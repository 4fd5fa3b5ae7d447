// Package apperrors defines the structured error taxonomy shared across
// the capture, scheduling, notification, persistence, storage, and update
// subsystems. Each kind carries enough structure for an HTTP edge to map
// it onto an application/problem+json response without re-inspecting
// error strings.
package apperrors

import (
	"errors"
	"fmt"
	"time"
)

// Kind identifies which taxonomy entry an Error belongs to.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not_found"
	KindUnauthorized       Kind = "unauthorized"
	KindForbidden          Kind = "forbidden"
	KindRateLimited        Kind = "rate_limited"
	KindDatabase           Kind = "database"
	KindExternal           Kind = "external"
	KindStorage            Kind = "storage"
	KindCircuitBreakerOpen Kind = "circuit_breaker_open"
	KindRetryExhausted     Kind = "retry_exhausted"
	KindConfig             Kind = "config"
)

// httpStatus maps each Kind to its natural HTTP status, used by the
// (out-of-scope) router edge when rendering application/problem+json.
var httpStatus = map[Kind]int{
	KindValidation:         400,
	KindNotFound:           404,
	KindUnauthorized:       401,
	KindForbidden:          403,
	KindRateLimited:        429,
	KindDatabase:           500,
	KindExternal:           502,
	KindStorage:            500,
	KindCircuitBreakerOpen: 503,
	KindRetryExhausted:     503,
	KindConfig:             500,
}

// Error is the single structured error type used across the module.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Details string
	Time    time.Time
	Err     error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause, if any, for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is compares by Kind, matching the teacher's errors.Is pattern of
// comparing stable fields rather than pointer identity.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// HTTPStatus returns the status code this error's Kind maps to.
func (e *Error) HTTPStatus() int {
	if status, ok := httpStatus[e.Kind]; ok {
		return status
	}
	return 500
}

func new(kind Kind, op, message string, err error) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Time:    time.Now().UTC(),
		Err:     err,
	}
}

// Validation builds a KindValidation error.
func Validation(op, message string) *Error { return new(KindValidation, op, message, nil) }

// NotFound builds a KindNotFound error.
func NotFound(op, message string) *Error { return new(KindNotFound, op, message, nil) }

// Unauthorized builds a KindUnauthorized error.
func Unauthorized(op, message string) *Error { return new(KindUnauthorized, op, message, nil) }

// Forbidden builds a KindForbidden error.
func Forbidden(op, message string) *Error { return new(KindForbidden, op, message, nil) }

// RateLimited builds a KindRateLimited error.
func RateLimited(op, message string) *Error { return new(KindRateLimited, op, message, nil) }

// Database builds a KindDatabase error wrapping cause.
func Database(op, message string, cause error) *Error {
	return new(KindDatabase, op, message, cause)
}

// External builds a KindExternal error, optionally wrapping cause.
func External(op, message string, cause ...error) *Error {
	var c error
	if len(cause) > 0 {
		c = cause[0]
	}
	return new(KindExternal, op, message, c)
}

// Storage builds a KindStorage error wrapping cause.
func Storage(op, message string, cause error) *Error {
	return new(KindStorage, op, message, cause)
}

// CircuitBreakerOpen builds a KindCircuitBreakerOpen error for a named breaker.
func CircuitBreakerOpen(op, name string) *Error {
	return new(KindCircuitBreakerOpen, op, fmt.Sprintf("circuit breaker %q is open", name), nil)
}

// RetryExhausted builds a KindRetryExhausted error after attempts tries.
func RetryExhausted(op string, attempts int, cause error) *Error {
	return new(KindRetryExhausted, op, fmt.Sprintf("exhausted %d attempts", attempts), cause)
}

// Config builds a KindConfig error wrapping cause.
func Config(op, message string, cause error) *Error {
	return new(KindConfig, op, message, cause)
}

// Is reports whether err is (or wraps) an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
