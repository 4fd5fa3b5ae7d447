package notify

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/retry"
)

// DefaultRetryPolicy is the backoff schedule every channel adapter is
// retried under: three attempts, 500ms base delay capped at 10s, the
// same shape as the teacher's calculateBackoffDelay tuning.
var DefaultRetryPolicy = retry.Policy{
	BaseDelay:  500 * time.Millisecond,
	MaxDelay:   10 * time.Second,
	MaxRetries: 3,
}

// httpStatusError carries a delivery attempt's HTTP status code so
// ClassifyDeliveryError can distinguish retryable 5xx from terminal 4xx.
type httpStatusError struct {
	op         string
	statusCode int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("%s: http status %d", e.op, e.statusCode)
}

func newHTTPStatusError(op string, statusCode int) error {
	return &httpStatusError{op: op, statusCode: statusCode}
}

// newHTTPError wraps a transport-level failure (connect refused, DNS,
// timeout) as an apperrors.External, always retryable.
func newHTTPError(op string, cause error) error {
	return apperrors.External(op, "request failed", cause)
}

// ClassifyDeliveryError reports whether err is worth retrying: connect
// failures, timeouts, and 5xx responses are retryable; 4xx responses and
// payload-serialization errors (apperrors.Validation) are terminal.
func ClassifyDeliveryError(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.statusCode >= 500
	}

	if apperrors.Is(err, apperrors.KindValidation) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// Anything else (apperrors.External wrapping a transport failure,
	// generic connection errors) is treated as transient.
	return apperrors.Is(err, apperrors.KindExternal)
}
