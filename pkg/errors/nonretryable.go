package errors

import stdErrors "errors"

// NonRetryableError signals that replaying the failed operation can never
// succeed, regardless of how many attempts remain.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewNonRetryable wraps an error to signal no retries.
func NewNonRetryable(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

// IsNonRetryable reports whether the chain contains a NonRetryableError.
func IsNonRetryable(err error) bool {
	if err == nil {
		return false
	}
	var typed NonRetryableError
	return stdErrors.As(err, &typed)
}
