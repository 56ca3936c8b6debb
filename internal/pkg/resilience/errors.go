// Package resilience provides the primitives the upstream client composes
// around raw fetches: a token-bucket rate limiter, a circuit breaker, and a
// retry policy with configurable backoff.
package resilience

import (
	"errors"
	"fmt"
)

// TransientError marks an upstream failure that is worth retrying: network
// errors, timeouts, HTTP 429 and 5xx responses.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable. Returns nil for a nil err.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err or anything it wraps is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// ExhaustedError is the terminal result of a retried operation that failed
// on every allowed attempt. It wraps the last cause.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: retries exhausted after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }
