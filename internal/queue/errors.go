package queue

import (
	"errors"
	"fmt"
)

// === Retry Classification ===
//
// Ported from the teacher's internal/application/worker/errors.go. Every
// handler failure, whether or not it was wrapped with Transient(), goes
// through the same attempts-vs-max-attempts accounting (spec §4.4 step 7);
// the wrappers below only label an error for error handlers and logs.

// RetryableError marks an error as transient for logging/telemetry
// purposes. It does not change spec's retry accounting (every handler
// failure already retries until max_attempts); it exists so error
// handlers and dashboards can distinguish "network blip" from "handler
// bug" without the core needing to know the difference.
type RetryableError struct {
	Err error
}

func (e RetryableError) Error() string { return e.Err.Error() }
func (e RetryableError) Unwrap() error { return e.Err }

// Transient wraps err to mark it as a transient failure.
func Transient(err error) error {
	return RetryableError{Err: err}
}

// IsRetryable reports whether err was wrapped with Transient.
func IsRetryable(err error) bool {
	var retryable RetryableError
	return errors.As(err, &retryable)
}

// === Panic Handling ===

// PanicError indicates a handler panicked. The Executor recovers it,
// reports it to ErrorHandler.HandlePanic, and then retries or dead-letters
// the job under the same attempts-vs-max-attempts rule as any other handler
// failure. IsPanic lets callers tell a recovered panic apart from other
// errors.
type PanicError struct {
	Value      any
	StackTrace string
}

func (e PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// IsPanic reports whether err represents a recovered panic.
func IsPanic(err error) bool {
	var panicErr PanicError
	return errors.As(err, &panicErr)
}

// === Cancellation-Induced Failure ===

// CancellationError is returned (or wrapped) by a handler that observed
// its AbortToken and gave up. Per spec §7 ("CancellationError"), whether
// this ends in `cancelled` depends on whether a cancellation was actually
// requested; a handler that throws this with no pending
// cancel_requested_at is treated as an ordinary failure.
type CancellationError struct {
	Err error
}

func (e CancellationError) Error() string {
	if e.Err == nil {
		return "job aborted"
	}
	return e.Err.Error()
}
func (e CancellationError) Unwrap() error { return e.Err }

// IsCancellation reports whether err represents an abort-token-induced
// handler exit.
func IsCancellation(err error) bool {
	var cancelErr CancellationError
	return errors.As(err, &cancelErr)
}
