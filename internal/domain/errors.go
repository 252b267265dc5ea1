package domain

import "errors"

// Domain errors - these are returned by Store implementations and checked
// by the application layer via errors.Is/errors.As. Names match the error
// kinds described in the spec's error handling design.

var (
	// ErrUnknownDefinition indicates the (key, version) pair referenced by
	// a job submission, or by a job that lost its definition, does not
	// exist in job_definitions.
	ErrUnknownDefinition = errors.New("unknown job definition")

	// ErrValidation indicates a malformed submission (bad priority range,
	// idempotency key too long, etc). Never retried.
	ErrValidation = errors.New("validation error")

	// ErrInvalidTransition indicates an action forbidden by the job state
	// machine, e.g. cancelling a job that has already reached a terminal
	// state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrJobNotFound indicates the job ID does not exist in the live table.
	ErrJobNotFound = errors.New("job not found")

	// ErrDlqNotFound indicates the dead-letter ID does not exist.
	ErrDlqNotFound = errors.New("dead-letter job not found")

	// ErrScheduleNotFound indicates the schedule ID does not exist.
	ErrScheduleNotFound = errors.New("schedule not found")

	// ErrLeaseLost names the condition where another reclaimer or worker
	// has already taken a job back. No Store method in this module returns
	// it: a heartbeat, completion or failure write on such a job affects
	// zero rows and reports no error.
	ErrLeaseLost = errors.New("lease lost")
)
