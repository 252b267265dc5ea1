package domain

import "time"

// Job is the aggregate root of the queue: one unit of work moving through
// the state machine in spec §4.4. Field semantics and invariants are
// specified in spec §3 and must hold after every committed transaction;
// the Store is the only writer.
type Job struct {
	ID         string
	Definition DefinitionRef

	// Params is an opaque structured blob (JSON) passed to the handler
	// unexamined by the core.
	Params []byte

	Status   JobStatus
	Priority int32 // signed; higher dispatches first (spec P4)
	Attempts int
	MaxAttempts int

	// ScheduledAt is "not eligible before"; nil means eligible immediately.
	ScheduledAt *time.Time
	QueuedAt    time.Time

	StartedAt       *time.Time
	FinishedAt      *time.Time
	HeartbeatAt     *time.Time
	LeaseExpiresAt  *time.Time
	CancelRequestedAt *time.Time

	// WorkerID is set iff Status is running or cancelling.
	WorkerID *string

	IdempotencyKey *string

	// ErrorSummary is truncated to <=500 chars (spec §3).
	ErrorSummary *string
}

const MaxErrorSummaryLen = 500

// TruncateErrorSummary clamps an error message to the persisted field's
// maximum length, matching the spec's "truncate to <=500 chars" rule.
func TruncateErrorSummary(msg string) string {
	if len(msg) <= MaxErrorSummaryLen {
		return msg
	}
	return msg[:MaxErrorSummaryLen]
}

// Eligible reports whether the job is currently claimable: queued, not
// scheduled for the future, and without a pending cancellation (spec
// GLOSSARY "Eligible").
func (j Job) Eligible(now time.Time) bool {
	if j.Status != JobStatusQueued {
		return false
	}
	if j.CancelRequestedAt != nil {
		return false
	}
	if j.ScheduledAt != nil && j.ScheduledAt.After(now) {
		return false
	}
	return true
}

// InsertJobRequest is the external submission facade's request shape
// (spec §6). Zero values apply the documented defaults.
type InsertJobRequest struct {
	DefinitionKey     string
	DefinitionVersion int // defaults to 1
	Params            []byte
	Priority          int32
	MaxAttempts       int // defaults to the definition's default_max_attempts
	IdempotencyKey    *string
	ScheduledAt       *time.Time
}

// MaxIdempotencyKeyLen bounds the idempotency key length; submissions
// longer than this fail with ErrValidation (spec §6).
const MaxIdempotencyKeyLen = 255
