package domain

import "time"

// DlqJob is an immutable snapshot of a job that exhausted its retry budget
// (spec §3, §4.5). It carries the full job state at the moment of the move
// plus provenance fields; it is never mutated after insertion.
type DlqJob struct {
	ID             string
	OriginalJobID  string
	Definition     DefinitionRef
	Params         []byte
	Priority       int32
	Attempts       int
	MaxAttempts    int
	IdempotencyKey *string
	ErrorSummary   string

	QueuedAt     time.Time
	MovedToDlqAt time.Time
}
