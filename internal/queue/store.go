package queue

import (
	"context"
	"time"

	"github.com/rezkam/mono/internal/domain"
)

// Store abstracts transactional, durable persistence for jobs, events,
// the dead-letter queue, and cron schedules (spec §4.1). It is the single
// source of truth; the core never coordinates directly between workers,
// only through Store's row-level locking.
//
// This interface is owned by the queue package (consumer), not by the
// storage package (provider) — dependency inversion, same as the
// teacher's worker.Repository / worker.GenerationCoordinator split.
type Store interface {
	// === Submission ===

	// InsertJob inserts a new job, or returns the existing non-terminal
	// job with the same idempotency key if one already exists (spec
	// §4.1). Returns domain.ErrUnknownDefinition if the definition_ref
	// does not exist, domain.ErrValidation for out-of-range fields.
	InsertJob(ctx context.Context, req domain.InsertJobRequest) (*domain.Job, error)

	// === Claim path ===

	// ClaimOne atomically selects one eligible queued job (priority DESC,
	// queued_at ASC, skipping locked rows) and transitions it to running
	// under workerID with a lease of leaseSeconds. Returns (nil, nil) if
	// no job is eligible. Two concurrent callers never receive the same
	// row (spec P1).
	ClaimOne(ctx context.Context, workerID string, leaseSeconds int) (*domain.Job, error)

	// Heartbeat extends a running job's lease. No-op (but not an error)
	// if the job is no longer running or cancelling.
	Heartbeat(ctx context.Context, jobID string, leaseSeconds int) error

	// === Completion / failure ===

	// SetStatus transitions a job to status, recording errorSummary (may
	// be empty) and setting finished_at when status is terminal.
	SetStatus(ctx context.Context, jobID string, status domain.JobStatus, errorSummary string) error

	// IncrementAttempts atomically increments attempts and returns the
	// new value.
	IncrementAttempts(ctx context.Context, jobID string) (int, error)

	// ScheduleRetry requeues a job for a future attempt: status=queued,
	// scheduled_at=at, and clears worker_id/started_at/heartbeat_at/
	// lease_expires_at. Priority and queued_at-for-FIFO semantics are
	// spec'd in §4.1 (retried jobs keep priority, get a new queued_at).
	ScheduleRetry(ctx context.Context, jobID string, at time.Time) error

	// === Cancellation ===

	// RequestCancel sets cancel_requested_at. A queued job is cancelled
	// immediately; a running job moves to cancelling. Terminal jobs
	// return domain.ErrInvalidTransition.
	RequestCancel(ctx context.Context, jobID string) error

	// === Orphan recovery ===

	// ReclaimOrphans requeues every running/cancelling job whose lease
	// has expired, and returns how many were reclaimed (spec P5).
	ReclaimOrphans(ctx context.Context, leaseSeconds int) (int, error)

	// === Events ===

	// AppendEvent appends one event to a job's log.
	AppendEvent(ctx context.Context, jobID string, eventType domain.EventType, payload []byte) error

	// GetEvents returns a job's full event list in append order.
	GetEvents(ctx context.Context, jobID string) ([]domain.JobEvent, error)

	// === Dead-letter queue ===

	// MoveToDlq atomically snapshots job into the DLQ table, deletes its
	// events, and deletes the live row (spec P6).
	MoveToDlq(ctx context.Context, jobID string, errorSummary string) (*domain.DlqJob, error)

	ListDlq(ctx context.Context, limit, offset int) ([]domain.DlqJob, error)
	GetDlq(ctx context.Context, dlqID string) (*domain.DlqJob, error)

	// RetryDlq re-submits a DLQ snapshot as a brand new job (fresh ID).
	RetryDlq(ctx context.Context, dlqID string, maxAttemptsOverride *int) (*domain.Job, error)

	// === Reads ===

	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	ListJobs(ctx context.Context, status domain.JobStatus, limit, offset int) ([]domain.Job, error)

	// === Definitions ===

	GetDefinition(ctx context.Context, key string, version int) (*domain.JobDefinition, error)
	PutDefinition(ctx context.Context, def domain.JobDefinition) error

	// === Schedules ===

	ListEnabledSchedules(ctx context.Context) ([]domain.Schedule, error)
	MarkScheduleEnqueued(ctx context.Context, scheduleID string, at time.Time) error

	// === Leader election ===

	// TryAcquireLease attempts to take (or renew, if already held by
	// holderID) an exclusive advisory lease on runType, expiring after
	// leaseDuration. Returns acquired=false if another holder has it.
	// The release function best-effort releases the lease early; on
	// process crash the lease simply expires.
	TryAcquireLease(ctx context.Context, runType, holderID string, leaseDuration time.Duration) (release func(), acquired bool, err error)
}

// RetryConfig holds the backoff parameters from spec §4.5 / §6.
type RetryConfig struct {
	BaseSeconds   float64
	MaxSeconds    float64
	JitterRatio   float64
}

// DefaultRetryConfig returns the spec's documented defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{BaseSeconds: 1, MaxSeconds: 3600, JitterRatio: 0.3}
}
