package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rezkam/mono/internal/domain"
)

const jobColumns = `id, definition_key, definition_version, params, status, priority, attempts,
	max_attempts, scheduled_at, queued_at, started_at, finished_at, heartbeat_at,
	lease_expires_at, cancel_requested_at, worker_id, idempotency_key, error_summary`

// rowScanner is satisfied by both pgx.Row and pgx.Rows, letting scanJob
// serve both QueryRow and Query call sites.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		j              domain.Job
		params         []byte
		scheduledAt    sql.Null[time.Time]
		startedAt      sql.Null[time.Time]
		finishedAt     sql.Null[time.Time]
		heartbeatAt    sql.Null[time.Time]
		leaseExpiresAt sql.Null[time.Time]
		cancelAt       sql.Null[time.Time]
		workerID       sql.Null[string]
		idempotencyKey sql.Null[string]
		errorSummary   sql.Null[string]
	)

	if err := row.Scan(
		&j.ID, &j.Definition.Key, &j.Definition.Version, &params, &j.Status, &j.Priority, &j.Attempts,
		&j.MaxAttempts, &scheduledAt, &j.QueuedAt, &startedAt, &finishedAt, &heartbeatAt,
		&leaseExpiresAt, &cancelAt, &workerID, &idempotencyKey, &errorSummary,
	); err != nil {
		return nil, err
	}

	j.Params = params
	j.ScheduledAt = nullTimeToPtr(scheduledAt)
	j.StartedAt = nullTimeToPtr(startedAt)
	j.FinishedAt = nullTimeToPtr(finishedAt)
	j.HeartbeatAt = nullTimeToPtr(heartbeatAt)
	j.LeaseExpiresAt = nullTimeToPtr(leaseExpiresAt)
	j.CancelRequestedAt = nullTimeToPtr(cancelAt)
	j.WorkerID = nullStringToPtr(workerID)
	j.IdempotencyKey = nullStringToPtr(idempotencyKey)
	j.ErrorSummary = nullStringToPtr(errorSummary)
	return &j, nil
}

// InsertJob inserts req as a new job, or returns the existing non-terminal
// job sharing its idempotency key (spec §4.1, §5 "idempotent submission
// under concurrency"). Grounded on the teacher's InsertGenerationJob
// ON CONFLICT DO NOTHING pattern, generalized to the (idempotency_key,
// definition_key, definition_version) partial unique index.
func (s *Store) InsertJob(ctx context.Context, req domain.InsertJobRequest) (*domain.Job, error) {
	if req.IdempotencyKey != nil && len(*req.IdempotencyKey) > domain.MaxIdempotencyKeyLen {
		return nil, fmt.Errorf("%w: idempotency_key exceeds %d characters", domain.ErrValidation, domain.MaxIdempotencyKeyLen)
	}

	version := req.DefinitionVersion
	if version == 0 {
		version = 1
	}

	var defaultMaxAttempts int
	err := s.pool.QueryRow(ctx,
		`SELECT default_max_attempts FROM job_definitions WHERE key = $1 AND version = $2`,
		req.DefinitionKey, version,
	).Scan(&defaultMaxAttempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s@%d", domain.ErrUnknownDefinition, req.DefinitionKey, version)
	}
	if err != nil {
		return nil, fmt.Errorf("look up job definition: %w", err)
	}

	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	params := req.Params
	if params == nil {
		params = []byte("{}")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate job id: %w", err)
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO jobs (id, definition_key, definition_version, params, priority, max_attempts,
			idempotency_key, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (idempotency_key, definition_key, definition_version) WHERE idempotency_key IS NOT NULL
		DO NOTHING
		RETURNING %s`, jobColumns),
		id.String(), req.DefinitionKey, version, params, req.Priority, maxAttempts,
		req.IdempotencyKey, req.ScheduledAt,
	)
	job, err := scanJob(row)
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	// ON CONFLICT fired: another submission won the race. Re-read the
	// winning row, per spec §5 ("N concurrent submissions => one insert,
	// N-1 reads; all return the same job_id").
	existing := s.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM jobs
		WHERE idempotency_key = $1 AND definition_key = $2 AND definition_version = $3`, jobColumns),
		req.IdempotencyKey, req.DefinitionKey, version,
	)
	job, err = scanJob(existing)
	if err != nil {
		return nil, fmt.Errorf("re-read idempotent job: %w", err)
	}
	return job, nil
}

// ClaimOne atomically selects and locks the highest-priority, oldest
// eligible queued job and transitions it to running, using SKIP LOCKED so
// concurrent claimants never block on or double-claim a row (spec P1).
// Grounded on the teacher's ClaimNextPendingJob + MarkJobAsRunning, folded
// into one statement since this Store has no sqlc layer to split across.
func (s *Store) ClaimOne(ctx context.Context, workerID string, leaseSeconds int) (*domain.Job, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE jobs SET
			status = 'running',
			worker_id = $1,
			started_at = now(),
			heartbeat_at = now(),
			lease_expires_at = now() + ($2 || ' seconds')::interval
		WHERE id = (
			SELECT id FROM jobs
			WHERE status = 'queued'
				AND cancel_requested_at IS NULL
				AND (scheduled_at IS NULL OR scheduled_at <= now())
			ORDER BY priority DESC, queued_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING %s`, jobColumns),
		workerID, leaseSeconds,
	)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

// Heartbeat extends a running job's lease. A job no longer running under
// any worker (already reclaimed, completed, or claimed elsewhere) silently
// matches zero rows; the orphan reclaimer is the safety net, not this call.
func (s *Store) Heartbeat(ctx context.Context, jobID string, leaseSeconds int) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE jobs SET heartbeat_at = now(), lease_expires_at = now() + ($2 || ' seconds')::interval
		 WHERE id = $1 AND status IN ('running', 'cancelling')`,
		jobID, leaseSeconds,
	)
	if err != nil {
		return fmt.Errorf("heartbeat job %s: %w", jobID, err)
	}
	return nil
}

// SetStatus transitions a job's status, stamping finished_at when the new
// status is terminal.
func (s *Store) SetStatus(ctx context.Context, jobID string, status domain.JobStatus, errorSummary string) error {
	var errSummary sql.Null[string]
	if errorSummary != "" {
		errSummary = sql.Null[string]{V: errorSummary, Valid: true}
	}

	_, err := s.pool.Exec(ctx, `
		UPDATE jobs SET
			status = $2,
			error_summary = COALESCE($3, error_summary),
			finished_at = CASE WHEN $2 IN ('succeeded', 'failed', 'cancelled') THEN now() ELSE finished_at END
		WHERE id = $1`,
		jobID, status, errSummary,
	)
	if err != nil {
		return fmt.Errorf("set status for job %s: %w", jobID, err)
	}
	return nil
}

// IncrementAttempts atomically increments attempts and returns the new
// value.
func (s *Store) IncrementAttempts(ctx context.Context, jobID string) (int, error) {
	var attempts int
	err := s.pool.QueryRow(ctx,
		`UPDATE jobs SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts`,
		jobID,
	).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("increment attempts for job %s: %w", jobID, err)
	}
	return attempts, nil
}

// ScheduleRetry requeues a job for a future attempt, clearing the previous
// attempt's running-state fields (spec §4.1). queued_at is refreshed so the
// retried job re-enters FIFO order among jobs of the same priority that
// became eligible after it.
func (s *Store) ScheduleRetry(ctx context.Context, jobID string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE jobs SET
			status = 'queued',
			scheduled_at = $2,
			queued_at = now(),
			worker_id = NULL,
			started_at = NULL,
			heartbeat_at = NULL,
			lease_expires_at = NULL
		WHERE id = $1`,
		jobID, at,
	)
	if err != nil {
		return fmt.Errorf("schedule retry for job %s: %w", jobID, err)
	}
	return nil
}

// cancelQueuedJob cancels jobID in place if it is currently queued,
// recording a cancelled event alongside the status change in the same
// transaction (spec §4.1: a queued cancel also records a cancelled_event
// with reason cancelled_while_queued). Reports whether a queued job was
// found and cancelled.
func (s *Store) cancelQueuedJob(ctx context.Context, jobID string) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin cancel-queued transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, `
		UPDATE jobs SET status = 'cancelled', cancel_requested_at = now(), finished_at = now()
		WHERE id = $1 AND status = 'queued'`,
		jobID,
	)
	if err != nil {
		return false, fmt.Errorf("cancel queued job %s: %w", jobID, err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO job_events (job_id, event_type, payload) VALUES ($1, $2, $3)`,
		jobID, domain.EventCancelled, []byte(`{"reason":"cancelled_while_queued"}`),
	); err != nil {
		return false, fmt.Errorf("append cancelled event for job %s: %w", jobID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit cancel-queued transaction for job %s: %w", jobID, err)
	}
	return true, nil
}

// RequestCancel implements spec §6's cancellation facade semantics: a
// queued job is cancelled immediately; a running job is moved to cancelling
// and flagged for the Executor's cancel-watch pump to pick up. Terminal or
// unknown jobs are errors.
func (s *Store) RequestCancel(ctx context.Context, jobID string) error {
	cancelled, err := s.cancelQueuedJob(ctx, jobID)
	if err != nil {
		return err
	}
	if cancelled {
		return nil
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE jobs SET cancel_requested_at = now(), status = 'cancelling'
		WHERE id = $1 AND status IN ('running', 'cancelling') AND cancel_requested_at IS NULL`,
		jobID,
	)
	if err != nil {
		return fmt.Errorf("request cancel for running job %s: %w", jobID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var status domain.JobStatus
	err = s.pool.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1`, jobID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrJobNotFound, jobID)
	}
	if err != nil {
		return fmt.Errorf("look up job %s: %w", jobID, err)
	}
	if status.Terminal() {
		return fmt.Errorf("%w: job %s is already %s", domain.ErrInvalidTransition, jobID, status)
	}
	return nil // already cancel-requested; idempotent
}

// ReclaimOrphans requeues every running/cancelling job whose lease has
// expired (spec P5, §4.6). leaseSeconds is accepted for interface symmetry
// with the rest of the lease-driven operations but is not needed in the
// predicate: each row already carries its own lease_expires_at stamped at
// claim/heartbeat time.
func (s *Store) ReclaimOrphans(ctx context.Context, leaseSeconds int) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE jobs SET
			status = 'queued',
			worker_id = NULL,
			started_at = NULL,
			heartbeat_at = NULL,
			lease_expires_at = NULL,
			cancel_requested_at = NULL
		WHERE status IN ('running', 'cancelling') AND lease_expires_at < now()`,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim orphans: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// GetJob reads a job by id.
func (s *Store) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM jobs WHERE id = $1`, jobColumns), jobID)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	return job, nil
}

// ListJobs paginates jobs, optionally filtered by status. An empty status
// lists across all statuses.
func (s *Store) ListJobs(ctx context.Context, status domain.JobStatus, limit, offset int) ([]domain.Job, error) {
	var rows pgx.Rows
	var err error
	if status == "" {
		rows, err = s.pool.Query(ctx, fmt.Sprintf(`
			SELECT %s FROM jobs ORDER BY queued_at DESC LIMIT $1 OFFSET $2`, jobColumns),
			limit, offset)
	} else {
		rows, err = s.pool.Query(ctx, fmt.Sprintf(`
			SELECT %s FROM jobs WHERE status = $1 ORDER BY queued_at DESC LIMIT $2 OFFSET $3`, jobColumns),
			status, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}
