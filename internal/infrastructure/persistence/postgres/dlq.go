package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rezkam/mono/internal/domain"
)

const dlqColumns = `id, original_job_id, definition_key, definition_version, params, priority,
	attempts, max_attempts, idempotency_key, error_summary, queued_at, moved_to_dlq_at`

func scanDlqJob(row rowScanner) (*domain.DlqJob, error) {
	var (
		d              domain.DlqJob
		params         []byte
		idempotencyKey *string
	)
	if err := row.Scan(
		&d.ID, &d.OriginalJobID, &d.Definition.Key, &d.Definition.Version, &params, &d.Priority,
		&d.Attempts, &d.MaxAttempts, &idempotencyKey, &d.ErrorSummary, &d.QueuedAt, &d.MovedToDlqAt,
	); err != nil {
		return nil, err
	}
	d.Params = params
	d.IdempotencyKey = idempotencyKey
	return &d, nil
}

// MoveToDlq snapshots a terminally-failed job into jobs_dlq, deletes its
// event log, and deletes the live row, all in one transaction (spec P6:
// the move is atomic — a crash between steps must leave either the job
// live and untouched, or fully moved, never both).
func (s *Store) MoveToDlq(ctx context.Context, jobID string, errorSummary string) (*domain.DlqJob, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin dlq transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	job, err := scanJob(tx.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM jobs WHERE id = $1 FOR UPDATE`, jobColumns), jobID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("lock job %s for dlq move: %w", jobID, err)
	}

	dlqID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate dlq id: %w", err)
	}

	summary := errorSummary
	if summary == "" && job.ErrorSummary != nil {
		summary = *job.ErrorSummary
	}

	row := tx.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO jobs_dlq (id, original_job_id, definition_key, definition_version, params, priority,
			attempts, max_attempts, idempotency_key, error_summary, queued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING %s`, dlqColumns),
		dlqID.String(), job.ID, job.Definition.Key, job.Definition.Version, job.Params, job.Priority,
		job.Attempts, job.MaxAttempts, job.IdempotencyKey, domain.TruncateErrorSummary(summary), job.QueuedAt,
	)
	dlqJob, err := scanDlqJob(row)
	if err != nil {
		return nil, fmt.Errorf("insert dlq snapshot for job %s: %w", jobID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM job_events WHERE job_id = $1`, jobID); err != nil {
		return nil, fmt.Errorf("delete events for job %s: %w", jobID, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, jobID); err != nil {
		return nil, fmt.Errorf("delete job %s after dlq move: %w", jobID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit dlq move for job %s: %w", jobID, err)
	}
	return dlqJob, nil
}

// ListDlq paginates dead-letter snapshots, most recently moved first.
func (s *Store) ListDlq(ctx context.Context, limit, offset int) ([]domain.DlqJob, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM jobs_dlq ORDER BY moved_to_dlq_at DESC LIMIT $1 OFFSET $2`, dlqColumns),
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list dlq: %w", err)
	}
	defer rows.Close()

	var out []domain.DlqJob
	for rows.Next() {
		d, err := scanDlqJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dlq row: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// GetDlq reads one dead-letter snapshot by its dlq id.
func (s *Store) GetDlq(ctx context.Context, dlqID string) (*domain.DlqJob, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM jobs_dlq WHERE id = $1`, dlqColumns), dlqID)
	d, err := scanDlqJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrDlqNotFound, dlqID)
	}
	if err != nil {
		return nil, fmt.Errorf("get dlq %s: %w", dlqID, err)
	}
	return d, nil
}

// RetryDlq re-submits a dead-letter snapshot as a brand new job with a
// fresh id and reset attempt count, per spec §6's "replay from DLQ"
// operation. It does not delete the DLQ row: the snapshot remains as
// provenance for the new attempt.
func (s *Store) RetryDlq(ctx context.Context, dlqID string, maxAttemptsOverride *int) (*domain.Job, error) {
	d, err := s.GetDlq(ctx, dlqID)
	if err != nil {
		return nil, err
	}

	maxAttempts := d.MaxAttempts
	if maxAttemptsOverride != nil && *maxAttemptsOverride > 0 {
		maxAttempts = *maxAttemptsOverride
	}

	return s.InsertJob(ctx, domain.InsertJobRequest{
		DefinitionKey:     d.Definition.Key,
		DefinitionVersion: d.Definition.Version,
		Params:            d.Params,
		Priority:          d.Priority,
		MaxAttempts:       maxAttempts,
		// Deliberately no IdempotencyKey: a DLQ replay must always create a
		// fresh job even if the original key is still attached to this
		// snapshot, since the original's conflict slot was freed by the move.
	})
}
