// Package api is the External API adapter named in the component design:
// a thin, in-process facade translating the four external operations
// (submit, cancel, read events, manage the DLQ) onto queue.Store, with no
// wire format of its own. A real deployment wires Service into HTTP or
// gRPC at the boundary this project leaves to the caller; the shape here
// mirrors the teacher's handler package (thin translation + structured
// logging), minus the transport and DTO layers it has no generated code
// to support.
package api

import (
	"context"
	"log/slog"

	"github.com/rezkam/mono/internal/domain"
	"github.com/rezkam/mono/internal/queue"
)

// Service exposes the submission, cancellation, event-stream, and DLQ
// facades.
type Service struct {
	store  queue.Store
	logger *slog.Logger
}

// New constructs a Service. A nil logger falls back to slog.Default().
func New(store queue.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Submit inserts a new job, returning the existing job if req carries an
// idempotency key already in use by a live job.
func (s *Service) Submit(ctx context.Context, req domain.InsertJobRequest) (*domain.Job, error) {
	job, err := s.store.InsertJob(ctx, req)
	if err != nil {
		s.logger.ErrorContext(ctx, "job submission failed",
			"definition_key", req.DefinitionKey, "error", err)
		return nil, err
	}
	s.logger.InfoContext(ctx, "job submitted",
		"job_id", job.ID, "definition_key", job.Definition.Key, "status", job.Status)
	return job, nil
}

// Cancel requests cancellation of a job. A queued job is cancelled
// immediately; a running job is flagged for the Executor's cancel-watch
// pump.
func (s *Service) Cancel(ctx context.Context, jobID string) error {
	if err := s.store.RequestCancel(ctx, jobID); err != nil {
		s.logger.WarnContext(ctx, "cancel request failed", "job_id", jobID, "error", err)
		return err
	}
	s.logger.InfoContext(ctx, "cancel requested", "job_id", jobID)
	return nil
}

// GetJob reads one job by id.
func (s *Service) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	return s.store.GetJob(ctx, jobID)
}

// GetEvents returns a job's full event log in append order.
func (s *Service) GetEvents(ctx context.Context, jobID string) ([]domain.JobEvent, error) {
	return s.store.GetEvents(ctx, jobID)
}

// ListDlq paginates dead-letter snapshots.
func (s *Service) ListDlq(ctx context.Context, limit, offset int) ([]domain.DlqJob, error) {
	return s.store.ListDlq(ctx, limit, offset)
}

// GetDlq reads one dead-letter snapshot.
func (s *Service) GetDlq(ctx context.Context, dlqID string) (*domain.DlqJob, error) {
	return s.store.GetDlq(ctx, dlqID)
}

// RetryDlq re-submits a dead-letter snapshot as a new job.
func (s *Service) RetryDlq(ctx context.Context, dlqID string, maxAttemptsOverride *int) (*domain.Job, error) {
	job, err := s.store.RetryDlq(ctx, dlqID, maxAttemptsOverride)
	if err != nil {
		s.logger.ErrorContext(ctx, "dlq retry failed", "dlq_id", dlqID, "error", err)
		return nil, err
	}
	s.logger.InfoContext(ctx, "dlq job retried", "dlq_id", dlqID, "new_job_id", job.ID)
	return job, nil
}
