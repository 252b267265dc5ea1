package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rezkam/mono/internal/domain"
)

// errCancelRequested is the AbortToken signal reason used by the
// cancel-watch pump. The Run loop distinguishes it from an ordinary
// timeout/context cancellation to decide whether the job ends in
// `cancelled` or goes through normal retry accounting (spec §4.4 step 7
// vs. the cancellation branch).
var errCancelRequested = errors.New("cancel requested")

// Hooks are optional lifecycle callbacks a definition can supply alongside
// its Handler. Any of them may be nil.
type Hooks struct {
	OnStart   func(ctx context.Context, jobID string)
	OnSuccess func(ctx context.Context, jobID string)
	OnFail    func(ctx context.Context, jobID string, err error)
	OnEnd     func(ctx context.Context, jobID string)
}

// ExecutorConfig carries the timing knobs an Executor needs from §6: lease
// duration drives the heartbeat cadence (lease_duration/2), cancel_check
// drives the cancel-watch pump, retry carries the backoff parameters for
// §4.5.
type ExecutorConfig struct {
	LeaseSeconds        int
	CancelCheckInterval time.Duration
	Retry               RetryConfig
}

// Executor runs a single claimed job to one attempt's conclusion, per
// spec §4.4: started event, heartbeat pump, cancel-watch pump, handler
// invocation, then success/retry/DLQ branching. Grounded on the teacher's
// GenerationWorker.RunProcessOnce, generalized from a single hardcoded job
// type to an arbitrary registered Handler plus hooks.
type Executor struct {
	store        Store
	errorHandler ErrorHandler
	cfg          ExecutorConfig
	unitFactory  ExecutionUnitFactory
}

// NewExecutor builds an Executor. unitFactory selects in-process or
// process-isolated execution (execunit_inprocess.go / execunit_process.go);
// pass NewInProcessUnit() for the default.
func NewExecutor(store Store, errorHandler ErrorHandler, cfg ExecutorConfig, unitFactory ExecutionUnitFactory) *Executor {
	if errorHandler == nil {
		errorHandler = &DefaultErrorHandler{}
	}
	if unitFactory == nil {
		unitFactory = NewInProcessUnit()
	}
	return &Executor{store: store, errorHandler: errorHandler, cfg: cfg, unitFactory: unitFactory}
}

// Run executes job's single attempt: handler, pumps, and the full
// success/retry/DLQ branching of spec §4.4 step 7. It returns an error only
// for infrastructure failures (store writes failing) that the caller — the
// supervisor — should log but that don't represent the job's own outcome.
func (e *Executor) Run(ctx context.Context, job *domain.Job, handler Handler, definition domain.JobDefinition, hooks Hooks) error {
	if err := e.store.AppendEvent(ctx, job.ID, domain.EventStarted, nil); err != nil {
		slog.WarnContext(ctx, "failed to append started event", "job_id", job.ID, "error", err)
	}
	if hooks.OnStart != nil {
		hooks.OnStart(ctx, job.ID)
	}

	abort := domain.NewAbortToken(ctx)
	defer abort.Signal(nil)

	runCtx := abort.Context()
	if definition.TimeoutSeconds > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, time.Duration(definition.TimeoutSeconds)*time.Second)
		defer cancelTimeout()
	}

	pumpCtx, stopPumps := context.WithCancel(context.Background())
	defer stopPumps()
	go e.runHeartbeatPump(pumpCtx, job.ID)
	go e.runCancelWatchPump(pumpCtx, job.ID, abort)

	hctx := &HandlerContext{JobID: job.ID, Abort: abort, Logger: slog.With("job_id", job.ID), store: e.store}

	unit := e.unitFactory()
	handlerErr := unit.Run(runCtx, handler, job.ID, job.Params, hctx)
	stopPumps()
	cancelRequested := errors.Is(abort.Reason(), errCancelRequested)

	if handlerErr == nil && runCtx.Err() != nil {
		cause := context.Cause(runCtx)
		if errors.Is(cause, errCancelRequested) {
			handlerErr = CancellationError{Err: cause}
		} else {
			handlerErr = cause
		}
	}

	if handlerErr == nil {
		return e.handleSuccess(ctx, job, hooks)
	}
	return e.handleFailure(ctx, job, definition, handlerErr, cancelRequested, hooks)
}

func (e *Executor) runHeartbeatPump(ctx context.Context, jobID string) {
	interval := time.Duration(e.cfg.LeaseSeconds) * time.Second / 2
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.store.Heartbeat(ctx, jobID, e.cfg.LeaseSeconds); err != nil {
				slog.WarnContext(ctx, "heartbeat failed", "job_id", jobID, "error", err)
				continue
			}
			if err := e.store.AppendEvent(ctx, jobID, domain.EventHeartbeat, nil); err != nil {
				slog.WarnContext(ctx, "failed to append heartbeat event", "job_id", jobID, "error", err)
			}
		}
	}
}

func (e *Executor) runCancelWatchPump(ctx context.Context, jobID string, abort domain.AbortToken) {
	interval := e.cfg.CancelCheckInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := e.store.GetJob(ctx, jobID)
			if err != nil {
				slog.WarnContext(ctx, "cancel-watch: failed to read job", "job_id", jobID, "error", err)
				continue
			}
			if job.CancelRequestedAt != nil && !abort.IsCancelled() {
				abort.Signal(errCancelRequested)
				if err := e.store.SetStatus(ctx, jobID, domain.JobStatusCancelling, ""); err != nil {
					slog.WarnContext(ctx, "cancel-watch: failed to mark cancelling", "job_id", jobID, "error", err)
				}
				return
			}
		}
	}
}

func (e *Executor) handleSuccess(ctx context.Context, job *domain.Job, hooks Hooks) error {
	if err := e.store.SetStatus(ctx, job.ID, domain.JobStatusSucceeded, ""); err != nil {
		return fmt.Errorf("mark job %s succeeded: %w", job.ID, err)
	}
	if err := e.store.AppendEvent(ctx, job.ID, domain.EventSucceeded, nil); err != nil {
		slog.WarnContext(ctx, "failed to append succeeded event", "job_id", job.ID, "error", err)
	}
	if hooks.OnSuccess != nil {
		hooks.OnSuccess(ctx, job.ID)
	}
	if hooks.OnEnd != nil {
		hooks.OnEnd(ctx, job.ID)
	}
	slog.InfoContext(ctx, "job succeeded", "job_id", job.ID)
	return nil
}

func (e *Executor) handleFailure(ctx context.Context, job *domain.Job, definition domain.JobDefinition, handlerErr error, cancelRequested bool, hooks Hooks) error {
	var panicErrForHandler PanicError
	if errors.As(handlerErr, &panicErrForHandler) {
		e.errorHandler.HandlePanic(ctx, job, panicErrForHandler.Value, panicErrForHandler.StackTrace)
	} else {
		e.errorHandler.HandleError(ctx, job, handlerErr)
	}

	if cancelRequested {
		if err := e.store.SetStatus(ctx, job.ID, domain.JobStatusCancelled, ""); err != nil {
			return fmt.Errorf("mark job %s cancelled: %w", job.ID, err)
		}
		if err := e.store.AppendEvent(ctx, job.ID, domain.EventCancelled, nil); err != nil {
			slog.WarnContext(ctx, "failed to append cancelled event", "job_id", job.ID, "error", err)
		}
		if hooks.OnEnd != nil {
			hooks.OnEnd(ctx, job.ID)
		}
		slog.InfoContext(ctx, "job cancelled", "job_id", job.ID)
		return nil
	}

	summary := domain.TruncateErrorSummary(handlerErr.Error())

	attempts, err := e.store.IncrementAttempts(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("increment attempts for job %s: %w", job.ID, err)
	}

	maxAttempts := job.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = definition.DefaultMaxAttempts
	}

	if attempts < maxAttempts {
		delay := ComputeBackoff(attempts, e.cfg.Retry)
		retryAt := time.Now().Add(delay)
		if err := e.store.ScheduleRetry(ctx, job.ID, retryAt); err != nil {
			return fmt.Errorf("schedule retry for job %s: %w", job.ID, err)
		}
		payload := fmt.Appendf(nil, `{"error":%q,"retry_scheduled_at":%q,"attempts":%d}`, summary, retryAt.Format(time.RFC3339), attempts)
		if err := e.store.AppendEvent(ctx, job.ID, domain.EventFailed, payload); err != nil {
			slog.WarnContext(ctx, "failed to append failed event", "job_id", job.ID, "error", err)
		}
		slog.InfoContext(ctx, "job scheduled for retry", "job_id", job.ID, "attempts", attempts, "retry_at", retryAt)
		return nil
	}

	if err := e.store.SetStatus(ctx, job.ID, domain.JobStatusFailed, summary); err != nil {
		return fmt.Errorf("mark job %s failed: %w", job.ID, err)
	}
	payload := fmt.Appendf(nil, `{"error":%q,"attempts":%d}`, summary, attempts)
	if err := e.store.AppendEvent(ctx, job.ID, domain.EventFailed, payload); err != nil {
		slog.WarnContext(ctx, "failed to append failed event", "job_id", job.ID, "error", err)
	}
	if hooks.OnFail != nil {
		hooks.OnFail(ctx, job.ID, handlerErr)
	}
	if hooks.OnEnd != nil {
		hooks.OnEnd(ctx, job.ID)
	}
	slog.WarnContext(ctx, "job exhausted retries", "job_id", job.ID, "attempts", attempts, "error", handlerErr)

	if _, err := e.store.MoveToDlq(ctx, job.ID, summary); err != nil {
		return fmt.Errorf("move job %s to dlq: %w", job.ID, err)
	}
	return nil
}
