package queue

import (
	"context"
	"log/slog"

	"github.com/rezkam/mono/internal/domain"
)

// ErrorHandler processes job errors and panics for telemetry/alerting,
// ported from the teacher's worker.ErrorHandler (itself modeled on
// River's HandleError/HandlePanic split: river's docs are the origin of
// the pattern of giving panics their own always-dead-letter path).
type ErrorHandler interface {
	// HandleError is called whenever the handler returns a non-nil error
	// that was not a panic. Purely a telemetry hook: the retry/DLQ
	// decision is made by the Retry/DLQ engine regardless of the return
	// value here.
	HandleError(ctx context.Context, job *domain.Job, err error)

	// HandlePanic is called when a job panics, with the recovered value
	// and a captured stack trace.
	HandlePanic(ctx context.Context, job *domain.Job, panicVal any, stackTrace string)
}

// DefaultErrorHandler logs errors and panics with structured logging and
// does nothing else.
type DefaultErrorHandler struct{}

func (h DefaultErrorHandler) HandleError(ctx context.Context, job *domain.Job, err error) {
	slog.ErrorContext(ctx, "job failed",
		slog.String("job_id", job.ID),
		slog.String("definition_key", job.Definition.Key),
		slog.Int("attempts", job.Attempts),
		slog.String("error", err.Error()),
		slog.Bool("retryable", IsRetryable(err)),
	)
}

func (h DefaultErrorHandler) HandlePanic(ctx context.Context, job *domain.Job, panicVal any, stackTrace string) {
	slog.ErrorContext(ctx, "job panicked",
		slog.String("job_id", job.ID),
		slog.String("definition_key", job.Definition.Key),
		slog.Any("panic_value", panicVal),
		slog.String("stack_trace", stackTrace),
	)
}
