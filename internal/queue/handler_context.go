package queue

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/rezkam/mono/internal/domain"
)

// HandlerContext is what a registered Handler receives alongside the
// job's params (spec §4.4 step 4): a stable job ID, an AbortToken for
// cooperative cancellation, a structured logger, and EmitEvent to append
// arbitrary events to the job's log.
type HandlerContext struct {
	JobID  string
	Abort  domain.AbortToken
	Logger *slog.Logger

	store Store
}

// EmitEvent proxies AppendEvent for handler-defined event types, letting
// handlers record domain-specific progress (e.g. "batch_completed")
// alongside the core's started/heartbeat/succeeded/failed/cancelled
// events.
func (h *HandlerContext) EmitEvent(ctx context.Context, eventType string, payload any) error {
	var raw []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		raw = encoded
	}
	return h.store.AppendEvent(ctx, h.JobID, domain.EventType(eventType), raw)
}
