// Package demo provides the reference job definitions used to exercise the
// system end to end (spec §8 scenarios): "echo", which simply sleeps and
// emits its input back as an event, and "failing", which always errors so
// the retry/DLQ path can be demonstrated and tested against a real
// registry rather than a fake one.
package demo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rezkam/mono/internal/domain"
	"github.com/rezkam/mono/internal/queue"
)

// EchoDefinition is a minimal, always-succeeding job definition.
var EchoDefinition = domain.JobDefinition{
	Key:                "echo",
	Version:            1,
	DefaultMaxAttempts: 1,
	TimeoutSeconds:     30,
}

// FailingDefinition always errors, to exercise the retry/DLQ path.
var FailingDefinition = domain.JobDefinition{
	Key:                "failing",
	Version:            1,
	DefaultMaxAttempts: 3,
	TimeoutSeconds:     30,
}

// EchoHandler sleeps briefly, emits the params it was given as an event,
// and succeeds.
func EchoHandler(ctx context.Context, params []byte, hctx *queue.HandlerContext) error {
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}
	return hctx.EmitEvent(ctx, "echoed", json.RawMessage(params))
}

// FailingHandler always returns an error.
func FailingHandler(ctx context.Context, params []byte, hctx *queue.HandlerContext) error {
	return errors.New("boom")
}

// Register adds both reference definitions to r.
func Register(r *queue.Registry) {
	r.Register(EchoDefinition, EchoHandler)
	r.Register(FailingDefinition, FailingHandler)
}
