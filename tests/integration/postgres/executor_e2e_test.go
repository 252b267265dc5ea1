package integration

import (
	"context"
	"testing"
	"time"

	"github.com/rezkam/mono/internal/demo"
	"github.com/rezkam/mono/internal/domain"
	"github.com/rezkam/mono/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExecutor_EchoJobSucceedsEndToEnd runs the echo scenario (spec §8)
// against a real Store: submit, claim, execute, observe success and the
// emitted event.
func TestExecutor_EchoJobSucceedsEndToEnd(t *testing.T) {
	store, ctx := SetupTestStore(t)
	RequireDefinition(t, ctx, store, demo.EchoDefinition)

	job, err := store.InsertJob(ctx, domain.InsertJobRequest{
		DefinitionKey:     demo.EchoDefinition.Key,
		DefinitionVersion: demo.EchoDefinition.Version,
		Params:            []byte(`{"hello":"world"}`),
	})
	require.NoError(t, err)

	claimed, err := store.ClaimOne(ctx, "worker-a", 60)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	executor := queue.NewExecutor(store, nil, queue.ExecutorConfig{
		LeaseSeconds:        60,
		CancelCheckInterval: time.Hour,
		Retry:               queue.DefaultRetryConfig(),
	}, queue.NewInProcessUnit())

	err = executor.Run(ctx, claimed, demo.EchoHandler, demo.EchoDefinition, queue.Hooks{})
	require.NoError(t, err)

	final, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusSucceeded, final.Status)

	events, err := store.GetEvents(ctx, job.ID)
	require.NoError(t, err)
	var eventTypes []domain.EventType
	for _, e := range events {
		eventTypes = append(eventTypes, e.EventType)
	}
	assert.Contains(t, eventTypes, domain.EventStarted)
	assert.Contains(t, eventTypes, domain.EventType("echoed"))
	assert.Contains(t, eventTypes, domain.EventSucceeded)
}

// TestExecutor_FailingJobExhaustsRetriesIntoDlq runs the failing scenario
// (spec §8) through every attempt until it lands in the dead-letter queue.
func TestExecutor_FailingJobExhaustsRetriesIntoDlq(t *testing.T) {
	store, ctx := SetupTestStore(t)
	def := domain.JobDefinition{Key: "failing-e2e", Version: 1, DefaultMaxAttempts: 2, TimeoutSeconds: 5}
	RequireDefinition(t, ctx, store, def)

	job, err := store.InsertJob(ctx, domain.InsertJobRequest{DefinitionKey: def.Key, DefinitionVersion: def.Version})
	require.NoError(t, err)

	executor := queue.NewExecutor(store, nil, queue.ExecutorConfig{
		LeaseSeconds:        60,
		CancelCheckInterval: time.Hour,
		Retry:               queue.RetryConfig{BaseSeconds: 0, MaxSeconds: 0, JitterRatio: 0},
	}, queue.NewInProcessUnit())

	for attempt := 0; attempt < def.DefaultMaxAttempts; attempt++ {
		claimed, err := store.ClaimOne(ctx, "worker-a", 60)
		require.NoError(t, err)
		require.NotNilf(t, claimed, "expected a claimable job on attempt %d", attempt)

		err = executor.Run(ctx, claimed, demo.FailingHandler, def, queue.Hooks{})
		require.NoError(t, err)
	}

	_, err = store.GetJob(ctx, job.ID)
	assert.ErrorIs(t, err, domain.ErrJobNotFound, "after exhausting retries the job should have moved to the DLQ")

	dlqList, err := store.ListDlq(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, dlqList, 1)
	assert.Equal(t, job.ID, dlqList[0].OriginalJobID)
}

// TestExecutor_CancelRequestedMidRunEndsCancelled runs the cancellation
// scenario (spec §8): a handler that cooperatively watches its AbortToken
// stops once RequestCancel flips cancel_requested_at, and the job ends in
// `cancelled` rather than being retried as an ordinary failure.
func TestExecutor_CancelRequestedMidRunEndsCancelled(t *testing.T) {
	store, ctx := SetupTestStore(t)
	def := domain.JobDefinition{Key: "cancel-e2e", Version: 1, DefaultMaxAttempts: 1, TimeoutSeconds: 30}
	RequireDefinition(t, ctx, store, def)

	job, err := store.InsertJob(ctx, domain.InsertJobRequest{DefinitionKey: def.Key, DefinitionVersion: def.Version})
	require.NoError(t, err)

	claimed, err := store.ClaimOne(ctx, "worker-a", 60)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	require.NoError(t, store.RequestCancel(ctx, job.ID))

	waitForAbort := func(runCtx context.Context, params []byte, hctx *queue.HandlerContext) error {
		<-hctx.Abort.Done()
		return queue.CancellationError{Err: hctx.Abort.Reason()}
	}

	executor := queue.NewExecutor(store, nil, queue.ExecutorConfig{
		LeaseSeconds:        60,
		CancelCheckInterval: 20 * time.Millisecond,
		Retry:               queue.DefaultRetryConfig(),
	}, queue.NewInProcessUnit())

	err = executor.Run(ctx, claimed, waitForAbort, def, queue.Hooks{})
	require.NoError(t, err)

	final, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCancelled, final.Status)
}
