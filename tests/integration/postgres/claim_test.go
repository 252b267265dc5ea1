package integration

import (
	"sync"
	"testing"
	"time"

	"github.com/rezkam/mono/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClaimOne_NeverDoubleClaimsUnderConcurrency exercises invariant P1:
// two concurrent claimants never receive the same row, even with many
// workers racing against a small pool of queued jobs.
func TestClaimOne_NeverDoubleClaimsUnderConcurrency(t *testing.T) {
	store, ctx := SetupTestStore(t)
	RequireDefinition(t, ctx, store, domain.JobDefinition{Key: "echo", Version: 1, DefaultMaxAttempts: 1})

	const jobCount = 20
	for i := 0; i < jobCount; i++ {
		_, err := store.InsertJob(ctx, domain.InsertJobRequest{DefinitionKey: "echo", DefinitionVersion: 1})
		require.NoError(t, err)
	}

	const workerCount = 8
	var (
		mu      sync.Mutex
		claimed = make(map[string]int)
		wg      sync.WaitGroup
	)
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				job, err := store.ClaimOne(ctx, "worker", 60)
				require.NoError(t, err)
				if job == nil {
					return
				}
				mu.Lock()
				claimed[job.ID]++
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	assert.Len(t, claimed, jobCount, "every job should be claimed exactly once across all workers")
	for id, n := range claimed {
		assert.Equalf(t, 1, n, "job %s claimed %d times", id, n)
	}
}

// TestClaimOne_RespectsPriority exercises the priority half of P4: a
// higher priority job is claimed before a lower priority job queued
// earlier.
func TestClaimOne_RespectsPriority(t *testing.T) {
	store, ctx := SetupTestStore(t)
	RequireDefinition(t, ctx, store, domain.JobDefinition{Key: "echo", Version: 1, DefaultMaxAttempts: 1})

	low, err := store.InsertJob(ctx, domain.InsertJobRequest{DefinitionKey: "echo", DefinitionVersion: 1, Priority: 0})
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	high, err := store.InsertJob(ctx, domain.InsertJobRequest{DefinitionKey: "echo", DefinitionVersion: 1, Priority: 10})
	require.NoError(t, err)

	first, err := store.ClaimOne(ctx, "worker", 60)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, high.ID, first.ID, "higher priority job should claim first regardless of queue order")

	second, err := store.ClaimOne(ctx, "worker", 60)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, low.ID, second.ID)
}

// TestClaimOne_SkipsFutureScheduledJobs exercises the scheduled_at
// eligibility filter.
func TestClaimOne_SkipsFutureScheduledJobs(t *testing.T) {
	store, ctx := SetupTestStore(t)
	RequireDefinition(t, ctx, store, domain.JobDefinition{Key: "echo", Version: 1, DefaultMaxAttempts: 1})

	future := time.Now().Add(time.Hour)
	_, err := store.InsertJob(ctx, domain.InsertJobRequest{DefinitionKey: "echo", DefinitionVersion: 1, ScheduledAt: &future})
	require.NoError(t, err)

	job, err := store.ClaimOne(ctx, "worker", 60)
	require.NoError(t, err)
	assert.Nil(t, job, "a job scheduled in the future must not be eligible yet")
}

// TestClaimOne_SkipsCancelledQueuedJobs ensures a cancel request against a
// still-queued job makes it permanently ineligible rather than claimable.
func TestClaimOne_SkipsCancelledQueuedJobs(t *testing.T) {
	store, ctx := SetupTestStore(t)
	RequireDefinition(t, ctx, store, domain.JobDefinition{Key: "echo", Version: 1, DefaultMaxAttempts: 1})

	job, err := store.InsertJob(ctx, domain.InsertJobRequest{DefinitionKey: "echo", DefinitionVersion: 1})
	require.NoError(t, err)
	require.NoError(t, store.RequestCancel(ctx, job.ID))

	claimed, err := store.ClaimOne(ctx, "worker", 60)
	require.NoError(t, err)
	assert.Nil(t, claimed)

	got, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCancelled, got.Status)

	events, err := store.GetEvents(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, events, 1, "cancelling a queued job must record a cancelled event")
	assert.Equal(t, domain.EventCancelled, events[0].EventType)
	assert.Contains(t, string(events[0].Payload), "cancelled_while_queued")
}

func TestClaimOne_ReturnsNilWhenNothingEligible(t *testing.T) {
	store, ctx := SetupTestStore(t)
	job, err := store.ClaimOne(ctx, "worker", 60)
	require.NoError(t, err)
	assert.Nil(t, job)
}
