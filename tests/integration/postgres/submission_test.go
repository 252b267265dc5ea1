package integration

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rezkam/mono/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertJob_UnknownDefinitionIsRejected(t *testing.T) {
	store, ctx := SetupTestStore(t)

	_, err := store.InsertJob(ctx, domain.InsertJobRequest{DefinitionKey: "does-not-exist", DefinitionVersion: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownDefinition)
}

func TestInsertJob_IdempotentResubmissionReturnsSameJob(t *testing.T) {
	store, ctx := SetupTestStore(t)
	RequireDefinition(t, ctx, store, domain.JobDefinition{Key: "echo", Version: 1, DefaultMaxAttempts: 1})

	key := uuid.Must(uuid.NewV7()).String()
	req := domain.InsertJobRequest{DefinitionKey: "echo", DefinitionVersion: 1, IdempotencyKey: &key}

	first, err := store.InsertJob(ctx, req)
	require.NoError(t, err)
	second, err := store.InsertJob(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

// TestInsertJob_ConcurrentIdempotentSubmissionsConverge exercises spec §5:
// N concurrent submissions with the same idempotency key produce exactly
// one row, and every caller observes the same job ID.
func TestInsertJob_ConcurrentIdempotentSubmissionsConverge(t *testing.T) {
	store, ctx := SetupTestStore(t)
	RequireDefinition(t, ctx, store, domain.JobDefinition{Key: "echo", Version: 1, DefaultMaxAttempts: 1})

	key := uuid.Must(uuid.NewV7()).String()
	req := domain.InsertJobRequest{DefinitionKey: "echo", DefinitionVersion: 1, IdempotencyKey: &key}

	const n = 10
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			job, err := store.InsertJob(ctx, req)
			require.NoError(t, err)
			ids[i] = job.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Equal(t, ids[0], ids[i])
	}
}

func TestInsertJob_RejectsOversizedIdempotencyKey(t *testing.T) {
	store, ctx := SetupTestStore(t)
	RequireDefinition(t, ctx, store, domain.JobDefinition{Key: "echo", Version: 1, DefaultMaxAttempts: 1})

	tooLong := make([]byte, domain.MaxIdempotencyKeyLen+1)
	for i := range tooLong {
		tooLong[i] = 'a'
	}
	key := string(tooLong)

	_, err := store.InsertJob(ctx, domain.InsertJobRequest{DefinitionKey: "echo", DefinitionVersion: 1, IdempotencyKey: &key})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestInsertJob_UsesDefinitionDefaultMaxAttemptsWhenUnset(t *testing.T) {
	store, ctx := SetupTestStore(t)
	RequireDefinition(t, ctx, store, domain.JobDefinition{Key: "echo", Version: 1, DefaultMaxAttempts: 5})

	job, err := store.InsertJob(ctx, domain.InsertJobRequest{DefinitionKey: "echo", DefinitionVersion: 1})
	require.NoError(t, err)
	assert.Equal(t, 5, job.MaxAttempts)
}
