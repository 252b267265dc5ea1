package integration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryAcquireLease_SecondHolderBlockedUntilExpiry(t *testing.T) {
	store, ctx := SetupTestStore(t)

	release, acquired, err := store.TryAcquireLease(ctx, "cron-scheduler", "holder-a", 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, acquired)

	_, acquired, err = store.TryAcquireLease(ctx, "cron-scheduler", "holder-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired, "a second holder must not acquire a lease that hasn't expired")

	time.Sleep(75 * time.Millisecond)

	release2, acquired, err := store.TryAcquireLease(ctx, "cron-scheduler", "holder-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired, "the lease should be takeable once it has expired")

	release()
	release2()
}

func TestTryAcquireLease_SameHolderRenews(t *testing.T) {
	store, ctx := SetupTestStore(t)

	release, acquired, err := store.TryAcquireLease(ctx, "cron-scheduler", "holder-a", 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, acquired)

	_, acquired, err = store.TryAcquireLease(ctx, "cron-scheduler", "holder-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired, "the current holder should be able to renew its own lease")

	release()
}

func TestTryAcquireLease_ReleaseAllowsImmediateReacquire(t *testing.T) {
	store, ctx := SetupTestStore(t)

	release, acquired, err := store.TryAcquireLease(ctx, "cron-scheduler", "holder-a", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)
	release()

	_, acquired, err = store.TryAcquireLease(ctx, "cron-scheduler", "holder-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired, "releasing a lease should free it for another holder immediately")
}
