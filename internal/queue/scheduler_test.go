package queue

import (
	"context"
	"testing"
	"time"

	"github.com/rezkam/mono/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWaker struct {
	notified int
}

func (w *fakeWaker) Notify() { w.notified++ }

func newSchedulerTestConfig() SchedulerConfig {
	return SchedulerConfig{WorkerID: "w1", TickInterval: time.Minute, LeaseDuration: 2 * time.Minute}
}

func TestScheduler_SkipsWorkWhenLeaseNotAcquired(t *testing.T) {
	var listCalled bool
	store := &fakeStore{
		tryAcquireLeaseFunc: func(ctx context.Context, runType, holderID string, leaseDuration time.Duration) (func(), bool, error) {
			return func() {}, false, nil
		},
		listEnabledSchedulesFunc: func(ctx context.Context) ([]domain.Schedule, error) {
			listCalled = true
			return nil, nil
		},
	}
	waker := &fakeWaker{}
	sched := NewScheduler(store, waker, newSchedulerTestConfig())

	err := sched.tick(context.Background())
	require.NoError(t, err)
	assert.False(t, listCalled, "a non-leader must never evaluate schedules")
	assert.Equal(t, 0, waker.notified)
}

func TestScheduler_EnqueuesDueSchedule(t *testing.T) {
	var inserted bool
	var markedEnqueued bool
	store := &fakeStore{
		listEnabledSchedulesFunc: func(ctx context.Context) ([]domain.Schedule, error) {
			return []domain.Schedule{
				{ID: "sched-1", CronExpression: "* * * * *", Definition: domain.DefinitionRef{Key: "echo", Version: 1}},
			}, nil
		},
		insertJobFunc: func(ctx context.Context, req domain.InsertJobRequest) (*domain.Job, error) {
			inserted = true
			return &domain.Job{ID: "new-job"}, nil
		},
		markScheduleEnqueuedFunc: func(ctx context.Context, scheduleID string, at time.Time) error {
			markedEnqueued = true
			return nil
		},
	}
	waker := &fakeWaker{}
	sched := NewScheduler(store, waker, newSchedulerTestConfig())

	err := sched.tick(context.Background())
	require.NoError(t, err)
	assert.True(t, inserted, "a schedule matching every minute should always be due")
	assert.True(t, markedEnqueued)
	assert.Equal(t, 1, waker.notified)
}

func TestScheduler_SkipsNotYetDueSchedule(t *testing.T) {
	var inserted bool
	justEnqueued := time.Now().UTC()
	// An expression that only fires once a year, just enqueued, is never
	// due again on the very next tick.
	store := &fakeStore{
		listEnabledSchedulesFunc: func(ctx context.Context) ([]domain.Schedule, error) {
			return []domain.Schedule{
				{ID: "sched-2", CronExpression: "0 0 1 1 *", LastEnqueuedAt: &justEnqueued},
			}, nil
		},
		insertJobFunc: func(ctx context.Context, req domain.InsertJobRequest) (*domain.Job, error) {
			inserted = true
			return &domain.Job{}, nil
		},
	}
	sched := NewScheduler(store, &fakeWaker{}, newSchedulerTestConfig())

	err := sched.tick(context.Background())
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestScheduler_SkipsInvalidCronExpression(t *testing.T) {
	var inserted bool
	store := &fakeStore{
		listEnabledSchedulesFunc: func(ctx context.Context) ([]domain.Schedule, error) {
			return []domain.Schedule{
				{ID: "sched-3", CronExpression: "not a cron expression"},
			}, nil
		},
		insertJobFunc: func(ctx context.Context, req domain.InsertJobRequest) (*domain.Job, error) {
			inserted = true
			return &domain.Job{}, nil
		},
	}
	sched := NewScheduler(store, &fakeWaker{}, newSchedulerTestConfig())

	err := sched.tick(context.Background())
	require.NoError(t, err)
	assert.False(t, inserted)
}
