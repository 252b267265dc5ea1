package queue

import (
	"context"
	"time"

	"github.com/rezkam/mono/internal/domain"
)

// fakeStore is a function-field stand-in for Store, in the style of the
// teacher's mockRepository (internal/application/worker/worker_test.go):
// every method has an optional func field, and a harmless zero-value
// default when the test doesn't care about that call.
type fakeStore struct {
	insertJobFunc func(ctx context.Context, req domain.InsertJobRequest) (*domain.Job, error)
	claimOneFunc  func(ctx context.Context, workerID string, leaseSeconds int) (*domain.Job, error)
	heartbeatFunc func(ctx context.Context, jobID string, leaseSeconds int) error

	setStatusFunc         func(ctx context.Context, jobID string, status domain.JobStatus, errorSummary string) error
	incrementAttemptsFunc func(ctx context.Context, jobID string) (int, error)
	scheduleRetryFunc     func(ctx context.Context, jobID string, at time.Time) error
	requestCancelFunc     func(ctx context.Context, jobID string) error
	reclaimOrphansFunc    func(ctx context.Context, leaseSeconds int) (int, error)

	appendEventFunc func(ctx context.Context, jobID string, eventType domain.EventType, payload []byte) error
	getEventsFunc   func(ctx context.Context, jobID string) ([]domain.JobEvent, error)

	moveToDlqFunc func(ctx context.Context, jobID string, errorSummary string) (*domain.DlqJob, error)
	listDlqFunc   func(ctx context.Context, limit, offset int) ([]domain.DlqJob, error)
	getDlqFunc    func(ctx context.Context, dlqID string) (*domain.DlqJob, error)
	retryDlqFunc  func(ctx context.Context, dlqID string, maxAttemptsOverride *int) (*domain.Job, error)

	getJobFunc   func(ctx context.Context, jobID string) (*domain.Job, error)
	listJobsFunc func(ctx context.Context, status domain.JobStatus, limit, offset int) ([]domain.Job, error)

	getDefinitionFunc func(ctx context.Context, key string, version int) (*domain.JobDefinition, error)
	putDefinitionFunc func(ctx context.Context, def domain.JobDefinition) error

	listEnabledSchedulesFunc func(ctx context.Context) ([]domain.Schedule, error)
	markScheduleEnqueuedFunc func(ctx context.Context, scheduleID string, at time.Time) error

	tryAcquireLeaseFunc func(ctx context.Context, runType, holderID string, leaseDuration time.Duration) (func(), bool, error)
}

var _ Store = (*fakeStore)(nil)

func (f *fakeStore) InsertJob(ctx context.Context, req domain.InsertJobRequest) (*domain.Job, error) {
	if f.insertJobFunc != nil {
		return f.insertJobFunc(ctx, req)
	}
	return &domain.Job{}, nil
}

func (f *fakeStore) ClaimOne(ctx context.Context, workerID string, leaseSeconds int) (*domain.Job, error) {
	if f.claimOneFunc != nil {
		return f.claimOneFunc(ctx, workerID, leaseSeconds)
	}
	return nil, nil
}

func (f *fakeStore) Heartbeat(ctx context.Context, jobID string, leaseSeconds int) error {
	if f.heartbeatFunc != nil {
		return f.heartbeatFunc(ctx, jobID, leaseSeconds)
	}
	return nil
}

func (f *fakeStore) SetStatus(ctx context.Context, jobID string, status domain.JobStatus, errorSummary string) error {
	if f.setStatusFunc != nil {
		return f.setStatusFunc(ctx, jobID, status, errorSummary)
	}
	return nil
}

func (f *fakeStore) IncrementAttempts(ctx context.Context, jobID string) (int, error) {
	if f.incrementAttemptsFunc != nil {
		return f.incrementAttemptsFunc(ctx, jobID)
	}
	return 1, nil
}

func (f *fakeStore) ScheduleRetry(ctx context.Context, jobID string, at time.Time) error {
	if f.scheduleRetryFunc != nil {
		return f.scheduleRetryFunc(ctx, jobID, at)
	}
	return nil
}

func (f *fakeStore) RequestCancel(ctx context.Context, jobID string) error {
	if f.requestCancelFunc != nil {
		return f.requestCancelFunc(ctx, jobID)
	}
	return nil
}

func (f *fakeStore) ReclaimOrphans(ctx context.Context, leaseSeconds int) (int, error) {
	if f.reclaimOrphansFunc != nil {
		return f.reclaimOrphansFunc(ctx, leaseSeconds)
	}
	return 0, nil
}

func (f *fakeStore) AppendEvent(ctx context.Context, jobID string, eventType domain.EventType, payload []byte) error {
	if f.appendEventFunc != nil {
		return f.appendEventFunc(ctx, jobID, eventType, payload)
	}
	return nil
}

func (f *fakeStore) GetEvents(ctx context.Context, jobID string) ([]domain.JobEvent, error) {
	if f.getEventsFunc != nil {
		return f.getEventsFunc(ctx, jobID)
	}
	return nil, nil
}

func (f *fakeStore) MoveToDlq(ctx context.Context, jobID string, errorSummary string) (*domain.DlqJob, error) {
	if f.moveToDlqFunc != nil {
		return f.moveToDlqFunc(ctx, jobID, errorSummary)
	}
	return &domain.DlqJob{}, nil
}

func (f *fakeStore) ListDlq(ctx context.Context, limit, offset int) ([]domain.DlqJob, error) {
	if f.listDlqFunc != nil {
		return f.listDlqFunc(ctx, limit, offset)
	}
	return nil, nil
}

func (f *fakeStore) GetDlq(ctx context.Context, dlqID string) (*domain.DlqJob, error) {
	if f.getDlqFunc != nil {
		return f.getDlqFunc(ctx, dlqID)
	}
	return &domain.DlqJob{}, nil
}

func (f *fakeStore) RetryDlq(ctx context.Context, dlqID string, maxAttemptsOverride *int) (*domain.Job, error) {
	if f.retryDlqFunc != nil {
		return f.retryDlqFunc(ctx, dlqID, maxAttemptsOverride)
	}
	return &domain.Job{}, nil
}

func (f *fakeStore) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	if f.getJobFunc != nil {
		return f.getJobFunc(ctx, jobID)
	}
	return &domain.Job{ID: jobID}, nil
}

func (f *fakeStore) ListJobs(ctx context.Context, status domain.JobStatus, limit, offset int) ([]domain.Job, error) {
	if f.listJobsFunc != nil {
		return f.listJobsFunc(ctx, status, limit, offset)
	}
	return nil, nil
}

func (f *fakeStore) GetDefinition(ctx context.Context, key string, version int) (*domain.JobDefinition, error) {
	if f.getDefinitionFunc != nil {
		return f.getDefinitionFunc(ctx, key, version)
	}
	return &domain.JobDefinition{Key: key, Version: version}, nil
}

func (f *fakeStore) PutDefinition(ctx context.Context, def domain.JobDefinition) error {
	if f.putDefinitionFunc != nil {
		return f.putDefinitionFunc(ctx, def)
	}
	return nil
}

func (f *fakeStore) ListEnabledSchedules(ctx context.Context) ([]domain.Schedule, error) {
	if f.listEnabledSchedulesFunc != nil {
		return f.listEnabledSchedulesFunc(ctx)
	}
	return nil, nil
}

func (f *fakeStore) MarkScheduleEnqueued(ctx context.Context, scheduleID string, at time.Time) error {
	if f.markScheduleEnqueuedFunc != nil {
		return f.markScheduleEnqueuedFunc(ctx, scheduleID, at)
	}
	return nil
}

func (f *fakeStore) TryAcquireLease(ctx context.Context, runType, holderID string, leaseDuration time.Duration) (func(), bool, error) {
	if f.tryAcquireLeaseFunc != nil {
		return f.tryAcquireLeaseFunc(ctx, runType, holderID, leaseDuration)
	}
	return func() {}, true, nil
}
