package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReclaimer_WakesWakerOnlyWhenOrphansReclaimed(t *testing.T) {
	store := &fakeStore{
		reclaimOrphansFunc: func(ctx context.Context, leaseSeconds int) (int, error) {
			return 0, nil
		},
	}
	waker := &fakeWaker{}
	r := NewReclaimer(store, waker, 60)

	r.tick(context.Background())
	assert.Equal(t, 0, waker.notified)
}

func TestReclaimer_WakesWakerWhenOrphansFound(t *testing.T) {
	store := &fakeStore{
		reclaimOrphansFunc: func(ctx context.Context, leaseSeconds int) (int, error) {
			return 3, nil
		},
	}
	waker := &fakeWaker{}
	r := NewReclaimer(store, waker, 60)

	r.tick(context.Background())
	assert.Equal(t, 1, waker.notified)
}

func TestReclaimer_NoWakeOnError(t *testing.T) {
	store := &fakeStore{
		reclaimOrphansFunc: func(ctx context.Context, leaseSeconds int) (int, error) {
			return 0, assert.AnError
		},
	}
	waker := &fakeWaker{}
	r := NewReclaimer(store, waker, 60)

	r.tick(context.Background())
	assert.Equal(t, 0, waker.notified)
}
