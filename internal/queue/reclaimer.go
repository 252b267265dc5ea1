package queue

import (
	"context"
	"log/slog"
	"time"
)

// Waker is the subset of Supervisor the reclaimer needs: a way to wake the
// claim loop once reclaimed jobs are back in queued. Defined as an
// interface here (consumer-owned) so reclaimer_test.go can fake it.
type Waker interface {
	Notify()
}

// Reclaimer runs the periodic orphan sweep of spec §4.6: every
// lease_duration, it restores running/cancelling jobs whose lease expired
// back to queued, and wakes idle workers when it finds any. This is the
// safety net for worker crashes, partitions, heartbeat-pump failures, and
// killed process-isolated children.
type Reclaimer struct {
	store        Store
	waker        Waker
	leaseSeconds int
	interval     time.Duration
}

// NewReclaimer builds a Reclaimer ticking every leaseSeconds.
func NewReclaimer(store Store, waker Waker, leaseSeconds int) *Reclaimer {
	return &Reclaimer{
		store:        store,
		waker:        waker,
		leaseSeconds: leaseSeconds,
		interval:     time.Duration(leaseSeconds) * time.Second,
	}
}

// Run ticks until ctx is cancelled.
func (r *Reclaimer) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Reclaimer) tick(ctx context.Context) {
	count, err := r.store.ReclaimOrphans(ctx, r.leaseSeconds)
	if err != nil {
		slog.ErrorContext(ctx, "orphan reclaim failed", "error", err)
		return
	}
	if count > 0 {
		slog.InfoContext(ctx, "reclaimed orphaned jobs", "count", count)
		r.waker.Notify()
	}
}
