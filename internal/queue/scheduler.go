package queue

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rezkam/mono/internal/domain"
)

// SchedulerLeaseRunType is the well-known advisory-lease key every
// scheduler instance contends for (spec §4.7).
const SchedulerLeaseRunType = "cron-scheduler"

// SchedulerConfig controls leader-election timing and startup jitter.
// Grounded on the teacher's ReconciliationConfig (Interval, MaxStartupJitter,
// LeaseDuration).
type SchedulerConfig struct {
	WorkerID         string
	TickInterval     time.Duration // default 1 minute (spec's minimum granularity)
	LeaseDuration    time.Duration
	MaxStartupJitter time.Duration
}

// DefaultSchedulerConfig returns the spec-documented minute granularity with
// a lease comfortably longer than one tick.
func DefaultSchedulerConfig(workerID string) SchedulerConfig {
	return SchedulerConfig{
		WorkerID:         workerID,
		TickInterval:     time.Minute,
		LeaseDuration:    2 * time.Minute,
		MaxStartupJitter: 10 * time.Second,
	}
}

// Scheduler is the leader-elected cron evaluator of spec §4.7: on each tick,
// whichever process holds the advisory lease reads every enabled Schedule
// row, evaluates its cron expression against last_enqueued_at using
// robfig/cron's real next-fire computation (replacing the distilled "any
// matching minute" approximation — see the supplemented-features note this
// decision is grounded on), and enqueues a job when due.
type Scheduler struct {
	store  Store
	waker  Waker
	cfg    SchedulerConfig
	parser cron.Parser
}

// NewScheduler builds a Scheduler using the standard five-field cron parser
// (minute hour dom month dow), matching robfig/cron/v3's default dialect.
func NewScheduler(store Store, waker Waker, cfg SchedulerConfig) *Scheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	return &Scheduler{
		store:  store,
		waker:  waker,
		cfg:    cfg,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
	}
}

// Run starts the tick loop with jittered startup, until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.cfg.MaxStartupJitter > 0 {
		jitter := rand.N(s.cfg.MaxStartupJitter)
		timer := time.NewTimer(jitter)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	if err := s.tick(ctx); err != nil {
		slog.ErrorContext(ctx, "scheduler tick failed", "error", err)
	}

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.tick(ctx); err != nil {
				slog.ErrorContext(ctx, "scheduler tick failed", "error", err)
			}
		}
	}
}

// tick acquires the leader lease (a no-op if another instance holds it) and
// evaluates every enabled schedule exactly once.
func (s *Scheduler) tick(ctx context.Context) error {
	release, acquired, err := s.store.TryAcquireLease(ctx, SchedulerLeaseRunType, s.cfg.WorkerID, s.cfg.LeaseDuration)
	if err != nil {
		return fmt.Errorf("acquire scheduler lease: %w", err)
	}
	if !acquired {
		return nil
	}
	defer release()

	schedules, err := s.store.ListEnabledSchedules(ctx)
	if err != nil {
		return fmt.Errorf("list enabled schedules: %w", err)
	}

	now := time.Now().UTC()
	enqueued := 0
	for _, sched := range schedules {
		due, err := s.isDue(sched, now)
		if err != nil {
			slog.WarnContext(ctx, "invalid cron expression, skipping", "schedule_id", sched.ID, "cron", sched.CronExpression, "error", err)
			continue
		}
		if !due {
			continue
		}

		req := domain.InsertJobRequest{
			DefinitionKey:     sched.Definition.Key,
			DefinitionVersion: sched.Definition.Version,
			Params:            sched.Params,
			Priority:          sched.Priority,
		}
		if _, err := s.store.InsertJob(ctx, req); err != nil {
			slog.ErrorContext(ctx, "failed to enqueue scheduled job", "schedule_id", sched.ID, "error", err)
			continue
		}
		if err := s.store.MarkScheduleEnqueued(ctx, sched.ID, now); err != nil {
			slog.ErrorContext(ctx, "failed to mark schedule enqueued", "schedule_id", sched.ID, "error", err)
		}
		enqueued++
	}

	if enqueued > 0 {
		slog.InfoContext(ctx, "scheduler enqueued jobs", "count", enqueued)
		s.waker.Notify()
	}
	return nil
}

// isDue reports whether sched's cron expression has a fire time in
// (from, now], where from is last_enqueued_at or now-TickInterval,
// whichever is later. Fire times older than one tick are skipped, so a
// schedule fires at most once per tick and never bursts through missed
// history.
func (s *Scheduler) isDue(sched domain.Schedule, now time.Time) (bool, error) {
	expr, err := s.parser.Parse(sched.CronExpression)
	if err != nil {
		return false, err
	}

	from := now.Add(-s.cfg.TickInterval)
	if sched.LastEnqueuedAt != nil && sched.LastEnqueuedAt.After(from) {
		from = *sched.LastEnqueuedAt
	}

	next := expr.Next(from)
	return !next.After(now), nil
}
