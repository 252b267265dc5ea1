package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rezkam/mono/internal/domain"
)

// SupervisorConfig carries the knobs from spec §4.3/§6 governing the
// concurrency gauge and the fallback/reclaim wake-up timers.
type SupervisorConfig struct {
	WorkerID       string
	MaxConcurrent  int
	LeaseSeconds   int
	PollInterval   time.Duration
	ExecutorConfig ExecutorConfig
}

// Supervisor is the Dispatcher + Worker Supervisor of spec §4.3: it holds a
// bounded concurrency gauge, wakes on Notifier callbacks / fallback poll /
// orphan-reclaim signals / execution completion, and pulls jobs through
// ClaimOne until either slots or eligible jobs run out. Grounded on the
// teacher's worker.GenerationWorker run loop, generalized from "claim one
// job type" to "claim and dispatch across a Registry of definitions" and
// extended with the single-flight guard spec §5 requires.
type Supervisor struct {
	store    Store
	registry *Registry
	executor *Executor
	cfg      SupervisorConfig

	wake     chan struct{}
	slots    chan struct{}
	claiming singleflight.Group

	mu             sync.Mutex
	runningDef     map[domain.DefinitionRef]int
	throttledUntil map[domain.DefinitionRef]time.Time

	stop chan struct{}
	done chan struct{}
}

// NewSupervisor constructs a Supervisor. Call Start to begin pulling work
// and Stop for graceful shutdown.
func NewSupervisor(store Store, registry *Registry, executor *Executor, cfg SupervisorConfig) *Supervisor {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 10
	}
	return &Supervisor{
		store:          store,
		registry:       registry,
		executor:       executor,
		cfg:            cfg,
		wake:           make(chan struct{}, 1),
		slots:          make(chan struct{}, cfg.MaxConcurrent),
		runningDef:     make(map[domain.DefinitionRef]int),
		throttledUntil: make(map[domain.DefinitionRef]time.Time),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

// Notify wakes the supervisor's claim loop (called by the Notifier on
// job_available, and by the orphan reclaimer when it reclaims > 0 jobs).
func (s *Supervisor) Notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Start runs the wake-up loop until ctx is cancelled or Stop is called.
func (s *Supervisor) Start(ctx context.Context) {
	defer close(s.done)

	pollTicker := time.NewTicker(s.cfg.PollInterval)
	defer pollTicker.Stop()

	s.Notify() // pull immediately at startup
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-pollTicker.C:
			s.drain(ctx)
		case <-s.wake:
			s.drain(ctx)
		}
	}
}

// Stop signals the wake-up loop to exit and blocks until it does.
func (s *Supervisor) Stop() {
	close(s.stop)
	<-s.done
}

// drain runs one single-flighted claim pass: pull jobs while slots remain,
// until ClaimOne returns none. Concurrent wake-ups collapse into the
// in-flight pass (spec §5 "single-flight claim guard"); the pass re-checks
// after completing so a wake-up that arrives mid-pass is never lost.
func (s *Supervisor) drain(ctx context.Context) {
	_, _, _ = s.claiming.Do("claim", func() (any, error) {
		for {
			pulled := s.claimAndDispatchOne(ctx)
			if !pulled {
				return nil, nil
			}
		}
	})
}

// claimAndDispatchOne claims at most one job and, if one was claimed,
// dispatches it to a goroutine running the Executor. Returns false when no
// slot is free or no job was eligible.
func (s *Supervisor) claimAndDispatchOne(ctx context.Context) bool {
	select {
	case s.slots <- struct{}{}:
	default:
		return false // at max_concurrent
	}

	job, err := s.store.ClaimOne(ctx, s.cfg.WorkerID, s.cfg.LeaseSeconds)
	if err != nil {
		<-s.slots
		slog.ErrorContext(ctx, "claim failed", "error", err)
		return false
	}
	if job == nil {
		<-s.slots
		return false
	}

	handler, definition, ok := s.registry.Lookup(job.Definition)
	if !ok {
		<-s.slots
		slog.WarnContext(ctx, "claimed job for unknown definition", "job_id", job.ID, "definition_key", job.Definition.Key, "definition_version", job.Definition.Version)
		if err := s.store.SetStatus(ctx, job.ID, domain.JobStatusFailed, "unknown job definition"); err != nil {
			slog.ErrorContext(ctx, "failed to fail job with unknown definition", "job_id", job.ID, "error", err)
		}
		return true // a slot opened up immediately; keep pulling
	}

	if s.definitionThrottled(job.Definition) {
		<-s.slots
		if err := s.store.ScheduleRetry(ctx, job.ID, time.Now()); err != nil {
			slog.ErrorContext(ctx, "failed to requeue job for throttled definition", "job_id", job.ID, "error", err)
		}
		return false // this process is still sitting out the poll interval for this definition
	}

	if definition.ConcurrencyLimit > 0 && s.definitionAtCap(job.Definition, definition.ConcurrencyLimit) {
		<-s.slots
		// scheduled_at=now: the job stays genuinely eligible, including to any
		// other worker process's claim loop. The throttle below only stops
		// *this* process from re-pulling the same at-cap definition for one
		// poll interval, rather than making the job ineligible store-wide.
		if err := s.store.ScheduleRetry(ctx, job.ID, time.Now()); err != nil {
			slog.ErrorContext(ctx, "failed to defer job at concurrency cap", "job_id", job.ID, "error", err)
		}
		s.throttleDefinition(job.Definition)
		return false // stop pulling for this poll interval
	}

	s.incDefinition(job.Definition)
	go func() {
		defer func() {
			s.decDefinition(job.Definition)
			<-s.slots
			s.Notify() // a slot freed up; re-check for more work
		}()
		if err := s.executor.Run(ctx, job, handler, definition, Hooks{}); err != nil {
			slog.ErrorContext(ctx, "executor run failed", "job_id", job.ID, "error", err)
		}
	}()

	return true
}

func (s *Supervisor) definitionAtCap(ref domain.DefinitionRef, limit int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runningDef[ref] >= limit
}

// definitionThrottled reports whether this process is still sitting out the
// one-poll-interval pause it gave itself after last hitting ref's
// concurrency cap.
func (s *Supervisor) definitionThrottled(ref domain.DefinitionRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.throttledUntil[ref]
	return ok && time.Now().Before(until)
}

func (s *Supervisor) throttleDefinition(ref domain.DefinitionRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.throttledUntil[ref] = time.Now().Add(s.cfg.PollInterval)
}

func (s *Supervisor) incDefinition(ref domain.DefinitionRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runningDef[ref]++
}

func (s *Supervisor) decDefinition(ref domain.DefinitionRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runningDef[ref]--
	if s.runningDef[ref] <= 0 {
		delete(s.runningDef, ref)
	}
}
