// Command queueworker is the composition root for the worker fleet: it
// wires the Postgres Store, a Registry of job definitions, the Notifier,
// the Worker Supervisor, and the orphan Reclaimer, then runs until an
// interrupt or SIGTERM. It also serves as the process-isolation child
// entrypoint: re-exec'd with --run-job <job_id> by queue.ProcessUnit, it
// runs exactly one job and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rezkam/mono/internal/config"
	"github.com/rezkam/mono/internal/demo"
	"github.com/rezkam/mono/internal/env"
	"github.com/rezkam/mono/internal/infrastructure/persistence/postgres"
	"github.com/rezkam/mono/internal/observability"
	"github.com/rezkam/mono/internal/queue"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "queueworker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	runJob := flag.String("run-job", "", "run a single job by id and exit (process-isolation child mode)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	obsCfg, err := loadObservabilityConfig()
	if err != nil {
		return fmt.Errorf("load observability config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	lp, logger, err := observability.InitLogger(ctx, obsCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer shutdownWithTimeout(lp.Shutdown)
	slog.SetDefault(logger)

	tp, err := observability.InitTracerProvider(ctx, obsCfg)
	if err != nil {
		return fmt.Errorf("init tracer provider: %w", err)
	}
	defer shutdownWithTimeout(tp.Shutdown)

	mp, err := observability.InitMeterProvider(ctx, obsCfg)
	if err != nil {
		return fmt.Errorf("init meter provider: %w", err)
	}
	defer shutdownWithTimeout(mp.Shutdown)

	store, err := postgres.NewPostgresStore(ctx, cfg.StorageDSN)
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	defer store.Close()

	registry := queue.NewRegistry()
	demo.Register(registry)
	for _, def := range registry.Definitions() {
		if err := store.PutDefinition(ctx, def); err != nil {
			return fmt.Errorf("register definition %s@%d: %w", def.Key, def.Version, err)
		}
	}

	if *runJob != "" {
		return runSingleJob(ctx, store, registry, cfg, *runJob)
	}

	if cfg.WorkerID == "" {
		hostname, _ := os.Hostname()
		cfg.WorkerID = fmt.Sprintf("%s-%d", hostname, os.Getpid())
	}

	var unitFactory queue.ExecutionUnitFactory
	if cfg.ProcessIsolation {
		unitFactory = queue.NewProcessUnit(cfg.CancelGrace)
	} else {
		unitFactory = queue.NewInProcessUnit()
	}

	executor := queue.NewExecutor(store, nil, queue.ExecutorConfig{
		LeaseSeconds:        int(cfg.LeaseDuration.Seconds()),
		CancelCheckInterval: cfg.CancelCheckInterval,
		Retry:               cfg.RetryConfig(),
	}, unitFactory)

	supervisor := queue.NewSupervisor(store, registry, executor, queue.SupervisorConfig{
		WorkerID:      cfg.WorkerID,
		MaxConcurrent: cfg.MaxConcurrent,
		LeaseSeconds:  int(cfg.LeaseDuration.Seconds()),
		PollInterval:  cfg.PollInterval,
	})

	reclaimer := queue.NewReclaimer(store, supervisor, int(cfg.LeaseDuration.Seconds()))

	notifier := postgres.NewNotifier(store.Pool(), postgres.JobAvailableChannel, logger)

	go supervisor.Start(ctx)
	go reclaimer.Run(ctx)
	go func() {
		if err := notifier.Listen(ctx, supervisor.Notify); err != nil && ctx.Err() == nil {
			slog.ErrorContext(ctx, "notifier stopped unexpectedly", "error", err)
		}
	}()

	slog.InfoContext(ctx, "queueworker started",
		"worker_id", cfg.WorkerID, "max_concurrent", cfg.MaxConcurrent, "process_isolation", cfg.ProcessIsolation)

	<-ctx.Done()
	slog.InfoContext(ctx, "shutting down")
	supervisor.Stop()
	return nil
}

// runSingleJob is the process-isolation child path: look the claimed job up
// by id (already transitioned to running by the parent's ClaimOne) and run
// it to conclusion through the same Executor the parent would have used,
// in-process within this short-lived child.
func runSingleJob(ctx context.Context, store *postgres.Store, registry *queue.Registry, cfg *config.QueueConfig, jobID string) error {
	job, err := store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}

	handler, definition, ok := registry.Lookup(job.Definition)
	if !ok {
		return fmt.Errorf("no handler registered for %s@%d", job.Definition.Key, job.Definition.Version)
	}

	executor := queue.NewExecutor(store, nil, queue.ExecutorConfig{
		LeaseSeconds:        int(cfg.LeaseDuration.Seconds()),
		CancelCheckInterval: cfg.CancelCheckInterval,
		Retry:               cfg.RetryConfig(),
	}, queue.NewInProcessUnit())

	return executor.Run(ctx, job, handler, definition, queue.Hooks{})
}

func loadObservabilityConfig() (observability.Config, error) {
	oc := config.ObservabilityConfig{OTelEnabled: true}
	if err := env.Load(&oc); err != nil {
		return observability.Config{}, err
	}
	return observability.Config{
		Enabled:     oc.OTelEnabled,
		ServiceName: observability.DefaultServiceName,
	}, nil
}

func shutdownWithTimeout(shutdown func(context.Context) error) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "shutdown error", "error", err)
	}
}
