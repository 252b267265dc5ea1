// Command scheduler runs the leader-elected cron evaluator (spec §4.7).
// Multiple instances may run concurrently for availability; only the
// lease holder does work on any given tick.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rezkam/mono/internal/config"
	"github.com/rezkam/mono/internal/infrastructure/persistence/postgres"
	"github.com/rezkam/mono/internal/queue"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "scheduler: %v\n", err)
		os.Exit(1)
	}
}

// noopWaker satisfies queue.Waker: the standalone scheduler process has no
// in-process Supervisor to wake, so enqueued jobs rely on the Notifier
// firing in the worker fleet's own process.
type noopWaker struct{}

func (noopWaker) Notify() {}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := postgres.NewPostgresStore(ctx, cfg.StorageDSN)
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	defer store.Close()

	workerID := cfg.WorkerID
	if workerID == "" {
		hostname, _ := os.Hostname()
		workerID = fmt.Sprintf("%s-%d", hostname, os.Getpid())
	}

	sched := queue.NewScheduler(store, noopWaker{}, queue.DefaultSchedulerConfig(workerID))

	slog.InfoContext(ctx, "scheduler started", "worker_id", workerID)
	err = sched.Run(ctx)
	if err != nil && ctx.Err() != nil {
		slog.InfoContext(ctx, "scheduler shut down")
		return nil
	}
	return err
}
