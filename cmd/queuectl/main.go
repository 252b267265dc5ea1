// Command queuectl is a small operator tool for the queue: list/retry
// dead-letter jobs and request cancellation, in the spirit of the
// teacher's cmd/apikey admin tool. Not a production-grade tool, just a
// convenience wrapper over the external API facade.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/rezkam/mono/internal/api"
	"github.com/rezkam/mono/internal/infrastructure/persistence/postgres"
)

func main() {
	pgURL := flag.String("postgres-url", os.Getenv("JOBSERVER_STORAGE_DSN"), "PostgreSQL connection URL")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}
	if *pgURL == "" {
		fmt.Println("Error: PostgreSQL URL must be provided via -postgres-url flag or JOBSERVER_STORAGE_DSN env var")
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := postgres.NewPostgresStore(ctx, *pgURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()

	svc := api.New(store, nil)

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "dlq-list":
		dlqList(ctx, svc, rest)
	case "dlq-get":
		dlqGet(ctx, svc, rest)
	case "dlq-retry":
		dlqRetry(ctx, svc, rest)
	case "cancel":
		cancelJob(ctx, svc, rest)
	case "events":
		events(ctx, svc, rest)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`queuectl - queue operator tool

Usage:
  queuectl -postgres-url <dsn> <command> [args]

Commands:
  dlq-list [limit] [offset]        list dead-letter jobs
  dlq-get <dlq_id>                 show one dead-letter snapshot
  dlq-retry <dlq_id> [max_attempts] re-submit a dead-letter job
  cancel <job_id>                  request cancellation of a job
  events <job_id>                  show a job's event log`)
}

func dlqList(ctx context.Context, svc *api.Service, args []string) {
	limit, offset := 50, 0
	if len(args) > 0 {
		limit = atoiOrExit(args[0])
	}
	if len(args) > 1 {
		offset = atoiOrExit(args[1])
	}
	jobs, err := svc.ListDlq(ctx, limit, offset)
	if err != nil {
		log.Fatalf("list dlq: %v", err)
	}
	for _, j := range jobs {
		fmt.Printf("%s\t%s@%d\tattempts=%d\tmoved=%s\terror=%q\n",
			j.ID, j.Definition.Key, j.Definition.Version, j.Attempts,
			j.MovedToDlqAt.Format(time.RFC3339), j.ErrorSummary)
	}
}

func dlqGet(ctx context.Context, svc *api.Service, args []string) {
	if len(args) < 1 {
		log.Fatal("usage: queuectl dlq-get <dlq_id>")
	}
	j, err := svc.GetDlq(ctx, args[0])
	if err != nil {
		log.Fatalf("get dlq: %v", err)
	}
	fmt.Printf("id=%s original_job_id=%s definition=%s@%d attempts=%d/%d error=%q params=%s\n",
		j.ID, j.OriginalJobID, j.Definition.Key, j.Definition.Version, j.Attempts, j.MaxAttempts,
		j.ErrorSummary, string(j.Params))
}

func dlqRetry(ctx context.Context, svc *api.Service, args []string) {
	if len(args) < 1 {
		log.Fatal("usage: queuectl dlq-retry <dlq_id> [max_attempts]")
	}
	var override *int
	if len(args) > 1 {
		v := atoiOrExit(args[1])
		override = &v
	}
	job, err := svc.RetryDlq(ctx, args[0], override)
	if err != nil {
		log.Fatalf("retry dlq: %v", err)
	}
	fmt.Printf("new job_id=%s status=%s\n", job.ID, job.Status)
}

func cancelJob(ctx context.Context, svc *api.Service, args []string) {
	if len(args) < 1 {
		log.Fatal("usage: queuectl cancel <job_id>")
	}
	if err := svc.Cancel(ctx, args[0]); err != nil {
		log.Fatalf("cancel: %v", err)
	}
	fmt.Println("cancel requested")
}

func events(ctx context.Context, svc *api.Service, args []string) {
	if len(args) < 1 {
		log.Fatal("usage: queuectl events <job_id>")
	}
	evs, err := svc.GetEvents(ctx, args[0])
	if err != nil {
		log.Fatalf("get events: %v", err)
	}
	for _, e := range evs {
		fmt.Printf("%s\t%s\t%s\n", e.At.Format(time.RFC3339), e.EventType, string(e.Payload))
	}
}

func atoiOrExit(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid integer %q: %v", s, err)
	}
	return n
}
