package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"
)

// Notifier listens on the job_available channel (populated by the
// notify_job_available trigger, see migrations/00001_jobserver_core.sql)
// and invokes onNotify whenever a job becomes claimable, so a Supervisor
// can wake immediately instead of waiting for its next poll tick.
// Grounded on the teacher's PostgresCoordinator.SubscribeToCancellations,
// rewritten as a reconnecting loop rather than a single subscription.
type Notifier struct {
	pool    *pgxpool.Pool
	channel string
	limiter *rate.Limiter
	logger  *slog.Logger
}

const JobAvailableChannel = "job_available"

// NewNotifier constructs a Notifier. The reconnect limiter throttles how
// often a broken LISTEN connection is retried, so a down database doesn't
// spin the reconnect loop.
func NewNotifier(pool *pgxpool.Pool, channel string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		pool:    pool,
		channel: channel,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		logger:  logger,
	}
}

// Listen blocks until ctx is cancelled, reconnecting and re-issuing LISTEN
// whenever the dedicated connection drops.
func (n *Notifier) Listen(ctx context.Context, onNotify func()) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := n.listenOnce(ctx, onNotify); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			n.logger.WarnContext(ctx, "notifier connection lost, reconnecting", "error", err)
			if waitErr := n.limiter.Wait(ctx); waitErr != nil {
				return ctx.Err()
			}
			continue
		}
	}
}

func (n *Notifier) listenOnce(ctx context.Context, onNotify func()) error {
	conn, err := n.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+n.channel); err != nil {
		return fmt.Errorf("listen on %s: %w", n.channel, err)
	}
	defer func() {
		_, _ = conn.Exec(context.Background(), "UNLISTEN "+n.channel)
	}()

	for {
		_, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return ctx.Err()
			}
			return fmt.Errorf("wait for notification: %w", err)
		}
		onNotify()
	}
}
