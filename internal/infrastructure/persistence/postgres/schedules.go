package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/rezkam/mono/internal/domain"
)

// ListEnabledSchedules returns every enabled cron schedule, for the leader
// Scheduler to evaluate each tick (spec §4.7).
func (s *Store) ListEnabledSchedules(ctx context.Context) ([]domain.Schedule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, definition_key, definition_version, cron, params, priority, enabled, last_enqueued_at
		FROM schedules WHERE enabled ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list enabled schedules: %w", err)
	}
	defer rows.Close()

	var out []domain.Schedule
	for rows.Next() {
		var (
			sch            domain.Schedule
			params         []byte
			lastEnqueuedAt *time.Time
		)
		if err := rows.Scan(&sch.ID, &sch.Definition.Key, &sch.Definition.Version, &sch.CronExpression,
			&params, &sch.Priority, &sch.Enabled, &lastEnqueuedAt); err != nil {
			return nil, fmt.Errorf("scan schedule row: %w", err)
		}
		sch.Params = params
		sch.LastEnqueuedAt = lastEnqueuedAt
		out = append(out, sch)
	}
	return out, rows.Err()
}

// MarkScheduleEnqueued stamps a schedule's last_enqueued_at after the
// Scheduler inserts a job for it, so the next tick's catch-up window
// starts from here rather than re-firing the same interval (spec §4.7).
func (s *Store) MarkScheduleEnqueued(ctx context.Context, scheduleID string, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE schedules SET last_enqueued_at = $2 WHERE id = $1`,
		scheduleID, at,
	)
	if err != nil {
		return fmt.Errorf("mark schedule %s enqueued: %w", scheduleID, err)
	}
	return nil
}
