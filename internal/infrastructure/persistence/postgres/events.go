package postgres

import (
	"context"
	"fmt"

	"github.com/rezkam/mono/internal/domain"
)

// AppendEvent appends one entry to a job's append-only event log.
func (s *Store) AppendEvent(ctx context.Context, jobID string, eventType domain.EventType, payload []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO job_events (job_id, event_type, payload) VALUES ($1, $2, $3)`,
		jobID, eventType, payload,
	)
	if err != nil {
		return fmt.Errorf("append event for job %s: %w", jobID, err)
	}
	return nil
}

// GetEvents returns a job's event log in append order.
func (s *Store) GetEvents(ctx context.Context, jobID string) ([]domain.JobEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT job_id, id, event_type, at, payload FROM job_events WHERE job_id = $1 ORDER BY id ASC`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("get events for job %s: %w", jobID, err)
	}
	defer rows.Close()

	var events []domain.JobEvent
	for rows.Next() {
		var e domain.JobEvent
		if err := rows.Scan(&e.JobID, &e.Sequence, &e.EventType, &e.At, &e.Payload); err != nil {
			return nil, fmt.Errorf("scan event row for job %s: %w", jobID, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
