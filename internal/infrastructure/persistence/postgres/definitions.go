package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rezkam/mono/internal/domain"
)

// GetDefinition reads a job definition's policy row by its natural key.
func (s *Store) GetDefinition(ctx context.Context, key string, version int) (*domain.JobDefinition, error) {
	var d domain.JobDefinition
	err := s.pool.QueryRow(ctx, `
		SELECT key, version, default_max_attempts, timeout_seconds, concurrency_limit
		FROM job_definitions WHERE key = $1 AND version = $2`,
		key, version,
	).Scan(&d.Key, &d.Version, &d.DefaultMaxAttempts, &d.TimeoutSeconds, &d.ConcurrencyLimit)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s@%d", domain.ErrUnknownDefinition, key, version)
	}
	if err != nil {
		return nil, fmt.Errorf("get job definition %s@%d: %w", key, version, err)
	}
	return &d, nil
}

// PutDefinition registers or updates a job definition's policy row.
// Definitions are immutable once a job references them in spirit (spec
// §3: "to change timeout or concurrency policy, register a new version"),
// but operators may still correct a not-yet-used version's row, so this is
// an upsert rather than an insert-only call.
func (s *Store) PutDefinition(ctx context.Context, def domain.JobDefinition) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO job_definitions (key, version, default_max_attempts, timeout_seconds, concurrency_limit)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key, version) DO UPDATE SET
			default_max_attempts = EXCLUDED.default_max_attempts,
			timeout_seconds = EXCLUDED.timeout_seconds,
			concurrency_limit = EXCLUDED.concurrency_limit`,
		def.Key, def.Version, def.DefaultMaxAttempts, def.TimeoutSeconds, def.ConcurrencyLimit,
	)
	if err != nil {
		return fmt.Errorf("put job definition %s@%d: %w", def.Key, def.Version, err)
	}
	return nil
}
