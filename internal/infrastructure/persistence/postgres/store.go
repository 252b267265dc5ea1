package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rezkam/mono/internal/queue"
)

// Store provides the PostgreSQL implementation of queue.Store: the durable,
// transactional source of truth for jobs, events, the DLQ, definitions, and
// schedules. Split across jobs.go/events.go/dlq.go/definitions.go/
// schedules.go/leases.go by concern, mirroring the teacher's
// coordinator.go/worker_repository.go split — but written against raw pgx
// SQL rather than sqlc-generated code, since no sqlc toolchain or generated
// package was available to adapt (see DESIGN.md).
type Store struct {
	pool *pgxpool.Pool
}

// Compile-time verification that Store implements queue.Store.
var _ queue.Store = (*Store)(nil)

// NewStore creates a new PostgreSQL store with the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool returns the underlying connection pool, for the Notifier's dedicated
// LISTEN connection.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Close closes the database connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
