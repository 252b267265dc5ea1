// Package integration holds Postgres-backed integration tests for the
// queue Store. They run only when JOBSERVER_STORAGE_DSN points at a
// reachable database; otherwise they skip, mirroring the teacher's
// SetupTestStore/GetTestStorageDSN pattern.
package integration

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rezkam/mono/internal/config"
	"github.com/rezkam/mono/internal/domain"
	"github.com/rezkam/mono/internal/infrastructure/persistence/postgres"
	"github.com/stretchr/testify/require"
)

// SetupTestStore initializes a PostgreSQL store against JOBSERVER_STORAGE_DSN,
// running migrations, and truncates every table after the test completes.
func SetupTestStore(t *testing.T) (*postgres.Store, context.Context) {
	t.Helper()

	pgURL := GetTestStorageDSN(t)
	ctx := context.Background()
	store, err := postgres.NewPostgresStore(ctx, pgURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		db, err := sql.Open("pgx", pgURL)
		if err == nil {
			_, _ = db.Exec("TRUNCATE TABLE jobs, job_events, jobs_dlq, schedules, leases, job_definitions CASCADE")
			_ = db.Close()
		}
		_ = store.Close()
	})

	return store, ctx
}

// GetTestStorageDSN returns the storage DSN for tests, skipping the test
// when it isn't configured.
func GetTestStorageDSN(t *testing.T) string {
	t.Helper()

	cfg, err := config.LoadTestConfig()
	if err != nil {
		t.Skipf("skipping: %v (set JOBSERVER_STORAGE_DSN to run Postgres integration tests)", err)
	}
	return cfg.StorageDSN
}

// RequireDefinition registers definition, failing the test on error. Most
// tests need at least one known definition for InsertJob to validate
// against.
func RequireDefinition(t *testing.T, ctx context.Context, store *postgres.Store, def domain.JobDefinition) {
	t.Helper()
	require.NoError(t, store.PutDefinition(ctx, def))
}
