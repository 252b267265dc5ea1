package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// TryAcquireLease takes or renews an exclusive, table-backed advisory
// lease on runType (spec §4.7's leader-elected Scheduler). A row-per-
// run-type lock is used instead of PostgreSQL's session-scoped
// pg_advisory_lock because pgxpool hands callers a different physical
// connection on every acquisition, which would silently drop a
// session-scoped lock between calls. Grounded on the teacher's
// TryAcquireExclusiveRun upsert-with-holder-check pattern.
func (s *Store) TryAcquireLease(ctx context.Context, runType, holderID string, leaseDuration time.Duration) (func(), bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO leases (run_type, holder_id, expires_at)
		VALUES ($1, $2, now() + $3::interval)
		ON CONFLICT (run_type) DO UPDATE SET
			holder_id = EXCLUDED.holder_id,
			expires_at = EXCLUDED.expires_at
		WHERE leases.holder_id = $2 OR leases.expires_at < now()`,
		runType, holderID, leaseDuration.String(),
	)
	if err != nil {
		return nil, false, fmt.Errorf("acquire lease %s: %w", runType, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, false, nil
	}

	var released sync.Once
	release := func() {
		released.Do(func() {
			_, _ = s.pool.Exec(context.Background(), `
				DELETE FROM leases WHERE run_type = $1 AND holder_id = $2`,
				runType, holderID)
		})
	}
	return release, true, nil
}
