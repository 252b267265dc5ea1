package config

import (
	"fmt"
	"os"
)

// TestConfig holds the bare minimum configuration integration tests need.
// Mirrors the teacher's config.LoadTestConfig, which skips tests rather
// than failing the build when no test database is configured.
type TestConfig struct {
	StorageDSN string
}

// LoadTestConfig reads JOBSERVER_STORAGE_DSN for integration tests. Tests
// should t.Skip when this returns an error, exactly like
// tests/integration/postgres/testhelper.go does.
func LoadTestConfig() (*TestConfig, error) {
	dsn := os.Getenv("JOBSERVER_STORAGE_DSN")
	if dsn == "" {
		return nil, fmt.Errorf("JOBSERVER_STORAGE_DSN not set")
	}
	return &TestConfig{StorageDSN: dsn}, nil
}
