package config

import (
	"fmt"
	"time"

	"github.com/rezkam/mono/internal/env"
	"github.com/rezkam/mono/internal/queue"
)

// QueueConfig holds every configuration item enumerated in spec §6, each
// with the documented default and env var name. Mirrors the teacher's
// config.WorkerConfig / config.Config split: defaults are applied before
// env.Load runs, since env.Load leaves unset fields untouched.
type QueueConfig struct {
	StorageDSN string `env:"JOBSERVER_STORAGE_DSN"`

	MaxConcurrent       int           `env:"JOBSERVER_MAX_CONCURRENT"`
	LeaseDuration       time.Duration `env:"JOBSERVER_LEASE_DURATION"`
	HeartbeatInterval   time.Duration `env:"JOBSERVER_HEARTBEAT_INTERVAL"`
	CancelGrace         time.Duration `env:"JOBSERVER_CANCEL_GRACE"`
	PollInterval        time.Duration `env:"JOBSERVER_POLL_INTERVAL"`
	CancelCheckInterval time.Duration `env:"JOBSERVER_CANCEL_CHECK_INTERVAL"`

	BackoffBaseSeconds float64 `env:"JOBSERVER_BACKOFF_BASE_SECONDS"`
	BackoffMaxSeconds  float64 `env:"JOBSERVER_BACKOFF_MAX_SECONDS"`
	BackoffJitter      float64 `env:"JOBSERVER_BACKOFF_JITTER"`

	WorkerID         string `env:"JOBSERVER_WORKER_ID"`
	ProcessIsolation bool   `env:"JOBSERVER_PROCESS_ISOLATION"`
}

// Default returns the spec §6 defaults. WorkerID is left for the caller
// to fill in (e.g. hostname-pid-uuid), matching the teacher's
// WorkerConfig.WorkerID convention.
func Default() QueueConfig {
	return QueueConfig{
		MaxConcurrent:       10,
		LeaseDuration:       60 * time.Second,
		HeartbeatInterval:   10 * time.Second,
		CancelGrace:         5 * time.Second,
		PollInterval:        60 * time.Second,
		CancelCheckInterval: time.Second,
		BackoffBaseSeconds:  1,
		BackoffMaxSeconds:   3600,
		BackoffJitter:       0.3,
	}
}

// Load applies Default() and overlays environment variables on top.
func Load() (*QueueConfig, error) {
	cfg := Default()
	if err := env.Load(&cfg); err != nil {
		return nil, fmt.Errorf("failed to load queue config: %w", err)
	}
	return &cfg, nil
}

// Validate implements env.Validator.
func (c *QueueConfig) Validate() error {
	if c.StorageDSN == "" {
		return fmt.Errorf("JOBSERVER_STORAGE_DSN is required")
	}
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("JOBSERVER_MAX_CONCURRENT must be positive, got %d", c.MaxConcurrent)
	}
	if c.HeartbeatInterval*2 >= c.LeaseDuration {
		return fmt.Errorf("JOBSERVER_HEARTBEAT_INTERVAL (%s) should be less than half JOBSERVER_LEASE_DURATION (%s)", c.HeartbeatInterval, c.LeaseDuration)
	}
	return nil
}

// RetryConfig projects the backoff fields into a queue.RetryConfig.
func (c *QueueConfig) RetryConfig() queue.RetryConfig {
	return queue.RetryConfig{
		BaseSeconds: c.BackoffBaseSeconds,
		MaxSeconds:  c.BackoffMaxSeconds,
		JitterRatio: c.BackoffJitter,
	}
}
