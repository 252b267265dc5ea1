package config

// ObservabilityConfig holds observability configuration.
type ObservabilityConfig struct {
	OTelEnabled bool `env:"JOBSERVER_OTEL_ENABLED" default:"true"`
}
