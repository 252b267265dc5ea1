package domain

// DefinitionRef identifies a JobDefinition by its natural key: the
// registered handler name plus a version. Jobs carry a DefinitionRef so
// that changing a handler's behavior never rewrites history for jobs
// already queued under the old version.
type DefinitionRef struct {
	Key     string
	Version int
}

// JobDefinition is the policy row a Job's DefinitionRef points to.
// Immutable once a Job references it (spec §3): to change timeout or
// concurrency policy, register a new version.
type JobDefinition struct {
	Key     string
	Version int

	DefaultMaxAttempts int
	TimeoutSeconds     int
	// ConcurrencyLimit caps the number of jobs under this definition that
	// may be running at once across the whole worker fleet. 0 means
	// unlimited. Enforced best-effort by the Worker Supervisor (spec §4.3).
	ConcurrencyLimit int
}

// Ref returns this definition's identity as a DefinitionRef.
func (d JobDefinition) Ref() DefinitionRef {
	return DefinitionRef{Key: d.Key, Version: d.Version}
}
