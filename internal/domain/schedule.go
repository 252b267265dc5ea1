package domain

import "time"

// Schedule is a cron row evaluated by the leader-elected Scheduler (spec
// §4.7) to enqueue jobs on a recurring basis.
type Schedule struct {
	ID             string
	Definition     DefinitionRef
	CronExpression string
	Params         []byte
	Priority       int32
	Enabled        bool
	LastEnqueuedAt *time.Time
}
