package domain

import "time"

// JobEvent is one entry in a job's append-only event log (spec §3),
// ordered by insertion (sequence, then timestamp).
type JobEvent struct {
	JobID     string
	Sequence  int64
	EventType EventType
	At        time.Time
	Payload   []byte // opaque JSON, nil if the event carries no payload
}
