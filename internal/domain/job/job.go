// Package job provides domain types for remote generation jobs.
package job

import "time"

// Status is the server-reported state of a generation job.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Known reports whether s is one of the statuses the protocol enumerates.
// A poll returning anything else terminates the client loop with a distinct
// protocol failure instead of looping forever.
func (s Status) Known() bool {
	switch s {
	case StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is expected from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Result is the payload of a completed generation job.
type Result struct {
	LLMsText     string
	LLMsFullText string
}

// Snapshot is the read-only projection of a job the client observes on each
// poll. The job record itself lives server-side.
type Snapshot struct {
	ID        string
	Status    Status
	Result    *Result
	Error     string
	ExpiresAt time.Time
}

// Record is a locally persisted trace of a submitted job, kept so job
// history can be inspected without the remote service.
type Record struct {
	ID          string
	TargetURL   string
	Status      Status
	Error       string
	SubmittedAt time.Time
	CompletedAt time.Time
}
