package ports

import (
	"context"

	"github.com/codetide/repopack/internal/domain/job"
)

// GenerateParams are the parameters of an llms.txt generation request.
type GenerateParams struct {
	URL          string `json:"url"`
	MaxURLs      int    `json:"maxUrls,omitempty"`
	ShowFullText bool   `json:"showFullText,omitempty"`
}

// JobRunner drives a remote generation job from submission to a terminal
// state.
type JobRunner interface {
	// Submit starts a generation job and returns its identifier. Any
	// non-success HTTP status or application-level error fails immediately
	// with the server's message and status code attached; no retry happens
	// at this layer.
	Submit(ctx context.Context, params GenerateParams) (string, error)

	// PollStatus fetches the current snapshot of a job. HTTP 404 is a
	// fatal "job not found" failure.
	PollStatus(ctx context.Context, id string) (*job.Snapshot, error)

	// RunToCompletion submits and then polls on a fixed interval until the
	// job reaches a terminal state. A status outside the known enumeration
	// ends the loop with a protocol failure. No deadline is imposed here;
	// cancellation is the caller's context.
	RunToCompletion(ctx context.Context, params GenerateParams) (*job.Snapshot, error)
}

// JobHistory persists a local trace of submitted jobs for offline
// inspection.
type JobHistory interface {
	SaveSubmission(ctx context.Context, rec job.Record) error
	UpdateOutcome(ctx context.Context, rec job.Record) error
	Get(ctx context.Context, id string) (*job.Record, error)
	List(ctx context.Context, limit int) ([]job.Record, error)
	Close() error
}
