// Package generate orchestrates remote llms.txt generation jobs: submit,
// poll to completion, and keep the local job history current along the way.
package generate

import (
	"context"
	"fmt"
	"time"

	"github.com/codetide/repopack/internal/application/ports"
	"github.com/codetide/repopack/internal/domain/errors"
	"github.com/codetide/repopack/internal/domain/job"
	"github.com/codetide/repopack/internal/infrastructure/logging"
	"github.com/codetide/repopack/internal/infrastructure/tracing"
)

// DefaultPollInterval is the fixed delay between status polls.
const DefaultPollInterval = 2 * time.Second

// StatusFunc is invoked after every poll with the observed status.
type StatusFunc func(status job.Status)

// Service drives a generation job while recording it in the local history.
// The remote protocol itself lives in the job runner; this layer adds
// bookkeeping around it.
type Service struct {
	runner       ports.JobRunner
	history      ports.JobHistory
	tracer       *tracing.Tracer
	logger       *logging.Logger
	pollInterval time.Duration
	onStatus     StatusFunc
}

// Option configures a Service.
type Option func(*Service)

// WithPollInterval overrides the poll interval. Intended for tests; the
// protocol contract is the default.
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithStatusFunc registers a callback invoked after each poll.
func WithStatusFunc(fn StatusFunc) Option {
	return func(s *Service) {
		s.onStatus = fn
	}
}

// NewService creates a generate service. history may be nil, in which case
// no local records are kept.
func NewService(runner ports.JobRunner, history ports.JobHistory, tracer *tracing.Tracer, logger *logging.Logger, opts ...Option) *Service {
	if tracer == nil {
		tracer = tracing.Default()
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		runner:       runner,
		history:      history,
		tracer:       tracer,
		logger:       logger,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run submits a generation job and polls until it reaches a terminal state.
// Submission and outcome are recorded in the history store when one is
// configured. No deadline is imposed; cancellation is the caller's context.
func (s *Service) Run(ctx context.Context, params ports.GenerateParams) (*job.Snapshot, error) {
	ctx, span := s.tracer.StartJobSpan(ctx, params.URL)

	id, err := s.runner.Submit(ctx, params)
	if err != nil {
		span.EndWithError(err)
		return nil, err
	}
	span.SetJobID(id)
	ctx = logging.WithJobID(ctx, id)

	s.recordSubmission(ctx, id, params.URL)

	polls := 0
	for {
		snapshot, err := s.runner.PollStatus(ctx, id)
		if err != nil {
			s.recordOutcome(ctx, id, job.StatusFailed, err.Error())
			span.SetPollCount(polls + 1)
			span.EndWithError(err)
			return nil, err
		}
		polls++

		if s.onStatus != nil {
			s.onStatus(snapshot.Status)
		}

		switch snapshot.Status {
		case job.StatusCompleted:
			s.recordOutcome(ctx, id, job.StatusCompleted, "")
			span.SetPollCount(polls)
			span.SetFinalStatus(string(snapshot.Status))
			span.End()
			return snapshot, nil

		case job.StatusFailed:
			msg := snapshot.Error
			if msg == "" {
				msg = "generation job failed"
			}
			s.recordOutcome(ctx, id, job.StatusFailed, msg)
			failErr := errors.NewError(errors.CodeRemote, msg, errors.ErrJobFailed)
			span.SetPollCount(polls)
			span.SetFinalStatus(string(snapshot.Status))
			span.EndWithError(failErr)
			return nil, failErr

		case job.StatusProcessing:
			s.logger.DebugContext(ctx, "job still processing")

		default:
			protoErr := errors.NewError(errors.CodeProtocol,
				fmt.Sprintf("unexpected job status %q", snapshot.Status),
				errors.ErrUnexpectedStatus)
			s.recordOutcome(ctx, id, job.StatusFailed, protoErr.Message)
			span.SetPollCount(polls)
			span.EndWithError(protoErr)
			return nil, protoErr
		}

		select {
		case <-ctx.Done():
			span.SetPollCount(polls)
			span.EndWithError(ctx.Err())
			return nil, ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
}

// Status fetches the current state of a job without polling.
func (s *Service) Status(ctx context.Context, id string) (*job.Snapshot, error) {
	return s.runner.PollStatus(ctx, id)
}

// History lists the most recent locally recorded jobs.
func (s *Service) History(ctx context.Context, limit int) ([]job.Record, error) {
	if s.history == nil {
		return nil, errors.NewError(errors.CodeConfig, "job history is disabled", nil)
	}
	return s.history.List(ctx, limit)
}

// Record fetches a single locally recorded job.
func (s *Service) Record(ctx context.Context, id string) (*job.Record, error) {
	if s.history == nil {
		return nil, errors.NewError(errors.CodeConfig, "job history is disabled", nil)
	}
	return s.history.Get(ctx, id)
}

// recordSubmission saves a freshly submitted job. History failures are
// logged, not fatal; the remote job is already running.
func (s *Service) recordSubmission(ctx context.Context, id, targetURL string) {
	if s.history == nil {
		return
	}
	err := s.history.SaveSubmission(ctx, job.Record{
		ID:          id,
		TargetURL:   targetURL,
		Status:      job.StatusProcessing,
		SubmittedAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to record job submission", "error", err.Error())
	}
}

// recordOutcome updates a job's terminal state in the history.
func (s *Service) recordOutcome(ctx context.Context, id string, status job.Status, errMsg string) {
	if s.history == nil {
		return
	}
	err := s.history.UpdateOutcome(ctx, job.Record{
		ID:          id,
		Status:      status,
		Error:       errMsg,
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to record job outcome", "error", err.Error())
	}
}
