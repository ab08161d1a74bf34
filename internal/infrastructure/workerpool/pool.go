// Package workerpool executes counting tasks across a bounded set of
// workers. It implements the application CountScheduler and
// SchedulerRegistry ports.
package workerpool

import (
	"context"
	"fmt"
	"sync"

	"github.com/codetide/repopack/internal/application/ports"
	"github.com/codetide/repopack/internal/domain/errors"
	"github.com/codetide/repopack/internal/infrastructure/logging"
)

// future is the pending result of one submitted task.
type future struct {
	done   chan struct{}
	result int
	err    error
}

// Wait blocks until the task finishes or ctx is done. Abandoning the wait
// does not cancel the task; it runs to completion on its worker.
func (f *future) Wait(ctx context.Context) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-f.done:
		return f.result, f.err
	}
}

// Pool runs tasks with at most `concurrency` executing at once. Submission
// never blocks beyond enqueue: excess tasks queue waiting for a free worker
// slot, with no queue-depth limit. A task failure or panic is delivered to
// the awaiting caller only; the pool keeps running.
type Pool struct {
	kind        string
	concurrency int
	sem         chan struct{}
	logger      *logging.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Ensure Pool implements ports.CountScheduler.
var _ ports.CountScheduler = (*Pool)(nil)

// NewPool creates a pool for one task kind with the given concurrency.
func NewPool(kind string, concurrency int, logger *logging.Logger) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Pool{
		kind:        kind,
		concurrency: concurrency,
		sem:         make(chan struct{}, concurrency),
		logger:      logger,
	}
}

// Submit enqueues one task and returns its future immediately.
func (p *Pool) Submit(task ports.CountTask) ports.CountFuture {
	f := &future{done: make(chan struct{})}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		f.err = errors.NewError(errors.CodeExecution,
			fmt.Sprintf("pool %q rejected task", p.kind), errors.ErrPoolShutDown)
		close(f.done)
		return f
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("worker task panicked",
					"pool", p.kind,
					"reason", fmt.Sprint(r),
				)
				f.result = 0
				f.err = errors.NewError(errors.CodeExecution,
					fmt.Sprintf("worker task panicked: %v", r), nil)
			}
		}()

		p.sem <- struct{}{}
		defer func() { <-p.sem }()

		f.result, f.err = task(context.Background())
	}()

	return f
}

// Shutdown stops accepting tasks and waits for in-flight work to finish.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
}

// poolKey identifies a pool by what it runs and how wide it runs.
// Keying by kind as well as concurrency keeps distinct task kinds from
// silently sharing a pool sized for someone else's workload.
type poolKey struct {
	kind        string
	concurrency int
}

// Registry hands out process-wide pools keyed by (kind, concurrency).
// The first request for a key creates the pool; later requests reuse it.
type Registry struct {
	logger *logging.Logger

	mu    sync.Mutex
	pools map[poolKey]*Pool
}

// Ensure Registry implements ports.SchedulerRegistry.
var _ ports.SchedulerRegistry = (*Registry)(nil)

// NewRegistry creates an empty pool registry.
func NewRegistry(logger *logging.Logger) *Registry {
	return &Registry{
		logger: logger,
		pools:  make(map[poolKey]*Pool),
	}
}

// Scheduler returns the pool for (kind, concurrency), creating it on first
// use.
func (r *Registry) Scheduler(kind string, concurrency int) ports.CountScheduler {
	if concurrency <= 0 {
		concurrency = 1
	}
	key := poolKey{kind: kind, concurrency: concurrency}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.pools[key]; ok {
		return p
	}
	p := NewPool(kind, concurrency, r.logger)
	r.pools[key] = p
	return p
}

// ShutdownAll drains every pool and forgets it. A registry can be reused
// after shutdown; new requests create fresh pools.
func (r *Registry) ShutdownAll() {
	r.mu.Lock()
	pools := make([]*Pool, 0, len(r.pools))
	for key, p := range r.pools {
		pools = append(pools, p)
		delete(r.pools, key)
	}
	r.mu.Unlock()

	for _, p := range pools {
		p.Shutdown()
	}
}
