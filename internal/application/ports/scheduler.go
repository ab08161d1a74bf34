package ports

import "context"

// CountTask is one unit of counting work executed on a pool worker.
type CountTask func(ctx context.Context) (int, error)

// CountFuture is the pending result of a submitted task. Wait blocks until
// the task finishes or ctx is done; a task failure is returned as-is, not
// retried.
type CountFuture interface {
	Wait(ctx context.Context) (int, error)
}

// CountScheduler executes counting tasks across a bounded set of workers.
// Submit must not block the caller beyond enqueue; if all workers are busy
// the task queues. Callers bound outstanding work through their own chunk
// count.
type CountScheduler interface {
	Submit(task CountTask) CountFuture
}

// SchedulerRegistry hands out process-wide schedulers keyed by task kind
// and concurrency, so unrelated task kinds never silently share a pool.
// Lifecycle is explicit: ShutdownAll drains the pools deterministically
// instead of relying on process exit.
type SchedulerRegistry interface {
	// Scheduler returns the pool for (kind, concurrency), creating it on
	// first use. Subsequent calls with the same key reuse the pool.
	Scheduler(kind string, concurrency int) CountScheduler

	// ShutdownAll stops every pool after in-flight tasks finish.
	ShutdownAll()
}
