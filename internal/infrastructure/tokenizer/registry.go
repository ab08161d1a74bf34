package tokenizer

import (
	"sync"

	"github.com/codetide/repopack/internal/application/ports"
	"github.com/codetide/repopack/internal/domain/errors"
	"github.com/codetide/repopack/internal/domain/metrics"
	"github.com/codetide/repopack/internal/infrastructure/logging"
)

// Factory creates a counter for one encoding. Tests substitute a fake.
type Factory func(encoding metrics.Encoding) (ports.TokenCounter, error)

// Registry owns one counter per encoding, created lazily on first use and
// released together on Close. It is the explicit home for what would
// otherwise be process-global tokenizer state.
type Registry struct {
	factory Factory

	mu       sync.Mutex
	counters map[metrics.Encoding]ports.TokenCounter
	closed   bool
	closeO   sync.Once
}

// Ensure Registry implements ports.CounterRegistry.
var _ ports.CounterRegistry = (*Registry)(nil)

// NewRegistry creates a registry backed by the given factory. A nil factory
// defaults to tiktoken-backed counters.
func NewRegistry(factory Factory, logger *logging.Logger) *Registry {
	if factory == nil {
		factory = func(encoding metrics.Encoding) (ports.TokenCounter, error) {
			return NewCounter(encoding, logger)
		}
	}
	return &Registry{
		factory:  factory,
		counters: make(map[metrics.Encoding]ports.TokenCounter),
	}
}

// Counter returns the counter for the given encoding, creating it on first
// use. Concurrent callers for the same encoding share one instance. A closed
// registry creates no new counters.
func (r *Registry) Counter(encoding metrics.Encoding) (ports.TokenCounter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errors.NewError(errors.CodeExecution,
			"counter registry is closed", errors.ErrCounterReleased)
	}

	if c, ok := r.counters[encoding]; ok {
		return c, nil
	}

	c, err := r.factory(encoding)
	if err != nil {
		return nil, err
	}
	r.counters[encoding] = c
	return c, nil
}

// Close releases every counter the registry created. Only the first call
// releases; later calls are no-ops.
func (r *Registry) Close() error {
	var firstErr error
	r.closeO.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.closed = true
		for encoding, c := range r.counters {
			if err := c.Release(); err != nil && firstErr == nil {
				firstErr = err
			}
			delete(r.counters, encoding)
		}
	})
	return firstErr
}
