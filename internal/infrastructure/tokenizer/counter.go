// Package tokenizer provides token counting infrastructure using tiktoken.
// It implements the application TokenCounter and CounterRegistry ports.
package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/codetide/repopack/internal/application/ports"
	"github.com/codetide/repopack/internal/domain/errors"
	"github.com/codetide/repopack/internal/domain/metrics"
	"github.com/codetide/repopack/internal/infrastructure/logging"
)

// Counter counts tokens for one encoding using tiktoken-go. The encoding is
// bound at construction and never changes for the counter's lifetime.
type Counter struct {
	encoding metrics.Encoding
	encoder  *tiktoken.Tiktoken
	logger   *logging.Logger

	mu       sync.RWMutex
	released bool
	releaseO sync.Once
}

// Ensure Counter implements ports.TokenCounter.
var _ ports.TokenCounter = (*Counter)(nil)

// NewCounter creates a counter bound to the given encoding.
func NewCounter(encoding metrics.Encoding, logger *logging.Logger) (*Counter, error) {
	encoder, err := tiktoken.GetEncoding(string(encoding))
	if err != nil {
		return nil, errors.NewError(errors.CodeConfig,
			fmt.Sprintf("failed to load encoding %s: %v", encoding, err),
			errors.ErrEncodingUnknown)
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &Counter{
		encoding: encoding,
		encoder:  encoder,
		logger:   logger,
	}, nil
}

// Count returns the token count for one fragment.
//
// A fragment the encoder cannot process is logged and counted as zero so the
// enclosing metrics computation never aborts on a single fragment. That is a
// deliberate policy, not data loss: the diagnostic carries the fragment label.
func (c *Counter) Count(fragment metrics.ContentFragment) (result metrics.FragmentTokenCount) {
	result = metrics.FragmentTokenCount{Label: fragment.Label}

	if fragment.Content == "" {
		return result
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.released {
		c.logger.Warn("count after release returns zero",
			"encoding", string(c.encoding),
			"label", fragment.Label,
			"error", errors.ErrCounterReleased,
		)
		return result
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("fragment could not be tokenized, counted as zero",
				"encoding", string(c.encoding),
				"label", fragment.Label,
				"reason", r,
			)
			result = metrics.FragmentTokenCount{Label: fragment.Label}
		}
	}()

	tokens := c.encoder.Encode(fragment.Content, nil, nil)
	result.Count = len(tokens)
	return result
}

// Encoding returns the encoding this counter was bound to.
func (c *Counter) Encoding() metrics.Encoding {
	return c.encoding
}

// Release frees the underlying encoder. Only the first call releases;
// counting afterwards yields zero.
func (c *Counter) Release() error {
	c.releaseO.Do(func() {
		c.mu.Lock()
		c.released = true
		c.encoder = nil
		c.mu.Unlock()
	})
	return nil
}
