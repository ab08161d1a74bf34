package ports

import (
	"github.com/codetide/repopack/internal/domain/metrics"
)

// TokenCounter counts tokens for exactly one encoding, bound at construction.
//
// Count never fails: a fragment the underlying tokenizer cannot process is
// logged and counted as zero, so a metrics computation never aborts because
// one fragment is unencodable.
type TokenCounter interface {
	// Count returns the token count for one fragment.
	Count(fragment metrics.ContentFragment) metrics.FragmentTokenCount

	// Release frees the underlying tokenizer resources. It must be invoked
	// exactly once; counting after release is undefined.
	Release() error
}

// CounterRegistry owns one TokenCounter per encoding, created lazily on
// first use and released on Close. It replaces implicit process-global
// tokenizer state so tests can substitute a fake factory.
type CounterRegistry interface {
	// Counter returns the counter for the given encoding, creating it on
	// first use.
	Counter(encoding metrics.Encoding) (TokenCounter, error)

	// Close releases every counter the registry created. Safe to call more
	// than once; only the first call releases.
	Close() error
}
