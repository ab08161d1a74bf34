package ports

import (
	"context"

	"github.com/codetide/repopack/internal/domain/metrics"
	"github.com/codetide/repopack/internal/domain/pack"
)

// FileCollector discovers and reads the source files under a root
// directory, in a stable order.
type FileCollector interface {
	Collect(ctx context.Context, root string) ([]metrics.FileRecord, error)
}

// RenderOptions control how collected files are rendered into one artifact.
type RenderOptions struct {
	Style       pack.Style
	LineNumbers bool
	Header      string
}

// Renderer turns collected files into the final packed artifact text.
type Renderer interface {
	Render(files []metrics.FileRecord, opts RenderOptions) (string, error)
}
