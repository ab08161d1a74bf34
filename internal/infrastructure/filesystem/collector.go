// Package filesystem discovers and reads the source files a pack run
// operates on.
package filesystem

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/codetide/repopack/internal/application/ports"
	"github.com/codetide/repopack/internal/domain/errors"
	"github.com/codetide/repopack/internal/domain/metrics"
	"github.com/codetide/repopack/internal/infrastructure/logging"
)

// DefaultMaxFileSize caps how large a single file may be before it is
// skipped rather than packed.
const DefaultMaxFileSize = 1024 * 1024 // 1MB

// defaultIgnoreDirs are directory names never descended into.
var defaultIgnoreDirs = []string{
	".git", ".hg", ".svn", "node_modules", "vendor", "dist", "build", "target", "__pycache__",
}

// CollectorConfig controls file discovery.
type CollectorConfig struct {
	IgnorePatterns []string // path globs, matched against the relative path
	MaxFileSize    int64
	IncludeHidden  bool
}

// DefaultCollectorConfig returns sensible collection defaults.
func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		MaxFileSize: DefaultMaxFileSize,
	}
}

// Collector walks a root directory and reads every text file that survives
// filtering, in stable path order.
type Collector struct {
	config CollectorConfig
	logger *logging.Logger
}

// Ensure Collector implements ports.FileCollector.
var _ ports.FileCollector = (*Collector)(nil)

// NewCollector creates a collector.
func NewCollector(config CollectorConfig, logger *logging.Logger) *Collector {
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = DefaultMaxFileSize
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Collector{config: config, logger: logger}
}

// Collect returns the filtered files under root as {path, content} records.
// Paths are relative to root with forward slashes. At least one file must
// survive filtering.
func (c *Collector) Collect(ctx context.Context, root string) ([]metrics.FileRecord, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.NewError(errors.CodeValidation, "root directory not accessible", err)
	}
	if !info.IsDir() {
		return nil, errors.NewError(errors.CodeValidation, "root is not a directory", nil)
	}

	var files []metrics.FileRecord
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if c.skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if c.skipFile(rel, d) {
			return nil
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			c.logger.WarnContext(ctx, "file skipped: unreadable",
				"path", rel,
				"error", readErr,
			)
			return nil
		}
		if looksBinary(content) {
			c.logger.DebugContext(ctx, "file skipped: binary", "path", rel)
			return nil
		}

		files = append(files, metrics.FileRecord{Path: rel, Content: string(content)})
		return nil
	})
	if err != nil {
		return nil, errors.NewError(errors.CodeExecution, "file collection failed", err)
	}

	if len(files) == 0 {
		return nil, errors.NewError(errors.CodeValidation,
			"nothing to pack under "+root, errors.ErrNoFilesCollected)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	c.logger.InfoContext(ctx, "files collected",
		"root", root,
		"count", len(files),
	)
	return files, nil
}

func (c *Collector) skipDir(name string) bool {
	if !c.config.IncludeHidden && strings.HasPrefix(name, ".") {
		return true
	}
	for _, ignored := range defaultIgnoreDirs {
		if name == ignored {
			return true
		}
	}
	return false
}

func (c *Collector) skipFile(rel string, d fs.DirEntry) bool {
	name := filepath.Base(rel)
	if !c.config.IncludeHidden && strings.HasPrefix(name, ".") {
		return true
	}

	for _, pattern := range c.config.IgnorePatterns {
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}

	if info, err := d.Info(); err != nil || info.Size() > c.config.MaxFileSize {
		return true
	}
	return false
}

// looksBinary applies the usual null-byte sniff to the head of the content.
func looksBinary(content []byte) bool {
	head := content
	if len(head) > 8000 {
		head = head[:8000]
	}
	return bytes.IndexByte(head, 0) >= 0
}
