// Package pack orchestrates a full pack run: collect sources, render the
// artifact, compute token metrics, and write the result to disk.
package pack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	appmetrics "github.com/codetide/repopack/internal/application/metrics"
	"github.com/codetide/repopack/internal/application/ports"
	"github.com/codetide/repopack/internal/domain/errors"
	"github.com/codetide/repopack/internal/domain/metrics"
	"github.com/codetide/repopack/internal/domain/pack"
	"github.com/codetide/repopack/internal/infrastructure/logging"
	"github.com/codetide/repopack/internal/infrastructure/tracing"
)

// Service runs pack requests end to end.
type Service struct {
	collector ports.FileCollector
	renderer  ports.Renderer
	engine    *appmetrics.Engine
	tracer    *tracing.Tracer
	logger    *logging.Logger
}

// NewService creates a pack service.
func NewService(collector ports.FileCollector, renderer ports.Renderer, engine *appmetrics.Engine, tracer *tracing.Tracer, logger *logging.Logger) *Service {
	if tracer == nil {
		tracer = tracing.Default()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		collector: collector,
		renderer:  renderer,
		engine:    engine,
		tracer:    tracer,
		logger:    logger,
	}
}

// Run executes one pack request. The rendered artifact and its metrics
// report are produced together; a metrics failure fails the whole run.
func (s *Service) Run(ctx context.Context, req pack.Request) (*pack.Result, error) {
	start := time.Now()

	correlationID := uuid.NewString()
	ctx = logging.WithCorrelationID(ctx, correlationID)

	if req.RootDir == "" {
		return nil, errors.NewError(errors.CodeValidation, "root directory is required", nil)
	}
	style := req.Style
	if style == "" {
		style = pack.StyleMarkdown
	}
	if !style.Known() {
		return nil, errors.NewError(errors.CodeValidation,
			fmt.Sprintf("unknown output style %q", style), errors.ErrUnknownOutputStyle)
	}
	encoding := req.Encoding
	if encoding == "" {
		encoding = metrics.DefaultEncoding
	}

	ctx = logging.WithPackLabel(ctx, req.RootDir)
	ctx = logging.WithEncoding(ctx, string(encoding))

	ctx, span := s.tracer.StartPackSpan(ctx, req.RootDir, string(style))

	s.logger.InfoContext(ctx, "starting pack run",
		"root_dir", req.RootDir,
		"style", string(style),
	)

	files, err := s.collector.Collect(ctx, req.RootDir)
	if err != nil {
		span.EndWithError(err)
		return nil, err
	}
	span.SetFileCount(len(files))

	output, err := s.renderer.Render(files, ports.RenderOptions{
		Style:       style,
		LineNumbers: req.LineNumbers,
	})
	if err != nil {
		span.EndWithError(err)
		return nil, err
	}
	span.SetOutputSize(len(output))

	report, err := s.engine.BuildReport(ctx, files, output, encoding)
	if err != nil {
		span.EndWithError(err)
		return nil, err
	}
	span.SetTotalTokens(report.TotalTokens)

	if req.OutputPath != "" {
		if err := writeArtifact(req.OutputPath, output); err != nil {
			span.EndWithError(err)
			return nil, err
		}
	}

	result := &pack.Result{
		Files:         files,
		Output:        output,
		Report:        report,
		CorrelationID: correlationID,
		Duration:      time.Since(start),
	}

	s.logger.InfoContext(ctx, "pack run completed",
		"files", report.TotalFiles,
		"total_tokens", report.TotalTokens,
		"duration", result.Duration.String(),
	)
	span.End()

	return result, nil
}

// writeArtifact writes the rendered output to path, creating parent
// directories as needed.
func writeArtifact(path string, output string) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.NewError(errors.CodeExecution,
				fmt.Sprintf("failed to create output directory %s", dir), err)
		}
	}

	if err := os.WriteFile(path, []byte(output), 0644); err != nil {
		return errors.NewError(errors.CodeExecution,
			fmt.Sprintf("failed to write output file %s", path), err)
	}

	return nil
}
