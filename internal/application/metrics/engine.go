// Package metrics provides the metrics engine that turns collected files and
// the rendered artifact into one size/usage report.
package metrics

import (
	"context"
	"fmt"
	"sync"

	"github.com/codetide/repopack/internal/application/ports"
	"github.com/codetide/repopack/internal/domain/errors"
	"github.com/codetide/repopack/internal/domain/metrics"
	"github.com/codetide/repopack/internal/infrastructure/logging"
	"github.com/codetide/repopack/internal/infrastructure/tracing"
)

const (
	// ParallelThreshold is the content size, in bytes, at which output-level
	// token counting switches from the sequential path to the worker pool.
	ParallelThreshold = 64 * 1024

	// ChunkCount is the fixed number of chunks large content is split into.
	// Parallelism is fixed, not chunk size: very large content means larger
	// chunks, not more of them.
	ChunkCount = 4

	// outputPoolKind keys the worker pool used for output-level counting.
	outputPoolKind = "output-token-count"
)

// Engine decides between sequential and worker-pool token counting, splits
// large content into chunks, and merges per-file and output-level results
// into one report.
type Engine struct {
	counters ports.CounterRegistry
	pools    ports.SchedulerRegistry
	tracer   *tracing.Tracer
	logger   *logging.Logger
}

// NewEngine creates a metrics engine.
func NewEngine(counters ports.CounterRegistry, pools ports.SchedulerRegistry, tracer *tracing.Tracer, logger *logging.Logger) *Engine {
	if tracer == nil {
		tracer = tracing.Default()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		counters: counters,
		pools:    pools,
		tracer:   tracer,
		logger:   logger,
	}
}

// ComputeOutputTokenCount counts tokens in the rendered output.
//
// Content at or below ParallelThreshold is counted inline on the calling
// goroutine; larger content is split into exactly ChunkCount contiguous
// chunks and counted on the worker pool, then summed. Tokens spanning a
// chunk boundary are counted once per side, so the parallel total can
// slightly exceed the sequential count.
func (e *Engine) ComputeOutputTokenCount(ctx context.Context, content string, encoding metrics.Encoding, label string) (int, error) {
	ctx, span := e.tracer.StartMetricsSpan(ctx, string(encoding), len(content))

	counter, err := e.counters.Counter(encoding)
	if err != nil {
		span.EndWithError(err)
		return 0, err
	}

	if len(content) <= ParallelThreshold {
		result := counter.Count(metrics.ContentFragment{
			Content:  content,
			Label:    label,
			Encoding: encoding,
		})
		span.SetParallel(false, 1)
		span.SetTokens(result.Count)
		span.End()
		return result.Count, nil
	}

	chunks := splitChunks(content, ChunkCount)
	span.SetParallel(true, len(chunks))
	scheduler := e.pools.Scheduler(outputPoolKind, ChunkCount)

	e.logger.DebugContext(ctx, "counting output tokens on worker pool",
		"label", label,
		"content_bytes", len(content),
		"chunks", len(chunks),
	)

	futures := make([]ports.CountFuture, len(chunks))
	for i, chunk := range chunks {
		fragment := metrics.ContentFragment{
			Content:  chunk,
			Label:    fmt.Sprintf("%s#chunk-%d", label, i),
			Encoding: encoding,
		}
		futures[i] = scheduler.Submit(func(context.Context) (int, error) {
			return counter.Count(fragment).Count, nil
		})
	}

	// Chunk results are summed as they complete; addition is commutative so
	// no ordering is required, only that every chunk is present.
	total := 0
	for i, f := range futures {
		n, err := f.Wait(ctx)
		if err != nil {
			countErr := errors.WithContext(
				errors.NewError(errors.CodeExecution, "output token counting failed", err),
				"chunk", i,
			)
			span.EndWithError(countErr)
			return 0, countErr
		}
		total += n
	}
	span.SetTokens(total)
	span.End()
	return total, nil
}

// BuildReport computes per-file metrics and the output-level token count
// concurrently and joins them into one report. Either failure fails the
// whole report; there is no partial result.
func (e *Engine) BuildReport(ctx context.Context, files []metrics.FileRecord, output string, encoding metrics.Encoding) (*metrics.Report, error) {
	report := metrics.NewReport()
	report.TotalFiles = len(files)
	report.TotalCharacters = len(output)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	wg.Add(2)

	go func() {
		defer wg.Done()
		charCounts, tokenCounts, err := e.countFiles(files, encoding)
		if err != nil {
			fail(err)
			return
		}
		mu.Lock()
		report.FileCharCounts = charCounts
		report.FileTokenCounts = tokenCounts
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		total, err := e.ComputeOutputTokenCount(ctx, output, encoding, "output")
		if err != nil {
			fail(err)
			return
		}
		mu.Lock()
		report.TotalTokens = total
		mu.Unlock()
	}()

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	e.logger.InfoContext(ctx, "metrics computed",
		"total_files", report.TotalFiles,
		"total_chars", report.TotalCharacters,
		"total_tokens", report.TotalTokens,
	)
	return report, nil
}

// countFiles aggregates per-file character and token counts, one map entry
// per file path.
func (e *Engine) countFiles(files []metrics.FileRecord, encoding metrics.Encoding) (map[string]int, map[string]int, error) {
	counter, err := e.counters.Counter(encoding)
	if err != nil {
		return nil, nil, err
	}

	charCounts := make(map[string]int, len(files))
	tokenCounts := make(map[string]int, len(files))
	for _, file := range files {
		charCounts[file.Path] = len(file.Content)
		tokenCounts[file.Path] = counter.Count(metrics.ContentFragment{
			Content:  file.Content,
			Label:    file.Path,
			Encoding: encoding,
		}).Count
	}
	return charCounts, tokenCounts, nil
}

// splitChunks slices content into exactly count contiguous, non-overlapping
// chunks of equal size. Integer division remainder lands in the final chunk,
// which may be shorter.
func splitChunks(content string, count int) []string {
	if count <= 1 || len(content) <= count {
		return []string{content}
	}

	chunkSize := (len(content) + count - 1) / count
	chunks := make([]string, 0, count)
	for start := 0; start < len(content); start += chunkSize {
		end := start + chunkSize
		if end > len(content) {
			end = len(content)
		}
		chunks = append(chunks, content[start:end])
	}
	return chunks
}
