package pack

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	appmetrics "github.com/codetide/repopack/internal/application/metrics"
	"github.com/codetide/repopack/internal/application/ports"
	domainerrors "github.com/codetide/repopack/internal/domain/errors"
	"github.com/codetide/repopack/internal/domain/metrics"
	"github.com/codetide/repopack/internal/domain/pack"
	"github.com/codetide/repopack/internal/infrastructure/logging"
)

type fakeCollector struct {
	files []metrics.FileRecord
	err   error
	root  string
}

func (f *fakeCollector) Collect(_ context.Context, root string) ([]metrics.FileRecord, error) {
	f.root = root
	if f.err != nil {
		return nil, f.err
	}
	return f.files, nil
}

type fakeRenderer struct {
	output string
	err    error
	opts   ports.RenderOptions
}

func (f *fakeRenderer) Render(_ []metrics.FileRecord, opts ports.RenderOptions) (string, error) {
	f.opts = opts
	if f.err != nil {
		return "", f.err
	}
	return f.output, nil
}

type fakeCounter struct {
	err error
}

func (f *fakeCounter) Count(fragment metrics.ContentFragment) metrics.FragmentTokenCount {
	return metrics.FragmentTokenCount{Count: len(fragment.Content), Label: fragment.Label}
}

func (f *fakeCounter) Release() error { return nil }

type fakeCounterRegistry struct{}

func (f *fakeCounterRegistry) Counter(metrics.Encoding) (ports.TokenCounter, error) {
	return &fakeCounter{}, nil
}

func (f *fakeCounterRegistry) Close() error { return nil }

type inlineFuture struct {
	n   int
	err error
}

func (f inlineFuture) Wait(context.Context) (int, error) { return f.n, f.err }

type inlineScheduler struct{}

func (s inlineScheduler) Submit(task ports.CountTask) ports.CountFuture {
	n, err := task(context.Background())
	return inlineFuture{n: n, err: err}
}

type fakePools struct{}

func (f fakePools) Scheduler(string, int) ports.CountScheduler { return inlineScheduler{} }
func (f fakePools) ShutdownAll()                               {}

func newTestService(collector ports.FileCollector, renderer ports.Renderer) *Service {
	engine := appmetrics.NewEngine(&fakeCounterRegistry{}, fakePools{}, nil, nil)
	return NewService(collector, renderer, engine, nil, nil)
}

func TestService_Run(t *testing.T) {
	collector := &fakeCollector{files: []metrics.FileRecord{
		{Path: "a.go", Content: "package a\n"},
		{Path: "b.go", Content: "package b\n"},
	}}
	renderer := &fakeRenderer{output: "rendered artifact"}
	svc := newTestService(collector, renderer)

	dir := t.TempDir()
	outPath := filepath.Join(dir, "out", "pack.md")

	result, err := svc.Run(context.Background(), pack.Request{
		RootDir:     "/repo",
		OutputPath:  outPath,
		Style:       pack.StyleMarkdown,
		LineNumbers: true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if collector.root != "/repo" {
		t.Errorf("expected collector root /repo, got %q", collector.root)
	}
	if renderer.opts.Style != pack.StyleMarkdown || !renderer.opts.LineNumbers {
		t.Errorf("render options not forwarded: %+v", renderer.opts)
	}
	if result.Output != "rendered artifact" {
		t.Errorf("expected rendered output in result, got %q", result.Output)
	}
	if result.CorrelationID == "" {
		t.Error("expected a correlation id")
	}
	if result.Report == nil {
		t.Fatal("expected a metrics report")
	}
	if result.Report.TotalFiles != 2 {
		t.Errorf("expected 2 files in report, got %d", result.Report.TotalFiles)
	}
	if result.Report.TotalCharacters != len("rendered artifact") {
		t.Errorf("expected %d characters, got %d", len("rendered artifact"), result.Report.TotalCharacters)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read artifact: %v", err)
	}
	if string(data) != "rendered artifact" {
		t.Errorf("artifact content mismatch: %q", data)
	}
}

func TestService_Run_DefaultsStyleAndEncoding(t *testing.T) {
	collector := &fakeCollector{files: []metrics.FileRecord{{Path: "a.go", Content: "x"}}}
	renderer := &fakeRenderer{output: "out"}
	svc := newTestService(collector, renderer)

	result, err := svc.Run(context.Background(), pack.Request{RootDir: "/repo"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if renderer.opts.Style != pack.StyleMarkdown {
		t.Errorf("expected markdown default style, got %q", renderer.opts.Style)
	}
	if result.Report == nil {
		t.Error("expected report")
	}
}

func TestService_Run_LogsPackLabel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New(logging.Config{
		Level:  logging.LevelInfo,
		Format: logging.FormatText,
		Output: buf,
	})

	collector := &fakeCollector{files: []metrics.FileRecord{{Path: "a.go", Content: "package a\n"}}}
	renderer := &fakeRenderer{output: "rendered"}
	engine := appmetrics.NewEngine(&fakeCounterRegistry{}, fakePools{}, nil, nil)
	svc := NewService(collector, renderer, engine, nil, logger)

	if _, err := svc.Run(context.Background(), pack.Request{RootDir: "/repo"}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "pack_label=/repo") {
		t.Errorf("log output missing pack label: %s", out)
	}
	if !strings.Contains(out, "encoding="+string(metrics.DefaultEncoding)) {
		t.Errorf("log output missing encoding: %s", out)
	}
}

func TestService_Run_ValidationErrors(t *testing.T) {
	svc := newTestService(&fakeCollector{}, &fakeRenderer{})

	t.Run("missing root dir", func(t *testing.T) {
		_, err := svc.Run(context.Background(), pack.Request{Style: pack.StyleMarkdown})
		if err == nil {
			t.Fatal("expected error for missing root dir")
		}
		var repoErr *domainerrors.RepopackError
		if !stderrors.As(err, &repoErr) || repoErr.Code != domainerrors.CodeValidation {
			t.Errorf("expected VALIDATION error, got %v", err)
		}
	})

	t.Run("unknown style", func(t *testing.T) {
		_, err := svc.Run(context.Background(), pack.Request{RootDir: "/repo", Style: pack.Style("html")})
		if !stderrors.Is(err, domainerrors.ErrUnknownOutputStyle) {
			t.Errorf("expected ErrUnknownOutputStyle, got %v", err)
		}
	})
}

func TestService_Run_CollectFailureFailsRun(t *testing.T) {
	collectErr := domainerrors.NewError(domainerrors.CodeNotFound, "no files", domainerrors.ErrNoFilesCollected)
	svc := newTestService(&fakeCollector{err: collectErr}, &fakeRenderer{output: "x"})

	_, err := svc.Run(context.Background(), pack.Request{RootDir: "/repo"})
	if !stderrors.Is(err, domainerrors.ErrNoFilesCollected) {
		t.Errorf("expected collect error to propagate, got %v", err)
	}
}

func TestService_Run_RenderFailureFailsRun(t *testing.T) {
	renderErr := domainerrors.NewError(domainerrors.CodeValidation, "bad style", nil)
	svc := newTestService(&fakeCollector{files: []metrics.FileRecord{{Path: "a", Content: "x"}}}, &fakeRenderer{err: renderErr})

	_, err := svc.Run(context.Background(), pack.Request{RootDir: "/repo"})
	if err == nil || !strings.Contains(err.Error(), "bad style") {
		t.Errorf("expected render error to propagate, got %v", err)
	}
}

func TestService_Run_NoOutputPathSkipsWrite(t *testing.T) {
	collector := &fakeCollector{files: []metrics.FileRecord{{Path: "a.go", Content: "x"}}}
	svc := newTestService(collector, &fakeRenderer{output: "only in memory"})

	result, err := svc.Run(context.Background(), pack.Request{RootDir: "/repo"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Output != "only in memory" {
		t.Errorf("expected in-memory output, got %q", result.Output)
	}
}
