package commands

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codetide/repopack/internal/domain/metrics"
	"github.com/codetide/repopack/internal/domain/pack"
	"github.com/codetide/repopack/internal/infrastructure/filesystem"
	"github.com/codetide/repopack/internal/presentation/cli/output"
)

// PackResult holds the pack command result for JSON output.
type PackResult struct {
	OutputPath      string         `json:"output_path"`
	TotalFiles      int            `json:"total_files"`
	TotalCharacters int            `json:"total_characters"`
	TotalTokens     int            `json:"total_tokens"`
	CorrelationID   string         `json:"correlation_id"`
	DurationMS      int64          `json:"duration_ms"`
	FileTokenCounts map[string]int `json:"file_token_counts,omitempty"`
}

// NewPackCmd creates the pack command.
func NewPackCmd() *cobra.Command {
	var (
		outPath     string
		style       string
		lineNumbers bool
		encoding    string
		watch       bool
		topFiles    int
	)

	cmd := &cobra.Command{
		Use:   "pack [directory]",
		Short: "Pack a repository into a single file with token metrics",
		Long: `Pack collects the source files under a directory, renders them into
one artifact (markdown, xml, or plain), and reports character and token
counts per file and for the combined output.

With --watch the pack is re-run whenever source files change.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			return runPack(cmd.Context(), root, outPath, style, lineNumbers, encoding, watch, topFiles)
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "O", "", "output file path (default from config)")
	cmd.Flags().StringVarP(&style, "style", "s", "", "output style: markdown, xml, plain (default from config)")
	cmd.Flags().BoolVarP(&lineNumbers, "line-numbers", "n", false, "prefix file content with line numbers")
	cmd.Flags().StringVarP(&encoding, "encoding", "e", "", "token encoding: o200k_base, cl100k_base (default from config)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-pack on source changes")
	cmd.Flags().IntVar(&topFiles, "top-files", 5, "number of largest files to show in the summary")

	return cmd
}

func runPack(ctx context.Context, root, outPath, style string, lineNumbers bool, encoding string, watch bool, topFiles int) error {
	container := GetContainer()
	formatter := GetFormatter()
	cfg := container.Config()

	if outPath == "" {
		outPath = cfg.Pack.Output
	}
	if style == "" {
		style = cfg.Pack.Style
	}
	if encoding == "" {
		encoding = cfg.Metrics.Encoding
	}
	if !lineNumbers {
		lineNumbers = cfg.Pack.LineNumbers
	}

	req := pack.Request{
		RootDir:     root,
		OutputPath:  outPath,
		Style:       pack.Style(style),
		LineNumbers: lineNumbers,
		Encoding:    metrics.Encoding(encoding),
	}

	if err := packOnce(ctx, req, formatter, topFiles); err != nil {
		return err
	}

	if !watch {
		return nil
	}

	return packWatch(ctx, req, formatter, topFiles)
}

// packOnce runs one pack and prints its report.
func packOnce(ctx context.Context, req pack.Request, formatter *output.Formatter, topFiles int) error {
	container := GetContainer()

	result, err := container.PackService().Run(ctx, req)
	if err != nil {
		return err
	}

	report := result.Report
	data := PackResult{
		OutputPath:      req.OutputPath,
		TotalFiles:      report.TotalFiles,
		TotalCharacters: report.TotalCharacters,
		TotalTokens:     report.TotalTokens,
		CorrelationID:   result.CorrelationID,
		DurationMS:      result.Duration.Milliseconds(),
		FileTokenCounts: report.FileTokenCounts,
	}

	if formatter.Format() == output.FormatJSON {
		return formatter.JSON(data)
	}

	formatter.Header("Pack Summary")
	formatter.Item("Output", req.OutputPath)
	formatter.Item("Total Files", fmt.Sprintf("%d", report.TotalFiles))
	formatter.Item("Total Characters", fmt.Sprintf("%d", report.TotalCharacters))
	formatter.Item("Total Tokens", fmt.Sprintf("%d", report.TotalTokens))
	formatter.Item("Duration", result.Duration.String())

	if topFiles > 0 && len(report.FileTokenCounts) > 0 {
		formatter.Println("")
		formatter.Header(fmt.Sprintf("Top %d Files by Token Count", topFiles))
		for _, entry := range topTokenFiles(report.FileTokenCounts, topFiles) {
			formatter.Item(entry.path, fmt.Sprintf("%d tokens", entry.tokens))
		}
	}

	formatter.Success("Packed %d files into %s", report.TotalFiles, req.OutputPath)
	return nil
}

// packWatch keeps re-running the pack on debounced file events until the
// process is interrupted.
func packWatch(ctx context.Context, req pack.Request, formatter *output.Formatter, topFiles int) error {
	watcher, err := filesystem.NewWatcher(filesystem.DefaultWatcherConfig())
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Watch(req.RootDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", req.RootDir, err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	formatter.Info("Watching %s for changes (Ctrl+C to stop)", req.RootDir)

	absOut, _ := filepath.Abs(req.OutputPath)

	for {
		select {
		case <-ctx.Done():
			formatter.Println("")
			formatter.Info("Watch stopped")
			return nil

		case event, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			// Writing our own artifact must not trigger another pack.
			if absEvent, err := filepath.Abs(event.Path); err == nil && absEvent == absOut {
				continue
			}

			formatter.Info("Change detected: %s", event.Path)
			if err := packOnce(ctx, req, formatter, topFiles); err != nil {
				formatter.Error("Re-pack failed: %v", err)
			}

		case err, ok := <-watcher.Errors():
			if !ok {
				return nil
			}
			formatter.Warning("Watcher error: %v", err)
		}
	}
}

type tokenEntry struct {
	path   string
	tokens int
}

// topTokenFiles returns the n files with the highest token counts, ties
// broken by path for stable output.
func topTokenFiles(counts map[string]int, n int) []tokenEntry {
	entries := make([]tokenEntry, 0, len(counts))
	for path, tokens := range counts {
		entries = append(entries, tokenEntry{path: path, tokens: tokens})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].tokens != entries[j].tokens {
			return entries[i].tokens > entries[j].tokens
		}
		return entries[i].path < entries[j].path
	})

	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
