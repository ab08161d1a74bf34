package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/codetide/repopack/internal/application/generate"
	"github.com/codetide/repopack/internal/application/ports"
	"github.com/codetide/repopack/internal/domain/job"
	"github.com/codetide/repopack/internal/presentation/cli/output"
)

// GenerateResult holds the generate command result for JSON output.
type GenerateResult struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	LLMsText     string `json:"llmstxt,omitempty"`
	LLMsFullText string `json:"llmsfulltxt,omitempty"`
	ExpiresAt    string `json:"expires_at,omitempty"`
}

// NewGenerateCmd creates the generate command.
func NewGenerateCmd() *cobra.Command {
	var (
		maxURLs  int
		fullText bool
		outPath  string
	)

	cmd := &cobra.Command{
		Use:   "generate <url>",
		Short: "Generate llms.txt for a site via the remote service",
		Long: `Generate submits an llms.txt generation job to the remote service and
polls every 2 seconds until the job completes or fails. Submitted jobs
are recorded in the local history; use "generate list" and
"generate status <id>" to inspect them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), args[0], maxURLs, fullText, outPath)
		},
	}

	cmd.Flags().IntVarP(&maxURLs, "max-urls", "m", 0, "maximum number of URLs to crawl (0 = server default)")
	cmd.Flags().BoolVarP(&fullText, "full-text", "f", false, "request llms-full.txt alongside llms.txt")
	cmd.Flags().StringVarP(&outPath, "out", "O", "", "write the generated llms.txt to a file instead of stdout")

	cmd.AddCommand(NewGenerateListCmd())
	cmd.AddCommand(NewGenerateStatusCmd())

	return cmd
}

func runGenerate(ctx context.Context, targetURL string, maxURLs int, fullText bool, outPath string) error {
	container := GetContainer()
	formatter := GetFormatter()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var spinner *output.Spinner
	opts := []generate.Option{}
	if formatter.Format() != output.FormatJSON {
		spinner = output.NewSpinner("submitting job")
		spinner.Start()
		opts = append(opts, generate.WithStatusFunc(func(status job.Status) {
			spinner.UpdateMessage(fmt.Sprintf("job %s", status))
		}))
	}

	svc := generate.NewService(
		container.JobRunner(),
		container.JobHistory(),
		container.Tracer(),
		container.Logger(),
		opts...,
	)

	snapshot, err := svc.Run(ctx, ports.GenerateParams{
		URL:          targetURL,
		MaxURLs:      maxURLs,
		ShowFullText: fullText,
	})
	if err != nil {
		if spinner != nil {
			spinner.StopWithError("generation failed")
		}
		return err
	}
	if spinner != nil {
		spinner.StopWithSuccess(fmt.Sprintf("job %s completed", snapshot.ID))
	}

	result := GenerateResult{
		ID:     snapshot.ID,
		Status: string(snapshot.Status),
	}
	if snapshot.Result != nil {
		result.LLMsText = snapshot.Result.LLMsText
		result.LLMsFullText = snapshot.Result.LLMsFullText
	}
	if !snapshot.ExpiresAt.IsZero() {
		result.ExpiresAt = snapshot.ExpiresAt.Format(time.RFC3339)
	}

	if outPath != "" && result.LLMsText != "" {
		if err := os.WriteFile(outPath, []byte(result.LLMsText), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", outPath, err)
		}
		formatter.Success("Wrote llms.txt to %s", outPath)
		if formatter.Format() == output.FormatJSON {
			return formatter.JSON(result)
		}
		return nil
	}

	if formatter.Format() == output.FormatJSON {
		return formatter.JSON(result)
	}

	formatter.Print("%s", result.LLMsText)
	if result.LLMsFullText != "" {
		formatter.Println("\n--- llms-full.txt ---")
		formatter.Print("%s", result.LLMsFullText)
	}
	return nil
}

// NewGenerateListCmd creates the generate list command.
func NewGenerateListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List locally recorded generation jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateList(cmd.Context(), limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "maximum number of jobs to show")

	return cmd
}

func runGenerateList(ctx context.Context, limit int) error {
	container := GetContainer()
	formatter := GetFormatter()

	svc := generate.NewService(container.JobRunner(), container.JobHistory(), container.Tracer(), container.Logger())

	records, err := svc.History(ctx, limit)
	if err != nil {
		return err
	}

	if formatter.Format() == output.FormatJSON {
		return formatter.JSON(records)
	}

	if len(records) == 0 {
		formatter.Info("No recorded jobs")
		return nil
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		completed := "-"
		if !rec.CompletedAt.IsZero() {
			completed = rec.CompletedAt.Local().Format("2006-01-02 15:04:05")
		}
		rows = append(rows, []string{
			rec.ID,
			rec.TargetURL,
			string(rec.Status),
			rec.SubmittedAt.Local().Format("2006-01-02 15:04:05"),
			completed,
		})
	}

	return formatter.Table(output.TableData{
		Columns: []output.TableColumn{
			{Header: "ID"},
			{Header: "URL"},
			{Header: "STATUS"},
			{Header: "SUBMITTED"},
			{Header: "COMPLETED"},
		},
		Rows: rows,
	})
}

// NewGenerateStatusCmd creates the generate status command.
func NewGenerateStatusCmd() *cobra.Command {
	var remoteCheck bool

	cmd := &cobra.Command{
		Use:   "status <id>",
		Short: "Show the status of a generation job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateStatus(cmd.Context(), args[0], remoteCheck)
		},
	}

	cmd.Flags().BoolVarP(&remoteCheck, "remote", "r", false, "query the remote service instead of the local history")

	return cmd
}

func runGenerateStatus(ctx context.Context, id string, remoteCheck bool) error {
	container := GetContainer()
	formatter := GetFormatter()

	svc := generate.NewService(container.JobRunner(), container.JobHistory(), container.Tracer(), container.Logger())

	if remoteCheck {
		snapshot, err := svc.Status(ctx, id)
		if err != nil {
			return err
		}

		if formatter.Format() == output.FormatJSON {
			result := GenerateResult{ID: snapshot.ID, Status: string(snapshot.Status)}
			if snapshot.Result != nil {
				result.LLMsText = snapshot.Result.LLMsText
				result.LLMsFullText = snapshot.Result.LLMsFullText
			}
			return formatter.JSON(result)
		}

		formatter.Header("Job Status (remote)")
		formatter.Item("ID", snapshot.ID)
		formatter.Item("Status", string(snapshot.Status))
		if snapshot.Error != "" {
			formatter.Item("Error", snapshot.Error)
		}
		return nil
	}

	rec, err := svc.Record(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("no local record for job %s", id)
	}

	if formatter.Format() == output.FormatJSON {
		return formatter.JSON(rec)
	}

	formatter.Header("Job Status")
	formatter.Item("ID", rec.ID)
	formatter.Item("URL", rec.TargetURL)
	formatter.Item("Status", string(rec.Status))
	formatter.Item("Submitted", rec.SubmittedAt.Local().Format(time.RFC3339))
	if !rec.CompletedAt.IsZero() {
		formatter.Item("Completed", rec.CompletedAt.Local().Format(time.RFC3339))
	}
	if rec.Error != "" {
		formatter.Item("Error", rec.Error)
	}
	return nil
}
