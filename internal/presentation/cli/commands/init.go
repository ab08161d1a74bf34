package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codetide/repopack/internal/infrastructure/config"
	"github.com/codetide/repopack/internal/presentation/cli/output"
)

// InitResult holds the result of the init command for JSON output.
type InitResult struct {
	ConfigDir   string `json:"config_dir"`
	ConfigFile  string `json:"config_file"`
	Initialized bool   `json:"initialized"`
}

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize repopack configuration",
		Long: `Initialize repopack configuration.

This command creates the ~/.repopack/ directory and writes a
config.yaml with default settings for packing, token metrics, the
remote generation API, and job history.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing configuration")

	return cmd
}

func runInit(force bool) error {
	format := output.FormatText
	if globalFlags.Output == "json" {
		format = output.FormatJSON
	}

	formatter := output.NewFormatter(
		output.WithFormat(format),
		output.WithColor(format != output.FormatJSON),
	)

	loader, err := config.NewLoader("")
	if err != nil {
		return fmt.Errorf("failed to create config loader: %w", err)
	}

	configPath := loader.DefaultConfigPath()

	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", configPath)
	}

	cfg := config.NewDefaultConfig()
	if err := loader.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	result := InitResult{
		ConfigDir:   loader.ConfigDir(),
		ConfigFile:  configPath,
		Initialized: true,
	}

	if format == output.FormatJSON {
		return formatter.JSON(result)
	}

	formatter.Success("Created %s", configPath)
	formatter.Println("")
	formatter.Info("Edit the file to set your remote API key and preferred defaults")
	return nil
}
