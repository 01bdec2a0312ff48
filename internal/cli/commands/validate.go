package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/gcscan/pkg/config"
	"github.com/ccollicutt/gcscan/pkg/parser"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a gcscan configuration file without running analysis.

Checks:
  - YAML syntax
  - Runtime version and start_instant format
  - Thresholds, disabled finding codes and fail_on severity
  - Webhook URLs and triggers
  - Log source file existence (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Validating %s...\n", configPath)

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(w, "\nConfiguration valid!\n")
	fmt.Fprintf(w, "  Runtime version: %s\n", cfg.RuntimeVersion)
	fmt.Fprintf(w, "  Log sources:     %d pattern(s)\n", len(cfg.LogSources))
	fmt.Fprintf(w, "  Fail on:         %s\n", cfg.Rules.FailSeverity())
	if cfg.StartInstant != "" {
		fmt.Fprintf(w, "  Start instant:   %s\n", cfg.StartTime().Format(config.StartInstantLayout))
	}
	if cfg.JVMOptions != "" {
		fmt.Fprintf(w, "  JVM options:     %s\n", cfg.JVMOptions)
	}

	if codes := cfg.Rules.DisabledCodes(); len(codes) > 0 {
		fmt.Fprintf(w, "\nDisabled findings:\n")
		for _, code := range codes {
			fmt.Fprintf(w, "  - %s\n", code)
		}
	}

	if len(cfg.Webhooks) > 0 {
		fmt.Fprintf(w, "\nWebhooks:\n")
		for i, wh := range cfg.Webhooks {
			name := wh.Name
			if name == "" {
				name = wh.URL
			}
			fmt.Fprintf(w, "  %d. %s [%s]\n", i+1, name, wh.Trigger)
		}
	}

	// Missing captures are warnings; the command line may supply them.
	files, err := parser.ExpandGlobs(cfg.LogSources)
	if err != nil {
		fmt.Fprintf(w, "\nWarning: Error expanding log source patterns: %v\n", err)
	} else if len(files) == 0 {
		fmt.Fprintf(w, "\nWarning: No files match log source patterns\n")
	} else {
		fmt.Fprintf(w, "\nLog files matched: %d\n", len(files))
		for _, f := range files {
			fmt.Fprintf(w, "  - %s\n", f)
		}
		for _, f := range files {
			if f == parser.Stdin || parser.IsS3(f) {
				continue
			}
			if _, err := os.Stat(f); err != nil {
				fmt.Fprintf(w, "\nWarning: %s does not exist\n", f)
			}
		}
	}

	return nil
}
