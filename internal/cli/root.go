// Package cli provides the command-line interface for gcscan.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/gcscan/internal/cli/commands"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	rootCmd := NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		// SilenceErrors keeps Cobra from printing this itself
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return commands.ExitError
	}
	return commands.ExitCode
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gcscan",
		Short: "Analyze JVM garbage collection logs",
		Long: `gcscan is a batch analysis tool for JVM garbage collection logs.

It reads logs written by Serial, Parallel, CMS, G1, Shenandoah and ZGC, from
runtime 6 through the unified logging of runtime 9 and later, and reports:
  - Collector configurations known to perform badly
  - Explicit System.gc() and diagnostic collections
  - Concurrent mode and evacuation failures
  - Pause and throughput thresholds crossed
  - Lines it could not recognize

Start with 'gcscan detect <gc.log>' to see how a log was written.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewAnalyzeCommand())
	rootCmd.AddCommand(commands.NewDetectCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
