package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/gcscan/pkg/config"
	"github.com/ccollicutt/gcscan/pkg/detector"
	"github.com/ccollicutt/gcscan/pkg/event"
)

// DetectOptions holds command-line options for the detect command.
type DetectOptions struct {
	Output      string
	SampleSize  int
	ShowAll     bool
	WriteConfig string
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	opts := &DetectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <log-file>",
		Short: "Detect how a GC log was written",
		Long: `Sample the head of a garbage collection log and report how it was written.

Reports:
  - Line decoration (uptime, datestamps, unified logging)
  - Collector family (Serial, Parallel, CMS, G1, Shenandoah, ZGC)
  - Runtime version and the trigger vocabulary that fits it
  - Settings the log needs, such as start_instant for datestamp-only logs

Optionally generates a starter config file with --write-config.

Example:
  gcscan detect gc.log
  gcscan detect --sample 2000 gc.log.0
  gcscan detect --write-config gcscan.yaml gc.log`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().IntVarP(&opts.SampleSize, "sample", "n", detector.DefaultSampleSize, "Number of lines to sample")
	cmd.Flags().BoolVar(&opts.ShowAll, "all", false, "Show all detected decorations, not just the best match")
	cmd.Flags().StringVarP(&opts.WriteConfig, "write-config", "w", "", "Write starter config to file (will not overwrite)")

	return cmd
}

func runDetect(cmd *cobra.Command, args []string, opts *DetectOptions) error {
	logFile := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		return fmt.Errorf("log file not found: %s", logFile)
	}

	d := detector.New(detector.WithSampleSize(opts.SampleSize))

	result, err := d.DetectFromFile(ctx, logFile)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	w := cmd.OutOrStdout()

	if opts.WriteConfig != "" {
		if err := writeStarterConfig(w, result, logFile, opts.WriteConfig); err != nil {
			return err
		}
	}

	switch opts.Output {
	case "json":
		return outputDetectJSON(w, result, logFile, opts)
	default:
		return outputDetectText(w, result, logFile, opts)
	}
}

func outputDetectText(w io.Writer, result *detector.DetectionResult, logFile string, opts *DetectOptions) error {
	fmt.Fprintln(w, "=== GC Log Detection ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "File: %s\n", logFile)
	fmt.Fprintf(w, "Lines sampled: %d\n", result.SampledLines)
	fmt.Fprintf(w, "Events recognized: %d (%d unidentified)\n", result.Events, result.Unidentified)
	fmt.Fprintln(w)

	if result.Version != nil {
		fmt.Fprintf(w, "Runtime: %s\n", result.Version.Release)
	}
	fmt.Fprintf(w, "Collector: %s\n", collectorText(result))
	fmt.Fprintf(w, "Runtime version: %s\n", result.RuntimeVersion)
	if len(result.Options) > 0 {
		fmt.Fprintf(w, "Command line: %s\n", result.Options)
	}
	fmt.Fprintln(w)

	if !result.HasMatch() {
		fmt.Fprintln(w, "No line decoration detected.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Tip: The sample may hold only header lines, or the log was written")
		fmt.Fprintln(w, "without -XX:+PrintGCTimeStamps or -XX:+PrintGCDateStamps.")
	} else {
		best := result.BestMatch()
		fmt.Fprintf(w, "Decoration: %s\n", best.Decoration.Name)
		fmt.Fprintf(w, "Confidence: %.1f%% (%d/%d lines matched)\n",
			best.Confidence*100, best.MatchCount, result.SampledLines)
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Sample match:\n  %s\n", best.SampleLine)
		fmt.Fprintln(w)
	}

	for _, note := range result.Notes {
		fmt.Fprintf(w, "Note: %s\n", note)
	}
	if len(result.Notes) > 0 {
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "--- Configuration snippet (copy to your config file) ---")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "runtime_version: %s\n", result.RuntimeVersion)
	if best := result.BestMatch(); best != nil && best.Decoration.NeedsStart {
		fmt.Fprintf(w, "start_instant: \"%s\"\n", result.FirstDatestamp)
	}
	fmt.Fprintln(w)

	if opts.ShowAll && len(result.Decorations) > 1 {
		fmt.Fprintln(w, "--- Other decorations detected ---")
		for i, m := range result.Decorations[1:] {
			fmt.Fprintf(w, "%d. %s (%.1f%% confidence)\n", i+2, m.Decoration.Name, m.Confidence*100)
			fmt.Fprintf(w, "   pattern: '%s'\n", m.Decoration.PatternStr)
		}
		fmt.Fprintln(w)
	}

	return nil
}

func collectorText(result *detector.DetectionResult) string {
	if result.Collector != event.CollectorUnknown {
		return string(result.Collector)
	}
	if len(result.Collectors) > 1 {
		return fmt.Sprintf("ambiguous %v", result.Collectors)
	}
	return "unknown"
}

// JSONDecoration represents a decoration match in JSON output.
type JSONDecoration struct {
	Name       string  `json:"name"`
	Pattern    string  `json:"pattern"`
	Confidence float64 `json:"confidence"`
	MatchCount int     `json:"match_count"`
	SampleLine string  `json:"sample_line"`
	Unified    bool    `json:"unified,omitempty"`
	NeedsStart bool    `json:"needs_start_instant,omitempty"`
}

// JSONOutput represents the full JSON output.
type JSONOutput struct {
	File           string            `json:"file"`
	Decorations    []JSONDecoration  `json:"decorations"`
	SampledLines   int               `json:"sampled_lines"`
	ParsedLines    int               `json:"parsed_lines"`
	Events         int               `json:"events"`
	Unidentified   int               `json:"unidentified"`
	Collector      event.Collector   `json:"collector"`
	Collectors     []event.Collector `json:"collectors"`
	Release        string            `json:"release,omitempty"`
	RuntimeVersion string            `json:"runtime_version"`
	CommandLine    string            `json:"command_line,omitempty"`
	Notes          []string          `json:"notes,omitempty"`
}

func outputDetectJSON(w io.Writer, result *detector.DetectionResult, logFile string, opts *DetectOptions) error {
	out := JSONOutput{
		File:           logFile,
		SampledLines:   result.SampledLines,
		ParsedLines:    result.ParsedLines,
		Events:         result.Events,
		Unidentified:   result.Unidentified,
		Collector:      result.Collector,
		Collectors:     append([]event.Collector{}, result.Collectors...),
		RuntimeVersion: result.RuntimeVersion,
		CommandLine:    result.Options.String(),
		Notes:          result.Notes,
		Decorations:    make([]JSONDecoration, 0),
	}
	if result.Version != nil {
		out.Release = result.Version.Release
	}

	matches := result.Decorations
	if !opts.ShowAll && len(matches) > 1 {
		matches = matches[:1] // Only show best match
	}

	for _, m := range matches {
		out.Decorations = append(out.Decorations, JSONDecoration{
			Name:       m.Decoration.Name,
			Pattern:    m.Decoration.PatternStr,
			Confidence: m.Confidence,
			MatchCount: m.MatchCount,
			SampleLine: m.SampleLine,
			Unified:    m.Decoration.Unified,
			NeedsStart: m.Decoration.NeedsStart,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// writeStarterConfig generates a starter config file from the detection.
func writeStarterConfig(w io.Writer, result *detector.DetectionResult, logFile, configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s (will not overwrite)", configPath)
	}

	if result.Events == 0 {
		return fmt.Errorf("cannot generate config: no GC events recognized in the sample")
	}

	content, err := generateStarterConfig(result, logFile)
	if err != nil {
		return err
	}

	// #nosec G306 - config file doesn't need restrictive permissions
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(w, "Wrote starter config to: %s\n\n", configPath)
	return nil
}

// generateStarterConfig renders the suggested configuration as YAML under
// a short header.
func generateStarterConfig(result *detector.DetectionResult, logFile string) ([]byte, error) {
	absLogFile := logFile
	if abs, err := filepath.Abs(logFile); err == nil {
		absLogFile = abs
	}

	body, err := config.Marshal(result.SuggestConfig([]string{absLogFile}))
	if err != nil {
		return nil, err
	}

	decoration := "none"
	if best := result.BestMatch(); best != nil {
		decoration = fmt.Sprintf("%s (%.0f%% confidence)", best.Decoration.Name, best.Confidence*100)
	}

	header := fmt.Sprintf(`# gcscan configuration
# Generated by: gcscan detect
# Collector: %s
# Decoration: %s
#
# Add rotated captures oldest first, or use globs:
#   log_sources: [ "/var/log/app/gc.log.*" ]
`, collectorText(result), decoration)

	return append([]byte(header), body...), nil
}
