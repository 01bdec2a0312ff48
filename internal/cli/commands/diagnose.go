package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ccollicutt/gcscan/pkg/analyzer"
	"github.com/ccollicutt/gcscan/pkg/config"
	"github.com/ccollicutt/gcscan/pkg/detector"
	"github.com/ccollicutt/gcscan/pkg/event"
	"github.com/ccollicutt/gcscan/pkg/finding"
	"github.com/ccollicutt/gcscan/pkg/jvm"
	"github.com/ccollicutt/gcscan/pkg/matcher"
	"github.com/ccollicutt/gcscan/pkg/parser"

	"github.com/spf13/cobra"
)

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	Verbose bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose <config-file>",
		Short: "Diagnose common configuration issues",
		Long: `Diagnose common configuration issues.

This command checks your configuration file against the logs it names:
- Config file syntax and structure
- Log source file existence and accessibility
- Runtime version, start_instant and jvm_options against the first capture
- Disabled findings and threshold settings

Example:
  gcscan diagnose gcscan.yaml
  gcscan diagnose -v gcscan.yaml  # verbose output`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runDiagnose(ctx, cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, configPath string, opts *DiagnoseOptions) error {
	results := []DiagnosticResult{}

	// 1. Check config file existence
	result := checkConfigExists(configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 2. Parse config file
	cfg, result := checkConfigParseable(ctx, configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 3. Check log sources
	results = append(results, checkLogSources(cfg)...)

	// 4. Check the log format against the first capture
	results = append(results, checkLogFormat(ctx, cfg, opts)...)

	// 5. Check rules configuration
	results = append(results, checkRules(cfg, opts)...)

	// 6. Check webhooks configuration
	results = append(results, checkWebhooks(ctx, cfg, opts)...)

	printDiagnostics(w, results, opts)
	return nil
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{
			"Check the file path is correct",
			"Use 'gcscan detect <log-file> --write-config gcscan.yaml' to generate a starter config",
		}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = "error"
		result.Message = "Config file is empty"
		result.Suggests = []string{
			"Use 'gcscan detect <log-file> --write-config gcscan.yaml' to generate a starter config",
		}
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to parse config: %v", err)
		switch {
		case strings.Contains(err.Error(), "yaml"):
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
			}
		case strings.Contains(err.Error(), "runtime_version"):
			result.Suggests = []string{
				fmt.Sprintf("runtime_version must be one of %s", strings.Join(matcher.Versions(), ", ")),
			}
		case strings.Contains(err.Error(), "start_instant"):
			result.Suggests = []string{
				fmt.Sprintf("Write start_instant as %s, the layout of the log's datestamps", config.StartInstantLayout),
			}
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = "Config file parsed successfully"
	result.Details = []string{
		fmt.Sprintf("Log sources: %d", len(cfg.LogSources)),
		fmt.Sprintf("Runtime version: %s", cfg.RuntimeVersion),
		fmt.Sprintf("Fail on: %s", cfg.Rules.FailSeverity()),
	}
	return cfg, result
}

func checkLogSources(cfg *config.Config) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.LogSources) == 0 {
		results = append(results, DiagnosticResult{
			Check:   "Log Sources",
			Status:  "warning",
			Message: "No log sources defined",
			Suggests: []string{
				"Add a log_sources section, or pass captures to 'gcscan analyze' as arguments",
				"Example: log_sources:\n  - /var/log/app/gc.log*",
			},
		})
		return results
	}

	totalFiles := 0
	for _, source := range cfg.LogSources {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Log Source: %s", source),
		}

		switch {
		case parser.IsS3(source):
			result.Status = "ok"
			result.Message = "Remote capture, read at analysis time"
			totalFiles++
		case source == parser.Stdin:
			result.Status = "ok"
			result.Message = "Standard input"
			totalFiles++
		case strings.ContainsAny(source, "*?["):
			matches, err := filepath.Glob(source)
			if err != nil {
				result.Status = "error"
				result.Message = fmt.Sprintf("Invalid glob pattern: %v", err)
			} else if len(matches) == 0 {
				result.Status = "warning"
				result.Message = "Glob pattern matches no files"
				result.Suggests = []string{
					"Check if the log files exist at this path",
					"Verify the glob pattern syntax",
				}
			} else {
				result.Status = "ok"
				result.Message = fmt.Sprintf("Matches %d file(s)", len(matches))
				result.Details = append(result.Details, matches...)
				totalFiles += len(matches)
			}
		default:
			info, err := os.Stat(source)
			if os.IsNotExist(err) {
				result.Status = "error"
				result.Message = "File does not exist"
				result.Suggests = []string{
					"Check if the log file path is correct",
				}
			} else if err != nil {
				result.Status = "error"
				result.Message = fmt.Sprintf("Cannot access file: %v", err)
				result.Suggests = []string{"Check file permissions"}
			} else if info.IsDir() {
				result.Status = "error"
				result.Message = "Path is a directory, not a file"
				result.Suggests = []string{
					"Use a glob pattern to match the rotated captures in the directory",
					"Example: /var/log/app/gc.log*",
				}
			} else if info.Size() == 0 {
				result.Status = "warning"
				result.Message = "File is empty (0 bytes)"
			} else {
				result.Status = "ok"
				result.Message = fmt.Sprintf("File exists (%d bytes)", info.Size())
				totalFiles++
			}
		}
		results = append(results, result)
	}

	if totalFiles == 0 {
		results = append(results, DiagnosticResult{
			Check:   "Log Files Summary",
			Status:  "error",
			Message: "No accessible log files found",
			Suggests: []string{
				"Ensure at least one log file exists and is readable",
			},
		})
	}

	return results
}

// firstLocalCapture returns the first log source that names a readable
// local file.
func firstLocalCapture(cfg *config.Config) string {
	files, err := parser.ExpandGlobs(cfg.LogSources)
	if err != nil {
		return ""
	}
	for _, f := range files {
		if parser.IsS3(f) || f == parser.Stdin {
			continue
		}
		if info, err := os.Stat(f); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
			return f
		}
	}
	return ""
}

func checkLogFormat(ctx context.Context, cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	logFile := firstLocalCapture(cfg)
	if logFile == "" {
		return results
	}

	result := DiagnosticResult{
		Check: fmt.Sprintf("Log Format: %s", filepath.Base(logFile)),
	}

	det, err := detector.New().DetectFromFile(ctx, logFile)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot read file: %v", err)
		return append(results, result)
	}

	if det.Events == 0 {
		result.Status = "error"
		result.Message = "No GC events recognized in the sampled lines"
		result.Suggests = []string{
			"Check that the file is a garbage collection log",
			"Use 'gcscan detect " + logFile + "' for details",
		}
		if sample := sampleLine(det); sample != "" {
			result.Details = []string{"Sample line:", truncate(sample, 80)}
		}
		return append(results, result)
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("%d event(s) in %d sampled lines, collector %s",
		det.Events, det.SampledLines, collectorText(det))
	if best := det.BestMatch(); best != nil && opts.Verbose {
		result.Details = []string{
			fmt.Sprintf("Decoration: %s", best.Decoration.Name),
			"Sample match:",
			truncate(best.SampleLine, 80),
		}
	}
	if det.Unidentified > 0 {
		result.Status = "warning"
		result.Message += fmt.Sprintf(", %d unidentified", det.Unidentified)
		result.Suggests = append(result.Suggests,
			"Unidentified lines are reported by 'gcscan analyze --verbose'")
	}
	results = append(results, result)

	results = append(results, checkRuntimeVersion(cfg, det))

	if best := det.BestMatch(); best != nil && best.Decoration.NeedsStart {
		startResult := DiagnosticResult{Check: "Start Instant"}
		if cfg.StartInstant == "" {
			startResult.Status = "error"
			startResult.Message = "Log carries datestamps only and no start_instant is set"
			startResult.Suggests = []string{
				fmt.Sprintf("Set start_instant to the JVM start time, for example %q", det.FirstDatestamp),
			}
		} else {
			startResult.Status = "ok"
			startResult.Message = fmt.Sprintf("start_instant %s", cfg.StartInstant)
		}
		results = append(results, startResult)
	}

	if cfg.JVMOptions != "" {
		results = append(results, checkDeclaredCollector(cfg, det))
	}

	return results
}

func checkRuntimeVersion(cfg *config.Config, det *detector.DetectionResult) DiagnosticResult {
	result := DiagnosticResult{Check: "Runtime Version"}

	switch {
	case cfg.RuntimeVersion == det.RuntimeVersion:
		result.Status = "ok"
		result.Message = fmt.Sprintf("runtime_version %s matches the log", cfg.RuntimeVersion)
	case cfg.RuntimeVersion == matcher.VersionAuto:
		result.Status = "ok"
		result.Message = "runtime_version auto accepts the trigger names of every version"
		if det.RuntimeVersion != matcher.VersionAuto {
			result.Suggests = []string{
				fmt.Sprintf("Set runtime_version: %s to report triggers the runtime does not write", det.RuntimeVersion),
			}
		}
	case det.RuntimeVersion == matcher.VersionAuto:
		result.Status = "ok"
		result.Message = fmt.Sprintf("runtime_version %s (the sample does not name a version)", cfg.RuntimeVersion)
	default:
		result.Status = "warning"
		result.Message = fmt.Sprintf("runtime_version %s, but the log looks like %s", cfg.RuntimeVersion, det.RuntimeVersion)
		result.Suggests = []string{
			fmt.Sprintf("Set runtime_version: %s, or auto", det.RuntimeVersion),
		}
	}
	if det.Version != nil {
		result.Details = []string{fmt.Sprintf("Log header: %s", det.Version.Release)}
	}
	return result
}

func checkDeclaredCollector(cfg *config.Config, det *detector.DetectionResult) DiagnosticResult {
	result := DiagnosticResult{Check: "JVM Options"}

	declared := analyzer.SelectedCollector(jvm.Parse(cfg.JVMOptions))
	switch {
	case declared == event.CollectorUnknown:
		result.Status = "ok"
		result.Message = "jvm_options select no collector"
	case det.Collector == event.CollectorUnknown, det.Collector == declared:
		result.Status = "ok"
		result.Message = fmt.Sprintf("jvm_options select %s", declared)
	default:
		result.Status = "warning"
		result.Message = fmt.Sprintf("jvm_options select %s, but the log was written by %s", declared, det.Collector)
		result.Suggests = []string{
			"Options printed in the log header take precedence over jvm_options",
		}
	}
	return result
}

func sampleLine(det *detector.DetectionResult) string {
	if best := det.BestMatch(); best != nil {
		return best.SampleLine
	}
	return ""
}

func checkRules(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	disabled := make(map[finding.Code]bool)
	for _, code := range cfg.Rules.DisabledCodes() {
		disabled[code] = true
	}

	rules := analyzer.DefaultRules()
	result := DiagnosticResult{
		Check:   "Rules",
		Status:  "ok",
		Message: fmt.Sprintf("%d rule(s), %d finding code(s) disabled", len(rules), len(disabled)),
	}

	silenced := []string{}
	for _, rule := range rules {
		codes := rule.Codes()
		off := 0
		for _, c := range codes {
			if disabled[c] {
				off++
			}
		}
		if len(codes) > 0 && off == len(codes) {
			silenced = append(silenced, rule.Name())
		} else if opts.Verbose {
			result.Details = append(result.Details, fmt.Sprintf("%s [%s]", rule.Name(), rule.Family()))
		}
	}
	if len(silenced) > 0 {
		result.Status = "warning"
		result.Details = append(result.Details, "Every finding disabled for: "+strings.Join(silenced, ", "))
		result.Suggests = []string{
			"Use 'gcscan analyze --rule' to run selected rules instead",
		}
	}
	results = append(results, result)

	th := cfg.Thresholds
	thResult := DiagnosticResult{
		Check:  "Thresholds",
		Status: "ok",
	}
	var off []string
	if th.FirstTimestamp == 0 {
		off = append(off, "first_timestamp")
	}
	if th.MaxPause == 0 {
		off = append(off, "max_pause")
	}
	if th.MinThroughput == 0 {
		off = append(off, "min_throughput")
	}
	if len(off) > 0 {
		thResult.Message = "Not checked: " + strings.Join(off, ", ")
	} else {
		thResult.Message = "All thresholds set"
	}
	if opts.Verbose {
		thResult.Details = []string{
			fmt.Sprintf("first_timestamp: %s", th.FirstTimestamp),
			fmt.Sprintf("max_pause: %s", th.MaxPause),
			fmt.Sprintf("min_throughput: %.2f%%", th.MinThroughput),
		}
	}
	results = append(results, thResult)

	return results
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Fprintln(w, "=== gcscan Configuration Diagnostics ===")
	fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		fmt.Fprintln(w, "\nFix the errors above before running analysis.")
	} else if warnCount > 0 {
		fmt.Fprintln(w, "\nConfiguration is usable but has warnings.")
	} else {
		fmt.Fprintln(w, "\nConfiguration looks good!")
	}
}

func checkWebhooks(ctx context.Context, cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		// Webhooks are optional, just note they're not configured
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  "ok",
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	// URL and trigger were validated on load.
	for _, wh := range cfg.Webhooks {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Webhook: %s", webhookName(wh)),
		}

		if strings.HasPrefix(wh.Token, "$") {
			result.Status = "warning"
			result.Message = "1 warning(s)"
			result.Details = []string{fmt.Sprintf("Token appears to be an unresolved env var: %s", wh.Token)}
		} else {
			result.Status = "ok"
			result.Message = fmt.Sprintf("Trigger: %s", wh.Trigger)
			if opts.Verbose {
				result.Details = []string{
					fmt.Sprintf("URL: %s", wh.URL),
					fmt.Sprintf("Timeout: %s", wh.Timeout),
				}
				if wh.Token != "" {
					result.Details = append(result.Details, "Token: configured")
				}
			}
		}
		if wh.Trigger == config.WebhookTriggerNever {
			result.Suggests = append(result.Suggests, "Trigger 'never' disables this webhook")
		}

		results = append(results, result)
	}

	if opts.Verbose {
		for _, wh := range cfg.Webhooks {
			result := checkWebhookConnectivity(ctx, wh)
			result.Check = fmt.Sprintf("Webhook Connectivity: %s", webhookName(wh))
			results = append(results, result)
		}
	}

	return results
}

func webhookName(wh config.WebhookConfig) string {
	if wh.Name != "" {
		return wh.Name
	}
	return wh.URL
}

func checkWebhookConnectivity(ctx context.Context, wh config.WebhookConfig) DiagnosticResult {
	result := DiagnosticResult{}

	// A HEAD request is enough to see whether the endpoint is reachable.
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, wh.URL, nil)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot create request: %v", err)
		return result
	}

	if wh.Token != "" {
		req.Header.Set("Authorization", "Bearer "+wh.Token)
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the webhook URL is correct",
			"Verify network connectivity",
		}
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = "ok"
		result.Message = fmt.Sprintf("Reachable (status %d)", resp.StatusCode)
	} else {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Reachable but returned status %d", resp.StatusCode)
		result.Suggests = []string{
			"The endpoint may require POST method (will work during actual webhook send)",
			"Check authentication if using a token",
		}
	}

	return result
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
