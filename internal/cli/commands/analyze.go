package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ccollicutt/gcscan/internal/logging"
	"github.com/ccollicutt/gcscan/pkg/analyzer"
	"github.com/ccollicutt/gcscan/pkg/config"
	"github.com/ccollicutt/gcscan/pkg/metrics"
	"github.com/ccollicutt/gcscan/pkg/output"
	"github.com/ccollicutt/gcscan/pkg/parser"
	"github.com/ccollicutt/gcscan/pkg/webhook"
)

// Exit codes.
const (
	ExitClean    = 0
	ExitFindings = 1
	ExitError    = 2
)

// ExitCode is set by commands to indicate the result
var ExitCode = ExitClean

// AnalyzeOptions holds command-line options for the analyze command.
type AnalyzeOptions struct {
	ConfigFile string
	Output     string
	Verbose    bool
	Quiet      bool

	RuntimeVersion string
	StartInstant   string
	JVMOptions     string
	Rules          []string
	DisableRules   []string
	FailOn         string
	Parallel       bool

	FailOnUnidentified bool
	MetricsFile        string

	LogLevel  string
	LogFormat string

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze [flags] <log-file|glob|s3://bucket/key|->...",
		Short: "Analyze garbage collection logs",
		Long: `Parse garbage collection logs and report findings about the collector
configuration, explicit and failed collections, and pause statistics.

Captures given on the command line replace log_sources from the configuration
file. They are read one after the other in the order given; a rotated set is
read oldest first when named that way.

Exit codes:
  0 - No findings at or above the fail_on severity
  1 - Findings at or above the fail_on severity
      (or unidentified lines with --fail-on-unidentified)
  2 - Configuration or runtime error`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, opts)
		},
	}

	// Flags
	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "Configuration file")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show per-kind statistics, descriptions and every unidentified line")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no details")
	cmd.Flags().StringVar(&opts.RuntimeVersion, "runtime-version", "", "Trigger vocabulary (auto|jdk6|jdk7|jdk8|unified)")
	cmd.Flags().StringVar(&opts.StartInstant, "start-instant", "", "JVM start time for datestamp-only logs (2006-01-02T15:04:05.000-0700)")
	cmd.Flags().StringVar(&opts.JVMOptions, "jvm-options", "", "Declared JVM command line")
	cmd.Flags().StringSliceVar(&opts.Rules, "rule", nil, "Run specific rule(s) only (can be repeated)")
	cmd.Flags().StringSliceVar(&opts.DisableRules, "disable-rule", nil, "Suppress finding code(s) (can be repeated)")
	cmd.Flags().StringVar(&opts.FailOn, "fail-on", "", "Lowest severity that fails the run (info|warn|error)")
	cmd.Flags().BoolVar(&opts.Parallel, "parallel", false, "Evaluate rules concurrently")
	cmd.Flags().BoolVar(&opts.FailOnUnidentified, "fail-on-unidentified", false, "Exit 1 when any line was not recognized")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Log level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.LogFormat, "log-format", "", "Log format (console|json)")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", string(config.WebhookTriggerOnFindings), "When to fire webhook (on_findings|always|never)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string, opts *AnalyzeOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadAnalyzeConfig(ctx, args, opts)
	if err != nil {
		return err
	}
	if len(cfg.LogSources) == 0 {
		return fmt.Errorf("no log sources: pass captures as arguments or set log_sources")
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	files, err := parser.ExpandGlobs(cfg.LogSources)
	if err != nil {
		return fmt.Errorf("expanding log sources: %w", err)
	}

	opener, err := newOpener(ctx, cfg, files)
	if err != nil {
		return err
	}

	analyzerOpts := []analyzer.AnalyzerOption{analyzer.WithLogger(logger)}
	if len(opts.Rules) > 0 {
		analyzerOpts = append(analyzerOpts, analyzer.WithRuleFilter(opts.Rules))
	}

	var m *metrics.Metrics
	if cfg.MetricsFile != "" {
		m = metrics.New(nil)
		analyzerOpts = append(analyzerOpts, analyzer.WithMetrics(m))
	}

	a, err := analyzer.NewAnalyzer(cfg, analyzerOpts...)
	if err != nil {
		return fmt.Errorf("creating analyzer: %w", err)
	}

	source := parser.NewFileSource(files, parser.WithOpener(opener))
	defer source.Close()

	logger.Debug("analyzing", zap.Strings("sources", files), zap.String("runtime_version", cfg.RuntimeVersion))
	result, err := a.Analyze(ctx, source)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	report := output.NewReport(result, opts.ConfigFile)

	formatter, err := createFormatter(opts)
	if err != nil {
		return err
	}
	if err := formatter.Format(ctx, report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	// Webhook failures are logged and never fail the analysis.
	webhook.NewClient(webhook.WithLogger(logger)).Dispatch(ctx, report, cfg.Webhooks)

	if m != nil {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			return err
		}
	}

	ExitCode = exitCode(report, cfg, opts)
	return nil
}

// loadAnalyzeConfig reads the configuration file, or the environment when
// there is none, and applies command-line overrides.
func loadAnalyzeConfig(ctx context.Context, args []string, opts *AnalyzeOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigFile != "" {
		cfg, err = config.Load(ctx, opts.ConfigFile)
	} else {
		cfg, err = config.FromEnvironment()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if len(args) > 0 {
		cfg.LogSources = args
	}
	if opts.RuntimeVersion != "" {
		cfg.RuntimeVersion = opts.RuntimeVersion
	}
	if opts.StartInstant != "" {
		cfg.StartInstant = opts.StartInstant
	}
	if opts.JVMOptions != "" {
		cfg.JVMOptions = opts.JVMOptions
	}
	cfg.Rules.Disable = append(cfg.Rules.Disable, opts.DisableRules...)
	if opts.FailOn != "" {
		cfg.Rules.FailOn = opts.FailOn
	}
	if opts.Parallel {
		cfg.Rules.Parallel = true
	}
	if opts.MetricsFile != "" {
		cfg.MetricsFile = opts.MetricsFile
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.Logging.Format = opts.LogFormat
	}
	cfg.Webhooks = collectWebhooks(cfg, opts)

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return cfg, nil
}

// newOpener routes s3:// captures to an S3 client, built only when one is
// named.
func newOpener(ctx context.Context, cfg *config.Config, files []string) (parser.Opener, error) {
	opener := parser.RoutingOpener{Local: parser.LocalOpener()}
	for _, f := range files {
		if !parser.IsS3(f) {
			continue
		}
		client, err := parser.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("creating s3 client: %w", err)
		}
		opener.S3 = parser.NewS3Opener(client)
		break
	}
	return opener, nil
}

func createFormatter(opts *AnalyzeOptions) (output.Formatter, error) {
	return output.New(opts.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	})
}

func exitCode(report *output.Report, cfg *config.Config, opts *AnalyzeOptions) int {
	if report.Fails(cfg.Rules.FailSeverity()) {
		return ExitFindings
	}
	if opts.FailOnUnidentified && report.Summary.Unidentified > 0 {
		return ExitFindings
	}
	return ExitClean
}

// collectWebhooks merges config file webhooks with CLI webhook.
func collectWebhooks(cfg *config.Config, opts *AnalyzeOptions) []config.WebhookConfig {
	webhooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)

	webhooks = append(webhooks, cfg.Webhooks...)

	if opts.WebhookURL != "" {
		trigger := config.WebhookTrigger(opts.WebhookTrigger)
		if trigger == "" {
			trigger = config.WebhookTriggerOnFindings
		}

		webhooks = append(webhooks, config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: trigger,
			Timeout: config.DefaultWebhookTimeout,
		})
	}

	return webhooks
}
