package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/ccollicutt/gcscan/pkg/config"
	"github.com/ccollicutt/gcscan/pkg/finding"
	"github.com/ccollicutt/gcscan/pkg/jvm"
	"github.com/ccollicutt/gcscan/pkg/matcher"
	"github.com/ccollicutt/gcscan/pkg/metrics"
	"github.com/ccollicutt/gcscan/pkg/parser"
	"github.com/ccollicutt/gcscan/pkg/preprocess"
	"github.com/ccollicutt/gcscan/pkg/run"
)

// Analyzer runs log captures through the preprocessor, the matcher registry
// and the run aggregator, and evaluates the rules on the finished run.
type Analyzer struct {
	cfg      *config.Config
	engine   *Engine
	registry *matcher.Registry

	// Options
	start      time.Time
	ruleFilter map[string]bool // nil means all rules
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// AnalyzerOption configures analyzer behavior.
type AnalyzerOption func(*Analyzer)

// WithRuleFilter limits analysis to the named rules.
func WithRuleFilter(rules []string) AnalyzerOption {
	return func(a *Analyzer) {
		if len(rules) > 0 {
			a.ruleFilter = make(map[string]bool)
			for _, r := range rules {
				a.ruleFilter[r] = true
			}
		}
	}
}

// WithStartInstant overrides the configured runtime start instant.
func WithStartInstant(t time.Time) AnalyzerOption {
	return func(a *Analyzer) {
		a.start = t
	}
}

// WithLogger sets the diagnostic logger. The default discards everything.
func WithLogger(l *zap.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		a.logger = l
	}
}

// WithMetrics records every analysis on m.
func WithMetrics(m *metrics.Metrics) AnalyzerOption {
	return func(a *Analyzer) {
		a.metrics = m
	}
}

// WithRegistry replaces the matcher registry built from the configured
// runtime version.
func WithRegistry(r *matcher.Registry) AnalyzerOption {
	return func(a *Analyzer) {
		a.registry = r
	}
}

// WithEngine replaces the rule engine built from the configuration. The
// rule filter does not apply to it.
func WithEngine(e *Engine) AnalyzerOption {
	return func(a *Analyzer) {
		a.engine = e
	}
}

// NewAnalyzer creates a new analyzer from configuration. A nil cfg means
// the defaults.
func NewAnalyzer(cfg *config.Config, opts ...AnalyzerOption) (*Analyzer, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
		if err := config.Validate(cfg); err != nil {
			return nil, fmt.Errorf("default config: %w", err)
		}
	}

	a := &Analyzer{
		cfg:    cfg,
		start:  cfg.StartTime(),
		logger: zap.NewNop(),
	}

	// Apply options
	for _, opt := range opts {
		opt(a)
	}

	if a.registry == nil {
		vocab, err := matcher.NewVocabulary(cfg.RuntimeVersion)
		if err != nil {
			return nil, fmt.Errorf("creating matcher registry: %w", err)
		}
		a.registry = matcher.NewRegistry(vocab)
	}

	if a.engine == nil {
		rules, err := a.selectRules()
		if err != nil {
			return nil, err
		}
		a.engine = NewEngine(
			WithRules(rules...),
			WithDeclaredOptions(jvm.Parse(cfg.JVMOptions)),
			WithThresholds(Thresholds{
				FirstTimestamp: cfg.Thresholds.FirstTimestamp,
				MaxPause:       cfg.Thresholds.MaxPause,
				MinThroughput:  cfg.Thresholds.MinThroughput,
			}),
			WithDisabled(cfg.Rules.DisabledCodes()...),
			WithParallelRules(cfg.Rules.Parallel),
			WithEngineLogger(a.logger),
		)
	}

	return a, nil
}

// selectRules applies the rule filter to the default catalog.
func (a *Analyzer) selectRules() ([]Rule, error) {
	all := DefaultRules()
	if a.ruleFilter == nil {
		return all, nil
	}

	rules := make([]Rule, 0, len(a.ruleFilter))
	for _, rule := range all {
		if a.ruleFilter[rule.Name()] {
			rules = append(rules, rule)
		}
	}
	if len(rules) == 0 {
		return nil, errors.New("no rules to execute (check --rule filter)")
	}
	return rules, nil
}

// Engine returns the rule engine the analyzer evaluates runs with.
func (a *Analyzer) Engine() *Engine {
	return a.engine
}

// AnalysisResult contains the complete analysis output.
type AnalysisResult struct {
	// Run is the finalized run, findings included.
	Run *run.Run

	// Results holds the outcome of each rule.
	Results []RuleResult

	// Preprocess accounts for the raw lines read.
	Preprocess preprocess.Stats

	// Metadata provides context about the analysis.
	Metadata AnalysisMetadata
}

// AnalysisMetadata provides context about the analysis run.
type AnalysisMetadata struct {
	// ConfigFile is the path to the configuration file used.
	ConfigFile string

	// Sources lists the inputs in the order they were read.
	Sources []SourceSpan

	// RuntimeVersion is the trigger vocabulary in use.
	RuntimeVersion string

	// StartTime is when analysis began.
	StartTime time.Time

	// EndTime is when analysis completed.
	EndTime time.Time

	// LinesProcessed is the total number of raw log lines read.
	LinesProcessed int
}

// SourceSpan is the range of global line numbers one input contributed.
// Event line numbers count across all inputs.
type SourceSpan struct {
	Name      string `json:"name"`
	FirstLine int    `json:"first_line"`
	Lines     int    `json:"lines"`
}

// Locate maps a global line number to the input it came from and the line
// number within that input.
func (m *AnalysisMetadata) Locate(line int) (name string, local int, ok bool) {
	for _, s := range m.Sources {
		if line >= s.FirstLine && line < s.FirstLine+s.Lines {
			return s.Name, line - s.FirstLine + 1, true
		}
	}
	return "", 0, false
}

// Findings returns the run's finding set.
func (r *AnalysisResult) Findings() []finding.Code {
	if r.Run == nil {
		return nil
	}
	return r.Run.Findings()
}

// RulesWithFindings returns the count of rules that emitted findings.
func (r *AnalysisResult) RulesWithFindings() int {
	count := 0
	for i := range r.Results {
		if r.Results[i].HasFindings() {
			count++
		}
	}
	return count
}

// Analyze reads source to the end and returns the analyzed run. Sources are
// read in order; lines are never re-sorted.
func (a *Analyzer) Analyze(ctx context.Context, source parser.LogSource) (*AnalysisResult, error) {
	result := &AnalysisResult{
		Metadata: AnalysisMetadata{
			RuntimeVersion: a.cfg.RuntimeVersion,
			StartTime:      time.Now(),
		},
	}

	var preOpts []preprocess.Option
	if !a.start.IsZero() {
		preOpts = append(preOpts, preprocess.WithStartInstant(a.start))
	}
	pre := preprocess.New(preOpts...)
	agg := run.New(run.WithEvaluator(run.EvaluatorFunc(func(r *run.Run) []finding.Code {
		result.Results = a.engine.Results(r)
		return collect(result.Results)
	})))

	lineNum := 0
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		line, err := source.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading log source: %w", err)
		}

		lineNum++
		a.track(&result.Metadata, line.Source, lineNum)

		for _, nl := range pre.Push(line.Content, lineNum) {
			if err := a.append(agg, nl, &result.Metadata); err != nil {
				return nil, err
			}
		}
	}

	for _, nl := range pre.Flush() {
		if err := a.append(agg, nl, &result.Metadata); err != nil {
			return nil, err
		}
	}

	result.Run = agg.Finalize()
	result.Preprocess = pre.Stats()
	result.Metadata.LinesProcessed = lineNum
	result.Metadata.EndTime = time.Now()

	elapsed := result.Metadata.EndTime.Sub(result.Metadata.StartTime)
	if a.metrics != nil {
		a.metrics.ObserveRun(result.Run, result.Preprocess, elapsed)
	}

	a.logger.Info("analysis complete",
		zap.Int("lines", lineNum),
		zap.Int("events", len(result.Run.Events())),
		zap.Int("unidentified", len(result.Run.Unidentified())),
		zap.Int("findings", len(result.Run.Findings())),
		zap.Duration("elapsed", elapsed),
	)

	return result, nil
}

// track records which input a global line number belongs to.
func (a *Analyzer) track(md *AnalysisMetadata, source string, lineNum int) {
	if n := len(md.Sources); n > 0 && md.Sources[n-1].Name == source {
		md.Sources[n-1].Lines++
		return
	}
	md.Sources = append(md.Sources, SourceSpan{Name: source, FirstLine: lineNum, Lines: 1})
	a.logger.Debug("reading source", zap.String("source", source), zap.Int("first_line", lineNum))
}

// append parses one normalized line and adds the event to the run. Lines
// no matcher recognizes are kept as unidentified events.
func (a *Analyzer) append(agg *run.Aggregator, line preprocess.Line, md *AnalysisMetadata) error {
	e, err := a.registry.Parse(line)
	if err != nil {
		name, local, _ := md.Locate(line.First)
		a.logger.Debug("unidentified line",
			zap.String("source", name),
			zap.Int("line", local),
			zap.String("text", line.Text),
			zap.Error(err),
		)
	}
	if a.metrics != nil {
		a.metrics.ObserveEvent(e)
	}
	if err := agg.Append(e); err != nil {
		return fmt.Errorf("appending event: %w", err)
	}
	return nil
}
