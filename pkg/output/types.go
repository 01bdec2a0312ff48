// Package output provides formatting and output generation for analysis results.
package output

import (
	"time"

	"github.com/google/uuid"

	"github.com/ccollicutt/gcscan/pkg/analyzer"
	"github.com/ccollicutt/gcscan/pkg/event"
	"github.com/ccollicutt/gcscan/pkg/finding"
	"github.com/ccollicutt/gcscan/pkg/preprocess"
	"github.com/ccollicutt/gcscan/pkg/run"
)

// Report is the complete analysis output.
type Report struct {
	// RunID identifies this analysis in webhook payloads and logs.
	RunID string `json:"run_id"`

	// Summary provides aggregate statistics.
	Summary Summary `json:"summary"`

	// Findings lists the run's finding set in catalog order.
	Findings []Finding `json:"findings"`

	// Statistics are the run's summary statistics.
	Statistics run.Summary `json:"statistics"`

	// Unidentified lists the lines no matcher recognized.
	Unidentified []UnidentifiedLine `json:"unidentified,omitempty"`

	// UnknownTriggers lists trigger text the vocabulary did not know.
	UnknownTriggers []string `json:"unknown_triggers,omitempty"`

	// Rules contains the outcome of each rule.
	Rules []analyzer.RuleResult `json:"rules"`

	// Events is the ordered event sequence. It is only written in
	// verbose output.
	Events []event.Event `json:"events,omitempty"`

	// Metadata provides context about the analysis.
	Metadata Metadata `json:"metadata"`
}

// Summary provides aggregate statistics.
type Summary struct {
	// RulesChecked is the number of rules that were executed.
	RulesChecked int `json:"rules_checked"`

	// RulesWithFindings is the number of rules that emitted findings.
	RulesWithFindings int `json:"rules_with_findings"`

	// TotalFindings is the size of the finding set.
	TotalFindings int `json:"total_findings"`

	// MaxSeverity is the highest finding severity, empty without findings.
	MaxSeverity finding.Severity `json:"max_severity,omitempty"`

	Events       int `json:"events"`
	Unidentified int `json:"unidentified"`

	// LinesProcessed is the total number of raw log lines read.
	LinesProcessed int `json:"lines_processed"`

	// Collector is the collector family that wrote the log, if known.
	Collector event.Collector `json:"collector,omitempty"`

	// RuntimeRelease is the version printed in the log header, if any.
	RuntimeRelease string `json:"runtime_release,omitempty"`
}

// Finding is one finding code with its catalog entry.
type Finding struct {
	Code        finding.Code     `json:"code"`
	Severity    finding.Severity `json:"severity"`
	Category    finding.Category `json:"category"`
	Description string           `json:"description"`

	// Rule names the rule that emitted the code.
	Rule string `json:"rule,omitempty"`
}

// UnidentifiedLine is a line no matcher recognized, located in its input.
type UnidentifiedLine struct {
	Source string `json:"source"`
	Line   int    `json:"line"`
	Text   string `json:"text"`
	Reason string `json:"reason,omitempty"`
	Last   bool   `json:"last"`
}

// Metadata provides context about the analysis run.
type Metadata struct {
	// ConfigFile is the path to the configuration file used.
	ConfigFile string `json:"config_file,omitempty"`

	// Sources lists the inputs in the order they were read.
	Sources []analyzer.SourceSpan `json:"sources"`

	// Vocabulary is the runtime version whose trigger texts were used.
	Vocabulary string `json:"vocabulary"`

	// Preprocess accounts for every raw line read.
	Preprocess preprocess.Stats `json:"preprocess"`

	// AnalyzedAt is when the analysis was performed.
	AnalyzedAt time.Time `json:"analyzed_at"`

	// Duration is how long the analysis took.
	Duration time.Duration `json:"duration_ns"`
}

// NewReport creates a Report from analysis results.
func NewReport(result *analyzer.AnalysisResult, configFile string) *Report {
	r := result.Run
	report := &Report{
		RunID:           uuid.NewString(),
		Statistics:      r.Summary(),
		UnknownTriggers: r.UnknownTriggers(),
		Rules:           result.Results,
		Events:          r.Events(),
		Metadata: Metadata{
			ConfigFile: configFile,
			Sources:    result.Metadata.Sources,
			Vocabulary: result.Metadata.RuntimeVersion,
			Preprocess: result.Preprocess,
			AnalyzedAt: result.Metadata.EndTime,
			Duration:   result.Metadata.EndTime.Sub(result.Metadata.StartTime),
		},
		Summary: Summary{
			RulesChecked:      len(result.Results),
			RulesWithFindings: result.RulesWithFindings(),
			TotalFindings:     len(r.Findings()),
			MaxSeverity:       finding.Max(r.Findings()),
			Events:            len(r.Events()),
			Unidentified:      len(r.Unidentified()),
			LinesProcessed:    result.Metadata.LinesProcessed,
			Collector:         r.Collector(),
		},
	}

	if v, ok := r.Version(); ok {
		report.Summary.RuntimeRelease = v.Release
	}

	emitters := make(map[finding.Code]string)
	for _, res := range result.Results {
		for _, c := range res.Findings {
			emitters[c] = res.RuleName
		}
	}
	for _, c := range r.Findings() {
		f := Finding{Code: c, Severity: c.Severity(), Description: c.Description(), Rule: emitters[c]}
		if def, ok := finding.Lookup(c); ok {
			f.Category = def.Category
		}
		report.Findings = append(report.Findings, f)
	}

	for _, u := range r.Unidentified() {
		source, line, ok := result.Metadata.Locate(u.Line.First)
		if !ok {
			line = u.Line.First
		}
		report.Unidentified = append(report.Unidentified, UnidentifiedLine{
			Source: source,
			Line:   line,
			Text:   u.Text,
			Reason: u.Reason,
			Last:   u.Last,
		})
	}

	return report
}

// HasFindings returns true if any finding was reported.
func (r *Report) HasFindings() bool {
	return r.Summary.TotalFindings > 0
}

// Fails reports whether any finding is at least as severe as threshold.
func (r *Report) Fails(threshold finding.Severity) bool {
	return r.Summary.MaxSeverity.Rank() >= threshold.Rank() && r.HasFindings()
}
