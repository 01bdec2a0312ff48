// Package analyzer evaluates heuristic rules against a parsed garbage
// collection log and drives the parsing pipeline that produces it.
package analyzer

import (
	"time"

	"github.com/ccollicutt/gcscan/pkg/event"
	"github.com/ccollicutt/gcscan/pkg/finding"
	"github.com/ccollicutt/gcscan/pkg/jvm"
	"github.com/ccollicutt/gcscan/pkg/run"
)

// Family groups rules by what they look at.
type Family string

const (
	FamilyConfiguration Family = "configuration"
	FamilyExplicit      Family = "explicit"
	FamilyIncremental   Family = "incremental"
	FamilyFailure       Family = "failure"
	FamilyThreshold     Family = "threshold"
	FamilyParsing       Family = "parsing"
)

// Thresholds configure the threshold rules. A zero value disables the rule.
type Thresholds struct {
	// FirstTimestamp is how late the first timestamp may be before the
	// timestamp basis is suspect.
	FirstTimestamp time.Duration

	// MaxPause is the longest acceptable collection pause.
	MaxPause time.Duration

	// MinThroughput is the lowest acceptable throughput, in percent.
	MinThroughput float64
}

// DefaultThresholds flags a first timestamp later than one hour and leaves
// the pause and throughput rules off.
func DefaultThresholds() Thresholds {
	return Thresholds{FirstTimestamp: time.Hour}
}

// Env is the read-only input rules get besides the run.
type Env struct {
	// Declared is the JVM command line the operator says the process ran
	// with. Options logged in the capture's own header take precedence.
	Declared jvm.Options

	Thresholds Thresholds
}

// Options returns the declared options overridden by the run's header.
func (env Env) Options(r *run.Run) jvm.Options {
	return env.Declared.Merge(r.Options())
}

// Collector returns the collector family the options select, or
// CollectorUnknown when none is selected.
func (env Env) Collector(r *run.Run) event.Collector {
	return SelectedCollector(env.Options(r))
}

// SelectedCollector maps the collector selection option in opts to its
// family.
func SelectedCollector(opts jvm.Options) event.Collector {
	switch opts.CollectorOption() {
	case jvm.UseConcMarkSweepGC, jvm.UseParNewGC:
		return event.CollectorCMS
	case jvm.UseG1GC:
		return event.CollectorG1
	case jvm.UseParallelGC, jvm.UseParallelOldGC:
		return event.CollectorParallel
	case jvm.UseSerialGC:
		return event.CollectorSerial
	case jvm.UseShenandoahGC:
		return event.CollectorShenandoah
	case jvm.UseZGC:
		return event.CollectorZGC
	}
	return event.CollectorUnknown
}

// RuleResult contains the findings of a single rule.
type RuleResult struct {
	// RuleName is the name of the rule that produced these results.
	RuleName string `json:"rule"`

	// Family indicates the rule family.
	Family Family `json:"family"`

	// Findings holds the codes the rule emitted, in catalog order.
	Findings []finding.Code `json:"findings"`

	// Elapsed is how long the rule took.
	Elapsed time.Duration `json:"-"`
}

// HasFindings returns true if the rule emitted any finding.
func (r *RuleResult) HasFindings() bool {
	return len(r.Findings) > 0
}
