package analyzer

import (
	"github.com/ccollicutt/gcscan/pkg/event"
	"github.com/ccollicutt/gcscan/pkg/finding"
	"github.com/ccollicutt/gcscan/pkg/run"
)

// CheckFunc is the body of a rule.
type CheckFunc func(r *run.Run, env Env) []finding.Code

type ruleFunc struct {
	name   string
	family Family
	codes  []finding.Code
	check  CheckFunc
}

// NewRule builds a Rule from a function. codes lists every finding check
// can return.
func NewRule(name string, family Family, codes []finding.Code, check CheckFunc) Rule {
	return &ruleFunc{name: name, family: family, codes: codes, check: check}
}

func (f *ruleFunc) Name() string          { return f.name }
func (f *ruleFunc) Family() Family        { return f.family }
func (f *ruleFunc) Codes() []finding.Code { return append([]finding.Code(nil), f.codes...) }

func (f *ruleFunc) Check(r *run.Run, env Env) []finding.Code {
	return f.check(r, env)
}

// DefaultRules returns the built-in rule catalog.
func DefaultRules() []Rule {
	return []Rule{
		CMSSerialOldRule(),
		ParNewSerialOldRule(),
		ParallelSerialOldRule(),
		CollectorMismatchRule(),

		ExplicitGCRule(),
		TriggerRule("heap-inspection-gc", finding.HeapInspectionGC, event.TriggerHeapInspectionInitiatedGC),
		TriggerRule("heap-dump-gc", finding.HeapDumpGC, event.TriggerHeapDumpInitiatedGC),
		TriggerRule("gclocker-gc", finding.GCLockerGC, event.TriggerGCLockerInitiatedGC),
		TriggerRule("metaspace-threshold-gc", finding.MetaspaceThresholdGC,
			event.TriggerMetadataGCThreshold, event.TriggerMetadataGCClearSoftReferences),

		IncrementalModeRule(),

		CMSFailureRule(),
		G1FailureRule(),
		ParallelFailureRule(),

		FirstTimestampRule(),
		PauseMaxRule(),
		ThroughputRule(),

		UnidentifiedRule(),
		UnknownTriggerRule(),
	}
}

// when returns codes if cond holds and nil otherwise.
func when(cond bool, codes ...finding.Code) []finding.Code {
	if !cond {
		return nil
	}
	return codes
}

// requested reports whether a collection was asked for by code or by an
// operator tool rather than started by the collector.
func requested(t event.Trigger) bool {
	return t.Explicit() || t == event.TriggerHeapInspectionInitiatedGC || t == event.TriggerHeapDumpInitiatedGC
}

// collector returns the family that wrote the log, falling back to the one
// the options select when the events do not say.
func collector(r *run.Run, env Env) event.Collector {
	if c := r.Collector(); c != event.CollectorUnknown {
		return c
	}
	return env.Collector(r)
}
