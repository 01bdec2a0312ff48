package analyzer

import (
	"github.com/ccollicutt/gcscan/pkg/finding"
	"github.com/ccollicutt/gcscan/pkg/run"
)

// Rule is one heuristic evaluated against a finalized run. Each rule family
// (configuration, explicit, incremental, failure, threshold, parsing)
// contributes rules that implement this interface.
type Rule interface {
	// Name returns the rule name for reporting.
	Name() string

	// Family returns the rule family.
	Family() Family

	// Codes lists every finding the rule can emit.
	Codes() []finding.Code

	// Check evaluates the rule. It only reads r, never fails, and returns
	// nil when the rule's precondition does not hold.
	Check(r *run.Run, env Env) []finding.Code
}
