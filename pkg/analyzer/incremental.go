package analyzer

import (
	"github.com/ccollicutt/gcscan/pkg/event"
	"github.com/ccollicutt/gcscan/pkg/finding"
	"github.com/ccollicutt/gcscan/pkg/jvm"
	"github.com/ccollicutt/gcscan/pkg/run"
)

// IncrementalModeRule reports CMS incremental mode markers, and the
// compound finding when the initiating occupancy is also fixed.
func IncrementalModeRule() Rule {
	codes := []finding.Code{finding.CMSIncrementalMode, finding.CMSIncModeWithInitOccupFract}
	return NewRule("cms-incremental-mode", FamilyIncremental, codes, func(r *run.Run, env Env) []finding.Code {
		if !r.Any(func(e event.Event) bool { return e.Flags.Has(event.FlagIncrementalMode) }) {
			return nil
		}
		out := []finding.Code{finding.CMSIncrementalMode}
		if env.Options(r).Has(jvm.CMSInitiatingOccupancyFraction) {
			out = append(out, finding.CMSIncModeWithInitOccupFract)
		}
		return out
	})
}
