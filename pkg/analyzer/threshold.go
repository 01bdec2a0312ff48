package analyzer

import (
	"github.com/ccollicutt/gcscan/pkg/finding"
	"github.com/ccollicutt/gcscan/pkg/run"
)

// FirstTimestampRule reports a first timestamp later than the threshold. It
// usually means the log is a rotated fragment or its datestamps were
// converted without the JVM start instant.
func FirstTimestampRule() Rule {
	return NewRule("first-timestamp", FamilyThreshold, []finding.Code{finding.FirstTimestampThresholdExceeded},
		func(r *run.Run, env Env) []finding.Code {
			limit := env.Thresholds.FirstTimestamp.Milliseconds()
			s := r.Summary()
			return when(limit > 0 && s.HasTimestamps && s.FirstTimestamp > limit, finding.FirstTimestampThresholdExceeded)
		})
}

// PauseMaxRule reports a collection pause longer than the threshold.
func PauseMaxRule() Rule {
	return NewRule("pause-max", FamilyThreshold, []finding.Code{finding.PauseMaxExceeded},
		func(r *run.Run, env Env) []finding.Code {
			limit := env.Thresholds.MaxPause.Microseconds()
			return when(limit > 0 && r.Summary().PauseMax > limit, finding.PauseMaxExceeded)
		})
}

// ThroughputRule reports throughput below the threshold. Runs without a
// time span have no throughput and are not reported.
func ThroughputRule() Rule {
	return NewRule("throughput", FamilyThreshold, []finding.Code{finding.ThroughputBelowThreshold},
		func(r *run.Run, env Env) []finding.Code {
			s := r.Summary()
			floor := env.Thresholds.MinThroughput
			return when(floor > 0 && s.Span() > 0 && s.Throughput*100 < floor, finding.ThroughputBelowThreshold)
		})
}

// UnidentifiedRule reports lines no matcher recognized, split by whether
// the line was the last one in the log.
func UnidentifiedRule() Rule {
	codes := []finding.Code{finding.UnidentifiedLogLinesLast, finding.UnidentifiedLogLinesElsewhere}
	return NewRule("unidentified-lines", FamilyParsing, codes, func(r *run.Run, _ Env) []finding.Code {
		var out []finding.Code
		for _, u := range r.Unidentified() {
			if u.Last {
				out = append(out, finding.UnidentifiedLogLinesLast)
			} else {
				out = append(out, finding.UnidentifiedLogLinesElsewhere)
			}
		}
		return out
	})
}

// UnknownTriggerRule reports trigger text the runtime version vocabulary
// does not know.
func UnknownTriggerRule() Rule {
	return NewRule("unknown-trigger", FamilyParsing, []finding.Code{finding.UnknownTrigger},
		func(r *run.Run, _ Env) []finding.Code {
			return when(len(r.UnknownTriggers()) > 0, finding.UnknownTrigger)
		})
}
