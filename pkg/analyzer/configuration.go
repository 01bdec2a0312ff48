package analyzer

import (
	"slices"

	"github.com/ccollicutt/gcscan/pkg/event"
	"github.com/ccollicutt/gcscan/pkg/finding"
	"github.com/ccollicutt/gcscan/pkg/run"
)

// CMSSerialOldRule reports CMS falling back to a serial old collection that
// nobody asked for.
func CMSSerialOldRule() Rule {
	return NewRule("cms-serial-old", FamilyConfiguration, []finding.Code{finding.CMSSerialOld},
		func(r *run.Run, _ Env) []finding.Code {
			return when(r.Any(func(e event.Event) bool {
				return e.Kind == event.KindCMSSerialOld && !requested(e.Trigger)
			}), finding.CMSSerialOld)
		})
}

// ParNewSerialOldRule reports the parallel young collector paired with the
// serial old collector.
func ParNewSerialOldRule() Rule {
	return NewRule("par-new-serial-old", FamilyConfiguration, []finding.Code{finding.ParNewSerialOld},
		func(r *run.Run, _ Env) []finding.Code {
			return when(r.Has(event.KindParNew) && r.Has(event.KindSerialOld), finding.ParNewSerialOld)
		})
}

// ParallelSerialOldRule reports the parallel collector using the serial old
// collector for collections it started itself.
func ParallelSerialOldRule() Rule {
	return NewRule("parallel-serial-old", FamilyConfiguration, []finding.Code{finding.ParallelSerialOld},
		func(r *run.Run, _ Env) []finding.Code {
			return when(r.Any(func(e event.Event) bool {
				return e.Kind == event.KindParallelSerialOld && !requested(e.Trigger)
			}), finding.ParallelSerialOld)
		})
}

// CollectorMismatchRule compares the collector the JVM options select with
// the collectors observed in the log.
func CollectorMismatchRule() Rule {
	return NewRule("collector-mismatch", FamilyConfiguration, []finding.Code{finding.CollectorMismatch},
		func(r *run.Run, env Env) []finding.Code {
			declared := env.Collector(r)
			observed := r.Collectors()
			if declared == event.CollectorUnknown || len(observed) == 0 {
				return nil
			}
			return when(!slices.Contains(observed, declared), finding.CollectorMismatch)
		})
}
