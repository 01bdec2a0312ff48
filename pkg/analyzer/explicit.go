package analyzer

import (
	"slices"

	"github.com/ccollicutt/gcscan/pkg/event"
	"github.com/ccollicutt/gcscan/pkg/finding"
	"github.com/ccollicutt/gcscan/pkg/jvm"
	"github.com/ccollicutt/gcscan/pkg/run"
)

// ExplicitGCRule reports full collections requested by System.gc() and
// similar calls, keyed by how expensive the collector makes them. CMS and G1
// are not reported when -XX:+ExplicitGCInvokesConcurrent is set.
func ExplicitGCRule() Rule {
	codes := []finding.Code{
		finding.ExplicitGCSerialCMS,
		finding.ExplicitGCSerialG1,
		finding.ExplicitGCParallel,
		finding.ExplicitGCSerial,
		finding.ExplicitGCUnified,
	}
	return NewRule("explicit-gc", FamilyExplicit, codes, func(r *run.Run, env Env) []finding.Code {
		concurrent := env.Options(r).Enabled(jvm.ExplicitGCInvokesConcurrent)
		family := collector(r, env)

		var out []finding.Code
		for _, e := range r.Events() {
			if !e.Kind.Full() || !e.Trigger.Explicit() {
				continue
			}
			if c, ok := explicitCode(e.Kind, family, concurrent); ok {
				out = append(out, c)
			}
		}
		return out
	})
}

func explicitCode(kind event.Kind, family event.Collector, concurrent bool) (finding.Code, bool) {
	switch kind {
	case event.KindCMSSerialOld:
		return finding.ExplicitGCSerialCMS, !concurrent
	case event.KindG1FullGC:
		return finding.ExplicitGCSerialG1, !concurrent
	case event.KindParallelSerialOld, event.KindParallelCompactingOld:
		return finding.ExplicitGCParallel, true
	case event.KindSerialOld:
		return finding.ExplicitGCSerial, true
	}

	// Unified and detail-free records do not name their collector.
	switch family {
	case event.CollectorCMS:
		return finding.ExplicitGCSerialCMS, !concurrent
	case event.CollectorG1:
		return finding.ExplicitGCSerialG1, !concurrent
	case event.CollectorParallel:
		return finding.ExplicitGCParallel, true
	case event.CollectorSerial:
		return finding.ExplicitGCSerial, true
	}
	return finding.ExplicitGCUnified, true
}

// TriggerRule reports code when any collection was started by one of
// triggers.
func TriggerRule(name string, code finding.Code, triggers ...event.Trigger) Rule {
	return NewRule(name, FamilyExplicit, []finding.Code{code}, func(r *run.Run, _ Env) []finding.Code {
		return when(r.Any(func(e event.Event) bool {
			return e.Kind.Collection() && slices.Contains(triggers, e.Trigger)
		}), code)
	})
}
