package analyzer

import (
	"github.com/ccollicutt/gcscan/pkg/event"
	"github.com/ccollicutt/gcscan/pkg/finding"
	"github.com/ccollicutt/gcscan/pkg/run"
)

// adjacencyWindow is how many milliseconds after the end of one collection
// the next may start and still count as its immediate fallback. It absorbs
// the rounding of millisecond timestamps.
const adjacencyWindow = 1

// fallbacks calls fn for every blocking collection followed, within the
// adjacency window, by another blocking collection. Events that are not
// collections (safepoint summaries, concurrent phases, headers) between the
// two are skipped.
func fallbacks(r *run.Run, fn func(prev, next event.Event)) {
	var prev *event.Event
	events := r.Events()
	for i := range events {
		e := &events[i]
		if !e.Kind.Collection() {
			continue
		}
		if prev != nil && e.Timestamp <= prev.End()+adjacencyWindow {
			fn(*prev, *e)
		}
		prev = e
	}
}

// CMSFailureRule reports promotion and concurrent mode failures of CMS. A
// ParNew collection immediately followed by a serial old collection is a
// promotion failure even when neither line says so.
func CMSFailureRule() Rule {
	codes := []finding.Code{finding.CMSPromotionFailed, finding.CMSConcurrentModeFailure}
	return NewRule("cms-failure", FamilyFailure, codes, func(r *run.Run, env Env) []finding.Code {
		cms := collector(r, env) == event.CollectorCMS

		var out []finding.Code
		for _, e := range r.Events() {
			switch e.Kind {
			case event.KindParNew, event.KindCMSSerialOld:
			case event.KindVerboseYoung, event.KindVerboseFull:
				if !cms {
					continue
				}
			default:
				continue
			}
			if e.Flags.Has(event.FlagPromotionFailed) || e.Trigger == event.TriggerPromotionFailed {
				out = append(out, finding.CMSPromotionFailed)
			}
			if e.Flags.Has(event.FlagConcurrentModeFailure) || e.Trigger == event.TriggerConcurrentModeFailure {
				out = append(out, finding.CMSConcurrentModeFailure)
			}
		}

		fallbacks(r, func(prev, next event.Event) {
			if prev.Kind == event.KindParNew && next.Kind == event.KindCMSSerialOld && !requested(next.Trigger) {
				out = append(out, finding.CMSPromotionFailed)
			}
		})
		return out
	})
}

// G1FailureRule reports evacuation failures and aborted concurrent marking
// cycles of G1. A young pause immediately followed by a full collection is
// an evacuation failure even when to-space exhaustion is not logged.
func G1FailureRule() Rule {
	codes := []finding.Code{finding.G1EvacuationFailure, finding.G1ConcurrentMarkAborted}
	return NewRule("g1-failure", FamilyFailure, codes, func(r *run.Run, env Env) []finding.Code {
		g1 := collector(r, env) == event.CollectorG1

		var out []finding.Code
		for _, e := range r.Events() {
			switch e.Kind {
			case event.KindG1YoungPause, event.KindG1MixedPause, event.KindG1FullGC:
			case event.KindUnifiedYoung, event.KindUnifiedFull:
				if !g1 {
					continue
				}
			case event.KindG1Concurrent, event.KindUnifiedConcurrent:
				if p, ok := e.Detail.(event.Phase); ok && p.Aborted {
					out = append(out, finding.G1ConcurrentMarkAborted)
				}
				continue
			default:
				continue
			}
			if e.Flags.Has(event.FlagToSpaceExhausted) || e.Trigger == event.TriggerToSpaceExhausted {
				out = append(out, finding.G1EvacuationFailure)
			}
		}

		fallbacks(r, func(prev, next event.Event) {
			if requested(next.Trigger) || !next.Kind.Full() || !prev.Kind.Young() {
				return
			}
			switch {
			case prev.Kind == event.KindG1YoungPause && next.Kind == event.KindG1FullGC,
				g1 && prev.Kind == event.KindUnifiedYoung && next.Kind == event.KindUnifiedFull:
				out = append(out, finding.G1EvacuationFailure)
			}
		})
		return out
	})
}

// ParallelFailureRule reports scavenges that could not promote everything,
// marked "GC--" in the log. A scavenge followed by a full collection is
// normal for the parallel collector, so adjacency alone is not reported.
func ParallelFailureRule() Rule {
	return NewRule("parallel-failure", FamilyFailure, []finding.Code{finding.ParallelPromotionFailed},
		func(r *run.Run, env Env) []finding.Code {
			parallel := collector(r, env) == event.CollectorParallel
			return when(r.Any(func(e event.Event) bool {
				if !e.Flags.Has(event.FlagPromotionFailed) {
					return false
				}
				if e.Kind == event.KindVerboseYoung {
					return parallel
				}
				return e.Kind == event.KindParallelScavenge
			}), finding.ParallelPromotionFailed)
		})
}
