package matcher

import (
	"regexp"
	"strings"

	"github.com/ccollicutt/gcscan/pkg/event"
)

// ParallelScavenge matches a young collection by the parallel collector. A
// "GC--" marker means the scavenge could not promote everything:
//
//	1.000: [GC (Allocation Failure) [PSYoungGen: 1000K->100K(2000K)] 5000K->4100K(10000K), 0.0101 secs]
//	1.000: [GC-- [PSYoungGen: 1000K->1000K(2000K)] 9000K->9500K(10000K), 0.0500 secs]
func ParallelScavenge(v Vocabulary) Matcher {
	return &legacyMatcher{
		kind:  event.KindParallelScavenge,
		head:  regexp.MustCompile(`^\[GC(?:--)?(?: ` + parenPat + `)? ?(?:--)?\[PSYoungGen`),
		vocab: v,
		parse: func(m *legacyMatcher, e *event.Event, body string, rec record) {
			m.vocab.legacyTrigger(e, body)
			if strings.Contains(rec.outer, "--") {
				e.Flags |= event.FlagPromotionFailed
			}
			young, ok := innerRegion(rec, event.RegionYoung, "PSYoungGen")
			generational(e, rec, event.RegionYoung, young, ok)
			finish(e, rec)
		},
	}
}

// ParallelSerialOld matches a full collection by the parallel collector with
// the serial old generation (PSOldGen).
//
//	2.000: [Full GC (Ergonomics) [PSYoungGen: 1000K->0K(2000K)] [PSOldGen: 5000K->4000K(8000K)] 6000K->4000K(10000K), [Metaspace: 2000K->2000K(4000K)], 0.2000 secs]
func ParallelSerialOld(v Vocabulary) Matcher {
	return parallelFull(event.KindParallelSerialOld, "PSOldGen", v)
}

// ParallelCompactingOld matches a full collection by the parallel collector
// with the parallel compacting old generation (ParOldGen).
//
//	2.000: [Full GC (Ergonomics) [PSYoungGen: 1000K->0K(2000K)] [ParOldGen: 5000K->4000K(8000K)] 6000K->4000K(10000K), [Metaspace: 2000K->2000K(4000K)], 0.2000 secs]
func ParallelCompactingOld(v Vocabulary) Matcher {
	return parallelFull(event.KindParallelCompactingOld, "ParOldGen", v)
}

func parallelFull(kind event.Kind, oldGen string, v Vocabulary) Matcher {
	return &legacyMatcher{
		kind:  kind,
		head:  regexp.MustCompile(`^\[Full GC(?: ` + parenPat + `)? ?\[PSYoungGen[^\]]*\] ?\[` + oldGen),
		vocab: v,
		parse: func(m *legacyMatcher, e *event.Event, body string, rec record) {
			m.vocab.legacyTrigger(e, body)
			young, yok := innerRegion(rec, event.RegionYoung, "PSYoungGen")
			old, ook := innerRegion(rec, event.RegionOld, oldGen)
			combined, cok := rec.combined()
			addRegion(e, young, yok)
			addRegion(e, old, ook)
			addRegion(e, combined, cok)
			meta, mok := rec.metadata()
			addRegion(e, meta, mok)
			if !yok || !ook || !cok {
				e.Partial = true
			}
			finish(e, rec)
		},
	}
}
