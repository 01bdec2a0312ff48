package matcher

import (
	"regexp"
	"strings"

	"github.com/ccollicutt/gcscan/pkg/event"
)

// SerialNew matches a young collection by the serial collector:
//
//	1.000: [GC (Allocation Failure) [DefNew: 1000K->100K(2000K), 0.0100 secs] 5000K->4100K(10000K), 0.0101 secs]
func SerialNew(v Vocabulary) Matcher {
	return &legacyMatcher{
		kind:  event.KindSerialNew,
		head:  regexp.MustCompile(`^\[GC(?: ` + parenPat + `)? ?\[DefNew`),
		vocab: v,
		parse: func(m *legacyMatcher, e *event.Event, body string, rec record) {
			m.vocab.legacyTrigger(e, body)
			young, ok := innerRegion(rec, event.RegionYoung, "DefNew")
			generational(e, rec, event.RegionYoung, young, ok)
			if s, ok := rec.find("DefNew"); ok && strings.Contains(s, "promotion failed") {
				e.Flags |= event.FlagPromotionFailed
			}
			finish(e, rec)
		},
	}
}

// SerialOld matches a full collection by the serial collector, including a
// young collection that fell back to the tenured generation:
//
//	2.000: [Full GC (System.gc()) [Tenured: 4000K->3000K(8000K), 0.1000 secs] 5000K->3000K(10000K), [Metaspace: 2000K->2000K(4000K)], 0.1001 secs]
//	2.000: [GC [DefNew: 1000K->1000K(2000K), 0.0100 secs][Tenured: 4000K->3000K(8000K), 0.1000 secs] 5000K->3000K(10000K), 0.1101 secs]
func SerialOld(v Vocabulary) Matcher {
	return &legacyMatcher{
		kind:  event.KindSerialOld,
		head:  regexp.MustCompile(`^\[(?:Full GC|GC)(?: ` + parenPat + `)? ?(?:\[DefNew[^\]]*\] ?)?\[Tenured`),
		vocab: v,
		parse: func(m *legacyMatcher, e *event.Event, body string, rec record) {
			m.vocab.legacyTrigger(e, body)
			old, ok := innerRegion(rec, event.RegionOld, "Tenured")
			generational(e, rec, event.RegionOld, old, ok)
			if s, ok := rec.find("DefNew"); ok && strings.Contains(s, "promotion failed") {
				e.Flags |= event.FlagPromotionFailed
			}
			finish(e, rec)
		},
	}
}
