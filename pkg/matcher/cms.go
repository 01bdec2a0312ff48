package matcher

import (
	"regexp"
	"strings"

	"github.com/ccollicutt/gcscan/pkg/event"
)

// ParNew matches a young collection by the parallel new collector that
// accompanies CMS. "icms_dc=" marks incremental mode:
//
//	1.000: [GC (Allocation Failure) [ParNew: 1000K->100K(2000K), 0.0100 secs] 5000K->4100K(10000K), 0.0101 secs]
//	1.000: [GC [ParNew: 1000K->100K(2000K), 0.0100 secs] 5000K->4100K(10000K) icms_dc=5 , 0.0101 secs]
func ParNew(v Vocabulary) Matcher {
	return &legacyMatcher{
		kind:  event.KindParNew,
		head:  regexp.MustCompile(`^\[GC(?: ` + parenPat + `)? ?\[ParNew`),
		vocab: v,
		parse: func(m *legacyMatcher, e *event.Event, body string, rec record) {
			m.vocab.legacyTrigger(e, body)
			young, ok := innerRegion(rec, event.RegionYoung, "ParNew")
			generational(e, rec, event.RegionYoung, young, ok)
			if s, ok := rec.find("ParNew"); ok && strings.Contains(s, "promotion failed") {
				e.Flags |= event.FlagPromotionFailed
			}
			if strings.Contains(rec.outer, "icms_dc=") {
				e.Flags |= event.FlagIncrementalMode
			}
			finish(e, rec)
		},
	}
}

// CMSSerialOld matches a stop-the-world collection of the CMS old
// generation. It is a full collection, or a ParNew that failed promotion and
// fell back to a serial old collection:
//
//	2.000: [Full GC (System.gc()) [CMS: 4000K->3000K(8000K), 0.1000 secs] 5000K->3000K(10000K), [Metaspace: 2000K->2000K(4000K)], 0.1001 secs]
//	2.000: [GC [ParNew (promotion failed): 1000K->1000K(2000K), 0.0100 secs][CMS: 4000K->3000K(8000K), 0.1000 secs] 5000K->3000K(10000K), 0.1101 secs]
//	2.000: [Full GC [CMS (concurrent mode failure): 4000K->3000K(8000K), 0.1000 secs] 5000K->3000K(10000K), [CMS Perm : 1000K->1000K(2000K)], 0.1001 secs]
func CMSSerialOld(v Vocabulary) Matcher {
	return &legacyMatcher{
		kind:  event.KindCMSSerialOld,
		head:  regexp.MustCompile(`^\[(?:Full GC|GC)(?: ` + parenPat + `)? ?(?:\[ParNew[^\]]*\] ?)?\[CMS(?:[ :]|$)`),
		vocab: v,
		parse: func(m *legacyMatcher, e *event.Event, body string, rec record) {
			m.vocab.legacyTrigger(e, body)
			cms, _ := rec.find("CMS:", "CMS (")
			old, ok := transition(event.RegionOld, cms)
			generational(e, rec, event.RegionOld, old, ok)

			if s, ok := rec.find("ParNew"); ok && strings.Contains(s, "promotion failed") {
				e.Flags |= event.FlagPromotionFailed
			}
			switch {
			case strings.Contains(cms, "concurrent mode failure"):
				e.Flags |= event.FlagConcurrentModeFailure
			case strings.Contains(cms, "concurrent mode interrupted"):
				if e.Trigger == event.TriggerNone {
					e.Trigger = event.TriggerConcurrentModeInterrupted
				}
			}
			if strings.Contains(rec.outer, "icms_dc=") {
				e.Flags |= event.FlagIncrementalMode
			}
			finish(e, rec)
		},
	}
}

var (
	initialMarkRe = regexp.MustCompile(`\[1 CMS-initial-mark: ` + sizePat + `\(` + sizePat + `\)\]`)
	remarkRe      = regexp.MustCompile(`\[1 CMS-remark: ` + sizePat + `\(` + sizePat + `\)\]`)
)

// youngOccupancyRe reads "YG occupancy: 16015 K (19136 K)".
var youngOccupancyRe = regexp.MustCompile(`YG occupancy: ` + sizePat + ` ?\(` + sizePat + `\)`)

// CMSInitialMark matches the initial mark pause:
//
//	3.000: [GC (CMS Initial Mark) [1 CMS-initial-mark: 4000K(8000K)] 5000K(10000K), 0.0010 secs]
func CMSInitialMark(v Vocabulary) Matcher {
	return &legacyMatcher{
		kind:  event.KindCMSInitialMark,
		head:  regexp.MustCompile(`^\[GC(?: ` + parenPat + `)? ?\[1 CMS-initial-mark`),
		vocab: v,
		parse: func(m *legacyMatcher, e *event.Event, body string, rec record) {
			m.vocab.legacyTrigger(e, body)
			e.Flags |= event.FlagInitialMark
			cmsOccupancy(e, body, rec, initialMarkRe)
			finish(e, rec)
		},
	}
}

// CMSRemark matches the final remark pause. Its sub-phases each carry a
// duration; the event duration is the one that closes the outer record:
//
//	4.000: [GC (CMS Final Remark) [YG occupancy: 1000 K (2000 K)][Rescan (parallel) , 0.0050 secs][weak refs processing, 0.0001 secs][1 CMS-remark: 4000K(8000K)] 5000K(10000K), 0.0060 secs]
func CMSRemark(v Vocabulary) Matcher {
	return &legacyMatcher{
		kind:  event.KindCMSRemark,
		head:  regexp.MustCompile(`^\[GC(?: ` + parenPat + `)? ?\[YG occupancy`),
		vocab: v,
		parse: func(m *legacyMatcher, e *event.Event, body string, rec record) {
			m.vocab.legacyTrigger(e, body)
			if g := youngOccupancyRe.FindStringSubmatch(body); g != nil {
				used, err1 := sizeKB(g[1], g[2])
				capacity, err2 := sizeKB(g[3], g[4])
				if err1 == nil && err2 == nil {
					e.Regions = append(e.Regions, event.Region{Name: event.RegionYoung, Before: used, After: used, Capacity: capacity})
				}
			}
			cmsOccupancy(e, body, rec, remarkRe)
			if strings.Contains(body, "class unloading") {
				e.Flags |= event.FlagClassUnloading
			}
			finish(e, rec)
		},
	}
}

// cmsOccupancy reads the old generation occupancy from the marker bracket and
// the combined occupancy that follows it.
func cmsOccupancy(e *event.Event, body string, rec record, marker *regexp.Regexp) {
	m := marker.FindStringSubmatch(body)
	if m == nil {
		e.Partial = true
		return
	}
	used, err1 := sizeKB(m[1], m[2])
	capacity, err2 := sizeKB(m[3], m[4])
	if err1 == nil && err2 == nil {
		e.Regions = append(e.Regions, event.Region{Name: event.RegionOld, Before: used, After: used, Capacity: capacity})
	}
	combined, ok := occupancy(event.RegionCombined, rec.outer)
	addRegion(e, combined, ok)
	if !ok {
		e.Partial = true
	}
}

var cmsConcurrentRe = regexp.MustCompile(`^\[CMS-concurrent-([a-z-]+?)(-start)?(?:: (\d[\d.,]*)/(\d[\d.,]*) secs)?\]`)

// CMSConcurrent matches a concurrent phase marker. The duration is the wall
// clock time of the phase:
//
//	5.000: [CMS-concurrent-mark-start]
//	5.100: [CMS-concurrent-mark: 0.080/0.100 secs] [Times: user=0.16 sys=0.00, real=0.10 secs]
func CMSConcurrent(Vocabulary) Matcher {
	return &concurrentMatcher{kind: event.KindCMSConcurrent, re: cmsConcurrentRe}
}

// concurrentMatcher handles the legacy concurrent phase markers of CMS and G1.
type concurrentMatcher struct {
	kind event.Kind
	re   *regexp.Regexp
}

func (m *concurrentMatcher) Kind() event.Kind {
	return m.kind
}

func (m *concurrentMatcher) Match(text string) bool {
	_, _, body := timestamp(text)
	return m.re.MatchString(body)
}

func (m *concurrentMatcher) Parse(text string) (event.Event, error) {
	e, body := begin(m.kind, text)
	g := m.re.FindStringSubmatch(body)
	if g == nil {
		return e, ErrUnidentified
	}
	phase := event.Phase{Name: g[1], Start: g[2] == "-start"}
	if strings.HasSuffix(phase.Name, "-abort") || phase.Name == "abort" {
		phase.Aborted = true
	}
	e.Detail = phase
	if wall := g[len(g)-1]; wall != "" {
		if d, err := secs(wall); err == nil {
			e.Duration = d
		}
	}
	e.CPU = cpuTimes(body)
	return e, nil
}
