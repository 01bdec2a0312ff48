package matcher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ccollicutt/gcscan/pkg/event"
)

var (
	g1PauseRe = regexp.MustCompile(`^\[GC pause((?: ?` + parenPat + `)*)`)

	// [Eden: 24.0M(24.0M)->0.0B(20.0M) Survivors: 0.0B->4096.0K Heap: 24.0M(256.0M)->5.6M(256.0M)]
	edenRe      = regexp.MustCompile(`Eden: ` + sizePat + `\(` + sizePat + `\)->` + sizePat + `\(` + sizePat + `\)`)
	survivorsRe = regexp.MustCompile(`Survivors: ` + sizePat + `->` + sizePat)
	heapRe      = regexp.MustCompile(`Heap: ` + sizePat + `\(` + sizePat + `\)->` + sizePat + `\(` + sizePat + `\)`)
	metadataRe  = regexp.MustCompile(`\[(?:Metaspace|Perm|PSPermGen|CMS Perm) ?: ` + transitionPat + `\]`)

	g1ConcurrentRe = regexp.MustCompile(`^\[GC concurrent-([a-z-]+?)(-start|-end)?(?:, (\d[\d.,]*) secs)?\]`)
)

// g1PauseMatcher recognizes "[GC pause" records by their mode annotation.
type g1PauseMatcher struct {
	kind  event.Kind
	modes []string
	vocab Vocabulary
}

// G1YoungPause matches an evacuation pause of young regions only:
//
//	1.000: [GC pause (G1 Evacuation Pause) (young), 0.0100 secs] [Eden: 24.0M(24.0M)->0.0B(20.0M) Survivors: 0.0B->4096.0K Heap: 24.0M(256.0M)->5.6M(256.0M)] [Times: user=0.02 sys=0.00, real=0.01 secs]
//	1.000: [GC pause (young) 653M->586M(979M), 1.6364900 secs]
func G1YoungPause(v Vocabulary) Matcher {
	return &g1PauseMatcher{kind: event.KindG1YoungPause, modes: []string{"young"}, vocab: v}
}

// G1MixedPause matches an evacuation pause that also collects old regions.
// Early releases call it "partial".
func G1MixedPause(v Vocabulary) Matcher {
	return &g1PauseMatcher{kind: event.KindG1MixedPause, modes: []string{"mixed", "partial"}, vocab: v}
}

func (m *g1PauseMatcher) Kind() event.Kind {
	return m.kind
}

func (m *g1PauseMatcher) Match(text string) bool {
	_, _, body := timestamp(text)
	notes, ok := annotations(body)
	return ok && m.accepts(notes)
}

func (m *g1PauseMatcher) accepts(notes []string) bool {
	for _, n := range notes {
		for _, mode := range m.modes {
			if n == mode {
				return true
			}
		}
	}
	return false
}

func (m *g1PauseMatcher) Parse(text string) (event.Event, error) {
	e, body := begin(m.kind, text)
	notes, ok := annotations(body)
	if !ok || !m.accepts(notes) {
		return e, fmt.Errorf("%s: %w", m.kind, ErrUnidentified)
	}

	triggered := false
	for _, n := range notes {
		switch n {
		case "young":
		case "mixed", "partial":
			e.Flags |= event.FlagMixed
		case "initial-mark":
			e.Flags |= event.FlagInitialMark
		case "to-space exhausted", "to-space overflow":
			e.Flags |= event.FlagToSpaceExhausted
		default:
			if !triggered {
				m.vocab.setTrigger(&e, n)
				triggered = true
			}
		}
	}

	rec := decode(body)
	g1Regions(&e, body, rec)
	finish(&e, rec)
	e.CPU = cpuTimes(body)
	return e, nil
}

// annotations returns the parenthesized notes after "[GC pause".
func annotations(body string) ([]string, bool) {
	g := g1PauseRe.FindStringSubmatch(body)
	if g == nil {
		return nil, false
	}
	var notes []string
	for _, p := range parenRe.FindAllStringSubmatch(g[1], -1) {
		notes = append(notes, p[1])
	}
	return notes, true
}

// g1Regions reads the heap transition from the detail trailer, falling back
// to the plain transition of the record. Young is eden plus survivors and old
// is derived from the heap.
func g1Regions(e *event.Event, body string, rec record) {
	combined, cok := g1Heap(body)
	if !cok {
		combined, cok = rec.combined()
	}
	young, yok := g1Young(body)
	addRegion(e, young, yok)
	if yok && cok {
		e.Regions = append(e.Regions, derive(event.RegionOld, combined, young))
	}
	addRegion(e, combined, cok)
	meta, mok := bodyMetadata(body)
	addRegion(e, meta, mok)
	if !cok {
		e.Partial = true
	}
}

func g1Heap(body string) (event.Region, bool) {
	m := heapRe.FindStringSubmatch(body)
	if m == nil {
		return event.Region{}, false
	}
	r, err := region(event.RegionCombined, []string{m[1], m[2], m[5], m[6], m[7], m[8]})
	return r, err == nil
}

func g1Young(body string) (event.Region, bool) {
	eden := edenRe.FindStringSubmatch(body)
	surv := survivorsRe.FindStringSubmatch(body)
	if eden == nil || surv == nil {
		return event.Region{}, false
	}
	var v [5]int64
	for i, g := range [][2]string{{eden[1], eden[2]}, {eden[5], eden[6]}, {eden[7], eden[8]}, {surv[1], surv[2]}, {surv[3], surv[4]}} {
		kb, err := sizeKB(g[0], g[1])
		if err != nil {
			return event.Region{}, false
		}
		v[i] = kb
	}
	return event.Region{
		Name:     event.RegionYoung,
		Before:   v[0] + v[3],
		After:    v[1] + v[4],
		Capacity: v[2] + v[4],
	}, true
}

// bodyMetadata reads a metadata bracket anywhere in the line, including the
// detail trailer that follows a closed record.
func bodyMetadata(body string) (event.Region, bool) {
	m := metadataRe.FindStringSubmatch(body)
	if m == nil {
		return event.Region{}, false
	}
	r, err := region(event.RegionMetadata, m[1:])
	return r, err == nil
}

// G1FullGC matches a full collection by G1, recognized by its detail trailer:
//
//	9.000: [Full GC (Allocation Failure)  254M->253M(256M), 0.6000000 secs] [Eden: 0.0B(12.0M)->0.0B(12.0M) Survivors: 0.0B->0.0B Heap: 254.9M(256.0M)->253.8M(256.0M)], [Metaspace: 3234K->3234K(1056768K)] [Times: user=0.80 sys=0.00, real=0.60 secs]
func G1FullGC(v Vocabulary) Matcher {
	return &legacyMatcher{
		kind:  event.KindG1FullGC,
		head:  regexp.MustCompile(`^\[Full GC`),
		needs: "[Eden:",
		vocab: v,
		parse: func(m *legacyMatcher, e *event.Event, body string, rec record) {
			m.vocab.legacyTrigger(e, body)
			g1Regions(e, body, rec)
			finish(e, rec)
		},
	}
}

// G1Remark matches the remark pause:
//
//	5.000: [GC remark [Finalize Marking, 0.0001 secs] [GC ref-proc, 0.0002 secs] [Unloading, 0.0030 secs], 0.0070000 secs]
func G1Remark(v Vocabulary) Matcher {
	return &legacyMatcher{
		kind:  event.KindG1Remark,
		head:  regexp.MustCompile(`^\[GC remark`),
		vocab: v,
		parse: func(m *legacyMatcher, e *event.Event, body string, rec record) {
			if _, ok := rec.find("Unloading"); ok {
				e.Flags |= event.FlagClassUnloading
			}
			finish(e, rec)
		},
	}
}

// G1Cleanup matches the cleanup pause:
//
//	5.100: [GC cleanup 20M->18M(256M), 0.0010000 secs]
func G1Cleanup(v Vocabulary) Matcher {
	return &legacyMatcher{
		kind:  event.KindG1Cleanup,
		head:  regexp.MustCompile(`^\[GC cleanup`),
		vocab: v,
		parse: func(m *legacyMatcher, e *event.Event, body string, rec record) {
			combined, ok := rec.combined()
			addRegion(e, combined, ok)
			if !ok {
				e.Partial = true
			}
			finish(e, rec)
		},
	}
}

// G1Concurrent matches a concurrent phase marker:
//
//	4.000: [GC concurrent-mark-start]
//	4.040: [GC concurrent-mark-end, 0.0400000 secs]
//	4.050: [GC concurrent-mark-abort]
func G1Concurrent(Vocabulary) Matcher {
	return &concurrentMatcher{kind: event.KindG1Concurrent, re: g1ConcurrentRe}
}

// VerboseYoung matches a young collection logged without generation
// details, which names no collector:
//
//	1.000: [GC (Allocation Failure)  5000K->4100K(10000K), 0.0101000 secs]
func VerboseYoung(v Vocabulary) Matcher {
	return &legacyMatcher{
		kind:  event.KindVerboseYoung,
		head:  regexp.MustCompile(`^\[GC(?:--)?(?: ` + parenPat + `)? *` + transitionPat),
		vocab: v,
		parse: func(m *legacyMatcher, e *event.Event, body string, rec record) {
			m.vocab.legacyTrigger(e, body)
			if strings.HasPrefix(body, "[GC--") {
				e.Flags |= event.FlagPromotionFailed
			}
			verbose(e, rec)
		},
	}
}

// VerboseFull matches a full collection logged without generation details:
//
//	2.000: [Full GC (System.gc())  5000K->3000K(10000K), 0.1001000 secs]
func VerboseFull(v Vocabulary) Matcher {
	return &legacyMatcher{
		kind:  event.KindVerboseFull,
		head:  regexp.MustCompile(`^\[Full GC(?: ` + parenPat + `)? *` + transitionPat),
		vocab: v,
		parse: func(m *legacyMatcher, e *event.Event, body string, rec record) {
			m.vocab.legacyTrigger(e, body)
			verbose(e, rec)
		},
	}
}

func verbose(e *event.Event, rec record) {
	combined, ok := rec.combined()
	addRegion(e, combined, ok)
	meta, mok := rec.metadata()
	addRegion(e, meta, mok)
	if !ok {
		e.Partial = true
	}
	finish(e, rec)
}
