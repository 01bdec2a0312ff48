package matcher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ccollicutt/gcscan/pkg/event"
)

// Unified logging lines after normalization:
//
//	0.123: GC(3) Pause Young (Normal) (G1 Evacuation Pause) 24M->4M(256M) 3.456ms
//	0.500: GC(7) Pause Full (System.gc()) 20M->8M(256M) 30.100ms
//	0.400: GC(5) Concurrent Mark 12.345ms
var (
	unifiedPauseRe      = regexp.MustCompile(`^GC\(\d+\) Pause (Young|Mixed|Initial Mark|Full|Remark|Cleanup|Init Mark|Final Mark|Init Update Refs|Final Update Refs|Mark Start|Mark End|Relocate Start)((?: ` + parenPat + `)*)`)
	unifiedConcurrentRe = regexp.MustCompile(`^GC\(\d+\) Concurrent ([A-Za-z][A-Za-z -]*?)(?: \([^)]*\))?(?: ` + transitionPat + `)?(?: (\d[\d.,]*)(ms|s|us|ns))?$`)
	unifiedDurationRe   = regexp.MustCompile(` (\d[\d.,]*)(ms|s|us|ns)$`)
	unifiedUsingRe      = regexp.MustCompile(`^Using (.+)$`)
)

// unifiedPauseMatcher recognizes one class of "Pause ..." lines.
type unifiedPauseMatcher struct {
	kind  event.Kind
	vocab Vocabulary
}

// UnifiedYoung matches young and mixed pauses, including the initial mark
// pause that G1 piggybacks on a young collection.
func UnifiedYoung(v Vocabulary) Matcher {
	return &unifiedPauseMatcher{kind: event.KindUnifiedYoung, vocab: v}
}

// UnifiedFull matches full collections.
func UnifiedFull(v Vocabulary) Matcher {
	return &unifiedPauseMatcher{kind: event.KindUnifiedFull, vocab: v}
}

// UnifiedRemark matches the short marking pauses of the concurrent
// collectors.
func UnifiedRemark(v Vocabulary) Matcher {
	return &unifiedPauseMatcher{kind: event.KindUnifiedRemark, vocab: v}
}

// UnifiedCleanup matches the G1 cleanup pause.
func UnifiedCleanup(v Vocabulary) Matcher {
	return &unifiedPauseMatcher{kind: event.KindUnifiedCleanup, vocab: v}
}

// classifyPause maps the pause name to a kind. An initial mark pause with a
// cause is a G1 young collection; without one it is a marking pause.
func classifyPause(name string, notes []string) event.Kind {
	switch name {
	case "Young", "Mixed":
		return event.KindUnifiedYoung
	case "Initial Mark":
		if len(notes) > 0 {
			return event.KindUnifiedYoung
		}
		return event.KindUnifiedRemark
	case "Full":
		return event.KindUnifiedFull
	case "Cleanup":
		return event.KindUnifiedCleanup
	}
	return event.KindUnifiedRemark
}

func unifiedPause(body string) (name string, notes []string, ok bool) {
	g := unifiedPauseRe.FindStringSubmatch(body)
	if g == nil {
		return "", nil, false
	}
	for _, p := range parenRe.FindAllStringSubmatch(g[2], -1) {
		notes = append(notes, p[1])
	}
	return g[1], notes, true
}

func (m *unifiedPauseMatcher) Kind() event.Kind {
	return m.kind
}

func (m *unifiedPauseMatcher) Match(text string) bool {
	_, _, body := timestamp(text)
	name, notes, ok := unifiedPause(body)
	return ok && classifyPause(name, notes) == m.kind
}

func (m *unifiedPauseMatcher) Parse(text string) (event.Event, error) {
	e, body := begin(m.kind, text)
	name, notes, ok := unifiedPause(body)
	if !ok || classifyPause(name, notes) != m.kind {
		return e, fmt.Errorf("%s: %w", m.kind, ErrUnidentified)
	}

	switch name {
	case "Mixed":
		e.Flags |= event.FlagMixed
	case "Initial Mark", "Init Mark":
		e.Flags |= event.FlagInitialMark
	}
	triggered := false
	for _, n := range notes {
		switch n {
		case "Normal", "Prepare Mixed", "Concurrent End":
		case "Mixed":
			e.Flags |= event.FlagMixed
		case "Concurrent Start":
			e.Flags |= event.FlagInitialMark
		case "Evacuation Failure", "To-space exhausted":
			e.Flags |= event.FlagToSpaceExhausted
		case "unload classes":
			e.Flags |= event.FlagClassUnloading
		default:
			if !triggered {
				m.vocab.setTrigger(&e, n)
				triggered = true
			}
		}
	}

	if r, ok := transition(event.RegionCombined, body); ok {
		e.Regions = append(e.Regions, r)
	}
	if g := unifiedDurationRe.FindStringSubmatch(body); g != nil {
		if d, err := durationMicros(g[1], g[2]); err == nil {
			e.Duration = d
		}
	}
	if !e.Duration.Valid {
		e.Partial = true
	}
	return e, nil
}

type unifiedConcurrentMatcher struct{}

// UnifiedConcurrent matches concurrent phase lines. A phase line without a
// duration marks the phase start:
//
//	0.300: GC(5) Concurrent Cycle
//	0.400: GC(5) Concurrent Mark (0.300s, 0.400s) 100.123ms
//	0.410: GC(5) Concurrent Mark Abort
func UnifiedConcurrent(Vocabulary) Matcher {
	return unifiedConcurrentMatcher{}
}

func (unifiedConcurrentMatcher) Kind() event.Kind {
	return event.KindUnifiedConcurrent
}

func (unifiedConcurrentMatcher) Match(text string) bool {
	_, _, body := timestamp(text)
	return unifiedConcurrentRe.MatchString(body)
}

func (unifiedConcurrentMatcher) Parse(text string) (event.Event, error) {
	e, body := begin(event.KindUnifiedConcurrent, text)
	g := unifiedConcurrentRe.FindStringSubmatch(body)
	if g == nil {
		return e, fmt.Errorf("%s: %w", e.Kind, ErrUnidentified)
	}
	name := strings.TrimSpace(g[1])
	phase := event.Phase{
		Name:    name,
		Aborted: strings.Contains(name, "Abort"),
	}
	num, unit := g[len(g)-2], g[len(g)-1]
	if num != "" {
		if d, err := durationMicros(num, unit); err == nil {
			e.Duration = d
		}
	} else if !phase.Aborted {
		phase.Start = true
	}
	if r, ok := transition(event.RegionCombined, body); ok {
		e.Regions = append(e.Regions, r)
	}
	e.Detail = phase
	return e, nil
}

type unifiedHeaderMatcher struct{}

// UnifiedHeader matches the collector announcement:
//
//	0.005: Using G1
func UnifiedHeader(Vocabulary) Matcher {
	return unifiedHeaderMatcher{}
}

func (unifiedHeaderMatcher) Kind() event.Kind {
	return event.KindUnifiedHeader
}

func (unifiedHeaderMatcher) Match(text string) bool {
	_, _, body := timestamp(text)
	return unifiedUsingRe.MatchString(body)
}

func (unifiedHeaderMatcher) Parse(text string) (event.Event, error) {
	e, body := begin(event.KindUnifiedHeader, text)
	g := unifiedUsingRe.FindStringSubmatch(body)
	if g == nil {
		return e, fmt.Errorf("%s: %w", e.Kind, ErrUnidentified)
	}
	name := strings.TrimSpace(g[1])
	e.Detail = event.CollectorInUse{Name: name, Collector: event.ParseCollector(name)}
	return e, nil
}
