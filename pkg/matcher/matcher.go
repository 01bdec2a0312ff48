// Package matcher recognizes normalized garbage collection log lines and
// extracts typed events from them. Each Matcher owns the grammar of exactly
// one event kind; a Registry tries them in a fixed priority order.
package matcher

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ccollicutt/gcscan/pkg/event"
)

// ErrUnidentified is returned when no matcher accepts a line.
var ErrUnidentified = errors.New("unidentified log line")

// Matcher recognizes one event kind.
type Matcher interface {
	// Kind returns the event kind this matcher produces.
	Kind() event.Kind

	// Match is a cheap structural test. It has no side effects and accepts
	// any input, including truncated lines.
	Match(text string) bool

	// Parse extracts the event. Fields that cannot be read are left absent
	// and the event is marked Partial.
	Parse(text string) (event.Event, error)
}

// legacyMatcher recognizes one bracketed record grammar by its head.
type legacyMatcher struct {
	kind  event.Kind
	head  *regexp.Regexp
	vocab Vocabulary
	parse func(m *legacyMatcher, e *event.Event, body string, rec record)

	// needs is text the body must also contain, when the head alone is
	// shared with another kind.
	needs string
}

func (m *legacyMatcher) Kind() event.Kind {
	return m.kind
}

func (m *legacyMatcher) Match(text string) bool {
	_, _, body := timestamp(text)
	return m.accepts(body)
}

func (m *legacyMatcher) accepts(body string) bool {
	return m.head.MatchString(body) && strings.Contains(body, m.needs)
}

func (m *legacyMatcher) Parse(text string) (event.Event, error) {
	e, body := begin(m.kind, text)
	if !m.accepts(body) {
		return e, fmt.Errorf("%s: %w", m.kind, ErrUnidentified)
	}
	m.parse(m, &e, body, decode(body))
	e.CPU = cpuTimes(body)
	return e, nil
}

// begin starts an event from the canonical timestamp prefix.
func begin(kind event.Kind, text string) (event.Event, string) {
	ms, ok, rest := timestamp(text)
	return event.Event{
		Kind:         kind,
		Timestamp:    ms,
		HasTimestamp: ok,
		Trigger:      event.TriggerNone,
	}, rest
}

var legacyTriggerRe = regexp.MustCompile(`^\[(?:Full GC|GC)(?:--)? ?` + parenPat)

// legacyTrigger reads the cause written right after "[GC" or "[Full GC".
func (v Vocabulary) legacyTrigger(e *event.Event, body string) {
	if m := legacyTriggerRe.FindStringSubmatch(body); m != nil {
		v.setTrigger(e, m[1])
	}
}

func addRegion(e *event.Event, r event.Region, ok bool) {
	if ok {
		e.Regions = append(e.Regions, r)
	}
}

// innerRegion reads the transition of the first inner bracket that starts
// with one of the generation names.
func innerRegion(rec record, name event.RegionName, prefixes ...string) (event.Region, bool) {
	s, ok := rec.find(prefixes...)
	if !ok {
		return event.Region{}, false
	}
	return transition(name, s)
}

// generational fills the regions of a record that reports one generation
// explicitly plus a combined heap transition. The sibling generation is
// derived as combined minus the reported one.
func generational(e *event.Event, rec record, known event.RegionName, r event.Region, ok bool) {
	combined, cok := rec.combined()
	addRegion(e, r, ok)
	if ok && cok {
		sibling := event.RegionOld
		if known == event.RegionOld {
			sibling = event.RegionYoung
		}
		e.Regions = append(e.Regions, derive(sibling, combined, r))
	}
	addRegion(e, combined, cok)
	meta, mok := rec.metadata()
	addRegion(e, meta, mok)
	if !cok {
		e.Partial = true
	}
}

// finish sets the duration from the end of the record, or marks the event
// Partial when the record was cut off first.
func finish(e *event.Event, rec record) {
	if d, ok := rec.duration(); ok {
		e.Duration = d
		return
	}
	e.Partial = true
}
