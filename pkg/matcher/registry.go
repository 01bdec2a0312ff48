package matcher

import (
	"fmt"

	"github.com/ccollicutt/gcscan/pkg/event"
	"github.com/ccollicutt/gcscan/pkg/preprocess"
)

// Registry tries matchers in a fixed order and parses with the first one
// that accepts a line. A Registry is immutable once built.
type Registry struct {
	matchers []Matcher
}

// DefaultMatchers returns one matcher per event kind, most specific first.
// Kinds whose heads overlap are ordered so the longer grammar wins: a
// young collection that fell back to an old collection is tried before
// the plain young collection, and the detail-free forms come last.
func DefaultMatchers(v Vocabulary) []Matcher {
	return []Matcher{
		CommandLine(v),
		Version(v),
		Memory(v),
		FooterHeap(v),
		UnifiedHeader(v),
		ApplicationStoppedTime(v),

		CMSConcurrent(v),
		CMSInitialMark(v),
		CMSRemark(v),
		CMSSerialOld(v),
		ParNew(v),

		SerialOld(v),
		SerialNew(v),

		ParallelCompactingOld(v),
		ParallelSerialOld(v),
		ParallelScavenge(v),

		G1Concurrent(v),
		G1MixedPause(v),
		G1YoungPause(v),
		G1FullGC(v),
		G1Remark(v),
		G1Cleanup(v),

		UnifiedConcurrent(v),
		UnifiedFull(v),
		UnifiedRemark(v),
		UnifiedCleanup(v),
		UnifiedYoung(v),

		VerboseFull(v),
		VerboseYoung(v),
	}
}

// NewRegistry builds the full registry for a vocabulary.
func NewRegistry(v Vocabulary) *Registry {
	return NewRegistryFrom(DefaultMatchers(v)...)
}

// NewRegistryFrom builds a registry that tries exactly ms, in order.
func NewRegistryFrom(ms ...Matcher) *Registry {
	return &Registry{matchers: append([]Matcher(nil), ms...)}
}

// Matchers returns the matchers in priority order.
func (r *Registry) Matchers() []Matcher {
	return append([]Matcher(nil), r.matchers...)
}

// Identify returns the first matcher that accepts text.
func (r *Registry) Identify(text string) (Matcher, bool) {
	for _, m := range r.matchers {
		if m.Match(text) {
			return m, true
		}
	}
	return nil, false
}

// Parse turns one normalized line into an event. A line no matcher accepts
// becomes an UNKNOWN event carrying the raw text, returned together with an
// error wrapping ErrUnidentified; callers keep the event and go on.
//
// A line the preprocessor flushed as incomplete never carries a duration,
// since the text that would close the record was never read.
func (r *Registry) Parse(line preprocess.Line) (event.Event, error) {
	if line.Unnormalized {
		return unidentified(line, "unparseable timestamp"), fmt.Errorf("line %d: %w", line.First, ErrUnidentified)
	}
	m, ok := r.Identify(line.Text)
	if !ok {
		return unidentified(line, "no matching grammar"), fmt.Errorf("line %d: %w", line.First, ErrUnidentified)
	}
	e, err := m.Parse(line.Text)
	if err != nil {
		return unidentified(line, err.Error()), fmt.Errorf("line %d: %w", line.First, err)
	}
	if line.Incomplete {
		e.Duration = event.Duration{}
		e.Partial = true
	}
	e.Line = event.LineSpan{First: line.First, Last: line.Last}
	return e, nil
}

func unidentified(line preprocess.Line, reason string) event.Event {
	e, _ := begin(event.KindUnknown, line.Text)
	e.Detail = event.Unidentified{Text: line.Text, Reason: reason}
	e.Line = event.LineSpan{First: line.First, Last: line.Last}
	return e
}
