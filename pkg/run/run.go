// Package run aggregates parsed events into a Run: the ordered event
// sequence of one log plus its summary statistics and findings.
package run

import (
	"errors"
	"sort"

	"github.com/ccollicutt/gcscan/pkg/event"
	"github.com/ccollicutt/gcscan/pkg/finding"
	"github.com/ccollicutt/gcscan/pkg/jvm"
)

// ErrFinalized is returned by Append once the run has been finalized.
var ErrFinalized = errors.New("run already finalized")

// Evaluator derives findings from a finalized run. It must only read the
// run and must not depend on the run's findings.
type Evaluator interface {
	Evaluate(r *Run) []finding.Code
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(r *Run) []finding.Code

func (f EvaluatorFunc) Evaluate(r *Run) []finding.Code {
	return f(r)
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithEvaluator sets the evaluator called once by Finalize.
func WithEvaluator(ev Evaluator) Option {
	return func(a *Aggregator) {
		a.eval = ev
	}
}

// Aggregator builds a Run from events appended in input order.
type Aggregator struct {
	eval Evaluator

	events       []event.Event
	unidentified []Unidentified
	appended     int

	last  int64
	timed bool

	run *Run
}

// New returns an empty aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Append adds the next event. Events without a timestamp of their own are
// stamped with the last timestamp seen; UNKNOWN events go to the
// unidentified bucket instead of the event sequence.
func (a *Aggregator) Append(e event.Event) error {
	if a.run != nil {
		return ErrFinalized
	}
	a.appended++

	if e.HasTimestamp {
		a.last, a.timed = e.Timestamp, true
	} else if a.timed {
		e.Timestamp = a.last
	}

	if e.Kind == event.KindUnknown {
		u := Unidentified{Line: e.Line, Timestamp: e.Timestamp, position: a.appended}
		if d, ok := e.Detail.(event.Unidentified); ok {
			u.Text, u.Reason = d.Text, d.Reason
		}
		a.unidentified = append(a.unidentified, u)
		return nil
	}
	a.events = append(a.events, e)
	return nil
}

// Len returns the number of events appended so far, identified or not.
func (a *Aggregator) Len() int {
	return a.appended
}

// Finalize computes the summary, runs the evaluator and returns the Run.
// Later calls return the same Run.
func (a *Aggregator) Finalize() *Run {
	if a.run != nil {
		return a.run
	}

	r := &Run{
		events:       a.events,
		unidentified: a.unidentified,
		counts:       make(map[event.Kind]int),
	}
	for i := range r.unidentified {
		r.unidentified[i].Last = r.unidentified[i].position == a.appended
	}

	triggers := map[string]bool{}
	for i := range r.events {
		e := &r.events[i]
		r.counts[e.Kind]++
		if e.Trigger == event.TriggerUnknown && e.TriggerText != "" {
			triggers[e.TriggerText] = true
		}
		switch d := e.Detail.(type) {
		case event.CommandLine:
			r.options = r.options.Merge(d.Options)
		case event.Version:
			if r.version == nil {
				v := d
				r.version = &v
			}
		case event.CollectorInUse:
			if d.Collector != event.CollectorUnknown {
				r.declared = d.Collector
			}
		}
	}
	for text := range triggers {
		r.unknownTriggers = append(r.unknownTriggers, text)
	}
	sort.Strings(r.unknownTriggers)
	r.summary = summarize(r.events)

	a.run = r
	if a.eval != nil {
		r.findings = finding.Set(a.eval.Evaluate(r)...)
	}
	return r
}

// Unidentified is a line no matcher recognized.
type Unidentified struct {
	Text      string         `json:"text"`
	Reason    string         `json:"reason,omitempty"`
	Line      event.LineSpan `json:"line"`
	Timestamp int64          `json:"timestamp_ms"`

	// Last is set when nothing was parsed after this line, which usually
	// means the capture cut a record off.
	Last bool `json:"last"`

	position int
}

// Run is the finalized result of one log. It is read-only.
type Run struct {
	events          []event.Event
	unidentified    []Unidentified
	counts          map[event.Kind]int
	options         jvm.Options
	version         *event.Version
	declared        event.Collector
	unknownTriggers []string
	summary         Summary
	findings        []finding.Code
}

// Events returns the identified events in input order.
func (r *Run) Events() []event.Event {
	return append([]event.Event(nil), r.events...)
}

// Any reports whether at least one identified event satisfies pred.
func (r *Run) Any(pred func(e event.Event) bool) bool {
	for _, e := range r.events {
		if pred(e) {
			return true
		}
	}
	return false
}

// Kinds returns the observed kinds in taxonomy order.
func (r *Run) Kinds() []event.Kind {
	var kinds []event.Kind
	for _, k := range event.Kinds() {
		if r.counts[k] > 0 {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Has reports whether at least one event of kind k was observed.
func (r *Run) Has(k event.Kind) bool {
	return r.counts[k] > 0
}

// Count returns the number of events of kind k.
func (r *Run) Count(k event.Kind) int {
	return r.counts[k]
}

// Counts returns the per-kind event counts.
func (r *Run) Counts() map[event.Kind]int {
	out := make(map[event.Kind]int, len(r.counts))
	for k, n := range r.counts {
		out[k] = n
	}
	return out
}

// Summary returns the summary statistics.
func (r *Run) Summary() Summary {
	return r.summary
}

// Unidentified returns the lines no matcher recognized.
func (r *Run) Unidentified() []Unidentified {
	return append([]Unidentified(nil), r.unidentified...)
}

// UnknownTriggers returns the distinct trigger texts the vocabulary did not
// recognize, sorted.
func (r *Run) UnknownTriggers() []string {
	return append([]string(nil), r.unknownTriggers...)
}

// Options returns the JVM options from the log's command line header.
func (r *Run) Options() jvm.Options {
	return r.options
}

// Version returns the runtime version header, if the log has one.
func (r *Run) Version() (event.Version, bool) {
	if r.version == nil {
		return event.Version{}, false
	}
	return *r.version, true
}

// Collectors returns the collector families observed, from the event kinds
// and from a unified logging "Using ..." header.
func (r *Run) Collectors() []event.Collector {
	seen := map[event.Collector]bool{}
	if r.declared != "" {
		seen[r.declared] = true
	}
	for k := range r.counts {
		if c := k.Collector(); c != event.CollectorUnknown {
			seen[c] = true
		}
	}
	var out []event.Collector
	for _, c := range []event.Collector{
		event.CollectorSerial, event.CollectorParallel, event.CollectorCMS,
		event.CollectorG1, event.CollectorShenandoah, event.CollectorZGC,
	} {
		if seen[c] {
			out = append(out, c)
		}
	}
	return out
}

// Collector returns the collector family that wrote the log, or
// CollectorUnknown when none or more than one was observed.
func (r *Run) Collector() event.Collector {
	if cs := r.Collectors(); len(cs) == 1 {
		return cs[0]
	}
	return event.CollectorUnknown
}

// Findings returns the finding set in catalog order.
func (r *Run) Findings() []finding.Code {
	return append([]finding.Code(nil), r.findings...)
}

// HasFinding reports whether c is in the finding set.
func (r *Run) HasFinding(c finding.Code) bool {
	for _, f := range r.findings {
		if f == c {
			return true
		}
	}
	return false
}
