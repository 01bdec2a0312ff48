// Package preprocess turns raw garbage collection log lines into normalized
// lines: one logical record per line, a single canonical "S.mmm: " elapsed
// time prefix, and known noise removed.
//
// The merge of records that a runtime split across physical lines is an
// explicit state machine. In the idle state each line is classified on its
// own. A line that opens a record moves the machine to collecting, where
// following lines are buffered until the record closes. Three record kinds
// are collected:
//
//   - bracket: a record whose "[" and "]" are unbalanced at the end of the
//     line. It closes when the nesting depth returns to zero.
//   - trailer: a G1 pause line followed by the indented detail block written
//     by -XX:+PrintGCDetails. It closes on the "[Times:" line.
//   - footer: the "Heap" summary printed at exit, closed by the first line
//     that is not indented.
//
// A bracket record is flushed as Incomplete when a line would close it below
// depth zero, when a new top-level record starts, or when input ends.
package preprocess

import (
	"regexp"
	"strings"
	"time"
)

// maxRecordLines bounds how many raw lines one record may buffer.
const maxRecordLines = 256

// Line is one normalized line.
type Line struct {
	// Text carries the canonical elapsed prefix when the source had any
	// timestamp. Untimestamped header and footer lines are passed unprefixed.
	Text string

	// First and Last are the 1-based raw line numbers the text came from.
	First int
	Last  int

	// Incomplete is set on records flushed before their brackets closed.
	// Durations read from such a record are not trusted.
	Incomplete bool

	// EpochRelative is set when the elapsed time counts from the Unix epoch:
	// the line had only a datestamp and no run start instant was known, or
	// an earlier line of the capture already fell back to the epoch.
	EpochRelative bool

	// Unnormalized is set when the timestamp prefix could not be parsed.
	// Text is the raw line.
	Unnormalized bool
}

// Stats accounts for every raw line pushed. Collected + Passed + Dropped
// always equals Lines.
type Stats struct {
	Lines     int `json:"lines"`
	Collected int `json:"collected"`
	Passed    int `json:"passed"`
	Dropped   int `json:"dropped"`

	// Flagged counts emitted lines marked EpochRelative or Unnormalized.
	Flagged int `json:"flagged"`
}

// Balanced reports whether every raw line is accounted for.
func (s Stats) Balanced() bool {
	return s.Collected+s.Passed+s.Dropped == s.Lines
}

type recordKind int

const (
	recordBracket recordKind = iota + 1
	recordTrailer
	recordFooter
)

func (k recordKind) String() string {
	switch k {
	case recordBracket:
		return "bracket"
	case recordTrailer:
		return "trailer"
	case recordFooter:
		return "footer"
	}
	return "idle"
}

// record is the collecting state.
type record struct {
	kind      recordKind
	depth     int
	text      strings.Builder
	first     int
	last      int
	lines     int
	epoch     bool
	fragments []Line
}

var (
	topLevelRecord = regexp.MustCompile(`^\[(?:Full GC|GC)\b`)
	trailerHead    = regexp.MustCompile(`^\[(?:GC pause|GC remark|GC cleanup|Full GC)`)
	concurrentHead = regexp.MustCompile(`^\[(?:CMS-concurrent-|GC concurrent-)`)
	safepointLine  = regexp.MustCompile(`^Total time for which application threads were stopped`)

	// A concurrent phase fragment written into the middle of another record,
	// with its own optional timestamps and [Times:] block.
	fragment = regexp.MustCompile(`(?:\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}[.,]\d{3}[+-]\d{4}: )?(?:\d+[.,]\d+: )?\[(?:CMS-concurrent-|GC concurrent-)[^\[\]]*\](?: \[Times: [^\[\]]*\])?`)
)

// Option configures a Preprocessor.
type Option func(*Preprocessor)

// WithStartInstant sets the wall-clock instant the runtime started at. Lines
// that carry only a datestamp are measured from it.
func WithStartInstant(t time.Time) Option {
	return func(p *Preprocessor) {
		p.start = t
	}
}

// Preprocessor normalizes raw lines. It is not safe for concurrent use; use
// one per log capture.
type Preprocessor struct {
	start    time.Time
	inferred time.Time
	rec      *record
	stats    Stats

	// epochClock is set once a datestamp was measured from the epoch.
	epochClock bool
}

// New creates a Preprocessor in the idle state.
func New(opts ...Option) *Preprocessor {
	p := &Preprocessor{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs a whole capture through a new Preprocessor.
func Process(lines []string, opts ...Option) ([]Line, Stats) {
	p := New(opts...)
	var out []Line
	for i, text := range lines {
		out = append(out, p.Push(text, i+1)...)
	}
	out = append(out, p.Flush()...)
	return out, p.Stats()
}

// Push feeds the next raw line and returns the normalized lines it completes.
func (p *Preprocessor) Push(text string, lineNum int) []Line {
	p.stats.Lines++
	text = strings.TrimRight(text, "\r\n")

	if p.rec != nil {
		out, consumed := p.collect(text, lineNum)
		if consumed {
			return out
		}
		return append(out, p.idle(text, lineNum)...)
	}
	return p.idle(text, lineNum)
}

// Flush ends the input. An open bracket record is emitted as Incomplete;
// trailer and footer records are complete at end of input.
func (p *Preprocessor) Flush() []Line {
	if p.rec == nil {
		return nil
	}
	return p.flush(p.rec.kind == recordBracket)
}

// Stats returns the line accounting so far.
func (p *Preprocessor) Stats() Stats {
	return p.stats
}

// State names the current state for diagnostics: "idle", "bracket",
// "trailer" or "footer".
func (p *Preprocessor) State() string {
	if p.rec == nil {
		return "idle"
	}
	return p.rec.kind.String()
}

func (p *Preprocessor) idle(raw string, lineNum int) []Line {
	if !indented(raw) && strings.TrimSpace(raw) == "Heap" {
		p.open(recordFooter, 0, "Heap", lineNum, false)
		return nil
	}

	pf, body := p.split(raw)
	if pf.badDate {
		p.stats.Passed++
		p.stats.Flagged++
		return []Line{{Text: raw, First: lineNum, Last: lineNum, Unnormalized: true}}
	}
	if isNoise(stripAbortPreclean(raw), pf, body) {
		p.stats.Dropped++
		return nil
	}

	if pf.unified || !strings.HasPrefix(body, "[") || isFragment(body) {
		p.stats.Passed++
		return []Line{p.emit(pf, body, lineNum, lineNum)}
	}

	frags, body := p.extract(pf, body, lineNum)
	depth, ok := scanDepth(0, body)
	switch {
	case ok && depth > 0:
		ms, timed, epoch := p.resolve(pf)
		p.open(recordBracket, depth, prefixed(ms, timed, stripInner(body)), lineNum, epoch)
		p.rec.fragments = frags
		return nil
	case ok && depth == 0 && trailerHead.MatchString(body) && !strings.Contains(body, "[Times:"):
		ms, timed, epoch := p.resolve(pf)
		p.open(recordTrailer, 0, prefixed(ms, timed, stripInner(body)), lineNum, epoch)
		p.rec.fragments = frags
		return nil
	}

	p.stats.Passed++
	return append([]Line{p.emit(pf, body, lineNum, lineNum)}, frags...)
}

// collect handles a line while a record is open. consumed is false when the
// line ended the record without belonging to it; the caller then processes
// it in the idle state.
func (p *Preprocessor) collect(raw string, lineNum int) (out []Line, consumed bool) {
	switch p.rec.kind {
	case recordFooter:
		if !indented(raw) || strings.TrimSpace(raw) == "" {
			return p.flush(false), false
		}
		p.consume(lineNum)
		p.rec.text.WriteString(" | ")
		p.rec.text.WriteString(strings.TrimSpace(raw))
		return nil, true

	case recordTrailer:
		trimmed := strings.TrimSpace(raw)
		if !indented(raw) || trimmed == "" {
			return p.flush(false), false
		}
		p.consume(lineNum)
		if keepTrailer(trimmed) {
			p.rec.text.WriteString(" ")
			p.rec.text.WriteString(trimmed)
		}
		if strings.HasPrefix(trimmed, "[Times:") {
			return p.flush(false), true
		}
		return nil, true
	}

	return p.collectBracket(raw, lineNum)
}

func (p *Preprocessor) collectBracket(raw string, lineNum int) (out []Line, consumed bool) {
	pf, body := p.split(raw)
	if pf.badDate || pf.unified {
		return p.flush(true), false
	}
	if isNoise(stripAbortPreclean(raw), pf, body) {
		p.consume(lineNum)
		return nil, true
	}
	if isFragment(body) || safepointLine.MatchString(body) {
		p.consume(lineNum)
		p.rec.fragments = append(p.rec.fragments, p.emit(pf, body, lineNum, lineNum))
		return nil, true
	}
	if topLevelRecord.MatchString(body) && !concurrentHead.MatchString(body) && !strings.HasPrefix(body, "[GC ref-proc") {
		return p.flush(true), false
	}
	if !continuation(body) {
		return p.flush(true), false
	}

	rest := fragment.ReplaceAllString(body, "")
	depth, ok := scanDepth(p.rec.depth, rest)
	if !ok {
		return p.flush(true), false
	}

	frags, body := p.extract(pf, body, lineNum)
	p.consume(lineNum)
	p.rec.fragments = append(p.rec.fragments, frags...)
	p.rec.text.WriteString(strings.TrimRight(stripInner(body), " \t"))
	p.rec.depth = depth

	if depth == 0 {
		if trailerHead.MatchString(p.body()) && !strings.Contains(p.rec.text.String(), "[Times:") {
			p.rec.kind = recordTrailer
			return nil, true
		}
		return p.flush(false), true
	}
	if p.rec.lines >= maxRecordLines {
		return p.flush(true), true
	}
	return nil, true
}

// split reads the prefix of a raw line, looking through the abortable
// preclean marker wherever it appears before the record.
func (p *Preprocessor) split(raw string) (prefix, string) {
	pf, body := splitPrefix(stripAbortPreclean(raw))
	if stripped := stripAbortPreclean(body); stripped != body {
		inner, rest := splitPrefix(stripped)
		if inner.timed() || inner.badDate {
			return inner, rest
		}
		return pf, rest
	}
	return pf, body
}

// extract removes concurrent phase fragments embedded in body and returns
// them as lines of their own. A fragment without its own timestamp takes
// the timestamp of the line it was found on.
func (p *Preprocessor) extract(pf prefix, body string, lineNum int) ([]Line, string) {
	locs := fragment.FindAllStringIndex(body, -1)
	if len(locs) == 0 {
		return nil, body
	}
	var (
		frags []Line
		rest  strings.Builder
		prev  int
	)
	for _, loc := range locs {
		rest.WriteString(body[prev:loc[0]])
		fpf, fbody := splitPrefix(body[loc[0]:loc[1]])
		if !fpf.timed() {
			fpf = pf
		}
		frags = append(frags, p.emit(fpf, fbody, lineNum, lineNum))
		prev = loc[1]
	}
	rest.WriteString(body[prev:])
	return frags, rest.String()
}

// emit builds a single normalized line.
func (p *Preprocessor) emit(pf prefix, body string, first, last int) Line {
	ms, timed, epoch := p.resolve(pf)
	l := Line{
		Text:          prefixed(ms, timed, stripInner(body)),
		First:         first,
		Last:          last,
		EpochRelative: epoch,
	}
	if epoch {
		p.stats.Flagged++
	}
	return l
}

func (p *Preprocessor) open(kind recordKind, depth int, text string, lineNum int, epoch bool) {
	p.rec = &record{kind: kind, depth: depth, first: lineNum, epoch: epoch}
	p.rec.text.WriteString(text)
	p.consume(lineNum)
}

func (p *Preprocessor) consume(lineNum int) {
	p.rec.lines++
	p.rec.last = lineNum
	p.stats.Collected++
}

// body returns the buffered record text without its canonical prefix.
func (p *Preprocessor) body() string {
	_, body := splitPrefix(p.rec.text.String())
	return body
}

func (p *Preprocessor) flush(incomplete bool) []Line {
	rec := p.rec
	p.rec = nil
	l := Line{
		Text:          rec.text.String(),
		First:         rec.first,
		Last:          rec.last,
		Incomplete:    incomplete,
		EpochRelative: rec.epoch,
	}
	if rec.epoch {
		p.stats.Flagged++
	}
	return append([]Line{l}, rec.fragments...)
}

func prefixed(ms int64, timed bool, body string) string {
	body = strings.TrimRight(body, " \t")
	if !timed {
		return body
	}
	return Canonical(ms) + body
}

// continuation reports whether body can be the rest of an open record, as
// opposed to a header or other standalone line.
func continuation(body string) bool {
	if body == "" {
		return false
	}
	c := body[0]
	return strings.IndexByte("[:,( ", c) >= 0 || (c >= '0' && c <= '9')
}

func isFragment(body string) bool {
	loc := fragment.FindStringIndex(body)
	return loc != nil && loc[0] == 0 && strings.TrimSpace(body[loc[1]:]) == ""
}

// scanDepth walks the brackets of s starting from depth. ok is false when
// the depth would drop below zero.
func scanDepth(depth int, s string) (int, bool) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth < 0 {
				return depth, false
			}
		}
	}
	return depth, true
}
