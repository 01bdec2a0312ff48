package preprocess

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DatestampLayout is the wall-clock layout written by -XX:+PrintGCDateStamps
// and by the unified logging "time" decorator.
const DatestampLayout = "2006-01-02T15:04:05.000-0700"

var datestampLayouts = []string{
	DatestampLayout,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
}

var (
	// Anything shaped like a datestamp; parseDatestamp decides whether it is valid.
	legacyDatestamp = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}T\S*?): `)
	legacyElapsed   = regexp.MustCompile(`^(\d+[.,]\d+): `)

	unifiedDecoration = regexp.MustCompile(`^\[([^\[\]]*)\]`)
	unifiedUptime     = regexp.MustCompile(`^(\d+[.,]\d+)s$`)
	unifiedMillis     = regexp.MustCompile(`^(\d+)ms$`)
	unifiedNanos      = regexp.MustCompile(`^(\d+)ns$`)
	unifiedTags       = regexp.MustCompile(`^[a-z][a-z0-9_]*(?:,[a-z0-9_]+)*$`)
	unifiedNumber     = regexp.MustCompile(`^\d+$`)
	datestampShape    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T`)

	// A timestamp pair in the middle of a record, directly before a bracket.
	innerStamp = regexp.MustCompile(`(?:\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}[.,]\d{3}[+-]\d{4}: )?\d+[.,]\d+: \[`)
)

var unifiedLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warning": true, "error": true,
}

// prefix is what was read from the front of a raw line.
type prefix struct {
	elapsed    int64
	hasElapsed bool
	date       time.Time
	hasDate    bool
	badDate    bool

	unified bool
	tags    string
}

func (p prefix) timed() bool {
	return p.hasElapsed || p.hasDate
}

// splitPrefix separates the timestamp decorations of a raw line from its body.
func splitPrefix(text string) (prefix, string) {
	if strings.HasPrefix(text, "[") {
		if p, body, ok := splitUnified(text); ok {
			return p, body
		}
	}

	var p prefix
	rest := text
	if m := legacyDatestamp.FindStringSubmatch(rest); m != nil {
		if t, err := parseDatestamp(m[1]); err == nil {
			p.date, p.hasDate = t, true
		} else {
			p.badDate = true
		}
		rest = rest[len(m[0]):]
	}
	if m := legacyElapsed.FindStringSubmatch(rest); m != nil {
		p.elapsed, p.hasElapsed = parseElapsed(m[1]), true
		rest = rest[len(m[0]):]
	}
	return p, rest
}

// splitUnified reads the [decoration] groups of a unified logging line.
// ok is false when the groups are not all decorations, which is the case for
// legacy records such as "[GC 1024K->512K(4096K), 0.001 secs]".
func splitUnified(text string) (p prefix, body string, ok bool) {
	p.unified = true
	rest := text
	decorated := false
	for {
		m := unifiedDecoration.FindStringSubmatch(rest)
		if m == nil {
			break
		}
		dec := strings.TrimSpace(m[1])
		switch {
		case unifiedUptime.MatchString(dec):
			p.elapsed, p.hasElapsed = parseElapsed(strings.TrimSuffix(dec, "s")), true
			decorated = true
		case unifiedMillis.MatchString(dec):
			v, _ := strconv.ParseInt(strings.TrimSuffix(dec, "ms"), 10, 64)
			p.elapsed, p.hasElapsed = v, true
			decorated = true
		case unifiedNanos.MatchString(dec):
			v, _ := strconv.ParseInt(strings.TrimSuffix(dec, "ns"), 10, 64)
			p.elapsed, p.hasElapsed = v/int64(time.Millisecond), true
			decorated = true
		case datestampShape.MatchString(dec):
			if t, err := parseDatestamp(dec); err == nil {
				p.date, p.hasDate = t, true
			} else {
				p.badDate = true
			}
			decorated = true
		case unifiedLevels[dec]:
			decorated = true
		case unifiedTags.MatchString(dec):
			p.tags = dec
		case unifiedNumber.MatchString(dec):
			// pid or tid
		default:
			return prefix{}, text, false
		}
		rest = rest[len(m[0]):]
	}
	if !decorated {
		return prefix{}, text, false
	}
	return p, strings.TrimLeft(rest, " "), true
}

func parseDatestamp(s string) (time.Time, error) {
	s = strings.Replace(s, ",", ".", 1)
	var firstErr error
	for _, layout := range datestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, fmt.Errorf("invalid datestamp %q: %w", s, firstErr)
}

// parseElapsed converts "12.345" or "12,345" seconds to milliseconds,
// truncating below the millisecond.
func parseElapsed(s string) int64 {
	whole, frac, _ := strings.Cut(strings.Replace(s, ",", ".", 1), ".")
	secs, _ := strconv.ParseInt(whole, 10, 64)
	frac = (frac + "000")[:3]
	ms, _ := strconv.ParseInt(frac, 10, 64)
	return secs*1000 + ms
}

// Canonical formats milliseconds as the normalized "S.mmm: " prefix.
func Canonical(ms int64) string {
	sign := ""
	if ms < 0 {
		sign, ms = "-", -ms
	}
	return fmt.Sprintf("%s%d.%03d: ", sign, ms/1000, ms%1000)
}

// stripInner removes timestamps embedded inside a record.
func stripInner(body string) string {
	return innerStamp.ReplaceAllString(body, "[")
}

// resolve turns a prefix into a canonical elapsed time. The elapsed field
// wins when both are present. A datestamp alone is measured from the caller's
// start instant, else from the instant inferred from the first line that
// carried both, else from the Unix epoch.
//
// Once a datestamp has been measured from the epoch, every later datestamp
// of the capture is too, even next to an elapsed field. Switching clocks
// midway would make a chronological capture step backwards.
func (p *Preprocessor) resolve(pf prefix) (ms int64, ok bool, epoch bool) {
	if pf.hasDate && p.epochClock {
		return pf.date.UnixMilli(), true, true
	}
	if pf.hasElapsed {
		if pf.hasDate && p.inferred.IsZero() {
			p.inferred = pf.date.Add(-time.Duration(pf.elapsed) * time.Millisecond)
		}
		return pf.elapsed, true, false
	}
	if !pf.hasDate {
		return 0, false, false
	}
	switch {
	case !p.start.IsZero():
		return pf.date.Sub(p.start).Milliseconds(), true, false
	case !p.inferred.IsZero():
		return pf.date.Sub(p.inferred).Milliseconds(), true, false
	}
	p.epochClock = true
	return pf.date.UnixMilli(), true, true
}
