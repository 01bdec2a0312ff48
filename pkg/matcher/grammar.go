package matcher

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ccollicutt/gcscan/pkg/event"
)

// Shared grammar fragments. Sizes are a number with a B, K, M or G suffix,
// optionally separated by a space as in the CMS "YG occupancy: 16015 K" block.
const (
	sizePat       = `(\d[\d.,]*)\s?([BKMG])B?`
	transitionPat = sizePat + `->` + sizePat + `\(` + sizePat + `\)`
	durationPat   = `(\d[\d.,]*) secs`
	// A parenthesized annotation that may itself end in "()", as in
	// "(System.gc())".
	parenPat = `\(((?:[^()]|\(\))+)\)`
)

var (
	canonicalTS = regexp.MustCompile(`^(-?\d+)\.(\d{3}): `)

	transitionRe = regexp.MustCompile(transitionPat)
	occupancyRe  = regexp.MustCompile(sizePat + `\(` + sizePat + `\)`)
	// G1 detail form: "24.0M(256.0M)->5.6M(256.0M)"
	g1TransitionRe = regexp.MustCompile(sizePat + `\(` + sizePat + `\)->` + sizePat + `\(` + sizePat + `\)`)
	// G1 survivors: "0.0B->4096.0K"
	pairRe = regexp.MustCompile(sizePat + `->` + sizePat)

	endDurationRe = regexp.MustCompile(durationPat + `$`)
	timesRe       = regexp.MustCompile(`\[Times: user=(-?[\d.,]+) sys=(-?[\d.,]+), real=(-?[\d.,]+) secs\s*\]`)
	parenRe       = regexp.MustCompile(parenPat)
)

// sizeKB converts a size with unit suffix to kilobytes, rounding to the
// nearest kilobyte.
func sizeKB(num, unit string) (int64, error) {
	f, err := parseLocaleNumber(num)
	if err != nil {
		return 0, err
	}
	switch unit {
	case "B":
		f /= 1024
	case "K":
	case "M":
		f *= 1024
	case "G":
		f *= 1024 * 1024
	default:
		return 0, fmt.Errorf("unknown size unit %q", unit)
	}
	f = math.Round(f)
	if math.IsNaN(f) || math.Abs(f) >= float64(math.MaxInt64) {
		return 0, fmt.Errorf("size %s%s out of range", num, unit)
	}
	return int64(f), nil
}

// parseLocaleNumber reads a size number whose separators vary by locale. A
// separator followed by exactly three digits groups thousands; any other
// separator is the decimal point. A leading zero integer part is never
// grouped, so "0.125" stays fractional.
func parseLocaleNumber(s string) (float64, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '.' && c != ',' {
			b.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		grouping := j-i-1 == 3 && (j == len(s) || s[j] == '.' || s[j] == ',') && b.String() != "0"
		if !grouping {
			b.WriteByte('.')
		}
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return f, nil
}

// decimalParts splits a duration number at its last separator. Earlier
// separators group thousands and are dropped.
func decimalParts(s string) (whole, frac string) {
	i := strings.LastIndexAny(s, ".,")
	if i < 0 {
		return s, ""
	}
	whole = strings.NewReplacer(".", "", ",", "").Replace(s[:i])
	return whole, s[i+1:]
}

// scaleDecimal returns round(num * 10^exp) using the decimal digits of num,
// so "1.6364900" seconds scales to exactly 1636490 microseconds.
func scaleDecimal(num string, exp int) (int64, error) {
	whole, frac := decimalParts(num)
	if whole == "" {
		whole = "0"
	}
	if exp < 0 {
		v, err := strconv.ParseInt(whole, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q: %w", num, err)
		}
		div := int64(math.Pow10(-exp))
		return (v + div/2) / div, nil
	}
	if len(frac) < exp {
		frac += strings.Repeat("0", exp-len(frac))
	}
	keep, rest := frac[:exp], frac[exp:]
	v, err := strconv.ParseInt(whole+keep, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", num, err)
	}
	if rest != "" && rest[0] >= '5' {
		v++
	}
	return v, nil
}

// durationMicros converts a number and unit to integer microseconds.
func durationMicros(num, unit string) (event.Duration, error) {
	exp := 0
	switch unit {
	case "secs", "sec", "s", "seconds":
		exp = 6
	case "ms":
		exp = 3
	case "us":
	case "ns":
		exp = -3
	default:
		return event.Duration{}, fmt.Errorf("unknown duration unit %q", unit)
	}
	v, err := scaleDecimal(num, exp)
	if err != nil {
		return event.Duration{}, err
	}
	return event.Micros(v), nil
}

func secs(num string) (event.Duration, error) {
	return durationMicros(num, "secs")
}

// timestamp reads the canonical prefix. rest is the text after it.
func timestamp(text string) (ms int64, ok bool, rest string) {
	m := canonicalTS.FindStringSubmatch(text)
	if m == nil {
		return 0, false, text
	}
	whole, _ := strconv.ParseInt(m[1], 10, 64)
	frac, _ := strconv.ParseInt(m[2], 10, 64)
	if strings.HasPrefix(m[1], "-") {
		frac = -frac
	}
	return whole*1000 + frac, true, text[len(m[0]):]
}

// region builds a snapshot from the six groups of a transition match.
func region(name event.RegionName, g []string) (event.Region, error) {
	before, err := sizeKB(g[0], g[1])
	if err != nil {
		return event.Region{}, err
	}
	after, err := sizeKB(g[2], g[3])
	if err != nil {
		return event.Region{}, err
	}
	capacity, err := sizeKB(g[4], g[5])
	if err != nil {
		return event.Region{}, err
	}
	return event.Region{Name: name, Before: before, After: after, Capacity: capacity}, nil
}

// transition reads the first "B->A(C)" in s.
func transition(name event.RegionName, s string) (event.Region, bool) {
	m := transitionRe.FindStringSubmatch(s)
	if m == nil {
		return event.Region{}, false
	}
	r, err := region(name, m[1:])
	return r, err == nil
}

// occupancy reads the first "U(C)" in s as a snapshot that did not change.
func occupancy(name event.RegionName, s string) (event.Region, bool) {
	m := occupancyRe.FindStringSubmatch(s)
	if m == nil {
		return event.Region{}, false
	}
	used, err := sizeKB(m[1], m[2])
	if err != nil {
		return event.Region{}, false
	}
	capacity, err := sizeKB(m[3], m[4])
	if err != nil {
		return event.Region{}, false
	}
	return event.Region{Name: name, Before: used, After: used, Capacity: capacity}, true
}

// derive returns combined minus part. Rounding in the source may leave the
// result one unit below zero; it is kept as computed.
func derive(name event.RegionName, combined, part event.Region) event.Region {
	return event.Region{
		Name:     name,
		Before:   combined.Before - part.Before,
		After:    combined.After - part.After,
		Capacity: combined.Capacity - part.Capacity,
	}
}

// cpuTimes reads a [Times: user=.. sys=.., real=.. secs] block in centiseconds.
func cpuTimes(text string) *event.CPUTimes {
	m := timesRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	var v [3]int64
	for i := range v {
		n, err := scaleDecimal(strings.TrimPrefix(m[i+1], "-"), 2)
		if err != nil {
			return nil
		}
		v[i] = n
	}
	return &event.CPUTimes{User: v[0], Sys: v[1], Real: v[2]}
}

// record is a bracketed legacy record split by nesting depth.
type record struct {
	// outer is the text directly inside the first top-level bracket.
	outer string
	// inner holds the content of each bracket nested one level down.
	inner []string
	// closed is set when the top-level bracket was closed.
	closed bool
}

// decode splits body, which starts at the opening "[", into its levels.
func decode(body string) record {
	var (
		rec   record
		outer strings.Builder
		cur   strings.Builder
		depth int
	)
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch c {
		case '[':
			depth++
			if depth <= 2 {
				continue
			}
		case ']':
			depth--
			if depth == 0 {
				rec.closed = true
				rec.outer = outer.String()
				return rec
			}
			if depth == 1 {
				rec.inner = append(rec.inner, cur.String())
				cur.Reset()
				continue
			}
		}
		switch {
		case depth == 1:
			outer.WriteByte(c)
		case depth >= 2:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		rec.inner = append(rec.inner, cur.String())
	}
	rec.outer = outer.String()
	return rec
}

// find returns the first inner bracket whose content starts with one of the
// prefixes.
func (r record) find(prefixes ...string) (string, bool) {
	for _, s := range r.inner {
		for _, p := range prefixes {
			if strings.HasPrefix(s, p) {
				return s, true
			}
		}
	}
	return "", false
}

// duration reads the trailing "N secs" of the top-level record. A record
// that never closed has no trustworthy duration.
func (r record) duration() (event.Duration, bool) {
	if !r.closed {
		return event.Duration{}, false
	}
	m := endDurationRe.FindStringSubmatch(strings.TrimRight(r.outer, " ,"))
	if m == nil {
		return event.Duration{}, false
	}
	d, err := secs(m[1])
	return d, err == nil
}

// combined reads the heap transition written directly in the top-level record.
func (r record) combined() (event.Region, bool) {
	return transition(event.RegionCombined, r.outer)
}

// metadata reads the perm gen or metaspace bracket in any of its spellings.
func (r record) metadata() (event.Region, bool) {
	s, ok := r.find("Metaspace:", "Perm :", "Perm:", "PSPermGen:", "CMS Perm :", "CMS Perm:")
	if !ok {
		return event.Region{}, false
	}
	return transition(event.RegionMetadata, s)
}
