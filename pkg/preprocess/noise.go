package preprocess

import (
	"regexp"
	"strings"
)

var (
	tenuringNoise    = regexp.MustCompile(`^(?:Desired survivor size \d+ bytes|- age\s+\d+:)`)
	heapAtGCNoise    = regexp.MustCompile(`^(?:\{Heap (?:before|after) GC|Heap (?:before|after) GC|\}$)`)
	logRotationNoise = regexp.MustCompile(`GC log file (?:created|has reached)`)
	regionDumpNoise  = regexp.MustCompile(`(?:total \d+K, used \d+K|space \d+K, +\d+% used|the space \d+K|used \d+K, capacity \d+K|region size \d+K|\[0x[0-9a-f]+)`)
	abortPreclean    = regexp.MustCompile(`^\s*CMS: abort preclean due to time\s*`)
)

// Unified logging tag sets whose lines carry events. Lines tagged otherwise
// (gc,heap, gc,phases, gc,cpu, gc,start, ...) repeat detail of an event
// already reported on its [gc] line.
var unifiedKeepTags = map[string]bool{
	"gc":        true,
	"safepoint": true,
}

// isNoise reports whether a line is a known non-event fragment.
func isNoise(raw string, pf prefix, body string) bool {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return true
	}
	if pf.unified {
		return !keepUnified(pf.tags, trimmed)
	}
	switch {
	case strings.HasPrefix(trimmed, "Application time:"):
		return true
	case strings.Contains(trimmed, "VM warning:"):
		return true
	case tenuringNoise.MatchString(trimmed):
		return true
	case heapAtGCNoise.MatchString(trimmed):
		return true
	case logRotationNoise.MatchString(trimmed):
		return true
	}
	if indented(raw) {
		// region dump lines and G1 phase details outside their record
		if regionDumpNoise.MatchString(trimmed) {
			return true
		}
		if strings.HasPrefix(trimmed, "[") && !keepTrailer(trimmed) {
			return true
		}
	}
	return false
}

func keepUnified(tags, body string) bool {
	if unifiedKeepTags[tags] {
		return true
	}
	switch tags {
	case "gc,init":
		return strings.HasPrefix(body, "Using ") || strings.HasPrefix(body, "Version: ")
	case "gc,marking":
		return strings.Contains(body, "Concurrent Mark Abort")
	}
	return false
}

// keepTrailer reports whether an indented G1 detail line carries fields the
// matchers read. Per-phase timings are consumed with the record.
func keepTrailer(trimmed string) bool {
	return strings.HasPrefix(trimmed, "[Eden:") ||
		strings.HasPrefix(trimmed, "[Times:") ||
		strings.HasPrefix(trimmed, "[Metaspace:")
}

func indented(raw string) bool {
	return strings.HasPrefix(raw, " ") || strings.HasPrefix(raw, "\t")
}

// stripAbortPreclean removes the "CMS: abort preclean due to time" marker
// that is written in front of the abortable preclean phase line.
func stripAbortPreclean(s string) string {
	return abortPreclean.ReplaceAllString(s, "")
}
