package matcher

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ccollicutt/gcscan/pkg/event"
	"github.com/ccollicutt/gcscan/pkg/jvm"
)

// lineMatcher recognizes a single unbracketed line by one regular
// expression and hands the submatches to parse.
type lineMatcher struct {
	kind  event.Kind
	re    *regexp.Regexp
	parse func(e *event.Event, body string, g []string)
}

func (m *lineMatcher) Kind() event.Kind {
	return m.kind
}

func (m *lineMatcher) Match(text string) bool {
	_, _, body := timestamp(text)
	return m.re.MatchString(body)
}

func (m *lineMatcher) Parse(text string) (event.Event, error) {
	e, body := begin(m.kind, text)
	g := m.re.FindStringSubmatch(body)
	if g == nil {
		return e, fmt.Errorf("%s: %w", m.kind, ErrUnidentified)
	}
	m.parse(&e, body, g)
	return e, nil
}

var (
	stoppedRe   = regexp.MustCompile(`^Total time for which application threads were stopped: (\d[\d.,]*) seconds(?:, Stopping threads took: (\d[\d.,]*) seconds)?`)
	safepointRe = regexp.MustCompile(`^Safepoint "[^"]*", Time since last: \d+ ns, Reaching safepoint: (\d+) ns,.* Total: (\d+) ns`)
)

// ApplicationStoppedTime matches the safepoint summary, in the legacy and
// the newer unified form:
//
//	3.000: Total time for which application threads were stopped: 0.0001234 seconds, Stopping threads took: 0.0000123 seconds
//	3.000: Safepoint "G1CollectForAllocation", Time since last: 1000 ns, Reaching safepoint: 200 ns, At safepoint: 800 ns, Total: 1000 ns
func ApplicationStoppedTime(Vocabulary) Matcher {
	return &lineMatcher{
		kind: event.KindApplicationStoppedTime,
		re:   regexp.MustCompile(`^(?:Total time for which application threads were stopped: |Safepoint ")`),
		parse: func(e *event.Event, body string, _ []string) {
			var sp event.Safepoint
			switch {
			case stoppedRe.MatchString(body):
				g := stoppedRe.FindStringSubmatch(body)
				e.Duration, _ = secs(g[1])
				if g[2] != "" {
					sp.StoppingThreads, _ = secs(g[2])
				}
			case safepointRe.MatchString(body):
				g := safepointRe.FindStringSubmatch(body)
				e.Duration, _ = durationMicros(g[2], "ns")
				sp.StoppingThreads, _ = durationMicros(g[1], "ns")
			}
			if !e.Duration.Valid {
				e.Partial = true
			}
			e.Detail = sp
		},
	}
}

// CommandLine matches the flags header written at startup:
//
//	CommandLine flags: -XX:InitialHeapSize=268435456 -XX:+PrintGCDetails -XX:+UseConcMarkSweepGC
func CommandLine(Vocabulary) Matcher {
	return &lineMatcher{
		kind: event.KindHeaderCommandLine,
		re:   regexp.MustCompile(`^CommandLine flags: ?(.*)$`),
		parse: func(e *event.Event, _ string, g []string) {
			e.Detail = event.CommandLine{Options: jvm.Parse(g[1])}
		},
	}
}

var (
	legacyVersionRe  = regexp.MustCompile(`VM \([^)]*\) for \S+ JRE \(([^)]*)\)`)
	unifiedVersionRe = regexp.MustCompile(`^Version: (\S+)`)
)

// Version matches the runtime version header:
//
//	Java HotSpot(TM) 64-Bit Server VM (25.102-b14) for linux-amd64 JRE (1.8.0_102-b14), built on Jun 22 2016 18:43:17 by "java_re" with gcc 4.3.0 20080428 (Red Hat 4.3.0-8)
//	0.004: Version: 17.0.1+12 (release)
func Version(Vocabulary) Matcher {
	return &lineMatcher{
		kind: event.KindHeaderVersion,
		re:   regexp.MustCompile(`^(?:\S.* VM \([^)]*\) for \S+ JRE \(|Version: )`),
		parse: func(e *event.Event, body string, _ []string) {
			v := event.Version{Text: body}
			if g := legacyVersionRe.FindStringSubmatch(body); g != nil {
				v.Release = g[1]
			} else if g := unifiedVersionRe.FindStringSubmatch(body); g != nil {
				v.Text = strings.TrimPrefix(body, "Version: ")
				v.Release = g[1]
			}
			v.Major = majorVersion(v.Release)
			e.Detail = v
		},
	}
}

// majorVersion reads the feature release from a version string, mapping
// the "1.8.0_102" scheme to 8.
func majorVersion(release string) int {
	s := strings.TrimPrefix(release, "1.")
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

var memoryRe = regexp.MustCompile(`^Memory: (\d+)([kKmMgG]) page, physical (\d+)([kKmMgG])\((\d+)([kKmMgG]) free\), swap (\d+)([kKmMgG])\((\d+)([kKmMgG]) free\)`)

// Memory matches the host memory header:
//
//	Memory: 4k page, physical 16333320k(1234567k free), swap 2097148k(2097148k free)
func Memory(Vocabulary) Matcher {
	return &lineMatcher{
		kind: event.KindHeaderMemory,
		re:   memoryRe,
		parse: func(e *event.Event, _ string, g []string) {
			var v [5]int64
			for i := range v {
				kb, err := sizeKB(g[2*i+1], strings.ToUpper(g[2*i+2]))
				if err != nil {
					e.Partial = true
					continue
				}
				v[i] = kb
			}
			e.Detail = event.Memory{
				PageKB:         v[0],
				PhysicalKB:     v[1],
				PhysicalFreeKB: v[2],
				SwapKB:         v[3],
				SwapFreeKB:     v[4],
			}
		},
	}
}

var (
	footerSpaceRe = regexp.MustCompile(`^\s*(\S.*?)\s+total (\d+)([KMG]), used (\d+)([KMG])`)
	footerMetaRe  = regexp.MustCompile(`^\s*Metaspace\s+used (\d+)([KMG]), capacity (\d+)([KMG]), committed (\d+)([KMG])`)
)

// footerRegions maps the space names of the exit heap summary to regions.
var footerRegions = map[string]event.RegionName{
	"def new generation":               event.RegionYoung,
	"PSYoungGen":                       event.RegionYoung,
	"par new generation":               event.RegionYoung,
	"tenured generation":               event.RegionOld,
	"PSOldGen":                         event.RegionOld,
	"ParOldGen":                        event.RegionOld,
	"concurrent mark-sweep generation": event.RegionOld,
	"garbage-first heap":               event.RegionCombined,
	"Shenandoah Heap":                  event.RegionCombined,
	"PSPermGen":                        event.RegionMetadata,
	"compacting perm gen":              event.RegionMetadata,
	"concurrent-mark-sweep perm gen":   event.RegionMetadata,
}

// FooterHeap matches the heap summary printed at exit, joined by the
// preprocessor into one line:
//
//	Heap | par new generation   total 18624K, used 1000K [0x00, 0x01, 0x02) | concurrent mark-sweep generation total 65536K, used 40000K [0x00, 0x01, 0x02) | Metaspace       used 2985K, capacity 4486K, committed 4864K, reserved 1056768K
func FooterHeap(Vocabulary) Matcher {
	return &lineMatcher{
		kind: event.KindFooterHeap,
		re:   regexp.MustCompile(`^Heap(?: \| |$)`),
		parse: func(e *event.Event, body string, _ []string) {
			seen := map[event.RegionName]bool{}
			for _, seg := range strings.Split(body, " | ")[1:] {
				r, ok := footerSpace(seg)
				if !ok || seen[r.Name] {
					continue
				}
				seen[r.Name] = true
				e.Regions = append(e.Regions, r)
			}
			young, yok := e.Region(event.RegionYoung)
			old, ook := e.Region(event.RegionOld)
			if yok && ook && !seen[event.RegionCombined] {
				e.Regions = append(e.Regions, event.Region{
					Name:     event.RegionCombined,
					Before:   young.Before + old.Before,
					After:    young.After + old.After,
					Capacity: young.Capacity + old.Capacity,
				})
			}
			if len(e.Regions) == 0 {
				e.Partial = true
			}
		},
	}
}

func footerSpace(seg string) (event.Region, bool) {
	if g := footerMetaRe.FindStringSubmatch(seg); g != nil {
		used, err1 := sizeKB(g[1], g[2])
		committed, err2 := sizeKB(g[5], g[6])
		if err1 != nil || err2 != nil {
			return event.Region{}, false
		}
		return event.Region{Name: event.RegionMetadata, Before: used, After: used, Capacity: committed}, true
	}
	g := footerSpaceRe.FindStringSubmatch(seg)
	if g == nil {
		return event.Region{}, false
	}
	name, ok := footerRegions[g[1]]
	if !ok {
		return event.Region{}, false
	}
	total, err1 := sizeKB(g[2], g[3])
	used, err2 := sizeKB(g[4], g[5])
	if err1 != nil || err2 != nil {
		return event.Region{}, false
	}
	return event.Region{Name: name, Before: used, After: used, Capacity: total}, true
}
