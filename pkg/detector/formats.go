package detector

import "regexp"

// Decoration is a known GC log line prefix style.
type Decoration struct {
	Name       string         // Human-readable name
	Pattern    *regexp.Regexp // Compiled regex (set during init)
	PatternStr string         // Pattern string for display
	Examples   []string       // Example line prefixes

	// Unified is set for the unified logging (-Xlog) decorations written
	// by runtime 9 and later.
	Unified bool

	// NeedsStart is set when lines carry only wall-clock dates, so event
	// times can only be computed from a configured start instant.
	NeedsStart bool
}

// DefaultDecorations returns the built-in decorations to detect. More
// specific patterns come first.
func DefaultDecorations() []*Decoration {
	decorations := []*Decoration{
		// -XX:+PrintGCDateStamps -XX:+PrintGCTimeStamps
		{
			Name:       "Datestamp and uptime",
			PatternStr: `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}[+-]\d{4}: \d+[.,]\d{3}: `,
			Examples:   []string{"2016-10-18T21:34:52.123-0400: 1.234: "},
		},
		// -XX:+PrintGCDateStamps only
		{
			Name:       "Datestamp",
			PatternStr: `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}[+-]\d{4}: `,
			Examples:   []string{"2016-10-18T21:34:52.123-0400: "},
			NeedsStart: true,
		},
		// -XX:+PrintGCTimeStamps
		{
			Name:       "Uptime",
			PatternStr: `^\d+[.,]\d{3}: `,
			Examples:   []string{"1.234: "},
		},
		// -Xlog:gc*:file=gc.log:time,uptime
		{
			Name:       "Unified with time",
			PatternStr: `^\[\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}[+-]\d{4}\](?:\[\d+[.,]\d{3}s\])?`,
			Examples:   []string{"[2021-05-06T12:00:00.123+0000][0.004s]"},
			Unified:    true,
		},
		// -Xlog:gc* with the default uptime decoration
		{
			Name:       "Unified uptime",
			PatternStr: `^\[\d+(?:[.,]\d{3}s|ms|ns)\]`,
			Examples:   []string{"[0.004s][info][gc] ", "[1234ms][info ][gc   ] "},
			Unified:    true,
		},
	}

	for _, d := range decorations {
		d.Pattern = regexp.MustCompile(d.PatternStr)
	}

	return decorations
}
