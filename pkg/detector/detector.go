// Package detector samples a GC log and reports how it was written: the
// line decoration, the collector family and the runtime version whose
// trigger vocabulary fits it.
package detector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/ccollicutt/gcscan/pkg/analyzer"
	"github.com/ccollicutt/gcscan/pkg/config"
	"github.com/ccollicutt/gcscan/pkg/event"
	"github.com/ccollicutt/gcscan/pkg/jvm"
	"github.com/ccollicutt/gcscan/pkg/matcher"
	"github.com/ccollicutt/gcscan/pkg/parser"
	"github.com/ccollicutt/gcscan/pkg/preprocess"
	"github.com/ccollicutt/gcscan/pkg/run"
)

// DefaultSampleSize is the number of lines sampled from the head of a log.
const DefaultSampleSize = 500

// DetectionResult holds the result of sampling a log.
type DetectionResult struct {
	Decorations  []DecorationMatch // Decorations that matched, sorted by confidence descending
	SampledLines int               // Number of lines sampled
	ParsedLines  int               // Number of lines with the best decoration

	// Collectors lists every collector family observed and Collector the
	// single family that wrote the log, or CollectorUnknown.
	Collectors []event.Collector
	Collector  event.Collector

	// Version is the runtime version header, if the sample had one.
	Version *event.Version

	// Options is the command line from the log header.
	Options jvm.Options

	// RuntimeVersion names the trigger vocabulary that fits the log.
	RuntimeVersion string

	// FirstDatestamp is the first wall-clock datestamp read, as written.
	FirstDatestamp string

	Events       int
	Unidentified int

	// Notes are warnings about settings the log needs.
	Notes []string
}

// DecorationMatch is a decoration that matched with its confidence score.
type DecorationMatch struct {
	Decoration *Decoration
	Confidence float64 // 0.0 to 1.0 (share of sampled lines matched)
	MatchCount int     // Number of lines that matched
	SampleLine string  // Example line that matched
}

// Detector samples GC logs to identify how they were written.
type Detector struct {
	decorations []*Decoration
	sampleSize  int
}

// Option configures the Detector.
type Option func(*Detector)

// WithSampleSize sets the number of lines to sample (default 500).
func WithSampleSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// New creates a new Detector with default decorations.
func New(opts ...Option) *Detector {
	d := &Detector{
		decorations: DefaultDecorations(),
		sampleSize:  DefaultSampleSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectFromFile samples a local log file, "-" for standard input.
func (d *Detector) DetectFromFile(ctx context.Context, path string) (*DetectionResult, error) {
	source := parser.NewFileSource([]string{path})
	defer source.Close()
	return d.DetectFromSource(ctx, source)
}

// DetectFromSource samples the head of a log source.
func (d *Detector) DetectFromSource(ctx context.Context, source parser.LogSource) (*DetectionResult, error) {
	var lines []string
	for len(lines) < d.sampleSize {
		line, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("sampling log: %w", err)
		}
		lines = append(lines, line.Content)
	}
	return d.DetectFromLines(lines), nil
}

var datestampRe = regexp.MustCompile(`^\[?(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}[+-]\d{4})`)

// DetectFromLines analyzes a slice of log lines.
func (d *Detector) DetectFromLines(lines []string) *DetectionResult {
	result := &DetectionResult{
		SampledLines:   len(lines),
		Collector:      event.CollectorUnknown,
		RuntimeVersion: matcher.VersionAuto,
	}

	if len(lines) == 0 {
		return result
	}

	d.matchDecorations(lines, result)
	for _, line := range lines {
		if g := datestampRe.FindStringSubmatch(line); g != nil {
			result.FirstDatestamp = g[1]
			break
		}
	}

	r := parseSample(lines)
	result.Events = len(r.Events())
	result.Unidentified = len(r.Unidentified())
	result.Options = r.Options()
	result.Collectors = r.Collectors()
	result.Collector = r.Collector()
	if len(result.Collectors) == 0 {
		result.Collector = analyzer.Env{}.Collector(r)
		if result.Collector != event.CollectorUnknown {
			result.Collectors = []event.Collector{result.Collector}
		}
	}
	if v, ok := r.Version(); ok {
		result.Version = &v
	}
	result.RuntimeVersion = runtimeVersion(result)

	result.Notes = notes(result)
	return result
}

func (d *Detector) matchDecorations(lines []string, result *DetectionResult) {
	type decorationStats struct {
		decoration *Decoration
		matchCount int
		sampleLine string
	}

	stats := make(map[string]*decorationStats)
	var order []string

	// The first decoration that matches a line wins, since the list runs
	// from most to least specific.
	for _, line := range lines {
		for _, dec := range d.decorations {
			if !dec.Pattern.MatchString(line) {
				continue
			}
			s := stats[dec.Name]
			if s == nil {
				s = &decorationStats{decoration: dec, sampleLine: line}
				stats[dec.Name] = s
				order = append(order, dec.Name)
			}
			s.matchCount++
			break
		}
	}

	for _, name := range order {
		s := stats[name]
		result.Decorations = append(result.Decorations, DecorationMatch{
			Decoration: s.decoration,
			Confidence: float64(s.matchCount) / float64(len(lines)),
			MatchCount: s.matchCount,
			SampleLine: s.sampleLine,
		})
	}

	sort.SliceStable(result.Decorations, func(i, j int) bool {
		return result.Decorations[i].Confidence > result.Decorations[j].Confidence
	})

	if len(result.Decorations) > 0 {
		result.ParsedLines = result.Decorations[0].MatchCount
	}
}

// parseSample runs the sample through the parsing pipeline with the
// vocabulary of every runtime version.
func parseSample(lines []string) *run.Run {
	registry := matcher.NewRegistry(matcher.MustVocabulary(matcher.VersionAuto))
	normalized, _ := preprocess.Process(lines)

	agg := run.New()
	for _, line := range normalized {
		e, _ := registry.Parse(line)
		// Append only fails after Finalize.
		_ = agg.Append(e)
	}
	return agg.Finalize()
}

// runtimeVersion picks the trigger vocabulary for the sample.
func runtimeVersion(result *DetectionResult) string {
	if best := result.BestMatch(); best != nil && best.Decoration.Unified {
		return matcher.VersionUnified
	}
	if result.Version == nil {
		return matcher.VersionAuto
	}
	switch major := result.Version.Major; {
	case major == 6:
		return matcher.VersionJDK6
	case major == 7:
		return matcher.VersionJDK7
	case major == 8:
		return matcher.VersionJDK8
	case major >= 9:
		return matcher.VersionUnified
	}
	return matcher.VersionAuto
}

func notes(result *DetectionResult) []string {
	var out []string
	if best := result.BestMatch(); best != nil && best.Decoration.NeedsStart {
		out = append(out, "lines carry datestamps without uptime; set start_instant to the JVM start time")
	}
	if len(result.Collectors) > 1 {
		names := make([]string, len(result.Collectors))
		for i, c := range result.Collectors {
			names[i] = string(c)
		}
		out = append(out, "more than one collector family observed: "+strings.Join(names, ", "))
	}
	if result.Unidentified > 0 {
		out = append(out, fmt.Sprintf("%d sampled line(s) were not recognized", result.Unidentified))
	}
	return out
}

// BestMatch returns the highest confidence decoration, or nil if none found.
func (r *DetectionResult) BestMatch() *DecorationMatch {
	if len(r.Decorations) == 0 {
		return nil
	}
	return &r.Decorations[0]
}

// HasMatch returns true if at least one decoration matched.
func (r *DetectionResult) HasMatch() bool {
	return len(r.Decorations) > 0
}

// SuggestConfig returns a starter configuration for the sampled log.
func (r *DetectionResult) SuggestConfig(sources []string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.LogSources = append(cfg.LogSources, sources...)
	cfg.RuntimeVersion = r.RuntimeVersion
	if len(r.Options) > 0 {
		cfg.JVMOptions = r.Options.String()
	}
	if best := r.BestMatch(); best != nil && best.Decoration.NeedsStart {
		cfg.StartInstant = r.FirstDatestamp
	}
	return cfg
}
