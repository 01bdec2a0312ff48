package detector

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/ccollicutt/gcscan/pkg/config"
	"github.com/ccollicutt/gcscan/pkg/event"
	"github.com/ccollicutt/gcscan/pkg/jvm"
	"github.com/ccollicutt/gcscan/pkg/matcher"
	"github.com/ccollicutt/gcscan/pkg/parser"
)

var cmsLines = []string{
	`Java HotSpot(TM) 64-Bit Server VM (25.102-b14) for linux-amd64 JRE (1.8.0_102-b14), built on Jun 22 2016 18:43:17 by "java_re" with gcc 4.3.0 20080428 (Red Hat 4.3.0-8)`,
	"Memory: 4k page, physical 16333320k(1234567k free), swap 2097148k(2097148k free)",
	"CommandLine flags: -XX:MaxHeapSize=10240000 -XX:+PrintGCDetails -XX:+PrintGCTimeStamps -XX:+UseConcMarkSweepGC -XX:+UseParNewGC",
	"1.000: [GC (Allocation Failure) [ParNew: 1000K->100K(2000K), 0.0100000 secs] 5000K->4100K(10000K), 0.0101000 secs]",
	"3.000: [GC (CMS Initial Mark) [1 CMS-initial-mark: 4000K(8000K)] 5000K(10000K), 0.0010000 secs]",
	"20.000: [GC (Allocation Failure) [ParNew: 1000K->100K(2000K), 0.0100000 secs] 5000K->4100K(10000K), 0.0101000 secs]",
}

func TestDetector_DetectFromLines_LegacyCMS(t *testing.T) {
	result := New().DetectFromLines(cmsLines)

	best := result.BestMatch()
	if best == nil || best.Decoration.Name != "Uptime" {
		t.Fatalf("BestMatch() = %+v, want Uptime", best)
	}
	if best.MatchCount != 3 || result.ParsedLines != 3 {
		t.Errorf("MatchCount = %d, ParsedLines = %d, want 3", best.MatchCount, result.ParsedLines)
	}
	if best.Confidence != 0.5 {
		t.Errorf("Confidence = %.2f, want 0.50", best.Confidence)
	}

	if result.Collector != event.CollectorCMS {
		t.Errorf("Collector = %s, want CMS", result.Collector)
	}
	if result.Version == nil || result.Version.Major != 8 {
		t.Errorf("Version = %+v, want major 8", result.Version)
	}
	if result.RuntimeVersion != matcher.VersionJDK8 {
		t.Errorf("RuntimeVersion = %q, want %q", result.RuntimeVersion, matcher.VersionJDK8)
	}
	if !result.Options.Enabled(jvm.UseConcMarkSweepGC) {
		t.Errorf("Options = %s, want UseConcMarkSweepGC", result.Options)
	}
	if result.Events != len(cmsLines) || result.Unidentified != 0 {
		t.Errorf("Events = %d, Unidentified = %d, want %d and 0", result.Events, result.Unidentified, len(cmsLines))
	}
	if len(result.Notes) != 0 {
		t.Errorf("Notes = %v, want none", result.Notes)
	}
}

func TestDetector_DetectFromLines_Unified(t *testing.T) {
	lines := []string{
		"[0.004s][info][gc] Using G1",
		"[0.123s][info][gc] GC(3) Pause Young (Normal) (G1 Evacuation Pause) 24M->4M(256M) 3.456ms",
		"[1250ms][info ][gc   ] GC(4) Pause Young (Normal) (G1 Evacuation Pause) 26M->5M(256M) 2.100ms",
	}

	result := New().DetectFromLines(lines)

	best := result.BestMatch()
	if best == nil || best.Decoration.Name != "Unified uptime" || best.Confidence != 1.0 {
		t.Fatalf("BestMatch() = %+v, want Unified uptime at 100%%", best)
	}
	if result.RuntimeVersion != matcher.VersionUnified {
		t.Errorf("RuntimeVersion = %q, want %q", result.RuntimeVersion, matcher.VersionUnified)
	}
	if result.Collector != event.CollectorG1 {
		t.Errorf("Collector = %s, want G1", result.Collector)
	}
}

func TestDetector_DetectFromLines_Decorations(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		want       string
		needsStart bool
	}{
		{"uptime", "1.234: [GC (Allocation Failure)  1000K->500K(2000K), 0.0010000 secs]", "Uptime", false},
		{"datestamp", "2020-01-02T03:04:05.678+0000: [GC (Allocation Failure)  1000K->500K(2000K), 0.0010000 secs]", "Datestamp", true},
		{"datestamp and uptime", "2020-01-02T03:04:05.678+0000: 1.234: [GC (Allocation Failure)  1000K->500K(2000K), 0.0010000 secs]", "Datestamp and uptime", false},
		{"unified time", "[2021-05-06T12:00:00.123+0000][0.004s][info][gc] Using G1", "Unified with time", false},
		{"unified millis", "[1234ms][info ][gc   ] Using G1", "Unified uptime", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := New().DetectFromLines([]string{tt.line})
			best := result.BestMatch()
			if best == nil {
				t.Fatalf("BestMatch() = nil, want %s", tt.want)
			}
			if best.Decoration.Name != tt.want {
				t.Errorf("BestMatch() = %s, want %s", best.Decoration.Name, tt.want)
			}
			if best.Decoration.NeedsStart != tt.needsStart {
				t.Errorf("NeedsStart = %v, want %v", best.Decoration.NeedsStart, tt.needsStart)
			}
		})
	}
}

func TestDetector_DetectFromLines_DatestampOnly(t *testing.T) {
	lines := []string{
		"2020-01-02T03:04:05.678+0000: [GC (Allocation Failure)  1000K->500K(2000K), 0.0010000 secs]",
		"2020-01-02T03:04:06.678+0000: [GC (Allocation Failure)  1000K->500K(2000K), 0.0010000 secs]",
	}

	result := New().DetectFromLines(lines)

	if result.FirstDatestamp != "2020-01-02T03:04:05.678+0000" {
		t.Errorf("FirstDatestamp = %q, want the first line's datestamp", result.FirstDatestamp)
	}
	if len(result.Notes) != 1 || !strings.Contains(result.Notes[0], "start_instant") {
		t.Errorf("Notes = %v, want a start_instant note", result.Notes)
	}

	cfg := result.SuggestConfig([]string{"gc.log"})
	if cfg.StartInstant != result.FirstDatestamp {
		t.Errorf("StartInstant = %q, want %q", cfg.StartInstant, result.FirstDatestamp)
	}
	if err := config.Validate(cfg); err != nil {
		t.Errorf("Validate(SuggestConfig()) error = %v", err)
	}
}

func TestDetector_DetectFromLines_MixedCollectors(t *testing.T) {
	lines := []string{
		"1.000: [Full GC (Ergonomics) [PSYoungGen: 1000K->0K(2000K)] [ParOldGen: 5000K->4000K(8000K)] 6000K->4000K(10000K), [Metaspace: 2000K->2000K(4000K)], 0.2000000 secs]",
		"2.000: [GC (Allocation Failure) [ParNew: 1000K->100K(2000K), 0.0100000 secs] 5000K->4100K(10000K), 0.0101000 secs]",
	}

	result := New().DetectFromLines(lines)

	want := []event.Collector{event.CollectorParallel, event.CollectorCMS}
	if !slices.Equal(result.Collectors, want) {
		t.Errorf("Collectors = %v, want %v", result.Collectors, want)
	}
	if result.Collector != event.CollectorUnknown {
		t.Errorf("Collector = %s, want UNKNOWN", result.Collector)
	}
	if len(result.Notes) != 1 || !strings.Contains(result.Notes[0], "PARALLEL, CMS") {
		t.Errorf("Notes = %v, want a mixed collector note", result.Notes)
	}
}

func TestDetector_DetectFromLines_CollectorFromOptions(t *testing.T) {
	result := New().DetectFromLines([]string{"CommandLine flags: -XX:+UseG1GC -XX:+PrintGCDetails"})

	if result.Collector != event.CollectorG1 || !slices.Equal(result.Collectors, []event.Collector{event.CollectorG1}) {
		t.Errorf("Collector = %s, Collectors = %v, want G1", result.Collector, result.Collectors)
	}
	if result.HasMatch() {
		t.Errorf("Decorations = %+v, want none for a header", result.Decorations)
	}
	if result.RuntimeVersion != matcher.VersionAuto {
		t.Errorf("RuntimeVersion = %q, want auto", result.RuntimeVersion)
	}
}

func TestDetector_DetectFromLines_Unrecognized(t *testing.T) {
	result := New().DetectFromLines([]string{"something else"})

	if result.Unidentified != 1 {
		t.Errorf("Unidentified = %d, want 1", result.Unidentified)
	}
	if len(result.Notes) != 1 || !strings.Contains(result.Notes[0], "not recognized") {
		t.Errorf("Notes = %v, want an unrecognized line note", result.Notes)
	}
}

func TestDetector_DetectFromLines_EmptyInput(t *testing.T) {
	result := New().DetectFromLines(nil)

	if result.HasMatch() || result.BestMatch() != nil {
		t.Error("Expected no match for empty input")
	}
	if result.SampledLines != 0 || result.Collector != event.CollectorUnknown || result.RuntimeVersion != matcher.VersionAuto {
		t.Errorf("result = %+v, want an empty detection", result)
	}
}

func TestDetector_WithSampleSize(t *testing.T) {
	if d := New(WithSampleSize(50)); d.sampleSize != 50 {
		t.Errorf("sampleSize = %d, want 50", d.sampleSize)
	}
	if d := New(WithSampleSize(-1)); d.sampleSize != DefaultSampleSize {
		t.Errorf("sampleSize = %d, want default %d", d.sampleSize, DefaultSampleSize)
	}
}

func TestDetector_DetectFromSource_Sampled(t *testing.T) {
	source := parser.NewReaderSource("gc.log", strings.NewReader(strings.Join(cmsLines, "\n")+"\n"))
	defer source.Close()

	result, err := New(WithSampleSize(3)).DetectFromSource(context.Background(), source)
	if err != nil {
		t.Fatalf("DetectFromSource() error = %v", err)
	}
	if result.SampledLines != 3 {
		t.Errorf("SampledLines = %d, want 3", result.SampledLines)
	}
	if result.HasMatch() {
		t.Errorf("Decorations = %+v, want none from the header lines", result.Decorations)
	}
}

func TestDetector_DetectFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gc.log")
	if err := os.WriteFile(path, []byte(strings.Join(cmsLines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}

	result, err := New().DetectFromFile(context.Background(), path)
	if err != nil {
		t.Fatalf("DetectFromFile() error = %v", err)
	}
	if result.SampledLines != len(cmsLines) || result.Collector != event.CollectorCMS {
		t.Errorf("result = %+v, want %d CMS lines", result, len(cmsLines))
	}
}

func TestDetector_DetectFromFile_NotFound(t *testing.T) {
	if _, err := New().DetectFromFile(context.Background(), "/nonexistent/gc.log"); err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestDetectionResult_SuggestConfig(t *testing.T) {
	result := New().DetectFromLines(cmsLines)
	cfg := result.SuggestConfig([]string{"logs/gc.log*"})

	if !slices.Equal(cfg.LogSources, []string{"logs/gc.log*"}) {
		t.Errorf("LogSources = %v, want [logs/gc.log*]", cfg.LogSources)
	}
	if cfg.RuntimeVersion != matcher.VersionJDK8 {
		t.Errorf("RuntimeVersion = %q, want jdk8", cfg.RuntimeVersion)
	}
	if !strings.Contains(cfg.JVMOptions, "-XX:+UseConcMarkSweepGC") {
		t.Errorf("JVMOptions = %q, want the header command line", cfg.JVMOptions)
	}
	if cfg.StartInstant != "" {
		t.Errorf("StartInstant = %q, want empty for an uptime log", cfg.StartInstant)
	}
	if err := config.Validate(cfg); err != nil {
		t.Errorf("Validate(SuggestConfig()) error = %v", err)
	}
}

func TestDefaultDecorations(t *testing.T) {
	for _, d := range DefaultDecorations() {
		if d.Pattern == nil {
			t.Errorf("%s: pattern not compiled", d.Name)
			continue
		}
		for _, ex := range d.Examples {
			if !d.Pattern.MatchString(ex) {
				t.Errorf("%s: example %q does not match", d.Name, ex)
			}
		}
	}
}
