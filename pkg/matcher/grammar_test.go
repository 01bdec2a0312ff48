package matcher

import (
	"reflect"
	"testing"

	"github.com/ccollicutt/gcscan/pkg/event"
)

func TestParseLocaleNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"24", 24},
		{"24.0", 24},
		{"5.6", 5.6},
		{"1,5", 1.5},
		{"0.125", 0.125},
		{"0,125", 0.125},
		{"1.024", 1024},
		{"1,048,576", 1048576},
		{"1.048.576,5", 1048576.5},
	}

	for _, tt := range tests {
		got, err := parseLocaleNumber(tt.in)
		if err != nil {
			t.Errorf("parseLocaleNumber(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseLocaleNumber(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSizeKB(t *testing.T) {
	tests := []struct {
		num, unit string
		want      int64
	}{
		{"2048", "B", 2},
		{"1536", "B", 2},
		{"100", "K", 100},
		{"5.6", "M", 5734},
		{"979", "M", 1002496},
		{"2", "G", 2097152},
	}

	for _, tt := range tests {
		got, err := sizeKB(tt.num, tt.unit)
		if err != nil || got != tt.want {
			t.Errorf("sizeKB(%q, %q) = %d, %v, want %d", tt.num, tt.unit, got, err, tt.want)
		}
	}

	if _, err := sizeKB("1", "T"); err == nil {
		t.Error("sizeKB() with unknown unit succeeded")
	}

	for _, tt := range []struct{ num, unit string }{
		{"99999999999999999999", "K"},
		{"9999999999999999", "G"},
	} {
		if got, err := sizeKB(tt.num, tt.unit); err == nil {
			t.Errorf("sizeKB(%q, %q) = %d, want out of range error", tt.num, tt.unit, got)
		}
	}
}

func TestDurationMicros(t *testing.T) {
	tests := []struct {
		num, unit string
		want      int64
	}{
		{"1.6364900", "secs", 1636490},
		{"0,0012340", "secs", 1234},
		{"0.0000005", "secs", 1},
		{"0.0000004", "secs", 0},
		{"12", "secs", 12000000},
		{"3.456", "ms", 3456},
		{"0.0005", "ms", 1},
		{"250", "us", 250},
		{"1499", "ns", 1},
		{"1500", "ns", 2},
	}

	for _, tt := range tests {
		got, err := durationMicros(tt.num, tt.unit)
		if err != nil {
			t.Errorf("durationMicros(%q, %q) error = %v", tt.num, tt.unit, err)
			continue
		}
		if got != event.Micros(tt.want) {
			t.Errorf("durationMicros(%q, %q) = %+v, want %d", tt.num, tt.unit, got, tt.want)
		}
	}
}

func TestCPUTimes(t *testing.T) {
	got := cpuTimes("[GC ...] [Times: user=0.16 sys=0.01, real=0,10 secs]")
	want := &event.CPUTimes{User: 16, Sys: 1, Real: 10}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("cpuTimes() = %+v, want %+v", got, want)
	}
	if cpuTimes("[GC 1000K->500K(2000K), 0.01 secs]") != nil {
		t.Error("cpuTimes() without a block returned a value")
	}
}

func TestTimestamp(t *testing.T) {
	tests := []struct {
		text   string
		ms     int64
		ok     bool
		remain string
	}{
		{"12.345: [GC", 12345, true, "[GC"},
		{"-0.500: [GC", -500, true, "[GC"},
		{"CommandLine flags: -XX:+UseG1GC", 0, false, "CommandLine flags: -XX:+UseG1GC"},
	}

	for _, tt := range tests {
		ms, ok, rest := timestamp(tt.text)
		if ms != tt.ms || ok != tt.ok || rest != tt.remain {
			t.Errorf("timestamp(%q) = %d, %v, %q, want %d, %v, %q", tt.text, ms, ok, rest, tt.ms, tt.ok, tt.remain)
		}
	}
}

func TestDecode(t *testing.T) {
	rec := decode("[GC (Allocation Failure) [ParNew: 1000K->100K(2000K), 0.0100 secs] 5000K->4100K(10000K), 0.0101 secs] [Times: user=0.01 sys=0.00, real=0.01 secs]")

	if !rec.closed {
		t.Error("closed = false, want true")
	}
	if want := []string{"ParNew: 1000K->100K(2000K), 0.0100 secs"}; !reflect.DeepEqual(rec.inner, want) {
		t.Errorf("inner = %q, want %q", rec.inner, want)
	}
	if want := "GC (Allocation Failure)  5000K->4100K(10000K), 0.0101 secs"; rec.outer != want {
		t.Errorf("outer = %q, want %q", rec.outer, want)
	}
	if d, ok := rec.duration(); !ok || d != event.Micros(10100) {
		t.Errorf("duration() = %+v, %v, want 10100us", d, ok)
	}

	open := decode("[GC (Allocation Failure) [ParNew: 1000K->100K(2000K), 0.0100 secs] 5000K->4100K(10000K), 0.0101 secs")
	if open.closed {
		t.Error("unterminated record reported closed")
	}
	if _, ok := open.duration(); ok {
		t.Error("duration() of unterminated record present")
	}
	if r, ok := open.combined(); !ok || r.Before != 5000 {
		t.Errorf("combined() = %+v, %v, want before 5000", r, ok)
	}
}

func TestVocabulary(t *testing.T) {
	jdk6 := MustVocabulary(VersionJDK6)
	if got := jdk6.Lookup("System"); got != event.TriggerSystemGC {
		t.Errorf("jdk6 Lookup(System) = %s, want SYSTEM_GC", got)
	}
	if got := jdk6.Lookup("Metadata GC Threshold"); got != event.TriggerUnknown {
		t.Errorf("jdk6 Lookup(Metadata GC Threshold) = %s, want UNKNOWN", got)
	}
	if got := MustVocabulary(VersionJDK8).Lookup("Metadata GC Threshold"); got != event.TriggerMetadataGCThreshold {
		t.Errorf("jdk8 Lookup(Metadata GC Threshold) = %s, want METADATA_GC_THRESHOLD", got)
	}
	if got := auto.Lookup(""); got != event.TriggerNone {
		t.Errorf("Lookup(\"\") = %s, want NONE", got)
	}
	if got := auto.Lookup("G1 Preventive Collection"); got != event.TriggerG1PreventiveCollection {
		t.Errorf("auto Lookup(G1 Preventive Collection) = %s, want G1_PREVENTIVE_COLLECTION", got)
	}
	if _, err := NewVocabulary("jdk5"); err == nil {
		t.Error("NewVocabulary(jdk5) succeeded")
	}
	if v, err := NewVocabulary(""); err != nil || v.Name() != VersionAuto {
		t.Errorf("NewVocabulary(\"\") = %q, %v, want auto", v.Name(), err)
	}
}

func TestVocabulary_ChangesTrigger(t *testing.T) {
	line := "1.000: [Full GC (System) [PSYoungGen: 1000K->0K(2000K)] [PSOldGen: 5000K->4000K(8000K)] 6000K->4000K(10000K), 0.2000000 secs]"

	old, _ := ParallelSerialOld(MustVocabulary(VersionJDK6)).Parse(line)
	if old.Trigger != event.TriggerSystemGC {
		t.Errorf("jdk6 Trigger = %s, want SYSTEM_GC", old.Trigger)
	}
	newer, _ := ParallelSerialOld(MustVocabulary(VersionJDK8)).Parse(line)
	if newer.Trigger != event.TriggerUnknown || newer.TriggerText != "System" {
		t.Errorf("jdk8 Trigger = %s %q, want UNKNOWN \"System\"", newer.Trigger, newer.TriggerText)
	}
}
