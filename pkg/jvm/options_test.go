package jvm

import "testing"

func TestParse(t *testing.T) {
	opts := Parse("-XX:InitialHeapSize=268435456 -XX:+UseConcMarkSweepGC -XX:-UseCompressedOops -Xmx2g -Dfoo=bar com.example.Main")

	if len(opts) != 5 {
		t.Fatalf("Parse() returned %d options, want 5", len(opts))
	}

	tests := []struct {
		name      string
		wantValue string
		wantBool  bool
		wantOn    bool
	}{
		{"InitialHeapSize", "268435456", false, false},
		{"UseConcMarkSweepGC", "", true, true},
		{"UseCompressedOops", "", true, false},
		{"Xmx", "2g", false, false},
		{"Dfoo", "bar", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt, ok := opts.Lookup(tt.name)
			if !ok {
				t.Fatalf("Lookup(%q) not found", tt.name)
			}
			if opt.Value != tt.wantValue {
				t.Errorf("Value = %q, want %q", opt.Value, tt.wantValue)
			}
			if opt.Bool != tt.wantBool {
				t.Errorf("Bool = %v, want %v", opt.Bool, tt.wantBool)
			}
			if opt.Enabled != tt.wantOn {
				t.Errorf("Enabled = %v, want %v", opt.Enabled, tt.wantOn)
			}
		})
	}
}

func TestOptions_LastWins(t *testing.T) {
	opts := Parse("-XX:+CMSIncrementalMode -XX:-CMSIncrementalMode")
	if opts.Enabled(CMSIncrementalMode) {
		t.Error("Enabled() = true, want false after later -XX:-")
	}
	if !opts.Disabled(CMSIncrementalMode) {
		t.Error("Disabled() = false, want true")
	}
}

func TestOptions_Merge(t *testing.T) {
	header := Parse("-XX:+UseParallelGC -XX:CMSInitiatingOccupancyFraction=70")
	declared := Parse("-XX:CMSInitiatingOccupancyFraction=80")

	merged := header.Merge(declared)
	v, ok := merged.Value(CMSInitiatingOccupancyFraction)
	if !ok || v != "80" {
		t.Errorf("Value() = %q, %v, want 80, true", v, ok)
	}
	if !merged.Enabled(UseParallelGC) {
		t.Error("merged options lost UseParallelGC")
	}
	if got := merged.String(); got != "-XX:+UseParallelGC -XX:CMSInitiatingOccupancyFraction=70 -XX:CMSInitiatingOccupancyFraction=80" {
		t.Errorf("String() = %q", got)
	}
}

func TestOptions_CollectorOption(t *testing.T) {
	tests := []struct {
		cmdline string
		want    string
	}{
		{"-XX:+UseG1GC", UseG1GC},
		{"-XX:+UseParNewGC -XX:+UseConcMarkSweepGC", UseConcMarkSweepGC},
		{"-XX:+UseParallelGC -XX:+UseParallelOldGC", UseParallelOldGC},
		{"-XX:-UseG1GC", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Parse(tt.cmdline).CollectorOption(); got != tt.want {
			t.Errorf("CollectorOption(%q) = %q, want %q", tt.cmdline, got, tt.want)
		}
	}
}

func TestOptions_ValueOfBoolean(t *testing.T) {
	opts := Parse("-XX:+UseG1GC")
	if _, ok := opts.Value(UseG1GC); ok {
		t.Error("Value() ok = true for a boolean option")
	}
	if opts.Has("UseSerialGC") {
		t.Error("Has() = true for an absent option")
	}
}
