package preprocess

import (
	"testing"
	"time"
)

func texts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

func assertTexts(t *testing.T, got []Line, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d lines %q, want %d lines %q", len(got), texts(got), len(want), want)
	}
	for i := range want {
		if got[i].Text != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i].Text, want[i])
		}
	}
}

func assertBalanced(t *testing.T, s Stats) {
	t.Helper()
	if !s.Balanced() {
		t.Errorf("stats not balanced: %+v", s)
	}
}

func TestProcess_SingleLines(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "elapsed only",
			raw:  "2.345: [GC (Allocation Failure)  653M->586M(979M), 1.6364900 secs]",
			want: "2.345: [GC (Allocation Failure)  653M->586M(979M), 1.6364900 secs]",
		},
		{
			name: "datestamp and elapsed keeps elapsed",
			raw:  "2014-02-13T10:20:30.123+0100: 12.345: [GC 2014-02-13T10:20:30.123+0100: 12.345: [ParNew: 1000K->100K(2000K), 0.0100 secs] 5000K->4100K(10000K), 0.0101 secs]",
			want: "12.345: [GC [ParNew: 1000K->100K(2000K), 0.0100 secs] 5000K->4100K(10000K), 0.0101 secs]",
		},
		{
			name: "decimal comma",
			raw:  "1,234: [GC 1000K->500K(2000K), 0,0012340 secs]",
			want: "1.234: [GC 1000K->500K(2000K), 0,0012340 secs]",
		},
		{
			name: "elapsed truncated to milliseconds",
			raw:  "0.1239: [GC 1000K->500K(2000K), 0.0012340 secs]",
			want: "0.123: [GC 1000K->500K(2000K), 0.0012340 secs]",
		},
		{
			name: "unified decorations",
			raw:  "[0.123s][info][gc] GC(3) Pause Young (Normal) (G1 Evacuation Pause) 24M->4M(256M) 3.456ms",
			want: "0.123: GC(3) Pause Young (Normal) (G1 Evacuation Pause) 24M->4M(256M) 3.456ms",
		},
		{
			name: "unified uptime millis and padded level",
			raw:  "[1234ms][info ][gc   ] Using G1",
			want: "1.234: Using G1",
		},
		{
			name: "abort preclean prefix",
			raw:  " CMS: abort preclean due to time 2.500: [CMS-concurrent-abortable-preclean: 0.100/5.000 secs] [Times: user=0.10 sys=0.00, real=5.00 secs] ",
			want: "2.500: [CMS-concurrent-abortable-preclean: 0.100/5.000 secs] [Times: user=0.10 sys=0.00, real=5.00 secs]",
		},
		{
			name: "header passes unprefixed",
			raw:  "CommandLine flags: -XX:+UseConcMarkSweepGC -XX:+PrintGCDetails",
			want: "CommandLine flags: -XX:+UseConcMarkSweepGC -XX:+PrintGCDetails",
		},
		{
			name: "safepoint line",
			raw:  "3.000: Total time for which application threads were stopped: 0.0001234 seconds, Stopping threads took: 0.0000123 seconds",
			want: "3.000: Total time for which application threads were stopped: 0.0001234 seconds, Stopping threads took: 0.0000123 seconds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, stats := Process([]string{tt.raw})
			assertTexts(t, got, []string{tt.want})
			if stats.Passed != 1 {
				t.Errorf("Passed = %d, want 1", stats.Passed)
			}
			assertBalanced(t, stats)
		})
	}
}

func TestProcess_MergesRemarkRecord(t *testing.T) {
	raw := []string{
		"13.001: [GC[YG occupancy: 16015 K (18624 K)]13.002: [Rescan (parallel) , 0.0051390 secs]",
		"13.007: [weak refs processing, 0.0000130 secs]",
		"13.008: [1 CMS-remark: 65392K(65536K)] 81407K(84160K), 0.0058690 secs] [Times: user=0.01 sys=0.00, real=0.01 secs]",
	}

	got, stats := Process(raw)
	assertTexts(t, got, []string{
		"13.001: [GC[YG occupancy: 16015 K (18624 K)][Rescan (parallel) , 0.0051390 secs][weak refs processing, 0.0000130 secs][1 CMS-remark: 65392K(65536K)] 81407K(84160K), 0.0058690 secs] [Times: user=0.01 sys=0.00, real=0.01 secs]",
	})
	if got[0].Incomplete {
		t.Error("merged record marked Incomplete")
	}
	if got[0].First != 1 || got[0].Last != 3 {
		t.Errorf("span = %d-%d, want 1-3", got[0].First, got[0].Last)
	}
	if stats.Collected != 3 || stats.Lines != 3 {
		t.Errorf("stats = %+v, want 3 collected of 3", stats)
	}
	assertBalanced(t, stats)
}

func TestProcess_ExtractsConcurrentFragment(t *testing.T) {
	raw := []string{
		"10.000: [GC 10.000: [ParNew10.001: [CMS-concurrent-abortable-preclean: 0.100/0.200 secs] [Times: user=0.10 sys=0.00, real=0.20 secs] ",
		"Desired survivor size 1234 bytes, new threshold 7 (max 15)",
		"- age   1:       1234 bytes,       1234 total",
		": 1000K->100K(2000K), 0.0100 secs] 5000K->4100K(10000K), 0.0101 secs] [Times: user=0.02 sys=0.00, real=0.01 secs] ",
	}

	got, stats := Process(raw)
	assertTexts(t, got, []string{
		"10.000: [GC [ParNew: 1000K->100K(2000K), 0.0100 secs] 5000K->4100K(10000K), 0.0101 secs] [Times: user=0.02 sys=0.00, real=0.01 secs]",
		"10.001: [CMS-concurrent-abortable-preclean: 0.100/0.200 secs] [Times: user=0.10 sys=0.00, real=0.20 secs]",
	})
	if stats.Collected != 4 {
		t.Errorf("Collected = %d, want 4", stats.Collected)
	}
	assertBalanced(t, stats)
}

func TestProcess_FlushIncomplete(t *testing.T) {
	t.Run("end of input", func(t *testing.T) {
		raw := []string{
			"5.000: [Full GC (Ergonomics) [PSYoungGen: 1000K->0K(2000K)] [ParOldGen: 5000K->4000K(8000K)] 6000K->4000K(10000K), [Metaspace: 2000K->2000K(4000K)]",
		}
		got, stats := Process(raw)
		assertTexts(t, got, raw)
		if !got[0].Incomplete {
			t.Error("truncated record not marked Incomplete")
		}
		assertBalanced(t, stats)
	})

	t.Run("new top-level record", func(t *testing.T) {
		raw := []string{
			"5.000: [GC (Allocation Failure) [PSYoungGen: 1000K->0K(2000K)]",
			"6.000: [GC (Allocation Failure) [PSYoungGen: 1000K->100K(2000K)] 3000K->2100K(8000K), 0.0100000 secs] [Times: user=0.01 sys=0.00, real=0.01 secs]",
		}
		got, stats := Process(raw)
		assertTexts(t, got, raw)
		if !got[0].Incomplete || got[1].Incomplete {
			t.Errorf("Incomplete = %v, %v, want true, false", got[0].Incomplete, got[1].Incomplete)
		}
		if stats.Collected != 1 || stats.Passed != 1 {
			t.Errorf("stats = %+v", stats)
		}
		assertBalanced(t, stats)
	})

	t.Run("header line while collecting", func(t *testing.T) {
		raw := []string{
			"5.000: [GC (Allocation Failure) [PSYoungGen: 1000K->0K(2000K)]",
			"Heap",
			" PSYoungGen      total 2000K, used 100K [0x00, 0x01, 0x02)",
		}
		got, stats := Process(raw)
		if len(got) != 2 {
			t.Fatalf("got %q", texts(got))
		}
		if !got[0].Incomplete {
			t.Error("record before footer not marked Incomplete")
		}
		if got[1].Text != "Heap | PSYoungGen      total 2000K, used 100K [0x00, 0x01, 0x02)" {
			t.Errorf("footer = %q", got[1].Text)
		}
		assertBalanced(t, stats)
	})
}

func TestProcess_CloseBelowZero(t *testing.T) {
	raw := []string{
		"5.000: [GC [ParNew",
		": 1000K->100K(2000K), 0.0100 secs] 5000K->4100K(10000K), 0.0101 secs]] extra]",
	}
	got, stats := Process(raw)
	if len(got) != 2 {
		t.Fatalf("got %q", texts(got))
	}
	if !got[0].Incomplete {
		t.Error("record not flushed as Incomplete")
	}
	if got[1].First != 2 {
		t.Errorf("reprocessed line span = %d, want 2", got[1].First)
	}
	assertBalanced(t, stats)
}

func TestProcess_G1Trailer(t *testing.T) {
	raw := []string{
		"2.000: [GC pause (G1 Evacuation Pause) (young), 0.0100000 secs]",
		"   [Parallel Time: 9.5 ms, GC Workers: 4]",
		"      [GC Worker Start (ms): Min: 2000.0, Avg: 2000.1, Max: 2000.2, Diff: 0.2]",
		"   [Eden: 24.0M(24.0M)->0.0B(20.0M) Survivors: 0.0B->4096.0K Heap: 24.0M(256.0M)->5.6M(256.0M)]",
		" [Times: user=0.02 sys=0.00, real=0.01 secs] ",
		"3.000: [GC concurrent-root-region-scan-start]",
	}

	got, stats := Process(raw)
	assertTexts(t, got, []string{
		"2.000: [GC pause (G1 Evacuation Pause) (young), 0.0100000 secs] [Eden: 24.0M(24.0M)->0.0B(20.0M) Survivors: 0.0B->4096.0K Heap: 24.0M(256.0M)->5.6M(256.0M)] [Times: user=0.02 sys=0.00, real=0.01 secs]",
		"3.000: [GC concurrent-root-region-scan-start]",
	})
	if stats.Collected != 5 || stats.Passed != 1 {
		t.Errorf("stats = %+v", stats)
	}
	assertBalanced(t, stats)
}

func TestProcess_Footer(t *testing.T) {
	raw := []string{
		"Heap",
		" par new generation   total 18624K, used 1000K [0x00, 0x01, 0x02)",
		"  eden space 16576K,   6% used [0x00, 0x01, 0x02)",
		" concurrent mark-sweep generation total 65536K, used 40000K [0x00, 0x01, 0x02)",
		" Metaspace       used 2985K, capacity 4486K, committed 4864K, reserved 1056768K",
	}

	got, stats := Process(raw)
	assertTexts(t, got, []string{
		"Heap | par new generation   total 18624K, used 1000K [0x00, 0x01, 0x02) | eden space 16576K,   6% used [0x00, 0x01, 0x02) | concurrent mark-sweep generation total 65536K, used 40000K [0x00, 0x01, 0x02) | Metaspace       used 2985K, capacity 4486K, committed 4864K, reserved 1056768K",
	})
	if got[0].Incomplete {
		t.Error("footer at end of input marked Incomplete")
	}
	assertBalanced(t, stats)
}

func TestProcess_Noise(t *testing.T) {
	raw := []string{
		"",
		"Desired survivor size 1234 bytes, new threshold 7 (max 15)",
		"- age   1:       1234 bytes,       1234 total",
		"2.000: Application time: 0.1234 seconds",
		"OpenJDK 64-Bit Server VM warning: ignoring option PermSize=64m",
		"{Heap before GC invocations=1 (full 0):",
		" def new generation   total 9216K, used 8192K [0x00, 0x01, 0x02)",
		"}",
		"[0.124s][info][gc,heap     ] GC(3) Eden regions: 1->0(2)",
		"[0.125s][info][gc,cpu      ] GC(3) User=0.01s Sys=0.00s Real=0.00s",
		"2016-01-01 00:00:00 GC log file created /tmp/gc.log.1",
	}

	got, stats := Process(raw)
	if len(got) != 0 {
		t.Errorf("noise produced lines %q", texts(got))
	}
	if stats.Dropped != len(raw) {
		t.Errorf("Dropped = %d, want %d", stats.Dropped, len(raw))
	}
	assertBalanced(t, stats)
}

func TestProcess_Datestamps(t *testing.T) {
	stamp := "2020-01-02T03:04:05.678+0000"
	at := time.Date(2020, 1, 2, 3, 4, 5, 678*int(time.Millisecond), time.UTC)

	t.Run("no start instant is epoch relative", func(t *testing.T) {
		got, stats := Process([]string{stamp + ": [GC (Allocation Failure)  1000K->500K(2000K), 0.0010000 secs]"})
		want := Canonical(at.UnixMilli()) + "[GC (Allocation Failure)  1000K->500K(2000K), 0.0010000 secs]"
		assertTexts(t, got, []string{want})
		if !got[0].EpochRelative {
			t.Error("EpochRelative not set")
		}
		if stats.Flagged != 1 {
			t.Errorf("Flagged = %d, want 1", stats.Flagged)
		}
	})

	t.Run("caller start instant", func(t *testing.T) {
		start := time.Date(2020, 1, 2, 3, 4, 0, 0, time.UTC)
		got, _ := Process([]string{stamp + ": [GC 1000K->500K(2000K), 0.0010000 secs]"}, WithStartInstant(start))
		assertTexts(t, got, []string{"5.678: [GC 1000K->500K(2000K), 0.0010000 secs]"})
		if got[0].EpochRelative {
			t.Error("EpochRelative set with a start instant")
		}
	})

	t.Run("inferred from a line with both", func(t *testing.T) {
		got, _ := Process([]string{
			"2020-01-02T03:04:05.678+0000: 5.000: [GC 1000K->500K(2000K), 0.0010000 secs]",
			"2020-01-02T03:04:07.678+0000: [GC 1000K->500K(2000K), 0.0010000 secs]",
		})
		assertTexts(t, got, []string{
			"5.000: [GC 1000K->500K(2000K), 0.0010000 secs]",
			"7.000: [GC 1000K->500K(2000K), 0.0010000 secs]",
		})
	})

	t.Run("epoch clock holds after fallback", func(t *testing.T) {
		got, stats := Process([]string{
			stamp + ": [GC 1000K->500K(2000K), 0.0010000 secs]",
			"2020-01-02T03:04:06.678+0000: 1.500: [GC 1000K->500K(2000K), 0.0010000 secs]",
			"2020-01-02T03:04:07.678+0000: [GC 1000K->500K(2000K), 0.0010000 secs]",
		})
		assertTexts(t, got, []string{
			Canonical(at.UnixMilli()) + "[GC 1000K->500K(2000K), 0.0010000 secs]",
			Canonical(at.Add(time.Second).UnixMilli()) + "[GC 1000K->500K(2000K), 0.0010000 secs]",
			Canonical(at.Add(2*time.Second).UnixMilli()) + "[GC 1000K->500K(2000K), 0.0010000 secs]",
		})
		for i, l := range got {
			if !l.EpochRelative {
				t.Errorf("line %d EpochRelative not set", i)
			}
		}
		if stats.Flagged != 3 {
			t.Errorf("Flagged = %d, want 3", stats.Flagged)
		}
	})

	t.Run("unparseable datestamp is flagged", func(t *testing.T) {
		raw := "2020-13-45T99:04:05.678+0000: [GC 1000K->500K(2000K), 0.0010000 secs]"
		got, stats := Process([]string{raw})
		assertTexts(t, got, []string{raw})
		if !got[0].Unnormalized {
			t.Error("Unnormalized not set")
		}
		if stats.Flagged != 1 || stats.Passed != 1 {
			t.Errorf("stats = %+v", stats)
		}
	})
}

func TestProcess_PreservesOrder(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
	}{
		{
			name: "merged records with fragments",
			raw: []string{
				"5.000: [CMS-concurrent-mark-start]",
				"10.000: [GC 10.000: [ParNew10.001: [CMS-concurrent-abortable-preclean: 0.100/0.200 secs] [Times: user=0.10 sys=0.00, real=0.20 secs] ",
				"Desired survivor size 1234 bytes, new threshold 7 (max 15)",
				": 1000K->100K(2000K), 0.0100 secs] 5000K->4100K(10000K), 0.0101 secs] [Times: user=0.02 sys=0.00, real=0.01 secs] ",
				"13.001: [GC[YG occupancy: 16015 K (18624 K)]13.002: [Rescan (parallel) , 0.0051390 secs]",
				"13.007: [weak refs processing, 0.0000130 secs]",
				"13.008: [1 CMS-remark: 65392K(65536K)] 81407K(84160K), 0.0058690 secs] [Times: user=0.01 sys=0.00, real=0.01 secs]",
				"14.000: [GC pause (young), 0.0100000 secs]",
				"   [Parallel Time: 9.5 ms, GC Workers: 4]",
				"   [Times: user=0.01 sys=0.00, real=0.01 secs]",
				"15.000: [GC (Allocation Failure)  1000K->500K(2000K), 0.0010000 secs]",
			},
		},
		{
			name: "datestamps before the start can be inferred",
			raw: []string{
				"2020-01-02T03:04:05.678+0000: [GC 1000K->500K(2000K), 0.0010000 secs]",
				"2020-01-02T03:04:06.678+0000: 1.500: [GC 1000K->500K(2000K), 0.0010000 secs]",
				"2020-01-02T03:04:07.678+0000: [GC 1000K->500K(2000K), 0.0010000 secs]",
			},
		},
		{
			name: "datestamps after the start was inferred",
			raw: []string{
				"2020-01-02T03:04:05.678+0000: 5.000: [GC 1000K->500K(2000K), 0.0010000 secs]",
				"2020-01-02T03:04:06.678+0000: [GC 1000K->500K(2000K), 0.0010000 secs]",
				"2020-01-02T03:04:07.678+0000: 7.000: [GC 1000K->500K(2000K), 0.0010000 secs]",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Process(tt.raw)
			last := int64(-1)
			for _, l := range got {
				pf, _ := splitPrefix(l.Text)
				if !pf.hasElapsed {
					continue
				}
				if pf.elapsed < last {
					t.Errorf("%q steps back from %s", l.Text, Canonical(last))
				}
				last = pf.elapsed
			}
			if last < 0 {
				t.Fatalf("no timed lines in %q", texts(got))
			}
		})
	}
}

func TestProcess_Accounting(t *testing.T) {
	raw := []string{
		"CommandLine flags: -XX:+UseConcMarkSweepGC",
		"1.000: [GC 1.000: [ParNew",
		"Desired survivor size 1234 bytes, new threshold 7 (max 15)",
		": 1000K->100K(2000K), 0.0100 secs] 5000K->4100K(10000K), 0.0101 secs]",
		"",
		"2.000: [GC pause (young), 0.0100000 secs]",
		"   [Parallel Time: 9.5 ms, GC Workers: 4]",
		"2.500: Application time: 0.1 seconds",
		"3.000: [Full GC 3.000: [CMS: 4000K->3000K(8000K), 0.1000 secs]",
		"Heap",
		" par new generation   total 18624K, used 1000K [0x00, 0x01, 0x02)",
	}

	p := New()
	for i, line := range raw {
		p.Push(line, i+1)
		s := p.Stats()
		if !s.Balanced() {
			t.Fatalf("after line %d stats not balanced: %+v", i+1, s)
		}
	}
	p.Flush()
	s := p.Stats()
	if s.Lines != len(raw) {
		t.Errorf("Lines = %d, want %d", s.Lines, len(raw))
	}
	assertBalanced(t, s)
}

func TestPreprocessor_State(t *testing.T) {
	p := New()
	if p.State() != "idle" {
		t.Errorf("State() = %q, want idle", p.State())
	}
	p.Push("1.000: [GC 1.000: [ParNew", 1)
	if p.State() != "bracket" {
		t.Errorf("State() = %q, want bracket", p.State())
	}
	p.Push(": 1000K->100K(2000K), 0.0100 secs] 5000K->4100K(10000K), 0.0101 secs]", 2)
	if p.State() != "idle" {
		t.Errorf("State() = %q, want idle", p.State())
	}
	p.Push("Heap", 3)
	if p.State() != "footer" {
		t.Errorf("State() = %q, want footer", p.State())
	}
}

func TestCanonical(t *testing.T) {
	tests := map[int64]string{
		0:     "0.000: ",
		1234:  "1.234: ",
		60005: "60.005: ",
		-1500: "-1.500: ",
	}
	for ms, want := range tests {
		if got := Canonical(ms); got != want {
			t.Errorf("Canonical(%d) = %q, want %q", ms, got, want)
		}
	}
}
