package output

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/ccollicutt/gcscan/pkg/event"
)

func TestNewJSONFormatter(t *testing.T) {
	f := NewJSONFormatter(FormatOptions{})
	if f == nil {
		t.Fatal("NewJSONFormatter() returned nil")
	}
	if f.Name() != "json" {
		t.Errorf("Name() = %q, want %q", f.Name(), "json")
	}
}

func decode(t *testing.T, opts FormatOptions, report *Report) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	if err := NewJSONFormatter(opts).Format(context.Background(), report, &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	var parsed map[string]any
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	return parsed
}

func TestJSONFormatter_Format(t *testing.T) {
	report := createTestReport()
	report.Events = []event.Event{{Kind: event.KindParNew, Timestamp: 1000, Duration: event.Micros(900)}}

	parsed := decode(t, FormatOptions{}, report)

	summary, ok := parsed["summary"].(map[string]any)
	if !ok {
		t.Fatalf("summary = %v, want an object", parsed["summary"])
	}
	if summary["total_findings"] != float64(2) || summary["max_severity"] != "error" {
		t.Errorf("summary = %v, want 2 findings at error", summary)
	}
	if parsed["run_id"] != report.RunID {
		t.Errorf("run_id = %v, want %s", parsed["run_id"], report.RunID)
	}

	findings, ok := parsed["findings"].([]any)
	if !ok || len(findings) != 2 {
		t.Fatalf("findings = %v, want 2", parsed["findings"])
	}
	first := findings[0].(map[string]any)
	if first["code"] != "CMS_SERIAL_OLD" || first["category"] != "configuration" {
		t.Errorf("findings[0] = %v, want CMS_SERIAL_OLD", first)
	}

	if _, ok := parsed["events"]; ok {
		t.Error("non-verbose output contains events")
	}
	if len(report.Events) != 1 {
		t.Error("Format() modified the report")
	}
}

func TestJSONFormatter_Format_Verbose(t *testing.T) {
	report := createTestReport()
	report.Events = []event.Event{{Kind: event.KindParNew, Timestamp: 1000, Duration: event.Micros(900)}}

	parsed := decode(t, FormatOptions{Verbose: true}, report)

	events, ok := parsed["events"].([]any)
	if !ok || len(events) != 1 {
		t.Fatalf("events = %v, want 1", parsed["events"])
	}
	e := events[0].(map[string]any)
	if e["kind"] != "PAR_NEW" || e["duration_us"] != float64(900) {
		t.Errorf("events[0] = %v, want PAR_NEW 900us", e)
	}
}

func TestJSONFormatter_Format_Quiet(t *testing.T) {
	parsed := decode(t, FormatOptions{Quiet: true}, createTestReport())

	if _, ok := parsed["findings"]; ok {
		t.Error("Quiet output contains findings")
	}
	if parsed["rules_checked"] != float64(14) || parsed["events"] != float64(1234) {
		t.Errorf("Quiet output = %v, want the summary", parsed)
	}
}
