package output

import (
	"context"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ccollicutt/gcscan/pkg/run"
)

// unidentifiedLimit caps the unidentified lines listed without Verbose.
const unidentifiedLimit = 5

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

func (f *TextFormatter) printer() *message.Printer {
	tag := f.opts.Language
	if tag == language.Und {
		tag = language.English
	}
	return message.NewPrinter(tag)
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	p := f.printer()
	if f.opts.Quiet {
		return f.formatQuiet(p, report, w)
	}
	return f.formatFull(p, report, w)
}

func (f *TextFormatter) formatQuiet(p *message.Printer, report *Report, w io.Writer) error {
	_, err := p.Fprintf(w, "gcscan: %d events, %d unidentified, %d findings",
		report.Summary.Events,
		report.Summary.Unidentified,
		report.Summary.TotalFindings)
	if err != nil {
		return err
	}
	if report.HasFindings() {
		_, err = p.Fprintf(w, " (max severity %s)", report.Summary.MaxSeverity)
		if err != nil {
			return err
		}
	}
	_, err = io.WriteString(w, "\n")
	return err
}

func (f *TextFormatter) formatFull(p *message.Printer, report *Report, w io.Writer) error {
	var b strings.Builder

	b.WriteString("=== gcscan Analysis Report ===\n\n")

	f.formatRuntime(p, report, &b)
	f.formatStatistics(p, report.Statistics, &b)
	f.formatFindings(p, report, &b)
	f.formatUnidentified(p, report, &b)

	b.WriteString("---\n")
	p.Fprintf(&b, "Summary: %d rules checked, %d rules with findings, %d total findings\n",
		report.Summary.RulesChecked,
		report.Summary.RulesWithFindings,
		report.Summary.TotalFindings)

	if f.opts.Verbose {
		p.Fprintf(&b, "Lines processed: %d\n", report.Summary.LinesProcessed)
		p.Fprintf(&b, "Duration: %s\n", report.Metadata.Duration.Round(1e6))
		p.Fprintf(&b, "Run ID: %s\n", report.RunID)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (f *TextFormatter) formatRuntime(p *message.Printer, report *Report, b *strings.Builder) {
	if report.Summary.RuntimeRelease != "" {
		p.Fprintf(b, "Runtime:   %s\n", report.Summary.RuntimeRelease)
	}
	if report.Summary.Collector != "" {
		p.Fprintf(b, "Collector: %s\n", report.Summary.Collector)
	}
	for _, src := range report.Metadata.Sources {
		p.Fprintf(b, "Source:    %s (%d lines)\n", src.Name, src.Lines)
	}
	b.WriteString("\n")
}

func (f *TextFormatter) formatStatistics(p *message.Printer, s run.Summary, b *strings.Builder) {
	b.WriteString("[STATISTICS]\n")
	p.Fprintf(b, "  Events: %d (%d collections)\n", s.Events, s.Collections)
	if s.HasTimestamps {
		p.Fprintf(b, "  Span: %s\n", s.SpanDuration())
	}
	if s.Collections > 0 {
		p.Fprintf(b, "  Pause total: %d us, max %d us (%s at %d ms)\n",
			s.PauseTotal, s.PauseMax, s.PauseKind, s.PauseMaxAt)
		p.Fprintf(b, "  Throughput: %.2f%%\n", s.Throughput*100)
	}
	if s.MaxHeapCapacity > 0 {
		p.Fprintf(b, "  Heap: max occupancy %d KB, max after GC %d KB, max capacity %d KB\n",
			s.MaxHeapOccupancy, s.MaxHeapAfter, s.MaxHeapCapacity)
	}
	if s.SafepointCount > 0 {
		p.Fprintf(b, "  Safepoints: %d, stopped %d us, GC share %.2f%%\n",
			s.SafepointCount, s.SafepointTotal, s.GCShare*100)
	}

	if f.opts.Verbose && len(s.Kinds) > 0 {
		p.Fprintf(b, "  %-32s %8s %8s %12s %12s %12s\n", "KIND", "COUNT", "TIMED", "MIN us", "MEAN us", "MAX us")
		for _, k := range s.Kinds {
			p.Fprintf(b, "  %-32s %8d %8d %12d %12.0f %12d\n",
				k.Kind, k.Count, k.Timed, k.Min, k.Mean(), k.Max)
		}
	}
	b.WriteString("\n")
}

func (f *TextFormatter) formatFindings(p *message.Printer, report *Report, b *strings.Builder) {
	b.WriteString("[FINDINGS]\n")
	if len(report.Findings) == 0 {
		b.WriteString("  No findings\n\n")
		return
	}
	for _, fd := range report.Findings {
		p.Fprintf(b, "  - %s (%s)\n", fd.Code, strings.ToUpper(string(fd.Severity)))
		if f.opts.Verbose {
			p.Fprintf(b, "    %s\n", fd.Description)
			if fd.Rule != "" {
				p.Fprintf(b, "    Rule: %s\n", fd.Rule)
			}
		}
	}
	b.WriteString("\n")
}

func (f *TextFormatter) formatUnidentified(p *message.Printer, report *Report, b *strings.Builder) {
	if len(report.Unidentified) == 0 && len(report.UnknownTriggers) == 0 {
		return
	}

	if len(report.Unidentified) > 0 {
		p.Fprintf(b, "[UNIDENTIFIED] %d line(s)\n", len(report.Unidentified))
		for i, u := range report.Unidentified {
			if i == unidentifiedLimit && !f.opts.Verbose {
				p.Fprintf(b, "  ... %d more (use --verbose)\n", len(report.Unidentified)-i)
				break
			}
			p.Fprintf(b, "  %s:%d: %s\n", u.Source, u.Line, u.Text)
		}
	}
	if len(report.UnknownTriggers) > 0 {
		p.Fprintf(b, "Unknown triggers: %s\n", strings.Join(report.UnknownTriggers, ", "))
	}
	b.WriteString("\n")
}
