package output

import (
	"context"
	"io"

	"golang.org/x/text/language"
)

// Formatter renders analysis results in a specific format.
type Formatter interface {
	// Format renders the report to the given writer.
	Format(ctx context.Context, report *Report, w io.Writer) error

	// Name returns the format name (text, json).
	Name() string
}

// FormatOptions controls formatter behavior.
type FormatOptions struct {
	// Verbose adds the per-kind table, every unidentified line and, in
	// JSON, the event sequence.
	Verbose bool

	// Quiet enables minimal summary-only output.
	Quiet bool

	// Language selects number formatting in text output. The zero value
	// means English.
	Language language.Tag
}

// New returns the formatter for a format name.
func New(format string, opts FormatOptions) (Formatter, error) {
	switch format {
	case "", "text":
		return NewTextFormatter(opts), nil
	case "json":
		return NewJSONFormatter(opts), nil
	}
	return nil, &UnknownFormatError{Format: format}
}

// UnknownFormatError is returned by New for an unsupported format name.
type UnknownFormatError struct {
	Format string
}

func (e *UnknownFormatError) Error() string {
	return "unknown output format " + e.Format + " (want text or json)"
}
