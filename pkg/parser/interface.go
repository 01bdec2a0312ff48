package parser

import (
	"context"
	"io"
)

// LogSource provides an iterator over raw log lines in capture order.
// Implementations must be safe for sequential access (not concurrent).
type LogSource interface {
	// Next returns the next log line.
	// Returns io.EOF when no more lines are available.
	Next(ctx context.Context) (*LogLine, error)

	// Close releases any resources held by the source.
	Close() error
}

// Opener opens a named capture for reading.
type Opener interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, name string) (io.ReadCloser, error)

func (f OpenerFunc) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	return f(ctx, name)
}
