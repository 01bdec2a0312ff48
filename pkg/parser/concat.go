package parser

import (
	"context"
	"io"
)

// ConcatSource reads several LogSources one after the other. Lines keep
// the order of their source; nothing is re-sorted.
type ConcatSource struct {
	sources []LogSource
	index   int
}

// NewConcatSource creates a LogSource that drains sources in order.
func NewConcatSource(sources ...LogSource) *ConcatSource {
	return &ConcatSource{sources: sources}
}

// Next returns the next line of the current source, moving on when it is
// exhausted. Returns io.EOF when all sources are exhausted.
func (c *ConcatSource) Next(ctx context.Context) (*LogLine, error) {
	for c.index < len(c.sources) {
		line, err := c.sources[c.index].Next(ctx)
		if err == io.EOF {
			c.index++
			continue
		}
		return line, err
	}
	return nil, io.EOF
}

// Close releases all source resources.
func (c *ConcatSource) Close() error {
	var firstErr error
	for _, src := range c.sources {
		if err := src.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
