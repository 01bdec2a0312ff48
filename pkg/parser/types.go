// Package parser supplies the raw lines of garbage collection log captures
// from local files, standard input and S3 objects.
package parser

// LogLine is one raw line of a capture.
type LogLine struct {
	// Content is the raw line text without the line terminator.
	Content string

	// Source is the path or URL the line came from.
	Source string

	// LineNum is the 1-based line number in the source.
	LineNum int
}
