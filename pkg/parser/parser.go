package parser

import (
	"bufio"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Stdin is the source name that reads standard input.
const Stdin = "-"

// maxLineSize bounds one raw line. Merged PrintGCDetails records and long
// command lines fit comfortably.
const maxLineSize = 1024 * 1024

// FileSource implements LogSource for a list of captures read one after the
// other, in the order given. Names ending in ".gz" are decompressed.
type FileSource struct {
	files  []string
	opener Opener

	current       io.ReadCloser
	decompress    io.Closer
	scanner       *bufio.Scanner
	currentSource string
	currentLine   int
	fileIndex     int
}

// FileOption configures a FileSource.
type FileOption func(*FileSource)

// WithOpener sets how names are opened. The default opens local files and
// "-" as standard input.
func WithOpener(o Opener) FileOption {
	return func(s *FileSource) {
		s.opener = o
	}
}

// NewFileSource creates a LogSource that reads the given captures.
func NewFileSource(files []string, opts ...FileOption) *FileSource {
	s := &FileSource{
		files:     files,
		opener:    LocalOpener(),
		fileIndex: -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewReaderSource creates a LogSource over a single reader, named name in
// the lines it returns.
func NewReaderSource(name string, r io.Reader) *FileSource {
	return NewFileSource([]string{name}, WithOpener(OpenerFunc(func(context.Context, string) (io.ReadCloser, error) {
		return io.NopCloser(r), nil
	})))
}

// Next returns the next log line.
// Returns io.EOF when all captures have been exhausted.
func (s *FileSource) Next(ctx context.Context) (*LogLine, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if s.scanner == nil {
			if err := s.openNext(ctx); err != nil {
				return nil, err
			}
		}

		if s.scanner.Scan() {
			s.currentLine++
			return &LogLine{
				Content: strings.TrimSuffix(s.scanner.Text(), "\r"),
				Source:  s.currentSource,
				LineNum: s.currentLine,
			}, nil
		}

		if err := s.scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", s.currentSource, err)
		}

		if err := s.closeCurrent(); err != nil {
			return nil, err
		}
	}
}

// Close releases resources.
func (s *FileSource) Close() error {
	return s.closeCurrent()
}

func (s *FileSource) openNext(ctx context.Context) error {
	s.fileIndex++
	if s.fileIndex >= len(s.files) {
		return io.EOF
	}

	name := s.files[s.fileIndex]
	rc, err := s.opener.Open(ctx, name)
	if err != nil {
		return fmt.Errorf("opening log %s: %w", name, err)
	}

	var r io.Reader = rc
	if strings.HasSuffix(name, ".gz") {
		zr, err := gzip.NewReader(rc)
		if err != nil {
			_ = rc.Close()
			return fmt.Errorf("opening log %s: %w", name, err)
		}
		r, s.decompress = zr, zr
	}

	s.current = rc
	s.scanner = bufio.NewScanner(r)
	s.scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	s.currentSource = name
	s.currentLine = 0
	return nil
}

func (s *FileSource) closeCurrent() error {
	if s.current == nil {
		return nil
	}
	var errs []error
	if s.decompress != nil {
		errs = append(errs, s.decompress.Close())
	}
	errs = append(errs, s.current.Close())
	s.current, s.decompress, s.scanner = nil, nil, nil
	return errors.Join(errs...)
}

// LocalOpener opens local files, and "-" as standard input.
func LocalOpener() Opener {
	return OpenerFunc(func(_ context.Context, name string) (io.ReadCloser, error) {
		if name == Stdin {
			return io.NopCloser(os.Stdin), nil
		}
		return os.Open(name) // #nosec G304 -- user-provided paths are expected
	})
}
