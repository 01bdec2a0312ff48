package parser

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func drain(t *testing.T, source LogSource) []*LogLine {
	t.Helper()
	ctx := context.Background()
	var lines []*LogLine
	for {
		line, err := source.Next(ctx)
		if err == io.EOF {
			return lines
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		lines = append(lines, line)
	}
}

func TestFileSource_Next(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "gc.log")
	content := "CommandLine flags: -XX:+UseG1GC\r\n" +
		"0.500: [GC pause (G1 Evacuation Pause) (young), 0.0100000 secs]\n" +
		"\n" +
		"1.000: [GC pause (G1 Evacuation Pause) (young), 0.0200000 secs]\n"
	if err := os.WriteFile(logFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	source := NewFileSource([]string{logFile})
	defer source.Close()
	lines := drain(t, source)

	if len(lines) != 4 {
		t.Fatalf("Got %d lines, want 4 (blank lines included)", len(lines))
	}
	if lines[0].Content != "CommandLine flags: -XX:+UseG1GC" {
		t.Errorf("Content = %q, want the line without CR", lines[0].Content)
	}
	if lines[3].LineNum != 4 {
		t.Errorf("LineNum = %d, want 4", lines[3].LineNum)
	}
	if lines[0].Source != logFile {
		t.Errorf("Source = %q, want %q", lines[0].Source, logFile)
	}
}

func TestFileSource_MultipleFilesInOrder(t *testing.T) {
	dir := t.TempDir()

	files := []struct {
		name    string
		content string
	}{
		{"gc.log.1", "5.000: later\n"},
		{"gc.log.0", "1.000: earlier\n2.000: earlier\n"},
	}

	var paths []string
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, []byte(f.content), 0644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, path)
	}

	source := NewFileSource(paths)
	defer source.Close()
	lines := drain(t, source)

	if len(lines) != 3 {
		t.Fatalf("Got %d lines, want 3", len(lines))
	}
	if lines[0].Content != "5.000: later" {
		t.Errorf("first line = %q, want the first file's line", lines[0].Content)
	}
	if lines[1].LineNum != 1 || lines[1].Source != paths[1] {
		t.Errorf("second file line = %s:%d, want %s:1", lines[1].Source, lines[1].LineNum, paths[1])
	}
}

func TestFileSource_Gzip(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "gc.log.gz")

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte("1.000: [GC 100K->50K(200K), 0.0010000 secs]\n")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(logFile, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	source := NewFileSource([]string{logFile})
	defer source.Close()
	lines := drain(t, source)

	if len(lines) != 1 || !strings.HasPrefix(lines[0].Content, "1.000: [GC") {
		t.Errorf("lines = %v, want the decompressed line", lines)
	}
}

func TestFileSource_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "empty.log")
	if err := os.WriteFile(logFile, []byte(""), 0644); err != nil {
		t.Fatal(err)
	}

	source := NewFileSource([]string{logFile})
	defer source.Close()

	_, err := source.Next(context.Background())
	if err != io.EOF {
		t.Errorf("Next() error = %v, want io.EOF", err)
	}
}

func TestFileSource_FileNotFound(t *testing.T) {
	source := NewFileSource([]string{"/nonexistent/gc.log"})
	defer source.Close()

	_, err := source.Next(context.Background())
	if err == nil {
		t.Error("Next() expected error for missing file")
	}
}

func TestFileSource_ContextCancellation(t *testing.T) {
	source := NewReaderSource("mem", strings.NewReader("1.000: line\n"))
	defer source.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	_, err := source.Next(ctx)
	if err != context.Canceled {
		t.Errorf("Next() error = %v, want context.Canceled", err)
	}
}

func TestFileSource_Close(t *testing.T) {
	source := NewReaderSource("mem", strings.NewReader("1.000: line\n"))

	// Read one line to open the reader
	if _, err := source.Next(context.Background()); err != nil {
		t.Fatalf("Next() error = %v", err)
	}

	if err := source.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := source.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestConcatSource(t *testing.T) {
	source := NewConcatSource(
		NewReaderSource("a", strings.NewReader("a1\na2\n")),
		NewReaderSource("empty", strings.NewReader("")),
		NewReaderSource("b", strings.NewReader("b1\n")),
	)
	defer source.Close()

	var got []string
	for _, line := range drain(t, source) {
		got = append(got, line.Source+":"+line.Content)
	}
	want := "a:a1 a:a2 b:b1"
	if strings.Join(got, " ") != want {
		t.Errorf("lines = %v, want %s", got, want)
	}
}

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		in          string
		bucket, key string
		wantErr     bool
	}{
		{"s3://logs/prod/gc.log", "logs", "prod/gc.log", false},
		{"s3://logs", "", "", true},
		{"s3:///gc.log", "", "", true},
		{"/var/log/gc.log", "", "", true},
	}

	for _, tt := range tests {
		bucket, key, err := ParseS3URL(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseS3URL(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if bucket != tt.bucket || key != tt.key {
			t.Errorf("ParseS3URL(%q) = %q, %q, want %q, %q", tt.in, bucket, key, tt.bucket, tt.key)
		}
	}
}

type fakeS3 struct {
	objects map[string]string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3Opener(t *testing.T) {
	client := &fakeS3{objects: map[string]string{"logs/gc.log": "1.000: line\n2.000: line\n"}}
	opener := RoutingOpener{S3: NewS3Opener(client)}

	source := NewFileSource([]string{"s3://logs/gc.log"}, WithOpener(opener))
	defer source.Close()
	lines := drain(t, source)
	if len(lines) != 2 || lines[1].Source != "s3://logs/gc.log" {
		t.Errorf("lines = %+v, want 2 lines from the object", lines)
	}

	missing := NewFileSource([]string{"s3://logs/other.log"}, WithOpener(opener))
	defer missing.Close()
	if _, err := missing.Next(context.Background()); err == nil {
		t.Error("Next() on a missing object succeeded")
	}
}

func TestRoutingOpener_NoS3(t *testing.T) {
	_, err := RoutingOpener{}.Open(context.Background(), "s3://logs/gc.log")
	if err == nil {
		t.Error("Open() of an s3 url without a client succeeded")
	}
}
