package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCapture(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("0.100: [GC 100K->50K(200K), 0.0010000 secs]\n"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestExpandGlobs_SingleFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "gc.log")
	writeCapture(t, file)

	result, err := ExpandGlobs([]string{file})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(result) != 1 || result[0] != file {
		t.Errorf("ExpandGlobs() = %v, want [%s]", result, file)
	}
}

func TestExpandGlobs_GlobPattern(t *testing.T) {
	dir := t.TempDir()
	files := []string{"gc.log.0", "gc.log.1", "notes.txt"}
	for _, f := range files {
		writeCapture(t, filepath.Join(dir, f))
	}

	pattern := filepath.Join(dir, "gc.log.*")
	result, err := ExpandGlobs([]string{pattern})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(result) != 2 {
		t.Errorf("ExpandGlobs() returned %d files, want 2", len(result))
	}
}

func TestExpandGlobs_NoMatch(t *testing.T) {
	dir := t.TempDir()
	pattern := filepath.Join(dir, "*.nonexistent")

	result, err := ExpandGlobs([]string{pattern})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	// Should return the pattern as-is when no match
	if len(result) != 1 || result[0] != pattern {
		t.Errorf("ExpandGlobs() = %v, want [%s]", result, pattern)
	}
}

func TestExpandGlobs_Deduplication(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "gc.log")
	writeCapture(t, file)

	// Same file via different paths/patterns
	result, err := ExpandGlobs([]string{file, file})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(result) != 1 {
		t.Errorf("ExpandGlobs() returned %d files, want 1 (deduplicated)", len(result))
	}
}

func TestExpandGlobs_InvalidPattern(t *testing.T) {
	_, err := ExpandGlobs([]string{"[invalid"})
	if err == nil {
		t.Error("ExpandGlobs() expected error for invalid pattern")
	}
}

func TestExpandGlobs_RotationOrder(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		glob  string
		want  []string
	}{
		{
			name:  "numeric index",
			files: []string{"gc.log.10", "gc.log.2", "gc.log.0", "gc.log.1"},
			glob:  "gc.log.*",
			want:  []string{"gc.log.0", "gc.log.1", "gc.log.2", "gc.log.10"},
		},
		{
			name:  "current last",
			files: []string{"gc.log.3.current", "gc.log.0", "gc.log.1", "gc.log.2"},
			glob:  "gc.log.*",
			want:  []string{"gc.log.0", "gc.log.1", "gc.log.2", "gc.log.3.current"},
		},
		{
			name:  "separate bases",
			files: []string{"b.gc.log.1", "a.gc.log.1", "a.gc.log.0"},
			glob:  "*.gc.log.*",
			want:  []string{"a.gc.log.0", "a.gc.log.1", "b.gc.log.1"},
		},
		{
			name:  "no rotation suffix",
			files: []string{"node-b.log", "node-a.log"},
			glob:  "*.log",
			want:  []string{"node-a.log", "node-b.log"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				writeCapture(t, filepath.Join(dir, f))
			}

			result, err := ExpandGlobs([]string{filepath.Join(dir, tt.glob)})
			if err != nil {
				t.Fatalf("ExpandGlobs() error = %v", err)
			}

			got := make([]string, len(result))
			for i, r := range result {
				got[i] = filepath.Base(r)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("ExpandGlobs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpandGlobs_KeepsPatternOrder(t *testing.T) {
	dir := t.TempDir()
	files := []string{"c.log", "a.log", "b.log"}
	for _, f := range files {
		writeCapture(t, filepath.Join(dir, f))
	}

	patterns := []string{filepath.Join(dir, "c.log"), filepath.Join(dir, "*.log")}
	result, err := ExpandGlobs(patterns)
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}

	want := []string{filepath.Join(dir, "c.log"), filepath.Join(dir, "a.log"), filepath.Join(dir, "b.log")}
	if strings.Join(result, ",") != strings.Join(want, ",") {
		t.Errorf("ExpandGlobs() = %v, want %v", result, want)
	}
}

func TestExpandGlobs_PassThrough(t *testing.T) {
	result, err := ExpandGlobs([]string{"s3://logs/gc-*.log", "-"})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(result) != 2 || result[0] != "s3://logs/gc-*.log" || result[1] != "-" {
		t.Errorf("ExpandGlobs() = %v, want the names unchanged", result)
	}
}

func TestExpandGlobs_EmptyInput(t *testing.T) {
	result, err := ExpandGlobs([]string{})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(result) != 0 {
		t.Errorf("ExpandGlobs([]) = %v, want empty", result)
	}
}
