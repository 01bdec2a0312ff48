package parser

import (
	"cmp"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
)

// ExpandGlobs resolves log source names into a deduplicated, ordered list
// of captures. Names keep their argument order. The matches of one glob are
// ordered by rotation index (gc.log.2 before gc.log.10), with the capture
// the runtime is still writing (gc.log.N.current) last. Names that match
// nothing are kept as written so opening them reports the error. S3 URLs
// and "-" pass through unexpanded.
func ExpandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var captures []string

	for _, pattern := range patterns {
		names := []string{pattern}
		if pattern != Stdin && !IsS3(pattern) {
			matches, err := filepath.Glob(pattern)
			if err != nil {
				return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
			}
			if len(matches) > 0 {
				slices.SortStableFunc(matches, compareRotation)
				names = matches
			}
		}

		for _, name := range names {
			if !seen[name] {
				seen[name] = true
				captures = append(captures, name)
			}
		}
	}

	return captures, nil
}

// rotationSuffix matches the suffix -XX:+UseGCLogFileRotation appends.
var rotationSuffix = regexp.MustCompile(`^(.*)\.(\d+)(\.current)?$`)

type rotation struct {
	base    string
	index   int
	current bool
}

func rotationOf(name string) rotation {
	m := rotationSuffix.FindStringSubmatch(name)
	if m == nil {
		return rotation{base: name, index: -1}
	}
	index, err := strconv.Atoi(m[2])
	if err != nil {
		return rotation{base: name, index: -1}
	}
	return rotation{base: m[1], index: index, current: m[3] != ""}
}

func compareRotation(a, b string) int {
	ra, rb := rotationOf(a), rotationOf(b)
	if c := cmp.Compare(ra.base, rb.base); c != 0 {
		return c
	}
	if ra.current != rb.current {
		if ra.current {
			return 1
		}
		return -1
	}
	return cmp.Compare(ra.index, rb.index)
}
