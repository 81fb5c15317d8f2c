package walker

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchesExtension reports whether name has one of exts, ignoring case.
// exts carry their leading dot.
func MatchesExtension(name string, exts []string) bool {
	ext := filepath.Ext(name)
	for _, want := range exts {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}

// MatchesExclude returns true if the given name matches any of the
// exclude patterns. If patterns is empty, nothing is excluded.
func MatchesExclude(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	return matchesAny(name, patterns)
}

// matchesAny checks if name matches any of the given glob patterns.
// It uses doublestar so patterns like "{draft,wip}-*" work.
func matchesAny(name string, patterns []string) bool {
	normalized := filepath.ToSlash(name)
	base := filepath.Base(normalized)

	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if matched, err := doublestar.Match(pattern, normalized); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, base); err == nil && matched {
			return true
		}
	}
	return false
}
