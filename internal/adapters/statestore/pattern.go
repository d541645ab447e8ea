package statestore

import (
	"fmt"
	"strings"
)

// ValidatePattern rejects patterns no path could ever match: the empty
// pattern and patterns with empty segments ("a..b", leading or trailing
// dots).
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}
	for _, seg := range strings.Split(pattern, ".") {
		if seg == "" {
			return fmt.Errorf("%w: empty segment in %q", ErrInvalidPattern, pattern)
		}
	}
	return nil
}

// MatchPattern reports whether a dotted path matches a dotted pattern.
// Pattern segments:
//
//	"*"  matches exactly one path segment
//	"**" matches one or more path segments
//
// Anything else matches literally. "USERS.*.DEVICES.*.**.devicePresence"
// therefore covers every devicePresence leaf regardless of place depth.
func MatchPattern(pattern, path string) bool {
	return matchSegments(strings.Split(pattern, "."), strings.Split(path, "."))
}

func matchSegments(pattern, path []string) bool {
	if len(pattern) == 0 {
		return len(path) == 0
	}

	switch pattern[0] {
	case "**":
		// Consume one or more path segments.
		for skip := 1; skip <= len(path); skip++ {
			if matchSegments(pattern[1:], path[skip:]) {
				return true
			}
		}
		return false
	case "*":
		return len(path) > 0 && matchSegments(pattern[1:], path[1:])
	default:
		return len(path) > 0 && pattern[0] == path[0] && matchSegments(pattern[1:], path[1:])
	}
}
