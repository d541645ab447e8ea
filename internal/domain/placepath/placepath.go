// Package placepath derives hierarchical state paths from colon-delimited
// place names.
//
// A geofence name like "Home:First Floor:Kitchen" describes a hierarchy of
// three levels. Each level becomes one path segment with whitespace replaced
// by underscores, and each level also gets the cumulative dotted path of all
// segments up to and including itself. The deriver is a pure function: no
// side effects, deterministic for a given input.
package placepath

import (
	"regexp"
	"strings"
)

// whitespace matches any run of whitespace inside a segment.
var whitespace = regexp.MustCompile(`\s+`)

// Derived holds the parallel segment sequences for one place name.
type Derived struct {
	// Segments are the colon-separated levels with whitespace replaced
	// by underscores, in hierarchy order.
	Segments []string

	// SegmentPaths are the cumulative dotted paths; SegmentPaths[i] joins
	// Segments[0..i] with dots. Always the same length as Segments.
	SegmentPaths []string
}

// Leaf returns the full dotted path of the deepest place segment.
func (d Derived) Leaf() string {
	return d.SegmentPaths[len(d.SegmentPaths)-1]
}

// Derive splits name on ":" and builds the segment and cumulative path
// sequences. The result is never empty: an empty name yields one empty
// segment, mirroring strings.Split semantics.
func Derive(name string) Derived {
	raw := strings.Split(name, ":")

	d := Derived{
		Segments:     make([]string, 0, len(raw)),
		SegmentPaths: make([]string, 0, len(raw)),
	}

	var dotted strings.Builder
	for i, seg := range raw {
		clean := whitespace.ReplaceAllString(seg, "_")
		d.Segments = append(d.Segments, clean)

		if i > 0 {
			dotted.WriteByte('.')
		}
		dotted.WriteString(clean)
		d.SegmentPaths = append(d.SegmentPaths, dotted.String())
	}

	return d
}
