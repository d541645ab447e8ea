// Package event contains the canonical location event model and the
// normalization of app-specific webhook payloads into it.
package event

import (
	"time"

	"github.com/basti85goe/geobridge/internal/domain/placepath"
)

// TimeFormat is the fixed representation of event timestamps in the state tree.
const TimeFormat = "2006-01-02 15:04:05"

// Source identifies a recognized (user-agent, content-type) combination.
type Source string

// Recognized webhook sources.
const (
	SourceGeofencyJSON Source = "geofency-json"
	SourceGeofencyForm Source = "geofency-form"
	SourceLocativeForm Source = "locative-form"
)

// App returns the short app name of the source for logs and metrics.
func (s Source) App() string {
	switch s {
	case SourceGeofencyJSON, SourceGeofencyForm:
		return "Geofency"
	case SourceLocativeForm:
		return "Locative"
	default:
		return "unknown"
	}
}

// LocationEvent is the canonical, format-independent shape of one geofence
// transition. All downstream projection works from this type only.
type LocationEvent struct {
	// Identity from the request path.
	UserID    string
	DeviceID  string
	PlaceType string // uppercased category tag, e.g. "HOME"

	// Place hierarchy.
	PlaceName    string   // raw colon-delimited name, e.g. "Home:Kitchen"
	Segments     []string // whitespace-cleaned hierarchy levels
	SegmentPaths []string // cumulative dotted paths, parallel to Segments

	// Position and radio environment. Nil pointers mean "absent".
	Latitude  *float64
	Longitude *float64
	WifiSSID  string
	WifiMAC   string

	// Transition.
	Timestamp string // formatted with TimeFormat
	Presence  bool   // true = entering, false = leaving
	Motion    string

	// Place metadata.
	Radius  *float64
	Address string

	// iBeacon metadata.
	BeaconUUID  string
	BeaconMajor *float64
	BeaconMinor *float64
}

// LeafSegmentPath returns the dotted path of the deepest place segment.
func (e *LocationEvent) LeafSegmentPath() string {
	return e.SegmentPaths[len(e.SegmentPaths)-1]
}

// derivePlace fills the Segments/SegmentPaths pair from the raw place name.
func (e *LocationEvent) derivePlace() {
	d := placepath.Derive(e.PlaceName)
	e.Segments = d.Segments
	e.SegmentPaths = d.SegmentPaths
}

// formatEpochMillis renders a milliseconds-since-epoch instant with
// TimeFormat. Zero falls back to the current time: some app versions omit the
// field and a missing timestamp must not produce an unparseable value.
func formatEpochMillis(ms int64) string {
	if ms == 0 {
		return time.Now().Format(TimeFormat)
	}
	return time.UnixMilli(ms).Format(TimeFormat)
}
