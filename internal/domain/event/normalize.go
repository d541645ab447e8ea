package event

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// DetectSource classifies a webhook request by its User-Agent and
// Content-Type headers. Matching is substring based: the apps ship verbose
// agent strings ("Geofency/7.2 (iPhone; ...)") and content types with charset
// suffixes.
func DetectSource(userAgent, contentType string) (Source, error) {
	switch {
	case strings.Contains(userAgent, "Geofency") && strings.Contains(contentType, "application/json"):
		return SourceGeofencyJSON, nil
	case strings.Contains(userAgent, "Geofency") && strings.Contains(contentType, "application/x-www-form-urlencoded"):
		return SourceGeofencyForm, nil
	case strings.Contains(userAgent, "Locative") && strings.Contains(contentType, "application/x-www-form-urlencoded"):
		return SourceLocativeForm, nil
	default:
		return "", fmt.Errorf("%w: user-agent %q, content-type %q", ErrUnrecognizedPayload, userAgent, contentType)
	}
}

// PathParams carries the identity parameters taken from the request path.
type PathParams struct {
	UserID    string
	DeviceID  string
	PlaceType string
}

// Normalize converts a raw webhook body of the given source into the
// canonical LocationEvent. Identity always comes from the path parameters;
// any device identifier inside the body is deliberately ignored.
func Normalize(src Source, body []byte, params PathParams) (*LocationEvent, error) {
	e := &LocationEvent{
		UserID:    params.UserID,
		DeviceID:  params.DeviceID,
		PlaceType: strings.ToUpper(params.PlaceType),
	}

	var err error
	switch src {
	case SourceGeofencyJSON:
		err = fillGeofencyJSON(e, body)
	case SourceGeofencyForm:
		err = fillGeofencyForm(e, body)
	case SourceLocativeForm:
		err = fillLocativeForm(e, body)
	default:
		return nil, fmt.Errorf("%w: source %q", ErrUnrecognizedPayload, src)
	}
	if err != nil {
		return nil, err
	}

	e.derivePlace()
	return e, nil
}

// flexFloat decodes a JSON number that may arrive quoted. Geofency has
// shipped both over the years.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse number %q: %w", s, err)
	}
	*f = flexFloat(v)
	return nil
}

// flexString decodes a JSON value that may arrive as string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	*f = flexString(strings.Trim(string(data), `"`))
	return nil
}

// geofencyPayload mirrors the Geofency webhook vocabulary. The same field
// names appear in the JSON and the form-encoded variant.
type geofencyPayload struct {
	Name             string     `json:"name"`
	CurrentLatitude  *flexFloat `json:"currentLatitude"`
	CurrentLongitude *flexFloat `json:"currentLongitude"`
	Device           string     `json:"device"`
	WifiSSID         string     `json:"wifiSSID"`
	WifiBSSID        string     `json:"wifiBSSID"`
	Date             flexFloat  `json:"date"` // milliseconds since epoch
	Entry            flexString `json:"entry"`
	Motion           string     `json:"motion"`
	Radius           *flexFloat `json:"radius"`
	Address          string     `json:"address"`
	BeaconUUID       string     `json:"beaconUUID"`
	Major            *flexFloat `json:"major"`
	Minor            *flexFloat `json:"minor"`
}

func (p *geofencyPayload) apply(e *LocationEvent) {
	e.PlaceName = p.Name
	e.Latitude = toFloatPtr(p.CurrentLatitude)
	e.Longitude = toFloatPtr(p.CurrentLongitude)
	e.WifiSSID = p.WifiSSID
	e.WifiMAC = p.WifiBSSID
	e.Timestamp = formatEpochMillis(int64(p.Date))
	e.Presence = p.Entry == "1"
	e.Motion = p.Motion
	e.Radius = toFloatPtr(p.Radius)
	e.Address = p.Address
	e.BeaconUUID = p.BeaconUUID
	e.BeaconMajor = toFloatPtr(p.Major)
	e.BeaconMinor = toFloatPtr(p.Minor)
}

func fillGeofencyJSON(e *LocationEvent, body []byte) error {
	var p geofencyPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return fmt.Errorf("%w: geofency json: %v", ErrMalformedPayload, err)
	}
	p.apply(e)
	return nil
}

func fillGeofencyForm(e *LocationEvent, body []byte) error {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return fmt.Errorf("%w: geofency form: %v", ErrMalformedPayload, err)
	}

	p := geofencyPayload{
		Name:             values.Get("name"),
		CurrentLatitude:  formFloat(values, "currentLatitude"),
		CurrentLongitude: formFloat(values, "currentLongitude"),
		Device:           values.Get("device"),
		WifiSSID:         values.Get("wifiSSID"),
		WifiBSSID:        values.Get("wifiBSSID"),
		Entry:            flexString(values.Get("entry")),
		Motion:           values.Get("motion"),
		Radius:           formFloat(values, "radius"),
		Address:          values.Get("address"),
		BeaconUUID:       values.Get("beaconUUID"),
		Major:            formFloat(values, "major"),
		Minor:            formFloat(values, "minor"),
	}
	if d := formFloat(values, "date"); d != nil {
		p.Date = flexFloat(*d)
	}

	p.apply(e)
	return nil
}

// fillLocativeForm maps the Locative vocabulary: "device" names the place,
// "trigger" carries the direction and "timestamp" is seconds since epoch.
func fillLocativeForm(e *LocationEvent, body []byte) error {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return fmt.Errorf("%w: locative form: %v", ErrMalformedPayload, err)
	}

	e.PlaceName = values.Get("device")
	e.Presence = values.Get("trigger") == "enter"
	e.Latitude = toFloatPtr(formFloat(values, "latitude"))
	e.Longitude = toFloatPtr(formFloat(values, "longitude"))

	var ms int64
	if ts := formFloat(values, "timestamp"); ts != nil {
		ms = int64(math.Round(float64(*ts) * 1000))
	}
	e.Timestamp = formatEpochMillis(ms)

	return nil
}

func formFloat(values url.Values, key string) *flexFloat {
	s := values.Get(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	f := flexFloat(v)
	return &f
}

func toFloatPtr(f *flexFloat) *float64 {
	if f == nil {
		return nil
	}
	v := float64(*f)
	return &v
}
