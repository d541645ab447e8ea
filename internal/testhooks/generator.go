package testhooks

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/url"
	"time"

	"github.com/goccy/go-json"
)

// Webhook is one synthetic request ready to send.
type Webhook struct {
	Path        string
	UserAgent   string
	ContentType string
	Body        []byte
}

// place names exercising the colon hierarchy and whitespace cleanup.
var placeNames = []string{
	"Home",
	"Home:Kitchen",
	"Home:Living Room",
	"Office:Floor 2:Desk 12",
	"Gym",
	"Town:Main Square",
}

var placeTypes = []string{"HOME", "WORK", "GYM", "TOWN"}

func randomInt(max int) int {
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(max)))
	return int(n.Int64())
}

// generate builds one random webhook in one of the three recognized formats.
func generate(cfg *Config) Webhook {
	places := cfg.Places
	if places < 1 || places > len(placeNames) {
		places = len(placeNames)
	}
	user := fmt.Sprintf("user%d", randomInt(max(cfg.Users, 1)))
	device := fmt.Sprintf("device%d", randomInt(max(cfg.Devices, 1)))
	place := placeNames[randomInt(places)]
	placeType := placeTypes[randomInt(len(placeTypes))]
	entering := randomInt(2) == 0
	lat := 52.0 + float64(randomInt(1000))/1000.0
	long := 13.0 + float64(randomInt(1000))/1000.0

	path := fmt.Sprintf("/%s/%s/%s", user, device, placeType)
	if cfg.User != "" {
		path = fmt.Sprintf("/%s/%s%s", cfg.User, cfg.Password, path)
	}

	switch randomInt(3) {
	case 0:
		return geofencyJSON(path, place, lat, long, entering)
	case 1:
		return geofencyForm(path, place, lat, long, entering)
	default:
		return locativeForm(path, place, lat, long, entering)
	}
}

func geofencyJSON(path, place string, lat, long float64, entering bool) Webhook {
	entry := "0"
	if entering {
		entry = "1"
	}
	body, _ := json.Marshal(map[string]any{
		"name":             place,
		"currentLatitude":  lat,
		"currentLongitude": long,
		"entry":            entry,
		"date":             time.Now().UnixMilli(),
		"motion":           "walking",
	})
	return Webhook{
		Path:        path,
		UserAgent:   "Geofency/6.0",
		ContentType: "application/json",
		Body:        body,
	}
}

func geofencyForm(path, place string, lat, long float64, entering bool) Webhook {
	entry := "0"
	if entering {
		entry = "1"
	}
	values := url.Values{}
	values.Set("name", place)
	values.Set("currentLatitude", fmt.Sprintf("%v", lat))
	values.Set("currentLongitude", fmt.Sprintf("%v", long))
	values.Set("entry", entry)
	values.Set("date", fmt.Sprintf("%d", time.Now().UnixMilli()))
	return Webhook{
		Path:        path,
		UserAgent:   "Geofency/6.0",
		ContentType: "application/x-www-form-urlencoded",
		Body:        []byte(values.Encode()),
	}
}

func locativeForm(path, place string, lat, long float64, entering bool) Webhook {
	trigger := "exit"
	if entering {
		trigger = "enter"
	}
	values := url.Values{}
	values.Set("device", place)
	values.Set("id", "generator")
	values.Set("trigger", trigger)
	values.Set("timestamp", fmt.Sprintf("%d", time.Now().Unix()))
	values.Set("latitude", fmt.Sprintf("%v", lat))
	values.Set("longitude", fmt.Sprintf("%v", long))
	return Webhook{
		Path:        path,
		UserAgent:   "Locative/4.1",
		ContentType: "application/x-www-form-urlencoded",
		Body:        []byte(values.Encode()),
	}
}
