// Package testhooks generates randomized Geofency and Locative webhook
// traffic against a running bridge, for load and smoke testing.
package testhooks

import "time"

// Config drives one generator run.
type Config struct {
	// BaseURL of the bridge, e.g. http://localhost:51988.
	BaseURL string

	// User and Password ride in the URL when set.
	User     string
	Password string

	// NumRequests is the number of webhooks to send.
	NumRequests int

	// Workers is the number of concurrent senders.
	Workers int

	// Users, Devices and Places bound the randomized identity space.
	Users   int
	Devices int
	Places  int

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// Verbose logs every request instead of a summary.
	Verbose bool
}

// Stats accumulates the outcome of a run.
type Stats struct {
	Sent     int64
	OK       int64
	Failed   int64
	Duration time.Duration
}
