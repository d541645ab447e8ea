package testhooks

import "errors"

// Sentinel kinds for generator errors.
var (
	ErrNoRequests = errors.New("number of requests must be positive")
)
