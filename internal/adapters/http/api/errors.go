package api

import "errors"

// Sentinel kinds for webhook handling errors.
var (
	ErrAuthFailure      = errors.New("authentication failed")
	ErrMalformedRequest = errors.New("malformed request")
)
