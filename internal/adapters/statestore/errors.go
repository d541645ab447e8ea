package statestore

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound       = errors.New("node not found")
	ErrClosed         = errors.New("store closed")
	ErrInvalidPattern = errors.New("invalid pattern")
)
