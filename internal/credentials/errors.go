package credentials

import "errors"

// Sentinel kinds for credential registry errors.
var (
	ErrEmptyIdentity = errors.New("empty user or group name")
	ErrUnknownUser   = errors.New("unknown user")
	ErrUnknownGroup  = errors.New("unknown group")
)
