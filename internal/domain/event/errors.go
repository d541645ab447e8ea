package event

import "errors"

// Sentinel kinds for normalization errors.
var (
	// ErrUnrecognizedPayload marks an unknown (user-agent, content-type) pair.
	ErrUnrecognizedPayload = errors.New("unrecognized payload")

	// ErrMalformedPayload marks a recognized source whose body failed to parse.
	ErrMalformedPayload = errors.New("malformed payload")
)
