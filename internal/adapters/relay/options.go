package relay

import (
	"net/http"

	"github.com/basti85goe/geobridge/pkg/logger"
)

// Option applies a configuration option to the Forwarder.
type Option func(*Forwarder)

// WithClient sets the HTTP client used for relay requests.
func WithClient(client *http.Client) Option {
	return func(f *Forwarder) {
		if client != nil {
			f.client = client
		}
	}
}

// WithLogger sets a custom logger for the forwarder.
func WithLogger(l logger.Logger) Option {
	return func(f *Forwarder) {
		if l != nil {
			f.logger = l
		}
	}
}
