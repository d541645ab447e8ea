package credentials

import (
	"github.com/basti85goe/geobridge/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithCost sets the bcrypt cost used when hashing new passwords.
func WithCost(cost int) Option {
	return func(r *Registry) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			r.cost = cost
		}
	}
}

// WithLogger sets a custom logger for the registry.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}
