package projector

import "github.com/basti85goe/geobridge/pkg/logger"

// Option applies a configuration option to the Projector.
type Option func(*Projector)

// WithCreate controls lazy hierarchy materialization. When disabled the
// node hierarchy is assumed to pre-exist and only leaf updates run.
func WithCreate(create bool) Option {
	return func(p *Projector) {
		p.create = create
	}
}

// WithLogger sets a custom logger for the projector.
func WithLogger(l logger.Logger) Option {
	return func(p *Projector) {
		if l != nil {
			p.logger = l
		}
	}
}
