package service

import (
	"github.com/basti85goe/geobridge/internal/config"
	"github.com/basti85goe/geobridge/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStoreBackend selects the state store backend and, for badger, its
// on-disk directory.
func WithStoreBackend(backend, dir string) Option {
	return func(s *Service) {
		if backend != "" {
			s.storeBackend = backend
		}
		if backend == config.BackendBadger && dir != "" {
			s.badgerDir = dir
		}
	}
}

// WithQueueSize bounds the change queue feeding the aggregation workers.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of aggregation workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithCreate controls lazy state hierarchy materialization.
func WithCreate(create bool) Option {
	return func(s *Service) {
		s.create = create
	}
}

// WithCredentials configures startup provisioning and the auth group.
// An empty user disables provisioning.
func WithCredentials(group, user, password string) Option {
	return func(s *Service) {
		if group != "" {
			s.groupName = group
		}
		s.userName = user
		s.userPassword = password
	}
}

// WithRelayServer activates best-effort forwarding to server.
func WithRelayServer(server string) Option {
	return func(s *Service) {
		s.relayServer = server
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
