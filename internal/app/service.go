// Package service wires the bridge components together: state store, change
// bus, aggregation pipeline, credentials and the webhook dependencies.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/basti85goe/geobridge/internal/adapters/http/api"
	changequeue "github.com/basti85goe/geobridge/internal/adapters/mq/queue"
	workerpool "github.com/basti85goe/geobridge/internal/adapters/mq/worker"
	"github.com/basti85goe/geobridge/internal/adapters/relay"
	"github.com/basti85goe/geobridge/internal/adapters/statestore"
	"github.com/basti85goe/geobridge/internal/config"
	"github.com/basti85goe/geobridge/internal/credentials"
	"github.com/basti85goe/geobridge/internal/domain/presence"
	"github.com/basti85goe/geobridge/internal/domain/projector"
	"github.com/basti85goe/geobridge/pkg/logger"
)

// Service owns the long-lived components of the bridge.
type Service struct {
	mu sync.Mutex

	// Configuration
	storeBackend string
	badgerDir    string
	queueSize    int
	workerCount  int
	create       bool
	groupName    string
	userName     string
	userPassword string
	relayServer  string

	// Core components
	notifier    *statestore.Notifier
	store       statestore.Store
	changeQueue *changequeue.InMemoryQueue
	workerPool  *workerpool.Pool
	registry    *credentials.Registry
	projector   *projector.Projector
	forwarder   *relay.Forwarder

	started bool
	logger  logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		storeBackend: config.BackendMemory,
		badgerDir:    "geobridge-state",
		queueSize:    10_000,
		workerCount:  runtime.NumCPU() * 2,
		create:       true,
		groupName:    "geofence",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromConfig builds the options matching a loaded configuration.
func FromConfig(cfg *config.Config) []Option {
	opts := []Option{
		WithStoreBackend(cfg.StoreBackend, cfg.BadgerDir),
		WithQueueSize(cfg.QueueSize),
		WithWorkerCount(cfg.WorkerCount),
		WithCreate(cfg.Create),
		WithCredentials(cfg.UserGroupName, cfg.UserName, cfg.UserPassword),
	}
	if cfg.ActivateRelay {
		opts = append(opts, WithRelayServer(cfg.RelayServer))
	}
	return opts
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting geofence bridge...")

	s.notifier = statestore.NewNotifier(s.logger)

	switch s.storeBackend {
	case config.BackendBadger:
		store, err := statestore.OpenBadger(s.notifier, statestore.WithDir(s.badgerDir))
		if err != nil {
			return fmt.Errorf("opening badger store: %w", err)
		}
		s.store = store
		s.logger.Info(ctx, "using badger store", logger.String("dir", s.badgerDir))
	default:
		s.store = statestore.NewMemStore(s.notifier)
		s.logger.Info(ctx, "using memory store")
	}

	// devicePresence changes flow through a bounded queue into the
	// aggregation workers so change storms never fan out unbounded.
	s.changeQueue = changequeue.NewInMemoryQueue(
		changequeue.WithCapacity(s.queueSize),
		changequeue.WithBufferSize(s.queueSize),
	)
	aggregator := presence.New(s.store)
	s.workerPool = workerpool.NewPool(s.workerCount, s.changeQueue, aggregator)
	s.workerPool.Start(ctx)

	err := s.store.Subscribe(ctx, presence.SubscriptionPattern, func(ctx context.Context, change statestore.Change) {
		if !s.changeQueue.Enqueue(ctx, change) {
			s.logger.Warn(ctx, "change queue full, presence change dropped",
				logger.String("path", change.Path),
			)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribing to presence changes: %w", err)
	}

	s.registry = credentials.NewRegistry()
	if s.userName != "" {
		if err := s.registry.Provision(ctx, s.groupName, s.userName, s.userPassword); err != nil {
			return fmt.Errorf("provisioning credentials: %w", err)
		}
	}

	s.projector = projector.New(s.store, projector.WithCreate(s.create))

	if s.relayServer != "" {
		s.forwarder = relay.New(s.relayServer)
		s.logger.Info(ctx, "relay active", logger.String("server", s.relayServer))
	}

	s.started = true
	s.logger.Info(ctx, "geofence bridge started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Bool("create", s.create),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping geofence bridge...")

	if s.changeQueue != nil {
		_ = s.changeQueue.Close()
	}
	if s.workerPool != nil {
		_ = s.workerPool.Shutdown(ctx)
	}
	if s.store != nil {
		_ = s.store.Close()
	}
	if s.notifier != nil {
		_ = s.notifier.Close()
	}

	s.started = false
	s.logger.Info(ctx, "geofence bridge stopped")
}

// Store exposes the state store, mainly for tests and tooling.
func (s *Service) Store() statestore.Store {
	return s.store
}

// Dependencies bundles the started components for the webhook handlers.
func (s *Service) Dependencies() api.Dependencies {
	deps := api.Dependencies{
		Checker:   s.registry,
		Projector: s.projector,
		UserGroup: s.groupName,
	}
	if s.forwarder != nil {
		deps.Relay = s.forwarder
	}
	return deps
}
