// Package presence recomputes per-place occupancy aggregates from
// devicePresence changes.
//
// A user contributes to a place's occupancy only through their primary
// device. Changes on non-primary devices are ignored outright; changes on a
// primary device trigger a full recomputation over every known user's
// primary device and rewrite the place aggregates unconditionally.
package presence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/basti85goe/geobridge/internal/adapters/statestore"
	"github.com/basti85goe/geobridge/internal/domain/statepath"
	"github.com/basti85goe/geobridge/pkg/logger"
	"github.com/basti85goe/geobridge/pkg/metrics"
)

// primaryDevicePattern enumerates one primaryDevice entry per known user.
const primaryDevicePattern = "USERS.*.Config.primaryDevice"

// SubscriptionPattern matches every devicePresence leaf in the tree. The
// service subscribes the aggregator to this pattern on startup.
const SubscriptionPattern = "USERS.*.DEVICES.*.**.devicePresence"

// Aggregator derives place occupancy aggregates from the state tree.
type Aggregator struct {
	store  statestore.Store
	logger logger.Logger
}

// New creates an aggregator reading and writing through store.
func New(store statestore.Store, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:  store,
		logger: logger.Get().Named("presence"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate handles one state change. Non-presence paths and changes from
// non-primary devices are ignored.
func (a *Aggregator) Aggregate(ctx context.Context, change statestore.Change) error {
	d, ok := statepath.DecomposePresence(change.Path)
	if !ok {
		return nil
	}

	primary, err := a.store.GetValue(ctx, statepath.Join(d.UserPath, "Config", statepath.LeafPrimaryDevice))
	if err != nil {
		return err
	}
	if s, _ := primary.(string); s != d.DevicePath {
		metrics.RecordPresenceIgnored()
		a.logger.Debug(ctx, "presence change on non-primary device ignored",
			logger.String("path", change.Path),
			logger.String("device", d.DevicePath),
		)
		return nil
	}

	return a.recompute(ctx, d.PlacePath)
}

// recompute re-derives the occupancy aggregates of one place from every
// user's primary device and writes them back together.
func (a *Aggregator) recompute(ctx context.Context, placePath string) error {
	start := time.Now()
	defer func() {
		metrics.RecordPresenceLatency(float64(time.Since(start).Milliseconds()))
	}()
	metrics.RecordPresenceRecompute()

	primaries, err := a.store.Enumerate(ctx, primaryDevicePattern)
	if err != nil {
		return err
	}

	// The per-user reads are independent; issue them concurrently and
	// collect before any aggregate write so a partially updated read set
	// is never observed.
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	users := make([]string, 0, len(primaries))
	for path, devicePath := range primaries {
		user := statepath.UserFromPrimaryDevicePath(path)
		device, _ := devicePath.(string)
		if user == "" || device == "" {
			continue
		}

		wg.Add(1)
		go func(user, device string) {
			defer wg.Done()
			v, err := a.store.GetValue(ctx, statepath.Join(device, placePath, statepath.LeafDevicePresence))
			if err != nil {
				a.logger.Error(ctx, "reading device presence failed",
					logger.String("user", user),
					logger.Error(err),
				)
				return
			}
			if present, ok := v.(bool); ok && present {
				mu.Lock()
				users = append(users, user)
				mu.Unlock()
			}
		}(user, device)
	}
	wg.Wait()
	sort.Strings(users)

	count := len(users)
	if err := a.store.SetValue(ctx, statepath.Join(placePath, statepath.LeafPresence), count > 0, true); err != nil {
		return err
	}
	if err := a.store.SetValue(ctx, statepath.Join(placePath, statepath.LeafPresenceCount), count, true); err != nil {
		return err
	}
	if err := a.store.SetValue(ctx, statepath.Join(placePath, statepath.LeafPresenceUsers), users, true); err != nil {
		return err
	}

	a.logger.Debug(ctx, "place occupancy recomputed",
		logger.String("place", placePath),
		logger.Int("count", count),
	)
	return nil
}
