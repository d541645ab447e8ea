// Package projector materializes the state hierarchy for a location event
// and writes its leaf values with change suppression.
//
// Every leaf write goes through writeIfChanged: the current value is read,
// compared type-aware, and only a genuine difference reaches the store. Node
// creation is lazy and runs only when the create flag is on; with the flag
// off the hierarchy is assumed to pre-exist and only leaf updates happen.
package projector

import (
	"context"
	"fmt"
	"time"

	"github.com/basti85goe/geobridge/internal/adapters/statestore"
	"github.com/basti85goe/geobridge/internal/domain/event"
	"github.com/basti85goe/geobridge/internal/domain/statepath"
	"github.com/basti85goe/geobridge/pkg/logger"
	"github.com/basti85goe/geobridge/pkg/metrics"
)

// Leaf names written under Position, Informations and BEACON channels.
const (
	leafLat     = "lat"
	leafLong    = "long"
	leafLatLong = "latlong"
	leafMotion  = "motion"
	leafRadius  = "radius"
	leafAddress = "address"

	leafWifiSSID = "WiFi_SSID"
	leafWifiMAC  = "WiFi_MAC"

	leafBeaconUUID  = "uuid"
	leafBeaconMajor = "major"
	leafBeaconMinor = "minor"
)

// Projector projects canonical location events into the state tree.
type Projector struct {
	store  statestore.Store
	create bool
	logger logger.Logger
}

// New creates a projector writing through store.
func New(store statestore.Store, opts ...Option) *Projector {
	p := &Projector{
		store:  store,
		create: true,
		logger: logger.Get().Named("projector"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Project runs the full projection sequence for one event. Store failures
// are logged per write and never abort the remaining independent writes.
func (p *Projector) Project(ctx context.Context, e *event.LocationEvent) {
	start := time.Now()
	defer func() {
		metrics.RecordProjectionLatency(float64(time.Since(start).Milliseconds()))
	}()

	deviceCreated := p.materialize(ctx, e)
	if deviceCreated {
		p.electPrimaryDevice(ctx, e)
	}

	p.writeDeviceValues(ctx, e)
	p.writeDevicePresence(ctx, e)
	p.writePlaceValues(ctx, e)
}

// materialize lazily creates the node hierarchy the event addresses.
// Returns whether the device node was created for the first time, which
// drives primary device election.
func (p *Projector) materialize(ctx context.Context, e *event.LocationEvent) bool {
	if !p.create {
		return false
	}

	user := statepath.User(e.UserID)
	device := statepath.Device(e.UserID, e.DeviceID)

	p.ensure(ctx, statepath.UsersRoot, statepath.KindChannel, "Users")
	p.ensure(ctx, user, statepath.KindDevice, e.UserID)
	p.ensure(ctx, statepath.UserConfig(e.UserID), statepath.KindChannel, "Config")
	p.ensure(ctx, statepath.PrimaryDevice(e.UserID), statepath.KindState, statepath.LeafPrimaryDevice)

	// Per-user position and presence states exist for compatibility with
	// the stored layout but nothing in the projection writes them.
	userPos := statepath.Position(user)
	p.ensure(ctx, userPos, statepath.KindChannel, "Position")
	for _, leaf := range []string{leafLat, leafLong, leafLatLong, leafAddress, leafMotion} {
		p.ensure(ctx, statepath.Join(userPos, leaf), statepath.KindState, leaf)
	}
	for _, leaf := range []string{"userPresence", "userLastEnter", "userLastLeave"} {
		p.ensure(ctx, statepath.Join(user, leaf), statepath.KindState, leaf)
	}

	p.ensure(ctx, statepath.Devices(e.UserID), statepath.KindChannel, "Devices")
	deviceCreated := p.ensureCreated(ctx, device, statepath.KindDevice, e.DeviceID)

	devPos := statepath.Position(device)
	p.ensure(ctx, devPos, statepath.KindChannel, "Position")
	for _, leaf := range []string{leafLat, leafLong, leafLatLong, leafMotion} {
		p.ensure(ctx, statepath.Join(devPos, leaf), statepath.KindState, leaf)
	}

	info := statepath.DeviceInformations(e.UserID, e.DeviceID)
	p.ensure(ctx, info, statepath.KindChannel, "Informations")
	p.ensure(ctx, statepath.Join(info, leafWifiSSID), statepath.KindState, leafWifiSSID)
	p.ensure(ctx, statepath.Join(info, leafWifiMAC), statepath.KindState, leafWifiMAC)

	// Device-scoped place subtree. Presence states exist at every level;
	// only the deepest one is ever written.
	p.ensure(ctx, statepath.Join(device, e.PlaceType), statepath.KindChannel, e.PlaceType)
	for i, segmentPath := range e.SegmentPaths {
		base := statepath.DevicePlace(e.UserID, e.DeviceID, e.PlaceType, segmentPath)
		p.ensure(ctx, base, statepath.KindDevice, e.Segments[i])
		for _, leaf := range []string{statepath.LeafDevicePresence, statepath.LeafDeviceLastEnter, statepath.LeafDeviceLastLeave} {
			p.ensure(ctx, statepath.Join(base, leaf), statepath.KindState, leaf)
		}
	}

	// Global place subtree with position, beacon and aggregate states at
	// every hierarchy level.
	p.ensure(ctx, e.PlaceType, statepath.KindChannel, e.PlaceType)
	for i, segmentPath := range e.SegmentPaths {
		base := statepath.Place(e.PlaceType, segmentPath)
		p.ensure(ctx, base, statepath.KindDevice, e.Segments[i])

		pos := statepath.Position(base)
		p.ensure(ctx, pos, statepath.KindChannel, "Position")
		for _, leaf := range []string{leafLat, leafLong, leafLatLong, leafRadius, leafAddress} {
			p.ensure(ctx, statepath.Join(pos, leaf), statepath.KindState, leaf)
		}

		beacon := statepath.Beacon(base)
		p.ensure(ctx, beacon, statepath.KindChannel, "BEACON")
		for _, leaf := range []string{leafBeaconUUID, leafBeaconMajor, leafBeaconMinor} {
			p.ensure(ctx, statepath.Join(beacon, leaf), statepath.KindState, leaf)
		}

		for _, leaf := range []string{statepath.LeafPresence, statepath.LeafPresenceCount, statepath.LeafPresenceUsers} {
			p.ensure(ctx, statepath.Join(base, leaf), statepath.KindState, leaf)
		}
	}

	return deviceCreated
}

// electPrimaryDevice makes a newly created device the user's primary device
// when none is set. The write is unacknowledged: it represents a default
// rather than a confirmed assignment, and it is never re-elected afterwards.
func (p *Projector) electPrimaryDevice(ctx context.Context, e *event.LocationEvent) {
	path := statepath.PrimaryDevice(e.UserID)
	cur, err := p.store.GetValue(ctx, path)
	if err != nil {
		metrics.RecordStoreError()
		p.logger.Error(ctx, "reading primary device failed", logger.String("path", path), logger.Error(err))
		return
	}
	if s, ok := cur.(string); ok && s != "" {
		return
	}

	devicePath := statepath.Device(e.UserID, e.DeviceID)
	if err := p.store.SetValue(ctx, path, devicePath, false); err != nil {
		metrics.RecordStoreError()
		p.logger.Error(ctx, "electing primary device failed", logger.String("path", path), logger.Error(err))
		return
	}
	metrics.RecordStoreWrite()
	p.logger.Info(ctx, "primary device elected",
		logger.String("user", e.UserID),
		logger.String("device", devicePath),
	)
}

// writeDeviceValues updates the device position and WiFi leaves.
func (p *Projector) writeDeviceValues(ctx context.Context, e *event.LocationEvent) {
	devPos := statepath.Position(statepath.Device(e.UserID, e.DeviceID))
	if e.Latitude != nil {
		p.writeIfChanged(ctx, statepath.Join(devPos, leafLat), *e.Latitude)
	}
	if e.Longitude != nil {
		p.writeIfChanged(ctx, statepath.Join(devPos, leafLong), *e.Longitude)
	}
	if e.Latitude != nil && e.Longitude != nil {
		p.writeIfChanged(ctx, statepath.Join(devPos, leafLatLong), latLong(*e.Latitude, *e.Longitude))
	}
	if e.Motion != "" {
		p.writeIfChanged(ctx, statepath.Join(devPos, leafMotion), e.Motion)
	}

	info := statepath.DeviceInformations(e.UserID, e.DeviceID)
	if e.WifiSSID != "" {
		p.writeIfChanged(ctx, statepath.Join(info, leafWifiSSID), e.WifiSSID)
	}
	if e.WifiMAC != "" {
		p.writeIfChanged(ctx, statepath.Join(info, leafWifiMAC), e.WifiMAC)
	}
}

// writeDevicePresence updates the presence leaf of the deepest place segment
// and stamps the matching transition time when the presence flipped.
func (p *Projector) writeDevicePresence(ctx context.Context, e *event.LocationEvent) {
	base := statepath.DevicePlace(e.UserID, e.DeviceID, e.PlaceType, e.LeafSegmentPath())

	changed := p.writeIfChanged(ctx, statepath.Join(base, statepath.LeafDevicePresence), e.Presence)
	if !changed {
		return
	}

	stamp := statepath.LeafDeviceLastLeave
	if e.Presence {
		stamp = statepath.LeafDeviceLastEnter
	}
	p.writeIfChanged(ctx, statepath.Join(base, stamp), e.Timestamp)
}

// writePlaceValues updates the global place position and beacon leaves at
// every hierarchy level of the event's place.
func (p *Projector) writePlaceValues(ctx context.Context, e *event.LocationEvent) {
	for _, segmentPath := range e.SegmentPaths {
		base := statepath.Place(e.PlaceType, segmentPath)
		pos := statepath.Position(base)

		if e.Latitude != nil {
			p.writeIfChanged(ctx, statepath.Join(pos, leafLat), *e.Latitude)
		}
		if e.Longitude != nil {
			p.writeIfChanged(ctx, statepath.Join(pos, leafLong), *e.Longitude)
		}
		if e.Latitude != nil && e.Longitude != nil {
			p.writeIfChanged(ctx, statepath.Join(pos, leafLatLong), latLong(*e.Latitude, *e.Longitude))
		}
		if e.Radius != nil {
			p.writeIfChanged(ctx, statepath.Join(pos, leafRadius), *e.Radius)
		}
		if e.Address != "" {
			p.writeIfChanged(ctx, statepath.Join(pos, leafAddress), e.Address)
		}

		beacon := statepath.Beacon(base)
		if e.BeaconUUID != "" {
			p.writeIfChanged(ctx, statepath.Join(beacon, leafBeaconUUID), e.BeaconUUID)
		}
		if e.BeaconMajor != nil {
			p.writeIfChanged(ctx, statepath.Join(beacon, leafBeaconMajor), *e.BeaconMajor)
		}
		if e.BeaconMinor != nil {
			p.writeIfChanged(ctx, statepath.Join(beacon, leafBeaconMinor), *e.BeaconMinor)
		}
	}
}

// writeIfChanged is the sole leaf write gate. An absent stored value always
// counts as changed. Store failures are logged and swallowed so the rest of
// the projection can proceed.
func (p *Projector) writeIfChanged(ctx context.Context, path string, val any) bool {
	cur, err := p.store.GetValue(ctx, path)
	if err != nil {
		metrics.RecordStoreError()
		p.logger.Error(ctx, "reading state failed", logger.String("path", path), logger.Error(err))
		return false
	}

	if cur != nil && statestore.ValueEqual(cur, val) {
		metrics.RecordStoreSuppressed()
		return false
	}

	if err := p.store.SetValue(ctx, path, val, true); err != nil {
		metrics.RecordStoreError()
		p.logger.Error(ctx, "writing state failed", logger.String("path", path), logger.Error(err))
		return false
	}
	metrics.RecordStoreWrite()
	return true
}

// ensure creates a node if absent, logging failures and moving on.
func (p *Projector) ensure(ctx context.Context, path string, kind statepath.Kind, name string) {
	if _, err := p.store.CreateNodeIfAbsent(ctx, path, kind, name); err != nil {
		metrics.RecordStoreError()
		p.logger.Error(ctx, "creating node failed", logger.String("path", path), logger.Error(err))
	}
}

// ensureCreated is ensure reporting whether the node was newly created.
func (p *Projector) ensureCreated(ctx context.Context, path string, kind statepath.Kind, name string) bool {
	created, err := p.store.CreateNodeIfAbsent(ctx, path, kind, name)
	if err != nil {
		metrics.RecordStoreError()
		p.logger.Error(ctx, "creating node failed", logger.String("path", path), logger.Error(err))
		return false
	}
	return created
}

// latLong renders the combined coordinate pair leaf.
func latLong(lat, long float64) string {
	return fmt.Sprintf("%v;%v", lat, long)
}
