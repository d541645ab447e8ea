// Package statepath builds and decomposes the dotted state paths used by the
// geofence hierarchy.
//
// Every address in the state tree is a dotted path. Rather than concatenating
// strings at the call sites, this package owns the literal layout:
//
//	USERS.<user>.Config.primaryDevice
//	USERS.<user>.DEVICES.<device>.Position.lat
//	USERS.<user>.DEVICES.<device>.<TYPE>.<place>.devicePresence
//	<TYPE>.<place>.Position.lat / .BEACON.uuid / .presenceCount
//
// so a typo in one builder breaks one test instead of silently forking the
// tree layout.
package statepath

import "strings"

// Kind classifies a node in the state tree.
type Kind int

const (
	// KindChannel is a pure grouping node without a value.
	KindChannel Kind = iota
	// KindDevice is a grouping node representing an addressable entity.
	KindDevice
	// KindState is a leaf holding a typed scalar.
	KindState
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindChannel:
		return "channel"
	case KindDevice:
		return "device"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// Leaf names used across the hierarchy.
const (
	LeafDevicePresence  = "devicePresence"
	LeafDeviceLastEnter = "deviceLastEnter"
	LeafDeviceLastLeave = "deviceLastLeave"
	LeafPresence        = "presence"
	LeafPresenceCount   = "presenceCount"
	LeafPresenceUsers   = "presenceUsers"
	LeafPrimaryDevice   = "primaryDevice"
)

// UsersRoot is the container of all user subtrees.
const UsersRoot = "USERS"

// Join concatenates path parts with dots, skipping empty parts.
func Join(parts ...string) string {
	nonEmpty := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ".")
}

// User returns the subtree root for one user.
func User(user string) string {
	return Join(UsersRoot, user)
}

// UserConfig returns the per-user config channel.
func UserConfig(user string) string {
	return Join(User(user), "Config")
}

// PrimaryDevice returns the leaf holding the user's primary device path.
func PrimaryDevice(user string) string {
	return Join(UserConfig(user), LeafPrimaryDevice)
}

// Devices returns the container of a user's devices.
func Devices(user string) string {
	return Join(User(user), "DEVICES")
}

// Device returns the subtree root for one device of a user.
func Device(user, device string) string {
	return Join(Devices(user), device)
}

// DeviceInformations returns the device info channel (WiFi data).
func DeviceInformations(user, device string) string {
	return Join(Device(user, device), "Informations")
}

// DevicePlace returns the device-scoped subtree for one place segment.
func DevicePlace(user, device, placeType, segmentPath string) string {
	return Join(Device(user, device), placeType, segmentPath)
}

// Place returns the global subtree for one place segment.
func Place(placeType, segmentPath string) string {
	return Join(placeType, segmentPath)
}

// Position returns the Position channel under base.
func Position(base string) string {
	return Join(base, "Position")
}

// Beacon returns the BEACON channel under base.
func Beacon(base string) string {
	return Join(base, "BEACON")
}

// Decomposed is the breakdown of a devicePresence leaf path.
type Decomposed struct {
	// UserPath is USERS.<user>.
	UserPath string
	// DevicePath is USERS.<user>.DEVICES.<device>.
	DevicePath string
	// PlacePath is <TYPE>.<segments...>, the subtree the presence belongs to.
	PlacePath string
	// User is the bare user identity.
	User string
}

// DecomposePresence splits a devicePresence leaf path into its user, device
// and place parts. It returns false when the path does not have the
// USERS.<user>.DEVICES.<device>.<TYPE>.<...>.devicePresence shape.
func DecomposePresence(path string) (Decomposed, bool) {
	parts := strings.Split(path, ".")
	// USERS user DEVICES device TYPE place... devicePresence
	const minParts = 7
	if len(parts) < minParts ||
		parts[0] != UsersRoot ||
		parts[2] != "DEVICES" ||
		parts[len(parts)-1] != LeafDevicePresence {
		return Decomposed{}, false
	}

	return Decomposed{
		UserPath:   strings.Join(parts[0:2], "."),
		DevicePath: strings.Join(parts[0:4], "."),
		PlacePath:  strings.Join(parts[4:len(parts)-1], "."),
		User:       parts[1],
	}, true
}

// UserFromPrimaryDevicePath extracts the user identity from a
// USERS.<user>.Config.primaryDevice path. Returns "" on malformed input.
func UserFromPrimaryDevicePath(path string) string {
	parts := strings.Split(path, ".")
	const wantParts = 4
	if len(parts) != wantParts || parts[0] != UsersRoot || parts[2] != "Config" || parts[3] != LeafPrimaryDevice {
		return ""
	}
	return parts[1]
}
