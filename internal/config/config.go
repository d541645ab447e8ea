// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer building a Config with defaults.
// - Load(ctx) layers defaults, optional YAML file and environment.
// - External errors must be wrapped via this package's error helpers.
package config

import "runtime"

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":51988".
	Addr string `koanf:"addr"`

	// SSL enables TLS on the webhook listener.
	SSL bool `koanf:"ssl"`

	// CertFile and KeyFile locate the TLS certificate pair when SSL is on.
	CertFile string `koanf:"cert_file"`
	KeyFile  string `koanf:"key_file"`

	// ActivateServer gates the webhook listener entirely.
	ActivateServer bool `koanf:"activate_server"`

	// Create enables lazy state hierarchy materialization.
	Create bool `koanf:"create"`

	// UserGroupName, UserName and UserPassword drive credential
	// provisioning at startup and the auth checks per request.
	UserGroupName string `koanf:"user_group_name"`
	UserName      string `koanf:"user_name"`
	UserPassword  string `koanf:"user_password"`

	// ActivateRelay and RelayServer configure best-effort forwarding of
	// raw webhook requests to a secondary server.
	ActivateRelay bool   `koanf:"activate_relay"`
	RelayServer   string `koanf:"relay_server"`

	// StoreBackend selects the state store: "memory" or "badger".
	StoreBackend string `koanf:"store_backend"`

	// BadgerDir is the on-disk location of the badger backend.
	BadgerDir string `koanf:"badger_dir"`

	// QueueSize bounds the in-memory change queue feeding the aggregator.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of aggregation workers.
	WorkerCount int `koanf:"worker_count"`
}

// Store backend names accepted in StoreBackend.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
)

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		Addr:           ":51988",
		ActivateServer: true,
		Create:         true,
		UserGroupName:  "geofence",
		StoreBackend:   BackendMemory,
		BadgerDir:      "geobridge-state",
		QueueSize:      10_000,
		WorkerCount:    runtime.NumCPU() * 2,
	}
}
