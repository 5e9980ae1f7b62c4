// Package config defines process configuration and loading.
//
// Conventions:
// - Defaults live in New; file and env layers override them.
// - External errors are wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ProjectsDir is the root directory for project folders.
	ProjectsDir string `koanf:"projects_dir"`

	// DeviceNamePrefix filters scoring devices by advertised name.
	DeviceNamePrefix string `koanf:"device_name_prefix"`

	// SettleDelayMS is the post-connect settle delay before service
	// discovery is trusted.
	SettleDelayMS int `koanf:"settle_delay_ms"`

	// HeartbeatIntervalMS is the cadence of the session liveness probe.
	HeartbeatIntervalMS int `koanf:"heartbeat_interval_ms"`

	// ReconnectBackoffMS is the wait between reconnect attempts.
	ReconnectBackoffMS int `koanf:"reconnect_backoff_ms"`

	// BurstThresholdMS bounds the gap that still extends a click burst.
	BurstThresholdMS int `koanf:"burst_threshold_ms"`

	// CaptionHoldMS is how long a caption stays up after its last event.
	CaptionHoldMS int `koanf:"caption_hold_ms"`

	// AppendQueueSize bounds the in-memory event log append queue.
	AppendQueueSize int `koanf:"append_queue_size"`

	// HubBufferSize is the per-listener broadcast buffer.
	HubBufferSize int `koanf:"hub_buffer_size"`

	// Simulate runs against in-memory clicker devices instead of a
	// platform transport. Unknown addresses are provisioned on demand.
	Simulate bool `koanf:"simulate"`

	// SimClickIntervalMS makes simulated devices click on their own at
	// a random pace up to this bound. Zero keeps them silent.
	SimClickIntervalMS int `koanf:"sim_click_interval_ms"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		ProjectsDir:         "projects",
		DeviceNamePrefix:    "Counter-",
		SettleDelayMS:       1500,
		HeartbeatIntervalMS: 3000,
		ReconnectBackoffMS:  3000,
		BurstThresholdMS:    400,
		CaptionHoldMS:       1000,
		AppendQueueSize:     4096,
		HubBufferSize:       64,
		Simulate:            true,
		SimClickIntervalMS:  0,
	}
}
