package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall agent configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Backend    BackendConfig    `yaml:"backend"`
	Realtime   RealtimeConfig   `yaml:"realtime"`
	Office     OfficeConfig     `yaml:"office"`
	Location   LocationConfig   `yaml:"location"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Storage    StorageConfig    `yaml:"storage"`
	Demo       bool             `yaml:"demo"`
}

// ServerConfig holds the local HTTP API configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// BackendConfig holds the remote WORKB API connection settings.
type BackendConfig struct {
	BaseURL        string        `yaml:"base_url"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"` // Ignored by YAML parser
}

// RealtimeConfig bounds the realtime session's reconnection behavior.
type RealtimeConfig struct {
	URL                  string        `yaml:"url"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	ReconnectDelayMillis int           `yaml:"reconnect_delay_ms"`
	ReconnectDelayMaxMs  int           `yaml:"reconnect_delay_max_ms"`
	ConnectTimeoutSec    int           `yaml:"connect_timeout_seconds"`
	ReconnectDelay       time.Duration `yaml:"-"`
	ReconnectDelayMax    time.Duration `yaml:"-"`
	ConnectTimeout       time.Duration `yaml:"-"`
}

// OfficeConfig describes the monitored office geofence. WifiSSID is a label
// only; the agent never inspects SSIDs.
type OfficeConfig struct {
	Latitude     float64 `yaml:"latitude"`
	Longitude    float64 `yaml:"longitude"`
	RadiusMeters float64 `yaml:"radius_meters"`
	WifiSSID     string  `yaml:"wifi_ssid"`
}

// LocationConfig tunes position sampling and the beacon provider.
type LocationConfig struct {
	WatchIntervalSeconds int           `yaml:"watch_interval_seconds"`
	DistanceFilterMeters float64       `yaml:"distance_filter_meters"`
	FetchTimeoutSeconds  int           `yaml:"fetch_timeout_seconds"`
	MaxSampleAgeSeconds  int           `yaml:"max_sample_age_seconds"`
	WatchInterval        time.Duration `yaml:"-"`
	FetchTimeout         time.Duration `yaml:"-"`
	MaxSampleAge         time.Duration `yaml:"-"`
	Beacon               BeaconRequest `yaml:"beacon"`
}

// BeaconRequest defines the HTTP request for the beacon position provider.
type BeaconRequest struct {
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// StorageConfig locates the local persistence database.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 2
	}

	if cfg.Backend.TimeoutSeconds <= 0 {
		cfg.Backend.TimeoutSeconds = 30
	}
	cfg.Backend.Timeout = time.Duration(cfg.Backend.TimeoutSeconds) * time.Second

	if cfg.Realtime.MaxReconnectAttempts <= 0 {
		cfg.Realtime.MaxReconnectAttempts = 5
	}
	if cfg.Realtime.ReconnectDelayMillis <= 0 {
		cfg.Realtime.ReconnectDelayMillis = 1000
	}
	if cfg.Realtime.ReconnectDelayMaxMs < cfg.Realtime.ReconnectDelayMillis {
		cfg.Realtime.ReconnectDelayMaxMs = 5000
	}
	if cfg.Realtime.ConnectTimeoutSec <= 0 {
		cfg.Realtime.ConnectTimeoutSec = 10
	}
	cfg.Realtime.ReconnectDelay = time.Duration(cfg.Realtime.ReconnectDelayMillis) * time.Millisecond
	cfg.Realtime.ReconnectDelayMax = time.Duration(cfg.Realtime.ReconnectDelayMaxMs) * time.Millisecond
	cfg.Realtime.ConnectTimeout = time.Duration(cfg.Realtime.ConnectTimeoutSec) * time.Second

	if cfg.Office.RadiusMeters <= 0 {
		cfg.Office.RadiusMeters = 100
	}

	if cfg.Location.WatchIntervalSeconds <= 0 {
		cfg.Location.WatchIntervalSeconds = 30
	}
	if cfg.Location.WatchIntervalSeconds < 15 {
		log.Printf("location.watch_interval_seconds below 15; clamping to 15")
		cfg.Location.WatchIntervalSeconds = 15
	}
	if cfg.Location.DistanceFilterMeters <= 0 {
		cfg.Location.DistanceFilterMeters = 50
	}
	if cfg.Location.FetchTimeoutSeconds <= 0 {
		cfg.Location.FetchTimeoutSeconds = 15
	}
	if cfg.Location.MaxSampleAgeSeconds <= 0 {
		cfg.Location.MaxSampleAgeSeconds = 10
	}
	cfg.Location.WatchInterval = time.Duration(cfg.Location.WatchIntervalSeconds) * time.Second
	cfg.Location.FetchTimeout = time.Duration(cfg.Location.FetchTimeoutSeconds) * time.Second
	cfg.Location.MaxSampleAge = time.Duration(cfg.Location.MaxSampleAgeSeconds) * time.Second

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "./workb-agent.db"
	}

	return &cfg, nil
}
