// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig            `yaml:"server"`
	Control  ControlConfig           `yaml:"control"`
	Player   PlayerConfig            `yaml:"player"`
	Output   OutputConfig            `yaml:"output"`
	Storage  StorageConfig           `yaml:"storage"`
	Catalog  CatalogConfig           `yaml:"catalog"`
	Filters  map[string]FilterConfig `yaml:"filters"`
	Messages MessagesConfig          `yaml:"messages"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:":8080"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// ControlConfig represents control API configuration.
// An empty token leaves the API open.
type ControlConfig struct {
	Token string `yaml:"token"`
}

// PlayerConfig represents player store configuration.
type PlayerConfig struct {
	MaxSkipRetries         int   `yaml:"max_skip_retries" default:"3" validate:"gte=1,lte=100"`
	ShuffleAvoidCurrent    *bool `yaml:"shuffle_avoid_current" default:"true"`
	PositionSaveIntervalMs int   `yaml:"position_save_interval_ms" default:"5000" validate:"gte=0"`
	EventBuffer            int   `yaml:"event_buffer" default:"100" validate:"gte=1"`
	RestoreOnStart         *bool `yaml:"restore_on_start" default:"true"`
}

// OutputConfig represents audio output configuration.
type OutputConfig struct {
	Type               string `yaml:"type" default:"virtual" validate:"oneof=virtual remote"`
	TickIntervalMs     int    `yaml:"tick_interval_ms" default:"250" validate:"gte=0"`
	DefaultDurationSec int    `yaml:"default_duration_sec" default:"180" validate:"gte=0"`
	RequireGesture     bool   `yaml:"require_gesture"`
	Probe              bool   `yaml:"probe"`
	ProbeRetryMax      int    `yaml:"probe_retry_max" default:"2" validate:"gte=0"`
	ProbeTimeoutMs     int    `yaml:"probe_timeout_ms" default:"5000" validate:"gte=1"`
	RemoteBuffer       int    `yaml:"remote_buffer" default:"64" validate:"gte=1"`
}

// StorageConfig represents persistence configuration.
type StorageConfig struct {
	Type      string         `yaml:"type" default:"memory" validate:"oneof=memory file redis sqlite"`
	Namespace string         `yaml:"namespace" default:"melodybox"`
	Settings  map[string]any `yaml:"settings,omitempty"`
}

// CatalogConfig represents media backend configuration.
// An empty base URL disables catalog loading.
type CatalogConfig struct {
	BaseURL      string `yaml:"base_url" validate:"omitempty,url"`
	MediaBaseURL string `yaml:"media_base_url" validate:"omitempty,url"`
	Token        string `yaml:"token"`
	TimeoutMs    int    `yaml:"timeout_ms" default:"10000" validate:"gte=1"`
	RetryMax     int    `yaml:"retry_max" default:"3" validate:"gte=0,lte=10"`
	CacheTTLSec  int    `yaml:"cache_ttl_sec" default:"300" validate:"gte=0"`
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// MessagesConfig represents user-facing messages for admission results.
type MessagesConfig struct {
	Success               string `yaml:"success" default:"Added to the queue"`
	DefaultError          string `yaml:"default_error" default:"The track could not be added"`
	MissingSource         string `yaml:"missing_source" default:"The track has no audio source"`
	QueueFull             string `yaml:"queue_full" default:"The queue is full"`
	DuplicateTrack        string `yaml:"duplicate_track" default:"Another version of this track is already queued"`
	DurationLimitExceeded string `yaml:"duration_limit_exceeded" default:"The track is too long"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse builds a configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("CONTROL_TOKEN"); v != "" {
		c.Control.Token = v
	}
	if v := os.Getenv("CATALOG_TOKEN"); v != "" {
		c.Catalog.Token = v
	}
	if v := os.Getenv("CATALOG_BASE_URL"); v != "" {
		c.Catalog.BaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" && c.Storage.Type == "redis" {
		if c.Storage.Settings == nil {
			c.Storage.Settings = make(map[string]any)
		}
		c.Storage.Settings["addr"] = v
	}
}

// GetMessage returns the message for the given admission code.
func (c *Config) GetMessage(code string) string {
	switch code {
	case "success":
		return c.Messages.Success
	case "missing_source":
		return c.Messages.MissingSource
	case "queue_full":
		return c.Messages.QueueFull
	case "duplicate_track":
		return c.Messages.DuplicateTrack
	case "duration_limit_exceeded":
		return c.Messages.DurationLimitExceeded
	default:
		return c.Messages.DefaultError
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	for name := range c.Filters {
		if name == "" {
			return errors.New("filter name must not be empty")
		}
	}
	return nil
}

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// GetFilterSettings returns the settings for a filter.
func (c *Config) GetFilterSettings(filterName string) map[string]any {
	if f, ok := c.Filters[filterName]; ok {
		return f.Settings
	}
	return nil
}

// ShuffleAvoidsCurrent reports whether shuffle excludes the current track.
func (c *Config) ShuffleAvoidsCurrent() bool {
	return c.Player.ShuffleAvoidCurrent == nil || *c.Player.ShuffleAvoidCurrent
}

// RestoresOnStart reports whether persisted state is restored at startup.
func (c *Config) RestoresOnStart() bool {
	return c.Player.RestoreOnStart == nil || *c.Player.RestoreOnStart
}

// PositionSaveInterval returns the minimum spacing of position saves.
func (c *Config) PositionSaveInterval() time.Duration {
	return time.Duration(c.Player.PositionSaveIntervalMs) * time.Millisecond
}

// TickInterval returns the virtual output clock resolution.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Output.TickIntervalMs) * time.Millisecond
}

// CatalogTimeout returns the catalog request timeout.
func (c *Config) CatalogTimeout() time.Duration {
	return time.Duration(c.Catalog.TimeoutMs) * time.Millisecond
}
