package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/alarm-alert/internal/domain/alarm"
	"github.com/oshokin/alarm-alert/internal/logger"
	"github.com/oshokin/alarm-alert/internal/session"
)

// Config holds the settings shared by the alarm-alert binaries.
type Config struct {
	// ListenAddress is the gRPC control address.
	ListenAddress string `yaml:"listen_addr"`
	// MQTTBroker is the broker URL for alarm broadcasts. Empty disables them.
	MQTTBroker string `yaml:"mqtt_broker,omitempty"`
	// Database is the path to the SQLite alarm store.
	Database string `yaml:"database"`
	// MetricsAddress is the Prometheus listener. Empty disables it.
	MetricsAddress string `yaml:"metrics_addr,omitempty"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// Timeout is the duration for network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout"`

	// SnoozeMinutes is the snooze length.
	SnoozeMinutes int `yaml:"snooze_minutes"`
	// VolumeKeyPolicy is disabled, snooze or dismiss.
	VolumeKeyPolicy string `yaml:"volume_key_policy"`
	// DualModeButton makes a long press on snooze dismiss the alarm.
	DualModeButton bool `yaml:"dual_mode_button"`
	// RequireChallenge routes user dismissals through the arithmetic gate.
	RequireChallenge bool `yaml:"require_challenge"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "alarm-alert-settings.yaml"

	// DefaultDatabaseFilename is the default SQLite file.
	DefaultDatabaseFilename = "alarm-alert.db"

	// DefaultLogLevel is used when log_level is empty.
	DefaultLogLevel = "info"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errListenAddressRequired is returned when the control address is missing.
	errListenAddressRequired = errors.New("listen address must be provided")
	// errUnknownLogLevel is returned for a log level zap does not know.
	errUnknownLogLevel = errors.New("unknown log level")
	// errInvalidSnoozeMinutes is returned for a negative snooze length.
	errInvalidSnoozeMinutes = errors.New("snooze minutes must be at least 1")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills in defaults.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ListenAddress == "" {
		return errListenAddressRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}

	if settings.MetricsAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", settings.MetricsAddress); err != nil {
			return fmt.Errorf("invalid metrics address: %w", err)
		}
	}

	if settings.LogLevel == "" {
		settings.LogLevel = DefaultLogLevel
	}

	if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, settings.LogLevel)
	}

	if _, err := alarm.ParseVolumeKeyPolicy(settings.VolumeKeyPolicy); err != nil {
		return err
	}

	switch {
	case settings.SnoozeMinutes == 0:
		settings.SnoozeMinutes = session.DefaultSnoozeMinutes
	case settings.SnoozeMinutes < 0:
		return errInvalidSnoozeMinutes
	}

	// Set default timeout if not specified
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.Database == "" {
		settings.Database = DefaultDatabaseFilename
	}

	return nil
}

// SessionSettings returns the settings captured by every new alert session.
// Call it on a validated config.
func (c *Config) SessionSettings() session.Settings {
	// Validate already rejected unknown policies.
	policy, _ := alarm.ParseVolumeKeyPolicy(c.VolumeKeyPolicy)

	return session.Settings{
		VolumeKeyPolicy:  policy,
		SnoozeMinutes:    c.SnoozeMinutes,
		DualModeButton:   c.DualModeButton,
		RequireChallenge: c.RequireChallenge,
	}
}
