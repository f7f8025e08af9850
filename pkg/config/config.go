package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete kobjd configuration.
//
// This structure captures all configurable aspects of the kernel including:
//   - Logging configuration
//   - Server-wide settings and the metrics endpoint
//   - The filesystem behind Directory and File handles (node store + content store)
//   - Block devices, the display and process limits
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (KOBJECT_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each store implementation defines its own options, decoded from the
// type-specific map (e.g., filesystem.content.s3) by its factory function.
// Only the section matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server contains server-wide settings
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Metrics controls the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Filesystem selects the stores behind the directory tree
	Filesystem FilesystemConfig `mapstructure:"filesystem" yaml:"filesystem"`

	// Devices lists the block devices registered at boot
	Devices []DeviceConfig `mapstructure:"devices" yaml:"devices" validate:"dive"`

	// Display sizes the root window
	Display DisplayConfig `mapstructure:"display" yaml:"display"`

	// Process bounds descriptor tables, pipes and syscall rates
	Process ProcessConfig `mapstructure:"process" yaml:"process"`

	// GC controls the orphaned content collector
	GC GCConfig `mapstructure:"gc" yaml:"gc"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"required,gt=0"`
}

// MetricsConfig controls metrics collection.
type MetricsConfig struct {
	// Enabled turns on Prometheus collection and the /metrics endpoint
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port serving /metrics
	Port int `mapstructure:"port" yaml:"port" validate:"omitempty,min=1,max=65535"`
}

// FilesystemConfig selects the node store and the content store.
type FilesystemConfig struct {
	Metadata MetadataConfig `mapstructure:"metadata" yaml:"metadata"`
	Content  ContentConfig  `mapstructure:"content" yaml:"content"`
}

// MetadataConfig specifies node store configuration.
//
// The Type field determines which store implementation is used.
type MetadataConfig struct {
	// Type specifies which node store implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory badger"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger,omitempty"`
}

// ContentConfig specifies content store configuration.
//
// The Type field determines which store implementation is used.
type ContentConfig struct {
	// Type specifies which content store implementation to use
	// Valid values: memory, filesystem, s3
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory filesystem s3"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory" yaml:"memory,omitempty"`

	// Filesystem contains filesystem-specific configuration
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem" yaml:"filesystem,omitempty"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3" yaml:"s3,omitempty"`
}

// DeviceConfig defines one block device.
type DeviceConfig struct {
	// Name is the name processes open the device by
	Name string `mapstructure:"name" yaml:"name" validate:"required"`

	// Type selects the backing: ramdisk (volatile) or image (file)
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=ramdisk image"`

	// BlockSize is the transfer unit in bytes
	BlockSize int `mapstructure:"block_size" yaml:"block_size" validate:"required,gt=0"`

	// BlockCount is the device size in blocks (ramdisk only; images use the file size)
	BlockCount int `mapstructure:"block_count" yaml:"block_count,omitempty" validate:"gte=0"`

	// Path is the image file (image only)
	Path string `mapstructure:"path" yaml:"path,omitempty"`

	// ReadOnly rejects writes
	ReadOnly bool `mapstructure:"read_only" yaml:"read_only,omitempty"`
}

// DisplayConfig sizes the root window.
type DisplayConfig struct {
	Width  int `mapstructure:"width" yaml:"width" validate:"required,gt=0"`
	Height int `mapstructure:"height" yaml:"height" validate:"required,gt=0"`
}

// ProcessConfig bounds per-process resources.
type ProcessConfig struct {
	// MaxObjects is the descriptor table size
	MaxObjects int `mapstructure:"max_objects" yaml:"max_objects" validate:"required,gt=0"`

	// PipeCapacity is the buffer size of new pipes in bytes
	PipeCapacity int `mapstructure:"pipe_capacity" yaml:"pipe_capacity" validate:"gte=0"`

	// RateLimit throttles syscalls per process
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// RateLimitConfig configures the per-process syscall token bucket.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained syscall rate (0 = unlimited)
	RequestsPerSecond uint `mapstructure:"requests_per_second" yaml:"requests_per_second"`

	// Burst is the bucket size (0 = same as RequestsPerSecond)
	Burst uint `mapstructure:"burst" yaml:"burst"`
}

// GCConfig controls background removal of content no file references.
type GCConfig struct {
	// Enabled starts the collector as a kernel service
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Interval between collection runs
	Interval time.Duration `mapstructure:"interval" yaml:"interval" validate:"gte=0"`

	// DryRun logs orphans without deleting them
	DryRun bool `mapstructure:"dry_run" yaml:"dry_run"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (KOBJECT_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: KOBJECT_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("KOBJECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper already knows about
	for _, key := range []string{
		"logging.level", "logging.format", "logging.output",
		"server.shutdown_timeout",
		"metrics.enabled", "metrics.port",
		"filesystem.metadata.type", "filesystem.content.type",
		"display.width", "display.height",
		"process.max_objects", "process.pipe_capacity",
		"process.rate_limit.requests_per_second", "process.rate_limit.burst",
		"gc.enabled", "gc.interval", "gc.dry_run",
	} {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/kobject/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No config file is fine: defaults apply
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "kobject")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "kobject")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
