package config

import (
	"strings"
	"time"

	"github.com/marmos91/kobject/pkg/process"
	"github.com/marmos91/kobject/pkg/resource/pipe"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Store-specific defaults are handled by the store factories
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyMetricsDefaults(&cfg.Metrics)
	applyMetadataDefaults(&cfg.Filesystem.Metadata)
	applyContentDefaults(&cfg.Filesystem.Content)
	applyDeviceDefaults(cfg.Devices)
	applyDisplayDefaults(&cfg.Display)
	applyProcessDefaults(&cfg.Process)
	applyGCDefaults(&cfg.GC)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyMetadataDefaults(cfg *MetadataConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = "/tmp/kobject-nodes"
	}
}

func applyContentDefaults(cfg *ContentConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}

	// Defaults for every store type so generated config files are complete
	if _, ok := cfg.Memory["max_size_bytes"]; !ok {
		cfg.Memory["max_size_bytes"] = uint64(256 << 20) // 256MB
	}
	if _, ok := cfg.Filesystem["path"]; !ok {
		cfg.Filesystem["path"] = "/tmp/kobject-content"
	}
}

func applyDeviceDefaults(devices []DeviceConfig) {
	for i := range devices {
		if devices[i].Type == "" {
			devices[i].Type = "ramdisk"
		}
		if devices[i].BlockSize == 0 {
			devices[i].BlockSize = 512
		}
	}
}

func applyDisplayDefaults(cfg *DisplayConfig) {
	if cfg.Width == 0 {
		cfg.Width = 1024
	}
	if cfg.Height == 0 {
		cfg.Height = 768
	}
}

func applyProcessDefaults(cfg *ProcessConfig) {
	if cfg.MaxObjects == 0 {
		cfg.MaxObjects = process.DefaultMaxObjects
	}
	if cfg.PipeCapacity == 0 {
		cfg.PipeCapacity = pipe.DefaultCapacity
	}
	// RateLimit defaults to zero: unlimited
}

func applyGCDefaults(cfg *GCConfig) {
	if cfg.Interval == 0 {
		cfg.Interval = time.Hour
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Devices: []DeviceConfig{
			{Name: "ram0", Type: "ramdisk", BlockSize: 512, BlockCount: 2048},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
