package config

import (
	"testing"
	"time"

	"github.com/marmos91/kobject/pkg/process"
	"github.com/marmos91/kobject/pkg/resource/pipe"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_Server(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected default metrics port 9090, got %d", cfg.Metrics.Port)
	}
}

func TestApplyDefaults_Content(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	c := cfg.Filesystem.Content
	if c.Type != "memory" {
		t.Errorf("Expected default content type 'memory', got %q", c.Type)
	}

	if c.Filesystem == nil {
		t.Fatal("Expected Filesystem map to be initialized")
	}
	if path, ok := c.Filesystem["path"]; !ok || path != "/tmp/kobject-content" {
		t.Errorf("Expected default filesystem path '/tmp/kobject-content', got %v", path)
	}

	if c.Memory == nil {
		t.Fatal("Expected Memory map to be initialized")
	}
	if maxSize, ok := c.Memory["max_size_bytes"]; !ok || maxSize != uint64(256<<20) {
		t.Errorf("Expected default memory max_size_bytes %d, got %v", 256<<20, maxSize)
	}
}

func TestApplyDefaults_Metadata(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	m := cfg.Filesystem.Metadata
	if m.Type != "memory" {
		t.Errorf("Expected default metadata type 'memory', got %q", m.Type)
	}
	if path, ok := m.Badger["db_path"]; !ok || path != "/tmp/kobject-nodes" {
		t.Errorf("Expected default badger db_path '/tmp/kobject-nodes', got %v", path)
	}
}

func TestApplyDefaults_Devices(t *testing.T) {
	cfg := &Config{
		Devices: []DeviceConfig{
			{Name: "ram0", BlockCount: 8},
			{Name: "disk", Type: "image", Path: "/tmp/disk.img", BlockSize: 4096},
		},
	}
	ApplyDefaults(cfg)

	if cfg.Devices[0].Type != "ramdisk" {
		t.Errorf("Expected default device type 'ramdisk', got %q", cfg.Devices[0].Type)
	}
	if cfg.Devices[0].BlockSize != 512 {
		t.Errorf("Expected default block size 512, got %d", cfg.Devices[0].BlockSize)
	}
	if cfg.Devices[1].Type != "image" || cfg.Devices[1].BlockSize != 4096 {
		t.Errorf("Explicit device values overwritten: %+v", cfg.Devices[1])
	}
}

func TestApplyDefaults_Process(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Process.MaxObjects != process.DefaultMaxObjects {
		t.Errorf("Expected default max_objects %d, got %d", process.DefaultMaxObjects, cfg.Process.MaxObjects)
	}
	if cfg.Process.PipeCapacity != pipe.DefaultCapacity {
		t.Errorf("Expected default pipe_capacity %d, got %d", pipe.DefaultCapacity, cfg.Process.PipeCapacity)
	}
	if cfg.Process.RateLimit.RequestsPerSecond != 0 {
		t.Errorf("Expected unlimited syscall rate by default, got %d", cfg.Process.RateLimit.RequestsPerSecond)
	}
	if cfg.Display.Width != 1024 || cfg.Display.Height != 768 {
		t.Errorf("Expected default display 1024x768, got %dx%d", cfg.Display.Width, cfg.Display.Height)
	}
}

func TestApplyDefaults_GC(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.GC.Enabled {
		t.Error("Expected gc to be disabled by default")
	}
	if cfg.GC.Interval != time.Hour {
		t.Errorf("Expected default gc interval 1h, got %v", cfg.GC.Interval)
	}

	cfg = &Config{GC: GCConfig{Interval: 5 * time.Minute}}
	ApplyDefaults(cfg)
	if cfg.GC.Interval != 5*time.Minute {
		t.Errorf("Expected explicit gc interval to be kept, got %v", cfg.GC.Interval)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  "debug",
			Format: "json",
			Output: "/var/log/kobject.log",
		},
		Server: ServerConfig{
			ShutdownTimeout: 5 * time.Second,
		},
		Filesystem: FilesystemConfig{
			Metadata: MetadataConfig{
				Type:   "badger",
				Badger: map[string]any{"db_path": "/data/nodes"},
			},
			Content: ContentConfig{
				Type:       "filesystem",
				Filesystem: map[string]any{"path": "/data/content"},
			},
		},
		Display: DisplayConfig{Width: 800, Height: 600},
		Process: ProcessConfig{MaxObjects: 8, PipeCapacity: 128},
	}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected normalized level 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format 'json' preserved, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "/var/log/kobject.log" {
		t.Errorf("Expected output preserved, got %q", cfg.Logging.Output)
	}
	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("Expected shutdown timeout 5s preserved, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Filesystem.Metadata.Badger["db_path"] != "/data/nodes" {
		t.Errorf("Expected db_path preserved, got %v", cfg.Filesystem.Metadata.Badger["db_path"])
	}
	if cfg.Filesystem.Content.Filesystem["path"] != "/data/content" {
		t.Errorf("Expected content path preserved, got %v", cfg.Filesystem.Content.Filesystem["path"])
	}
	if cfg.Display.Width != 800 || cfg.Display.Height != 600 {
		t.Errorf("Expected display 800x600 preserved, got %dx%d", cfg.Display.Width, cfg.Display.Height)
	}
	if cfg.Process.MaxObjects != 8 || cfg.Process.PipeCapacity != 128 {
		t.Errorf("Expected process limits preserved, got %+v", cfg.Process)
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Fatalf("Default config should be valid, got error: %v", err)
	}
}

func TestGetDefaultConfig_HasDevice(t *testing.T) {
	cfg := GetDefaultConfig()

	if len(cfg.Devices) != 1 {
		t.Fatalf("Expected one default device, got %d", len(cfg.Devices))
	}
	dev := cfg.Devices[0]
	if dev.Name != "ram0" || dev.Type != "ramdisk" || dev.BlockSize != 512 || dev.BlockCount != 2048 {
		t.Errorf("Unexpected default device: %+v", dev)
	}
}
