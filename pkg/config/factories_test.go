package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marmos91/kobject/pkg/metrics"
)

func TestCreateContentStore_Filesystem(t *testing.T) {
	ctx := context.Background()
	cfg := &ContentConfig{
		Type: "filesystem",
		Filesystem: map[string]any{
			"path": t.TempDir(),
		},
	}

	store, err := CreateContentStore(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create filesystem content store: %v", err)
	}
	if store == nil {
		t.Fatal("Expected non-nil store")
	}
	_ = store.Close()
}

func TestCreateContentStore_FilesystemMissingPath(t *testing.T) {
	ctx := context.Background()
	cfg := &ContentConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{},
	}

	_, err := CreateContentStore(ctx, cfg, nil)
	if err == nil {
		t.Fatal("Expected error for missing path")
	}
	if !strings.Contains(err.Error(), "path is required") {
		t.Errorf("Expected 'path is required' error, got: %v", err)
	}
}

func TestCreateContentStore_Memory(t *testing.T) {
	ctx := context.Background()
	cfg := &ContentConfig{
		Type:   "memory",
		Memory: map[string]any{"max_size_bytes": "1048576"},
	}

	store, err := CreateContentStore(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create memory content store: %v", err)
	}
	if store == nil {
		t.Fatal("Expected non-nil store")
	}
	_ = store.Close()
}

func TestCreateContentStore_S3MissingBucket(t *testing.T) {
	ctx := context.Background()
	cfg := &ContentConfig{
		Type: "s3",
		S3:   map[string]any{"region": "us-east-1"},
	}

	_, err := CreateContentStore(ctx, cfg, nil)
	if err == nil {
		t.Fatal("Expected error for missing bucket")
	}
	if !strings.Contains(err.Error(), "bucket is required") {
		t.Errorf("Expected 'bucket is required' error, got: %v", err)
	}
}

func TestDecodeS3Options(t *testing.T) {
	opts, err := decodeS3Options(map[string]any{
		"bucket":           "kobject",
		"region":           "eu-west-1",
		"endpoint":         "http://localhost:9000",
		"key_prefix":       "nodes/",
		"force_path_style": "true",
		"max_retries":      "5",
	})
	if err != nil {
		t.Fatalf("decodeS3Options failed: %v", err)
	}
	if !opts.ForcePathStyle || opts.MaxRetries != 5 || opts.KeyPrefix != "nodes/" {
		t.Errorf("Unexpected options: %+v", opts)
	}

	if _, err := decodeS3Options(map[string]any{"bucket": "kobject"}); err == nil {
		t.Error("Expected error for missing region")
	}
}

func TestCreateContentStore_UnknownType(t *testing.T) {
	ctx := context.Background()
	cfg := &ContentConfig{Type: "unknown"}

	_, err := CreateContentStore(ctx, cfg, nil)
	if err == nil {
		t.Fatal("Expected error for unknown content store type")
	}
	if !strings.Contains(err.Error(), "unknown content store type") {
		t.Errorf("Expected 'unknown content store type' error, got: %v", err)
	}
}

func TestCreateMetadataStore_Memory(t *testing.T) {
	ctx := context.Background()
	cfg := &MetadataConfig{Type: "memory"}

	store, err := CreateMetadataStore(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create memory metadata store: %v", err)
	}
	if store == nil {
		t.Fatal("Expected non-nil store")
	}
	_ = store.Close()
}

func TestCreateMetadataStore_Badger(t *testing.T) {
	ctx := context.Background()
	cfg := &MetadataConfig{
		Type: "badger",
		Badger: map[string]any{
			"db_path": filepath.Join(t.TempDir(), "nodes"),
		},
	}

	store, err := CreateMetadataStore(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create badger metadata store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Failed to close badger metadata store: %v", err)
	}
}

func TestCreateMetadataStore_BadgerInMemory(t *testing.T) {
	ctx := context.Background()
	cfg := &MetadataConfig{
		Type:   "badger",
		Badger: map[string]any{"in_memory": "true"},
	}

	store, err := CreateMetadataStore(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create in-memory badger store: %v", err)
	}
	_ = store.Close()
}

func TestCreateMetadataStore_BadgerMissingPath(t *testing.T) {
	ctx := context.Background()
	cfg := &MetadataConfig{Type: "badger", Badger: map[string]any{}}

	_, err := CreateMetadataStore(ctx, cfg)
	if err == nil {
		t.Fatal("Expected error for missing db_path")
	}
	if !strings.Contains(err.Error(), "db_path is required") {
		t.Errorf("Expected 'db_path is required' error, got: %v", err)
	}
}

func TestCreateMetadataStore_UnknownType(t *testing.T) {
	ctx := context.Background()
	cfg := &MetadataConfig{Type: "unknown"}

	_, err := CreateMetadataStore(ctx, cfg)
	if err == nil {
		t.Fatal("Expected error for unknown metadata store type")
	}
	if !strings.Contains(err.Error(), "unknown metadata store type") {
		t.Errorf("Expected 'unknown metadata store type' error, got: %v", err)
	}
}

func TestCreateMetadataStore_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := CreateMetadataStore(ctx, &MetadataConfig{Type: "memory"}); err == nil {
		t.Fatal("Expected error with canceled context")
	}
}

func TestCreateDevice_Ramdisk(t *testing.T) {
	dev, err := CreateDevice(DeviceConfig{Name: "ram0", Type: "ramdisk", BlockSize: 512, BlockCount: 4})
	if err != nil {
		t.Fatalf("Failed to create ramdisk: %v", err)
	}
	defer dev.Release()

	if dev.Name() != "ram0" {
		t.Errorf("Expected name 'ram0', got %q", dev.Name())
	}
}

func TestCreateDevice_Image(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	if err := os.WriteFile(path, make([]byte, 4096), 0644); err != nil {
		t.Fatalf("Failed to create image: %v", err)
	}

	dev, err := CreateDevice(DeviceConfig{Name: "disk", Type: "image", BlockSize: 1024, Path: path})
	if err != nil {
		t.Fatalf("Failed to open image device: %v", err)
	}
	defer dev.Release()
}

func TestCreateDevice_UnknownType(t *testing.T) {
	if _, err := CreateDevice(DeviceConfig{Name: "d", Type: "tape", BlockSize: 512}); err == nil {
		t.Fatal("Expected error for unknown device type")
	}
}

func TestProcessConfig_ManagerConfig(t *testing.T) {
	pc := ProcessConfig{
		MaxObjects:   12,
		PipeCapacity: 256,
		RateLimit:    RateLimitConfig{RequestsPerSecond: 50, Burst: 5},
	}

	mc := pc.ManagerConfig()
	if mc.MaxObjects != 12 || mc.PipeCapacity != 256 {
		t.Errorf("Unexpected manager config: %+v", mc)
	}
	if mc.RateLimit.RequestsPerSecond != 50 || mc.RateLimit.Burst != 5 {
		t.Errorf("Unexpected rate limit: %+v", mc.RateLimit)
	}
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	cfg := GetDefaultConfig()

	result := InitializeMetrics(cfg)
	if result.Enabled {
		t.Error("Expected metrics disabled")
	}
	if result.Kobject == nil || result.Process == nil {
		t.Fatal("Expected no-op collectors, got nil")
	}
	if result.S3 != nil {
		t.Error("Expected nil S3 metrics when disabled")
	}
	if metrics.IsEnabled() {
		t.Error("Registry should stay uninitialized when metrics are disabled")
	}
}
