package config

import (
	"context"
	"fmt"

	"github.com/marmos91/kobject/internal/logger"
	"github.com/marmos91/kobject/pkg/metrics"
	promMetrics "github.com/marmos91/kobject/pkg/metrics/prometheus"
	"github.com/marmos91/kobject/pkg/process"
	"github.com/marmos91/kobject/pkg/resource/device"
	"github.com/marmos91/kobject/pkg/store/content"
	contentfs "github.com/marmos91/kobject/pkg/store/content/fs"
	contentmemory "github.com/marmos91/kobject/pkg/store/content/memory"
	contents3 "github.com/marmos91/kobject/pkg/store/content/s3"
	"github.com/marmos91/kobject/pkg/store/metadata"
	"github.com/marmos91/kobject/pkg/store/metadata/badger"
	metadatamemory "github.com/marmos91/kobject/pkg/store/metadata/memory"
	"github.com/mitchellh/mapstructure"
)

// CreateMetadataStore creates a node store based on configuration.
//
// Supported types:
//   - "memory": pkg/store/metadata/memory (ephemeral)
//   - "badger": pkg/store/metadata/badger (persistent)
func CreateMetadataStore(ctx context.Context, cfg *MetadataConfig) (metadata.Store, error) {
	switch cfg.Type {
	case "memory":
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return metadatamemory.NewMemoryMetadataStore(), nil
	case "badger":
		return createBadgerMetadataStore(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown metadata store type: %q (supported: memory, badger)", cfg.Type)
	}
}

// createBadgerMetadataStore creates a BadgerDB-based persistent node store.
func createBadgerMetadataStore(ctx context.Context, options map[string]any) (metadata.Store, error) {
	type BadgerMetadataStoreOptions struct {
		DBPath           string `mapstructure:"db_path"`
		InMemory         bool   `mapstructure:"in_memory"`
		BlockCacheSizeMB int64  `mapstructure:"block_cache_mb"`
		IndexCacheSizeMB int64  `mapstructure:"index_cache_mb"`
	}

	var storeOpts BadgerMetadataStoreOptions
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &storeOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("failed to decode badger metadata store options: %w", err)
	}

	if storeOpts.DBPath == "" && !storeOpts.InMemory {
		return nil, fmt.Errorf("badger metadata store: db_path is required")
	}

	store, err := badger.NewBadgerMetadataStore(ctx, badger.BadgerMetadataStoreConfig{
		DBPath:           storeOpts.DBPath,
		InMemory:         storeOpts.InMemory,
		BlockCacheSizeMB: storeOpts.BlockCacheSizeMB,
		IndexCacheSizeMB: storeOpts.IndexCacheSizeMB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger metadata store: %w", err)
	}

	return store, nil
}

// CreateContentStore creates a content store based on configuration.
//
// Supported types:
//   - "memory": pkg/store/content/memory
//   - "filesystem": pkg/store/content/fs (local directory)
//   - "s3": pkg/store/content/s3 (Amazon S3 or compatible storage)
//
// s3Metrics may be nil.
func CreateContentStore(ctx context.Context, cfg *ContentConfig, s3Metrics contents3.S3Metrics) (content.Store, error) {
	switch cfg.Type {
	case "memory":
		return createMemoryContentStore(ctx, cfg.Memory)
	case "filesystem":
		return createFilesystemContentStore(ctx, cfg.Filesystem)
	case "s3":
		return createS3ContentStore(ctx, cfg.S3, s3Metrics)
	default:
		return nil, fmt.Errorf("unknown content store type: %q", cfg.Type)
	}
}

func createMemoryContentStore(ctx context.Context, options map[string]any) (content.Store, error) {
	var memCfg struct {
		MaxSizeBytes uint64 `mapstructure:"max_size_bytes"`
	}
	if err := mapstructure.WeakDecode(options, &memCfg); err != nil {
		return nil, fmt.Errorf("invalid memory config: %w", err)
	}

	store, err := contentmemory.NewMemoryContentStore(ctx, memCfg.MaxSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory content store: %w", err)
	}
	return store, nil
}

func createFilesystemContentStore(ctx context.Context, options map[string]any) (content.Store, error) {
	var fsCfg struct {
		Path string `mapstructure:"path"`
	}
	if err := mapstructure.Decode(options, &fsCfg); err != nil {
		return nil, fmt.Errorf("invalid filesystem config: %w", err)
	}

	if fsCfg.Path == "" {
		return nil, fmt.Errorf("filesystem content store: path is required")
	}

	store, err := contentfs.NewFSContentStore(ctx, fsCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem content store: %w", err)
	}
	return store, nil
}

// s3Options represents S3 configuration loaded from config files.
type s3Options struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

func decodeS3Options(options map[string]any) (s3Options, error) {
	var opts s3Options
	if err := mapstructure.WeakDecode(options, &opts); err != nil {
		return opts, fmt.Errorf("invalid S3 config: %w", err)
	}
	if opts.Bucket == "" {
		return opts, fmt.Errorf("S3 content store: bucket is required")
	}
	if opts.Region == "" {
		return opts, fmt.Errorf("S3 content store: region is required")
	}
	return opts, nil
}

func createS3ContentStore(ctx context.Context, options map[string]any, s3Metrics contents3.S3Metrics) (content.Store, error) {
	opts, err := decodeS3Options(options)
	if err != nil {
		return nil, err
	}

	client, err := contents3.NewS3ClientFromConfig(
		ctx,
		opts.Endpoint,
		opts.Region,
		opts.AccessKeyID,
		opts.SecretAccessKey,
		opts.ForcePathStyle,
		opts.MaxRetries,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	store, err := contents3.NewS3ContentStore(ctx, contents3.S3ContentStoreConfig{
		Client:    client,
		Bucket:    opts.Bucket,
		KeyPrefix: opts.KeyPrefix,
		Metrics:   s3Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 content store: %w", err)
	}

	logger.Info("S3 content store initialized: bucket=%s, region=%s, prefix=%s",
		opts.Bucket, opts.Region, opts.KeyPrefix)
	return store, nil
}

// CreateDevice creates the block device described by cfg. The caller owns
// the returned reference.
func CreateDevice(cfg DeviceConfig) (*device.BlockDevice, error) {
	switch cfg.Type {
	case "ramdisk":
		return device.NewRamdisk(cfg.Name, cfg.BlockSize, cfg.BlockCount)
	case "image":
		return device.OpenImage(cfg.Name, cfg.Path, cfg.BlockSize, cfg.ReadOnly)
	default:
		return nil, fmt.Errorf("unknown device type: %q (supported: ramdisk, image)", cfg.Type)
	}
}

// ManagerConfig converts the process section into a process.Config.
func (c ProcessConfig) ManagerConfig() process.Config {
	return process.Config{
		MaxObjects:   c.MaxObjects,
		PipeCapacity: c.PipeCapacity,
		RateLimit: process.RateLimitConfig{
			RequestsPerSecond: c.RateLimit.RequestsPerSecond,
			Burst:             c.RateLimit.Burst,
		},
	}
}

// MetricsResult contains all metrics components created from configuration.
type MetricsResult struct {
	// Enabled reports whether the Prometheus registry was initialized
	Enabled bool

	// Kobject collects handle lifecycle and I/O metrics (never nil)
	Kobject metrics.KobjectMetrics

	// Process collects syscall metrics (never nil)
	Process metrics.ProcessMetrics

	// S3 collects S3 content store metrics (nil if disabled)
	S3 contents3.S3Metrics
}

// InitializeMetrics creates all metrics components based on configuration.
//
// If metrics are enabled the global Prometheus registry is initialized and
// Prometheus-backed collectors are returned; otherwise no-op implementations.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{
			Kobject: metrics.NewNoopKobjectMetrics(),
			Process: metrics.NewNoopProcessMetrics(),
		}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		Enabled: true,
		Kobject: promMetrics.NewKobjectMetrics(),
		Process: promMetrics.NewProcessMetrics(),
		S3:      promMetrics.NewS3Metrics(),
	}
}
