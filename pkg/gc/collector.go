// Package gc removes content that no file in the directory tree references.
//
// Orphaned content is left behind when a file's node is unlinked but its
// content delete fails, or when the process dies between the two steps.
package gc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/kobject/internal/logger"
	"github.com/marmos91/kobject/pkg/store/content"
	"github.com/marmos91/kobject/pkg/store/metadata"
)

// ErrNotListable is returned when the content store cannot enumerate its
// content.
var ErrNotListable = errors.New("content store does not implement content.Lister")

// Collector periodically deletes orphaned content.
//
// It satisfies the kernel's Service interface, so it runs alongside the
// other long-running services and stops with them.
//
// Thread Safety: Safe for concurrent use. Runs are serialized.
type Collector struct {
	meta   metadata.Store
	store  content.Store
	lister content.Lister
	config Config

	// runMu serializes collection runs
	runMu sync.Mutex

	stopOnce sync.Once
	stopCh   chan struct{}
}

// Config contains configuration for the garbage collector.
type Config struct {
	// Interval between runs (default: 1h)
	Interval time.Duration

	// RunTimeout bounds a single run (default: 10m)
	RunTimeout time.Duration

	// DryRun logs what would be deleted without deleting it
	DryRun bool
}

// NewCollector creates a collector over the given stores.
//
// Returns ErrNotListable if store does not implement content.Lister.
func NewCollector(meta metadata.Store, store content.Store, config Config) (*Collector, error) {
	lister, ok := store.(content.Lister)
	if !ok {
		return nil, ErrNotListable
	}

	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = 10 * time.Minute
	}

	return &Collector{
		meta:   meta,
		store:  store,
		lister: lister,
		config: config,
		stopCh: make(chan struct{}),
	}, nil
}

func (c *Collector) Name() string { return "gc" }

// Serve runs a collection every interval until ctx is cancelled or Stop is
// called. Failed runs are logged and do not end the service.
func (c *Collector) Serve(ctx context.Context) error {
	logger.Info("Garbage collector started: interval=%s dry_run=%v", c.config.Interval, c.config.DryRun)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.stopCh:
			return nil
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, c.config.RunTimeout)
			stats, err := c.RunNow(runCtx)
			cancel()

			if err != nil {
				logger.Error("Garbage collection failed: %v", err)
			} else {
				logger.Info("Garbage collection completed: %s", stats.Summary())
			}
		}
	}
}

// Stop makes Serve return. A run in progress finishes under its own timeout.
func (c *Collector) Stop(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	return nil
}

// RunNow performs one collection and blocks until it completes.
//
// Content is listed before the tree is walked: anything written after the
// listing is never a candidate, and any file created before the walk is seen
// by it.
func (c *Collector) RunNow(ctx context.Context) (*Stats, error) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	stats := &Stats{StartTime: time.Now()}
	defer func() { stats.EndTime = time.Now() }()

	// Phase 1: everything the content store holds
	existing, err := c.lister.List(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list content: %w", err)
	}
	stats.ExistingCount = uint64(len(existing))

	// Phase 2: everything a file node references
	referenced, err := c.referenced(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to walk tree: %w", err)
	}
	stats.ReferencedCount = uint64(len(referenced))

	// Phase 3: existing - referenced
	var orphaned []content.ContentID
	for _, id := range existing {
		if _, ok := referenced[id]; !ok {
			orphaned = append(orphaned, id)
		}
	}
	stats.OrphanedCount = uint64(len(orphaned))

	if len(orphaned) == 0 {
		logger.Debug("GC: no orphaned content")
		return stats, nil
	}

	if c.config.DryRun {
		logger.Info("GC: DRY RUN - would delete %d items", len(orphaned))
		for i, id := range orphaned {
			if i == 10 {
				logger.Info("  ... and %d more", len(orphaned)-10)
				break
			}
			logger.Info("  - %s", id)
		}
		return stats, nil
	}

	// Phase 4: delete
	for _, id := range orphaned {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := c.store.Delete(ctx, id); err != nil {
			logger.Debug("GC: failed to delete %s: %v", id, err)
			stats.FailedCount++
			continue
		}
		stats.DeletedCount++
	}

	logger.Info("GC: deleted %d items, %d failed", stats.DeletedCount, stats.FailedCount)
	return stats, nil
}

// referenced walks the tree from the root and collects file content IDs.
func (c *Collector) referenced(ctx context.Context) (map[content.ContentID]struct{}, error) {
	root, err := c.meta.Root(ctx)
	if err != nil {
		return nil, err
	}

	refs := make(map[content.ContentID]struct{})
	queue := []uuid.UUID{root.ID}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dir := queue[0]
		queue = queue[1:]

		children, err := c.meta.List(ctx, dir)
		if err != nil {
			// Removed since it was queued
			if metadata.IsNotFound(err) {
				continue
			}
			return nil, err
		}

		for _, child := range children {
			if child.IsDir() {
				queue = append(queue, child.ID)
			} else if child.ContentID != "" {
				refs[content.ContentID(child.ContentID)] = struct{}{}
			}
		}
	}
	return refs, nil
}

// Stats contains statistics from a garbage collection run.
type Stats struct {
	StartTime       time.Time // When collection started
	EndTime         time.Time // When collection ended
	ExistingCount   uint64    // Content IDs in the content store
	ReferencedCount uint64    // Content IDs referenced by file nodes
	OrphanedCount   uint64    // Existing but unreferenced
	DeletedCount    uint64    // Orphans deleted
	FailedCount     uint64    // Orphans whose delete failed
}

// Duration returns the total collection duration.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable summary of the collection.
func (s *Stats) Summary() string {
	return fmt.Sprintf("existing=%d referenced=%d orphaned=%d deleted=%d failed=%d duration=%s",
		s.ExistingCount, s.ReferencedCount, s.OrphanedCount,
		s.DeletedCount, s.FailedCount, s.Duration())
}
