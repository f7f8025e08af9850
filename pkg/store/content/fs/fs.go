// Package fs implements content storage on the local filesystem.
package fs

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/marmos91/kobject/pkg/store/content"
)

// defaultFDCacheSize is the number of content files kept open.
const defaultFDCacheSize = 512

// FSContentStore implements content.Store using the local filesystem.
//
// Each ContentID is stored as one file named by the hex encoding of the ID
// under the base directory. Open files are kept in an LRU cache so sequential
// reads and writes through a handle do not reopen the file every call.
//
// Thread Safety:
// All operations are serialized by a single mutex, which also guards the
// file descriptor cache.
type FSContentStore struct {
	basePath string
	fdCache  *fdCache
	mu       sync.Mutex
}

// NewFSContentStore creates a new filesystem-based content store.
//
// The base directory is created with permissions 0755 if it doesn't exist.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - basePath: Root directory for storing content files
func NewFSContentStore(ctx context.Context, basePath string) (*FSContentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSContentStore{
		basePath: basePath,
		fdCache:  newFDCache(defaultFDCacheSize),
	}, nil
}

// getFilePath returns the full path for a given content ID.
func (s *FSContentStore) getFilePath(id content.ContentID) string {
	// Hex-encode the content ID to make it filesystem-safe
	return filepath.Join(s.basePath, hex.EncodeToString([]byte(id)))
}

// open returns the cached file for id, opening it if needed. Caller holds mu.
func (s *FSContentStore) open(id content.ContentID, create bool) (*os.File, error) {
	if f, ok := s.fdCache.get(id); ok {
		return f, nil
	}

	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE
	}

	f, err := os.OpenFile(s.getFilePath(id), flags, 0644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return nil, fmt.Errorf("failed to open content: %w", err)
	}

	if err := s.fdCache.put(id, f); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// ReadAt reads content bytes starting at offset.
func (s *FSContentStore) ReadAt(ctx context.Context, id content.ContentID, buf []byte, offset int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := content.ValidateOffset(offset, len(buf)); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open(id, false)
	if err != nil {
		return 0, err
	}

	n, err := f.ReadAt(buf, offset)
	if errors.Is(err, io.EOF) {
		return n, nil
	}
	if err != nil {
		return n, fmt.Errorf("failed to read content: %w", err)
	}
	return n, nil
}

// WriteAt writes data at offset, creating the file if needed.
func (s *FSContentStore) WriteAt(ctx context.Context, id content.ContentID, data []byte, offset int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := content.ValidateOffset(offset, len(data)); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open(id, true)
	if err != nil {
		return 0, err
	}

	n, err := f.WriteAt(data, offset)
	if err != nil {
		return n, fmt.Errorf("failed to write content: %w", err)
	}
	return n, nil
}

// Size stats the content file.
func (s *FSContentStore) Size(ctx context.Context, id content.ContentID) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.getFilePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return 0, fmt.Errorf("failed to stat content: %w", err)
	}
	return uint64(info.Size()), nil
}

// Truncate resizes the content file.
func (s *FSContentStore) Truncate(ctx context.Context, id content.ContentID, size uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open(id, false)
	if err != nil {
		return err
	}
	if err := f.Truncate(int64(size)); err != nil {
		return fmt.Errorf("failed to truncate content: %w", err)
	}
	return nil
}

// Delete closes and removes the content file.
func (s *FSContentStore) Delete(ctx context.Context, id content.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fdCache.remove(id); err != nil {
		return err
	}

	if err := os.Remove(s.getFilePath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete content: %w", err)
	}
	return nil
}

// List returns the IDs of all content files under the base directory.
// Entries whose names are not hex-encoded IDs are skipped.
func (s *FSContentStore) List(ctx context.Context) ([]content.ContentID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}

	ids := make([]content.ContentID, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		raw, err := hex.DecodeString(e.Name())
		if err != nil {
			continue
		}
		ids = append(ids, content.ContentID(raw))
	}
	return ids, nil
}

// Close closes every cached file descriptor.
func (s *FSContentStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fdCache.close()
}
