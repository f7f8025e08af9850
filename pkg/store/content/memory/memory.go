// Package memory implements in-memory content storage.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/kobject/pkg/store/content"
)

// MemoryContentStore implements content.Store using in-memory storage.
//
// Characteristics:
//   - Fast: All operations are memory-speed
//   - Volatile: Data lost on restart
//   - Memory-bound: Limited by available RAM (and maxSize if set)
//   - Thread-safe: Protected by RWMutex
//
// Copying data on read/write prevents data races with caller-owned buffers.
type MemoryContentStore struct {
	// data stores the actual file content keyed by ContentID
	data map[content.ContentID][]byte

	// maxSize bounds the total stored bytes (0 = unlimited)
	maxSize uint64
	used    uint64
	closed  bool

	// mu protects concurrent access to data map
	mu sync.RWMutex
}

// NewMemoryContentStore creates a new in-memory content store.
//
// Parameters:
//   - ctx: Context for cancellation (checked before initialization)
//   - maxSize: Upper bound on total stored bytes, 0 for unlimited
func NewMemoryContentStore(ctx context.Context, maxSize uint64) (*MemoryContentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &MemoryContentStore{
		data:    make(map[content.ContentID][]byte),
		maxSize: maxSize,
	}, nil
}

// ReadAt copies content bytes starting at offset into buf.
func (s *MemoryContentStore) ReadAt(ctx context.Context, id content.ContentID, buf []byte, offset int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := content.ValidateOffset(offset, len(buf)); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, content.ErrStoreClosed
	}

	data, exists := s.data[id]
	if !exists {
		return 0, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
	}
	if offset >= int64(len(data)) {
		return 0, nil
	}

	return copy(buf, data[offset:]), nil
}

// WriteAt stores data at offset, growing the content as needed.
func (s *MemoryContentStore) WriteAt(ctx context.Context, id content.ContentID, data []byte, offset int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := content.ValidateOffset(offset, len(data)); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, content.ErrStoreClosed
	}

	existing, exists := s.data[id]
	end := offset + int64(len(data))
	if end > int64(len(existing)) || !exists {
		if end < int64(len(existing)) {
			end = int64(len(existing))
		}
		if err := s.reserve(uint64(end) - uint64(len(existing))); err != nil {
			return 0, fmt.Errorf("content %s: %w", id, err)
		}
		grown := make([]byte, end)
		copy(grown, existing)
		existing = grown
	}

	n := copy(existing[offset:], data)
	s.data[id] = existing
	return n, nil
}

// Size returns the content length.
func (s *MemoryContentStore) Size(ctx context.Context, id content.ContentID) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.data[id]
	if !exists {
		return 0, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
	}
	return uint64(len(data)), nil
}

// Truncate resizes existing content.
func (s *MemoryContentStore) Truncate(ctx context.Context, id content.ContentID, size uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, exists := s.data[id]
	if !exists {
		return fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
	}

	current := uint64(len(data))
	switch {
	case size < current:
		s.used -= current - size
		s.data[id] = data[:size:size]
	case size > current:
		if err := s.reserve(size - current); err != nil {
			return fmt.Errorf("content %s: %w", id, err)
		}
		grown := make([]byte, size)
		copy(grown, data)
		s.data[id] = grown
	}
	return nil
}

// Delete removes content. Missing content is ignored.
func (s *MemoryContentStore) Delete(ctx context.Context, id content.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if data, exists := s.data[id]; exists {
		s.used -= uint64(len(data))
		delete(s.data, id)
	}
	return nil
}

// List returns the IDs of all stored content.
func (s *MemoryContentStore) List(ctx context.Context) ([]content.ContentID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]content.ContentID, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

// Close drops all content.
func (s *MemoryContentStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[content.ContentID][]byte)
	s.used = 0
	s.closed = true
	return nil
}

// reserve accounts for grow bytes against maxSize. Caller holds mu.
func (s *MemoryContentStore) reserve(grow uint64) error {
	if s.maxSize > 0 && s.used+grow > s.maxSize {
		return fmt.Errorf("memory store full (%d of %d bytes used)", s.used, s.maxSize)
	}
	s.used += grow
	return nil
}
