package fs

import (
	"container/list"
	"fmt"
	"os"

	"github.com/marmos91/kobject/pkg/store/content"
)

// fdCache is an LRU cache of open content files.
//
// It is not synchronized; FSContentStore serializes access under its mutex.
type fdCache struct {
	maxSize int
	cache   map[content.ContentID]*list.Element
	lru     *list.List
}

type cacheEntry struct {
	id   content.ContentID
	file *os.File
}

func newFDCache(maxSize int) *fdCache {
	if maxSize < 1 {
		maxSize = 256
	}
	return &fdCache{
		maxSize: maxSize,
		cache:   make(map[content.ContentID]*list.Element),
		lru:     list.New(),
	}
}

func (c *fdCache) get(id content.ContentID) (*os.File, bool) {
	elem, exists := c.cache[id]
	if !exists {
		return nil, false
	}

	c.lru.MoveToFront(elem)
	return elem.Value.(*cacheEntry).file, true
}

func (c *fdCache) put(id content.ContentID, file *os.File) error {
	if elem, exists := c.cache[id]; exists {
		c.lru.MoveToFront(elem)
		entry := elem.Value.(*cacheEntry)
		if entry.file != file {
			_ = entry.file.Close()
			entry.file = file
		}
		return nil
	}

	if c.lru.Len() >= c.maxSize {
		if err := c.evictLRU(); err != nil {
			return fmt.Errorf("evict LRU: %w", err)
		}
	}

	c.cache[id] = c.lru.PushFront(&cacheEntry{id: id, file: file})
	return nil
}

func (c *fdCache) remove(id content.ContentID) error {
	elem, exists := c.cache[id]
	if !exists {
		return nil
	}

	c.lru.Remove(elem)
	delete(c.cache, id)

	if err := elem.Value.(*cacheEntry).file.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}

func (c *fdCache) close() error {
	var firstErr error
	for c.lru.Len() > 0 {
		elem := c.lru.Back()
		entry := elem.Value.(*cacheEntry)

		if err := entry.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}

		c.lru.Remove(elem)
		delete(c.cache, entry.id)
	}
	return firstErr
}

func (c *fdCache) evictLRU() error {
	elem := c.lru.Back()
	if elem == nil {
		return nil
	}

	entry := elem.Value.(*cacheEntry)
	c.lru.Remove(elem)
	delete(c.cache, entry.id)

	if err := entry.file.Close(); err != nil {
		return fmt.Errorf("close evicted file %s: %w", entry.file.Name(), err)
	}
	return nil
}
