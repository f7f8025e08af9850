// Package memory implements an in-memory node store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/kobject/pkg/store/metadata"
)

// MemoryMetadataStore implements metadata.Store using in-memory maps.
//
// Suitable for tests and ephemeral trees where persistence is not required.
//
// Thread Safety:
// All operations are protected by a single read-write mutex (mu).
//
// Storage Model:
//   - nodes: node ID to node
//   - children: directory ID to (name to child ID)
type MemoryMetadataStore struct {
	nodes    map[uuid.UUID]*metadata.Node
	children map[uuid.UUID]map[string]uuid.UUID
	rootID   uuid.UUID
	closed   bool
	mu       sync.RWMutex
}

// NewMemoryMetadataStore creates an empty store whose root is created eagerly.
func NewMemoryMetadataStore() *MemoryMetadataStore {
	root := metadata.NewNode(uuid.Nil, "", metadata.NodeDirectory)
	root.Parent = root.ID

	return &MemoryMetadataStore{
		nodes:    map[uuid.UUID]*metadata.Node{root.ID: root},
		children: map[uuid.UUID]map[string]uuid.UUID{root.ID: {}},
		rootID:   root.ID,
	}
}

func (s *MemoryMetadataStore) Root(ctx context.Context) (*metadata.Node, error) {
	return s.Get(ctx, s.rootID)
}

func (s *MemoryMetadataStore) Get(ctx context.Context, id uuid.UUID) (*metadata.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, metadata.ErrStoreClosed
	}

	node, ok := s.nodes[id]
	if !ok {
		return nil, metadata.NotFoundError(id.String())
	}
	return node.Clone(), nil
}

func (s *MemoryMetadataStore) Lookup(ctx context.Context, parent uuid.UUID, name string) (*metadata.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.dir(parent)
	if err != nil {
		return nil, err
	}

	childID, ok := entries[name]
	if !ok {
		return nil, metadata.NotFoundError(name)
	}
	return s.nodes[childID].Clone(), nil
}

func (s *MemoryMetadataStore) Create(ctx context.Context, parent uuid.UUID, name string, typ metadata.NodeType) (*metadata.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := metadata.ValidateName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.dir(parent)
	if err != nil {
		return nil, err
	}
	if _, exists := entries[name]; exists {
		return nil, metadata.AlreadyExistsError(name)
	}

	node := metadata.NewNode(parent, name, typ)
	s.nodes[node.ID] = node
	entries[name] = node.ID
	if typ == metadata.NodeDirectory {
		s.children[node.ID] = make(map[string]uuid.UUID)
	}
	s.nodes[parent].Mtime = node.Mtime

	return node.Clone(), nil
}

func (s *MemoryMetadataStore) List(ctx context.Context, parent uuid.UUID) ([]*metadata.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.dir(parent)
	if err != nil {
		return nil, err
	}

	nodes := make([]*metadata.Node, 0, len(entries))
	for _, id := range entries {
		nodes = append(nodes, s.nodes[id].Clone())
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	return nodes, nil
}

func (s *MemoryMetadataStore) Remove(ctx context.Context, parent uuid.UUID, name string) (*metadata.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.dir(parent)
	if err != nil {
		return nil, err
	}

	childID, ok := entries[name]
	if !ok {
		return nil, metadata.NotFoundError(name)
	}

	child := s.nodes[childID]
	if child.IsDir() && len(s.children[childID]) > 0 {
		return nil, metadata.NotEmptyError(name)
	}

	delete(entries, name)
	delete(s.nodes, childID)
	delete(s.children, childID)
	s.nodes[parent].Mtime = time.Now()

	return child, nil
}

func (s *MemoryMetadataStore) SetSize(ctx context.Context, id uuid.UUID, size uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return metadata.ErrStoreClosed
	}

	node, ok := s.nodes[id]
	if !ok {
		return metadata.NotFoundError(id.String())
	}
	node.Size = size
	node.Mtime = time.Now()
	return nil
}

func (s *MemoryMetadataStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// dir returns the child map of a directory. Caller holds mu.
func (s *MemoryMetadataStore) dir(id uuid.UUID) (map[string]uuid.UUID, error) {
	if s.closed {
		return nil, metadata.ErrStoreClosed
	}

	node, ok := s.nodes[id]
	if !ok {
		return nil, metadata.NotFoundError(id.String())
	}
	if !node.IsDir() {
		return nil, metadata.NotDirectoryError(node.Name)
	}
	return s.children[id], nil
}
