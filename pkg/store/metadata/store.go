// Package metadata defines the node store backing the directory tree.
//
// A Store keeps the shape of the tree (names, parents, types, sizes); file
// bytes live in a content store keyed by Node.ContentID.
package metadata

import (
	"context"

	"github.com/google/uuid"
)

// Store is the directory tree.
//
// Design Principles:
//   - Nodes are identified by random UUIDs, stable across restarts and renames
//   - Returned nodes are copies; mutating them does not affect the store
//   - Business logic failures are *StoreError values
//   - All operations respect context cancellation
type Store interface {
	// Root returns the root directory, creating it on first use.
	Root(ctx context.Context) (*Node, error)

	// Get returns the node with the given ID.
	//
	// Returns:
	//   - error: ErrNotFound if the node doesn't exist
	Get(ctx context.Context, id uuid.UUID) (*Node, error)

	// Lookup resolves one name inside a directory.
	//
	// Returns:
	//   - error: ErrNotFound if the name doesn't exist, ErrNotDirectory if
	//     parent is a file
	Lookup(ctx context.Context, parent uuid.UUID, name string) (*Node, error)

	// Create adds a new file or directory under parent.
	//
	// Returns:
	//   - error: ErrAlreadyExists if the name is taken, ErrNotDirectory if
	//     parent is a file, ErrInvalidArgument for a bad name
	Create(ctx context.Context, parent uuid.UUID, name string, typ NodeType) (*Node, error)

	// List returns the children of a directory sorted by name.
	List(ctx context.Context, parent uuid.UUID) ([]*Node, error)

	// Remove unlinks a child and returns the removed node so the caller can
	// release its content.
	//
	// Returns:
	//   - error: ErrNotFound, ErrNotDirectory, or ErrNotEmpty for a directory
	//     that still has children
	Remove(ctx context.Context, parent uuid.UUID, name string) (*Node, error)

	// SetSize records a file's length and bumps its modification time.
	SetSize(ctx context.Context, id uuid.UUID, size uint64) error

	// Close releases the store's resources.
	Close() error
}
