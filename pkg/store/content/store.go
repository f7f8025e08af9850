// Package content defines the storage contract for file bytes.
//
// Content stores hold the data of regular files, keyed by ContentID. The
// directory tree and the mapping from names to ContentIDs live in the
// metadata store; the filesystem resource combines both.
//
// Implementations:
//   - memory: volatile map, used for tests and ephemeral kernels
//   - fs: one host file per ContentID under a base directory
//   - s3: one object per ContentID in an S3 (or compatible) bucket
package content

import "context"

// ContentID identifies a blob of file content.
type ContentID string

// Store is the random-access contract the filesystem resource needs.
//
// Thread Safety:
// Implementations must be safe for concurrent use. Concurrent writes to the
// same ContentID are serialized by the store but their order is unspecified.
type Store interface {
	// ReadAt reads up to len(buf) bytes starting at offset.
	//
	// Reading at or past the end returns 0 and no error.
	//
	// Returns:
	//   - int: Bytes read
	//   - error: ErrContentNotFound if the content does not exist,
	//     ErrInvalidOffset for negative offsets, or context/backend errors
	ReadAt(ctx context.Context, id ContentID, buf []byte, offset int64) (int, error)

	// WriteAt writes data starting at offset, creating the content if needed
	// and zero-filling any gap (sparse semantics).
	WriteAt(ctx context.Context, id ContentID, data []byte, offset int64) (int, error)

	// Size returns the content length in bytes.
	Size(ctx context.Context, id ContentID) (uint64, error)

	// Truncate changes the content length, zero-extending if it grows.
	Truncate(ctx context.Context, id ContentID, size uint64) error

	// Delete removes the content. Deleting missing content is not an error.
	Delete(ctx context.Context, id ContentID) error

	// Close releases store resources.
	Close() error
}

// Lister is implemented by stores that can enumerate their content. The
// garbage collector uses it to find blobs no node references.
type Lister interface {
	// List returns every ContentID currently stored, in no particular order.
	List(ctx context.Context) ([]ContentID, error)
}
