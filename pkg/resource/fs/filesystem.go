// Package fs backs File and Directory kobjects with a node store for the
// tree and a content store for file bytes.
package fs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/marmos91/kobject/internal/logger"
	"github.com/marmos91/kobject/pkg/kobject"
	"github.com/marmos91/kobject/pkg/store/content"
	"github.com/marmos91/kobject/pkg/store/metadata"
)

var (
	// ErrIsDirectory is returned by byte I/O on a directory entry.
	ErrIsDirectory = errors.New("is a directory")

	// ErrNotDirectory is returned by tree operations on a file entry.
	ErrNotDirectory = errors.New("not a directory")
)

// Filesystem joins a node store and a content store into a tree of dirents.
//
// Dirent methods carry no context; they run under the context given to New,
// so cancelling it aborts in-flight store calls.
type Filesystem struct {
	ctx     context.Context
	meta    metadata.Store
	content content.Store

	// open counts live dirents
	open atomic.Int64
}

// New creates a Filesystem over the given stores.
func New(ctx context.Context, meta metadata.Store, store content.Store) *Filesystem {
	return &Filesystem{ctx: ctx, meta: meta, content: store}
}

// Root returns a referenced dirent for the root directory.
func (f *Filesystem) Root() (kobject.Dirent, error) {
	node, err := f.meta.Root(f.ctx)
	if err != nil {
		return nil, fmt.Errorf("root: %w", err)
	}
	return f.newDirent(node), nil
}

// OpenDirents reports how many dirents are still referenced.
func (f *Filesystem) OpenDirents() int64 {
	return f.open.Load()
}

// Close closes both stores. Dirents must not be used afterwards.
func (f *Filesystem) Close() error {
	if n := f.open.Load(); n > 0 {
		logger.Warn("Filesystem closed with %d dirents still referenced", n)
	}

	metaErr := f.meta.Close()
	contentErr := f.content.Close()
	if metaErr != nil {
		return fmt.Errorf("close metadata store: %w", metaErr)
	}
	if contentErr != nil {
		return fmt.Errorf("close content store: %w", contentErr)
	}
	return nil
}

func (f *Filesystem) newDirent(node *metadata.Node) *dirent {
	d := &dirent{
		fs:        f,
		id:        node.ID,
		isDir:     node.IsDir(),
		contentID: content.ContentID(node.ContentID),
	}
	d.refs.Store(1)
	f.open.Add(1)
	return d
}

// resolve walks path from start. Empty components and "." stay in place,
// ".." moves to the parent (the root is its own parent) and a leading '/'
// restarts from the root.
func (f *Filesystem) resolve(start uuid.UUID, path string) (*metadata.Node, error) {
	ctx := f.ctx

	current, err := f.meta.Get(ctx, start)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(path, "/") {
		if current, err = f.meta.Root(ctx); err != nil {
			return nil, err
		}
	}

	for _, name := range strings.Split(path, "/") {
		switch name {
		case "", ".":
			continue
		case "..":
			if current, err = f.meta.Get(ctx, current.Parent); err != nil {
				return nil, err
			}
			continue
		}

		if !current.IsDir() {
			return nil, fmt.Errorf("%s: %w", current.Name, ErrNotDirectory)
		}
		if current, err = f.meta.Lookup(ctx, current.ID, name); err != nil {
			return nil, err
		}
	}
	return current, nil
}
