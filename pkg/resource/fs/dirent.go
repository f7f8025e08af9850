package fs

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/marmos91/kobject/internal/logger"
	"github.com/marmos91/kobject/pkg/kobject"
	"github.com/marmos91/kobject/pkg/store/content"
	"github.com/marmos91/kobject/pkg/store/metadata"
)

// dirent is one referenced entry of a Filesystem.
//
// It pins the node ID, not the node: size and children are read from the
// store on every call, so aliases see each other's writes.
type dirent struct {
	fs        *Filesystem
	id        uuid.UUID
	isDir     bool
	contentID content.ContentID
	refs      atomic.Int32
}

var _ kobject.Dirent = (*dirent)(nil)

func (d *dirent) AddRef() {
	d.refs.Add(1)
}

func (d *dirent) Release() {
	switch n := d.refs.Add(-1); {
	case n == 0:
		d.fs.open.Add(-1)
	case n < 0:
		logger.Warn("dirent %s released more times than referenced", d.id)
	}
}

func (d *dirent) IsDir() bool {
	return d.isDir
}

// Read reads file bytes at offset. A file never written reads as empty.
func (d *dirent) Read(buf []byte, offset int64) (int, error) {
	if d.isDir {
		return 0, ErrIsDirectory
	}

	n, err := d.fs.content.ReadAt(d.fs.ctx, d.contentID, buf, offset)
	if errors.Is(err, content.ErrContentNotFound) {
		return 0, nil
	}
	return n, err
}

// Write writes file bytes at offset and grows the recorded size.
func (d *dirent) Write(buf []byte, offset int64) (int, error) {
	if d.isDir {
		return 0, ErrIsDirectory
	}

	ctx := d.fs.ctx

	n, err := d.fs.content.WriteAt(ctx, d.contentID, buf, offset)
	if err != nil {
		return n, err
	}

	node, err := d.fs.meta.Get(ctx, d.id)
	if err != nil {
		return n, err
	}
	if end := uint64(offset) + uint64(n); end > node.Size {
		if err := d.fs.meta.SetSize(ctx, d.id, end); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Size is the file length, or for a directory the number of bytes List needs.
func (d *dirent) Size() int64 {
	ctx := d.fs.ctx

	if !d.isDir {
		node, err := d.fs.meta.Get(ctx, d.id)
		if err != nil {
			logger.Debug("dirent %s size: %v", d.id, err)
			return 0
		}
		return int64(node.Size)
	}

	children, err := d.fs.meta.List(ctx, d.id)
	if err != nil {
		logger.Debug("dirent %s size: %v", d.id, err)
		return 0
	}

	var size int64
	for _, child := range children {
		size += int64(len(child.Name)) + 1
	}
	return size
}

// List writes child names into buf, each terminated by a NUL byte, in name
// order. It stops at the first name that does not fit.
func (d *dirent) List(buf []byte) (int, error) {
	if !d.isDir {
		return 0, ErrNotDirectory
	}

	children, err := d.fs.meta.List(d.fs.ctx, d.id)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, child := range children {
		if n+len(child.Name)+1 > len(buf) {
			break
		}
		n += copy(buf[n:], child.Name)
		buf[n] = 0
		n++
	}
	return n, nil
}

// Traverse resolves a relative or absolute slash-separated path.
func (d *dirent) Traverse(path string) (kobject.Dirent, error) {
	if !d.isDir {
		return nil, ErrNotDirectory
	}

	node, err := d.fs.resolve(d.id, path)
	if err != nil {
		return nil, err
	}
	return d.fs.newDirent(node), nil
}

func (d *dirent) MakeFile(name string) (kobject.Dirent, error) {
	return d.make(name, metadata.NodeFile)
}

func (d *dirent) MakeDir(name string) (kobject.Dirent, error) {
	return d.make(name, metadata.NodeDirectory)
}

func (d *dirent) make(name string, typ metadata.NodeType) (kobject.Dirent, error) {
	if !d.isDir {
		return nil, ErrNotDirectory
	}

	node, err := d.fs.meta.Create(d.fs.ctx, d.id, name, typ)
	if err != nil {
		return nil, err
	}

	logger.Debug("created %s %q (%s)", typ, name, node.ID)
	return d.fs.newDirent(node), nil
}

// Remove unlinks a child and deletes a file's content.
//
// Open dirents of the removed entry fail on their next store access.
func (d *dirent) Remove(name string) error {
	if !d.isDir {
		return ErrNotDirectory
	}

	removed, err := d.fs.meta.Remove(d.fs.ctx, d.id, name)
	if err != nil {
		return err
	}

	if removed.ContentID != "" {
		if err := d.fs.content.Delete(d.fs.ctx, content.ContentID(removed.ContentID)); err != nil {
			return fmt.Errorf("delete content of %q: %w", name, err)
		}
	}
	return nil
}
