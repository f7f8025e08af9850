package kobject

import (
	"errors"
	"fmt"
)

// List serializes the directory's entries into buf and returns the number of
// bytes written. Fails with NotADirectory on any other kind.
func (k *Kobject) List(buf []byte) (int, error) {
	const op = "list"
	if err := k.check(op); err != nil {
		return 0, err
	}

	d, ok := k.res.(dirResource)
	if !ok {
		return 0, k.fail(NotADirectory, op, nil)
	}

	n, err := d.dirent.List(buf)
	k.done(op, err)
	return n, err
}

// Lookup resolves name under the directory and returns a new handle for the
// child: a Directory handle if the entry is a directory, a File handle
// otherwise.
//
// Returns:
//   - *Kobject: the child handle, owned by the caller (nil on error)
//   - error: NotFound if name is absent, NotImplemented if k is not a Directory
func (k *Kobject) Lookup(name string) (*Kobject, error) {
	const op = "lookup"
	if err := k.check(op); err != nil {
		return nil, err
	}

	d, ok := k.res.(dirResource)
	if !ok {
		return nil, k.fail(NotImplemented, op, nil)
	}

	child, err := d.dirent.Traverse(name)
	if err != nil || child == nil {
		if child != nil {
			child.Release()
		}
		if err == nil {
			err = fmt.Errorf("no entry %q", name)
		}
		return nil, k.fail(NotFound, op, err)
	}

	k.done(op, nil)
	if child.IsDir() {
		return k.derive(dirResource{dirent: child}), nil
	}
	return k.derive(fileResource{dirent: child}), nil
}

// Remove deletes the named child of the directory. Backend errors are
// propagated; NotImplemented is returned for any other kind.
func (k *Kobject) Remove(name string) error {
	const op = "remove"
	if err := k.check(op); err != nil {
		return err
	}

	d, ok := k.res.(dirResource)
	if !ok {
		return k.fail(NotImplemented, op, nil)
	}

	err := d.dirent.Remove(name)
	k.done(op, err)
	return err
}

// CreateFile creates a regular file under the directory and returns a File
// handle for it. A backend refusal (name exists, no space) yields a nil
// handle and the wrapped backend error.
func (k *Kobject) CreateFile(name string) (*Kobject, error) {
	return k.createChild("create_file", name, false)
}

// CreateDir creates a subdirectory under the directory and returns a
// Directory handle for it.
func (k *Kobject) CreateDir(name string) (*Kobject, error) {
	return k.createChild("create_dir", name, true)
}

func (k *Kobject) createChild(op, name string, dir bool) (*Kobject, error) {
	if err := k.check(op); err != nil {
		return nil, err
	}

	d, ok := k.res.(dirResource)
	if !ok {
		return nil, k.fail(NotImplemented, op, nil)
	}

	var (
		child Dirent
		err   error
	)
	if dir {
		child, err = d.dirent.MakeDir(name)
	} else {
		child, err = d.dirent.MakeFile(name)
	}
	if err != nil || child == nil {
		if child != nil {
			child.Release()
		}
		if err == nil {
			err = errors.New("backend refused entry")
		}
		k.done(op, err)
		return nil, fmt.Errorf("%s %q: %w", op, name, err)
	}

	k.done(op, nil)
	if dir {
		return k.derive(dirResource{dirent: child}), nil
	}
	return k.derive(fileResource{dirent: child}), nil
}
