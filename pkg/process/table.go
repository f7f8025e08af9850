package process

import (
	"github.com/marmos91/kobject/pkg/kobject"
)

// Standard descriptor slots handed to every process.
const (
	StdIn  = 0
	StdOut = 1
	StdErr = 2
	StdWin = 3
	StdDir = 4
)

// DefaultMaxObjects is the descriptor table size when none is configured.
const DefaultMaxObjects = 100

// Table maps small integer descriptors to kobject handles.
//
// Every occupied slot owns exactly one alias of its handle: installing a
// handle transfers the caller's alias to the table, and clearing a slot
// drops it. Two slots may hold the same handle (Dup), in which case they
// share offset and tag.
//
// Thread safety:
// Table is not safe for concurrent use. The Manager serializes access.
type Table struct {
	entries []*kobject.Kobject
}

// NewTable creates an empty table with max slots (DefaultMaxObjects if max <= 0).
func NewTable(max int) *Table {
	if max <= 0 {
		max = DefaultMaxObjects
	}
	return &Table{
		entries: make([]*kobject.Kobject, max),
	}
}

// Max returns the number of slots.
func (t *Table) Max() int {
	return len(t.entries)
}

// Len returns the number of occupied slots.
func (t *Table) Len() int {
	n := 0
	for _, k := range t.entries {
		if k != nil {
			n++
		}
	}
	return n
}

// Descriptors returns the occupied slots in ascending order.
func (t *Table) Descriptors() []int {
	fds := make([]int, 0, len(t.entries))
	for fd, k := range t.entries {
		if k != nil {
			fds = append(fds, fd)
		}
	}
	return fds
}

// Install places k in the lowest free slot.
//
// On EMFILE the table did not take the alias and the caller still owns it.
func (t *Table) Install(k *kobject.Kobject) (int, error) {
	fd, err := t.free()
	if err != nil {
		return -1, err
	}
	t.entries[fd] = k
	return fd, nil
}

// free returns the lowest empty slot.
func (t *Table) free() (int, error) {
	for fd, cur := range t.entries {
		if cur == nil {
			return fd, nil
		}
	}
	return -1, EMFILE
}

// InstallAt places k in slot fd, dropping whatever the slot held.
func (t *Table) InstallAt(fd int, k *kobject.Kobject) error {
	if !t.valid(fd) {
		return EBADF
	}
	if old := t.entries[fd]; old != nil {
		old.Close()
	}
	t.entries[fd] = k
	return nil
}

// Get returns the handle in slot fd without taking a reference.
func (t *Table) Get(fd int) (*kobject.Kobject, error) {
	if !t.valid(fd) || t.entries[fd] == nil {
		return nil, EBADF
	}
	return t.entries[fd], nil
}

// Dup installs a new alias of fd's handle in the lowest free slot.
func (t *Table) Dup(fd int) (int, error) {
	k, err := t.Get(fd)
	if err != nil {
		return -1, err
	}

	newfd, err := t.free()
	if err != nil {
		return -1, err
	}
	t.entries[newfd] = k.AddRef()
	return newfd, nil
}

// DupTo makes dst an alias of src, closing dst first if it was open.
// Duplicating a slot onto itself is a no-op.
func (t *Table) DupTo(src, dst int) (int, error) {
	k, err := t.Get(src)
	if err != nil {
		return -1, err
	}
	if !t.valid(dst) {
		return -1, EBADF
	}
	if src == dst {
		return dst, nil
	}

	// AddRef before dropping dst so a dst that already aliases k never
	// reaches zero in between
	alias := k.AddRef()
	if old := t.entries[dst]; old != nil {
		old.Close()
	}
	t.entries[dst] = alias
	return dst, nil
}

// Copy installs an independent duplicate of fd's handle: it shares the
// resource but starts at offset 0 with its own tag.
func (t *Table) Copy(fd int) (int, error) {
	k, err := t.Get(fd)
	if err != nil {
		return -1, err
	}

	newfd, err := t.free()
	if err != nil {
		return -1, err
	}

	dup := k.Copy()
	if dup == nil {
		return -1, EBADF
	}
	t.entries[newfd] = dup
	return newfd, nil
}

// Close clears slot fd and drops its alias.
func (t *Table) Close(fd int) error {
	k, err := t.Get(fd)
	if err != nil {
		return err
	}
	t.entries[fd] = nil
	k.Close()
	return nil
}

// CloseAll clears every slot.
func (t *Table) CloseAll() {
	for fd, k := range t.entries {
		if k != nil {
			t.entries[fd] = nil
			k.Close()
		}
	}
}

// FindTag returns the lowest slot whose handle carries tag.
func (t *Table) FindTag(tag string) (int, bool) {
	for fd, k := range t.entries {
		if k == nil {
			continue
		}
		if got, ok := k.Tag(); ok && got == tag {
			return fd, true
		}
	}
	return -1, false
}

func (t *Table) valid(fd int) bool {
	return fd >= 0 && fd < len(t.entries)
}
