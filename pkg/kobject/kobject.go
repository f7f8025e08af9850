package kobject

import (
	"github.com/marmos91/kobject/internal/logger"
	"github.com/marmos91/kobject/pkg/metrics"
)

// Kobject is a reference-counted handle to one kernel resource.
//
// The zero value is not usable; handles are created by the per-kind
// constructors (NewFile, NewDirectory, NewDevice, NewWindow, NewConsole,
// NewPipe) or derived from an existing handle (Copy, Lookup, CreateFile,
// CreateDir, CreateWindow, CreateConsole).
//
// A Kobject is a (resource, offset, tag) triple shared by all its aliases.
// AddRef creates an alias of the same value, Copy creates an independent
// value over the same resource.
type Kobject struct {
	// kind is fixed at creation and survives destruction for error reporting
	kind Kind

	// res is the backend payload; nil once the handle is destroyed
	res resource

	// refcount counts live aliases of this exact value
	refcount int

	// offset is the byte cursor advanced by Read and by File writes
	offset int64

	// tag is the optional user label
	tag *string

	metrics metrics.KobjectMetrics
}

// Option configures a newly created Kobject.
type Option func(*Kobject)

// WithMetrics attaches a metrics sink to the handle. Handles derived from it
// inherit the same sink.
func WithMetrics(m metrics.KobjectMetrics) Option {
	return func(k *Kobject) {
		if m != nil {
			k.metrics = m
		}
	}
}

func newKobject(res resource, opts []Option) *Kobject {
	k := &Kobject{
		kind:     res.kind(),
		res:      res,
		refcount: 1,
		metrics:  metrics.NewNoopKobjectMetrics(),
	}
	for _, opt := range opts {
		opt(k)
	}

	k.metrics.RecordCreated(k.kind.String())
	logger.Debug("kobject: created %s handle", k.kind)
	return k
}

// derive creates a handle that inherits the parent's metrics sink.
func (k *Kobject) derive(res resource) *Kobject {
	return newKobject(res, []Option{WithMetrics(k.metrics)})
}

// NewFile wraps a regular-file Dirent. The handle takes ownership of the
// caller's reference on d.
func NewFile(d Dirent, opts ...Option) *Kobject {
	return newKobject(fileResource{dirent: d}, opts)
}

// NewDirectory wraps a directory Dirent. The handle takes ownership of the
// caller's reference on d.
func NewDirectory(d Dirent, opts ...Option) *Kobject {
	return newKobject(dirResource{dirent: d}, opts)
}

// NewDevice wraps a block device.
func NewDevice(d Device, opts ...Option) *Kobject {
	return newKobject(deviceResource{device: d}, opts)
}

// NewWindow wraps a window.
func NewWindow(w Window, opts ...Option) *Kobject {
	return newKobject(windowResource{window: w}, opts)
}

// NewConsole wraps a console.
func NewConsole(c Console, opts ...Option) *Kobject {
	return newKobject(consoleResource{console: c}, opts)
}

// NewPipe wraps a pipe.
func NewPipe(p Pipe, opts ...Option) *Kobject {
	return newKobject(pipeResource{pipe: p}, opts)
}

// AddRef registers a new alias of k and returns k itself.
//
// Aliases share the offset and the tag. Each alias must eventually be
// balanced by one Close.
func (k *Kobject) AddRef() *Kobject {
	if k.destroyed() {
		logger.Warn("kobject: addref on destroyed %s handle", k.kind)
		return k
	}
	k.refcount++
	return k
}

// Copy returns an independent handle over the same resource.
//
// The duplicate starts with one alias, offset 0 and its own copy of the tag.
// The resource is shared by taking a new resource-level reference, so closing
// either handle never affects the other. Copy returns nil only when k has
// already been destroyed.
func (k *Kobject) Copy() *Kobject {
	if k.destroyed() {
		logger.Warn("kobject: copy of destroyed %s handle", k.kind)
		return nil
	}

	k.res.addRef()
	dup := k.derive(k.res)
	if k.tag != nil {
		tag := *k.tag
		dup.tag = &tag
	}
	return dup
}

// Close drops one alias of k.
//
// When the last alias goes away the resource is released exactly once and the
// handle becomes invalid. When aliases remain on a Pipe handle the pipe is
// flushed so readers see data written through the closing alias.
func (k *Kobject) Close() {
	if k.destroyed() {
		logger.Warn("kobject: close of destroyed %s handle", k.kind)
		return
	}

	k.refcount--
	if k.refcount == 0 {
		k.res.release()
		k.res = nil
		k.tag = nil
		k.metrics.RecordDestroyed(k.kind.String())
		logger.Debug("kobject: destroyed %s handle", k.kind)
		return
	}

	if p, ok := k.res.(pipeResource); ok {
		p.pipe.Flush()
	}
}

// Refcount returns the number of live aliases.
func (k *Kobject) Refcount() int {
	return k.refcount
}

// Offset returns the current byte cursor.
func (k *Kobject) Offset() int64 {
	return k.offset
}

func (k *Kobject) destroyed() bool {
	return k.res == nil
}

// check rejects operations on a destroyed handle.
func (k *Kobject) check(op string) error {
	if k.destroyed() {
		return k.fail(InvalidRequest, op, errDestroyed)
	}
	return nil
}

// fail builds the error for a rejected operation and records it.
func (k *Kobject) fail(code ErrorCode, op string, err error) error {
	kerr := newError(code, op, k.kind, err)
	k.metrics.RecordOperation(op, k.kind.String(), kerr)
	return kerr
}

// done records the outcome of a dispatched operation.
func (k *Kobject) done(op string, err error) {
	k.metrics.RecordOperation(op, k.kind.String(), err)
}
