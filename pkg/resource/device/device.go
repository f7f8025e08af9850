// Package device implements block devices for Device kobjects.
package device

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/marmos91/kobject/internal/logger"
	"github.com/marmos91/kobject/pkg/kobject"
)

var (
	// ErrReadOnly is returned by writes to a read-only device.
	ErrReadOnly = errors.New("device is read-only")

	// ErrOutOfRange is returned when the start block is past the device end.
	ErrOutOfRange = errors.New("block out of range")
)

// Backing is the storage under a block device.
type Backing interface {
	io.ReaderAt
	io.WriterAt
}

// BlockDevice is a fixed-geometry device over a Backing.
//
// Transfers are clamped to the device end and to the whole blocks that fit in
// the caller's buffer. Releasing the last reference closes the backing if it
// implements io.Closer.
type BlockDevice struct {
	name       string
	backing    Backing
	blockSize  int
	blockCount int
	readOnly   bool

	refs atomic.Int32
	mu   sync.Mutex
}

var _ kobject.Device = (*BlockDevice)(nil)

// New wraps backing as a device. The caller owns the returned reference.
func New(name string, backing Backing, blockSize, blockCount int, readOnly bool) (*BlockDevice, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("device %s: block size must be positive, got %d", name, blockSize)
	}
	if blockCount < 0 {
		return nil, fmt.Errorf("device %s: negative block count %d", name, blockCount)
	}

	d := &BlockDevice{
		name:       name,
		backing:    backing,
		blockSize:  blockSize,
		blockCount: blockCount,
		readOnly:   readOnly,
	}
	d.refs.Store(1)
	return d, nil
}

// NewRamdisk creates a zero-filled in-memory device.
func NewRamdisk(name string, blockSize, blockCount int) (*BlockDevice, error) {
	if blockSize <= 0 || blockCount < 0 {
		return nil, fmt.Errorf("ramdisk %s: invalid geometry %dx%d", name, blockCount, blockSize)
	}
	return New(name, &memBacking{data: make([]byte, blockSize*blockCount)}, blockSize, blockCount, false)
}

// OpenImage opens a disk image file. The block count is the file size divided
// by blockSize; a trailing partial block is not addressable.
func OpenImage(name, path string, blockSize int, readOnly bool) (*BlockDevice, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("image %s: block size must be positive, got %d", name, blockSize)
	}

	flags := os.O_RDWR
	if readOnly {
		flags = os.O_RDONLY
	}

	f, err := os.OpenFile(path, flags, 0)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat image %s: %w", path, err)
	}

	return New(name, f, blockSize, int(info.Size()/int64(blockSize)), readOnly)
}

func (d *BlockDevice) Name() string    { return d.name }
func (d *BlockDevice) BlockSize() int  { return d.blockSize }
func (d *BlockDevice) BlockCount() int { return d.blockCount }
func (d *BlockDevice) ReadOnly() bool  { return d.readOnly }

func (d *BlockDevice) AddRef() {
	d.refs.Add(1)
}

func (d *BlockDevice) Release() {
	if d.refs.Add(-1) != 0 {
		return
	}

	if c, ok := d.backing.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Warn("device %s: close backing: %v", d.name, err)
		}
	}
	logger.Debug("device %s released", d.name)
}

// Read reads up to blocks blocks starting at block start.
func (d *BlockDevice) Read(buf []byte, blocks, start int) (int, error) {
	off, length, err := d.span(len(buf), blocks, start)
	if err != nil || length == 0 {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.backing.ReadAt(buf[:length], off)
	if errors.Is(err, io.EOF) {
		err = nil
	}
	return n, err
}

// ReadNonBlock is Read; block transfers never wait on other parties.
func (d *BlockDevice) ReadNonBlock(buf []byte, blocks, start int) (int, error) {
	return d.Read(buf, blocks, start)
}

// Write writes up to blocks blocks starting at block start.
func (d *BlockDevice) Write(buf []byte, blocks, start int) (int, error) {
	if d.readOnly {
		return 0, fmt.Errorf("device %s: %w", d.name, ErrReadOnly)
	}

	off, length, err := d.span(len(buf), blocks, start)
	if err != nil || length == 0 {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	return d.backing.WriteAt(buf[:length], off)
}

// span converts a block request into a byte offset and length.
func (d *BlockDevice) span(bufLen, blocks, start int) (int64, int, error) {
	if start < 0 || start > d.blockCount {
		return 0, 0, fmt.Errorf("device %s: start %d: %w", d.name, start, ErrOutOfRange)
	}
	if blocks < 0 {
		blocks = 0
	}

	if fit := bufLen / d.blockSize; blocks > fit {
		blocks = fit
	}
	if left := d.blockCount - start; blocks > left {
		blocks = left
	}

	return int64(start) * int64(d.blockSize), blocks * d.blockSize, nil
}

// memBacking is a fixed-size byte slice device.
type memBacking struct {
	data []byte
}

func (m *memBacking) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memBacking) WriteAt(p []byte, off int64) (int, error) {
	if off+int64(len(p)) > int64(len(m.data)) {
		return 0, io.ErrShortWrite
	}
	return copy(m.data[off:], p), nil
}
