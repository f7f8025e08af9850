// Package pipe implements bounded byte-stream pipes for Pipe kobjects.
package pipe

import (
	"sync"
	"sync/atomic"

	"github.com/marmos91/kobject/internal/logger"
	"github.com/marmos91/kobject/pkg/kobject"
)

// DefaultCapacity is the buffer size used when New is given zero.
const DefaultCapacity = 4096

// Pipe is a ring buffer shared by readers and writers.
//
// A blocking Read waits until data is buffered or Flush is called. A blocking
// Write waits for space until all of buf is accepted. Releasing the last
// reference wakes every waiter, which then return what they transferred.
type Pipe struct {
	buf   []byte
	head  int // next byte to read
	count int // buffered bytes

	// flushes counts Flush calls so readers can tell a flush from a spurious wakeup
	flushes uint64
	closed  bool

	mu   sync.Mutex
	cond *sync.Cond
	refs atomic.Int32
}

var _ kobject.Pipe = (*Pipe)(nil)

// New creates a pipe holding at most capacity bytes. The caller owns the
// returned reference.
func New(capacity int) *Pipe {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	p := &Pipe{buf: make([]byte, capacity)}
	p.cond = sync.NewCond(&p.mu)
	p.refs.Store(1)
	return p
}

func (p *Pipe) AddRef() {
	p.refs.Add(1)
}

func (p *Pipe) Release() {
	if p.refs.Add(-1) != 0 {
		return
	}

	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()

	logger.Debug("pipe released with %d bytes unread", p.Size())
}

// Size returns the number of buffered bytes.
func (p *Pipe) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// Capacity returns the buffer size.
func (p *Pipe) Capacity() int {
	return len(p.buf)
}

// Flush wakes blocked readers so they return whatever is buffered.
func (p *Pipe) Flush() {
	p.mu.Lock()
	p.flushes++
	p.cond.Broadcast()
	p.mu.Unlock()
}

func (p *Pipe) Read(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	gen := p.flushes
	for p.count == 0 && p.flushes == gen && !p.closed {
		p.cond.Wait()
	}
	return p.take(buf), nil
}

func (p *Pipe) ReadNonBlock(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.take(buf), nil
}

func (p *Pipe) Write(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	written := 0
	for written < len(buf) {
		for p.count == len(p.buf) && !p.closed {
			p.cond.Wait()
		}
		if p.closed {
			break
		}
		written += p.put(buf[written:])
	}
	return written, nil
}

func (p *Pipe) WriteNonBlock(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.put(buf), nil
}

// take moves buffered bytes into dst. Caller holds mu.
func (p *Pipe) take(dst []byte) int {
	n := 0
	for n < len(dst) && p.count > 0 {
		chunk := min(len(dst)-n, p.count, len(p.buf)-p.head)
		copy(dst[n:], p.buf[p.head:p.head+chunk])
		p.head = (p.head + chunk) % len(p.buf)
		p.count -= chunk
		n += chunk
	}
	if n > 0 {
		p.cond.Broadcast()
	}
	return n
}

// put appends as much of src as fits. Caller holds mu.
func (p *Pipe) put(src []byte) int {
	n := 0
	for n < len(src) && p.count < len(p.buf) {
		tail := (p.head + p.count) % len(p.buf)
		chunk := min(len(src)-n, len(p.buf)-p.count, len(p.buf)-tail)
		copy(p.buf[tail:tail+chunk], src[n:])
		p.count += chunk
		n += chunk
	}
	if n > 0 {
		p.cond.Broadcast()
	}
	return n
}
