// Package window implements compositor windows for Window kobjects.
//
// A display owns a root window covering the screen. Children are placed
// relative to their parent and must lie inside it. Each window has an event
// queue (input read by the owning process) and a graphics command log
// (output consumed by an optional Renderer).
package window

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/marmos91/kobject/internal/logger"
	"github.com/marmos91/kobject/pkg/kobject"
)

const (
	// MaxQueuedEvents bounds each window's event queue.
	MaxQueuedEvents = 256

	// MaxGraphicsLog bounds the retained graphics commands per window.
	MaxGraphicsLog = 128
)

var (
	// ErrOutOfBounds is returned when a rectangle does not fit its parent.
	ErrOutOfBounds = errors.New("window outside parent bounds")

	// ErrRootWindow is returned when moving the root window.
	ErrRootWindow = errors.New("root window cannot move")

	// ErrShortBuffer is returned when a read buffer cannot hold one event.
	ErrShortBuffer = errors.New("buffer smaller than one event")
)

// Renderer receives graphics commands as windows write them.
type Renderer interface {
	Render(w *Window, cmd []byte)
}

// Window is a rectangle on the display.
type Window struct {
	parent   *Window
	renderer Renderer

	x, y          int
	width, height int

	events   []Event
	graphics [][]byte
	closed   bool

	mu   sync.Mutex
	cond *sync.Cond
	refs atomic.Int32
}

var _ kobject.Window = (*Window)(nil)

// NewRoot creates the root window of a display. The caller owns the returned
// reference.
func NewRoot(width, height int, renderer Renderer) (*Window, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid display size %dx%d", width, height)
	}
	return newWindow(nil, renderer, 0, 0, width, height), nil
}

func newWindow(parent *Window, renderer Renderer, x, y, width, height int) *Window {
	w := &Window{
		parent:   parent,
		renderer: renderer,
		x:        x,
		y:        y,
		width:    width,
		height:   height,
	}
	w.cond = sync.NewCond(&w.mu)
	w.refs.Store(1)
	return w
}

// CreateChild creates a window at (x, y) relative to w. The child holds a
// reference on w until it is released.
func (w *Window) CreateChild(x, y, width, height int) (kobject.Window, error) {
	if !w.fits(x, y, width, height) {
		return nil, fmt.Errorf("child %dx%d+%d+%d in %dx%d: %w",
			width, height, x, y, w.width, w.height, ErrOutOfBounds)
	}

	w.AddRef()
	child := newWindow(w, w.renderer, x, y, width, height)
	logger.Debug("window created %dx%d at (%d,%d)", width, height, x, y)
	return child, nil
}

func (w *Window) fits(x, y, width, height int) bool {
	return x >= 0 && y >= 0 && width > 0 && height > 0 &&
		x+width <= w.width && y+height <= w.height
}

// Move repositions w inside its parent.
func (w *Window) Move(x, y int) error {
	if w.parent == nil {
		return ErrRootWindow
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.parent.fits(x, y, w.width, w.height) {
		return fmt.Errorf("move to (%d,%d): %w", x, y, ErrOutOfBounds)
	}
	w.x, w.y = x, y
	return nil
}

// Position returns the window's origin relative to its parent.
func (w *Window) Position() (x, y int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.x, w.y
}

// Origin returns the window's origin in display coordinates.
func (w *Window) Origin() (x, y int) {
	for cur := w; cur != nil; cur = cur.parent {
		cx, cy := cur.Position()
		x += cx
		y += cy
	}
	return x, y
}

func (w *Window) Width() int  { return w.width }
func (w *Window) Height() int { return w.height }

func (w *Window) AddRef() {
	w.refs.Add(1)
}

// Release drops a reference. The last release wakes blocked readers and
// releases the parent.
func (w *Window) Release() {
	if w.refs.Add(-1) != 0 {
		return
	}

	w.mu.Lock()
	w.closed = true
	w.cond.Broadcast()
	w.mu.Unlock()

	if w.parent != nil {
		w.parent.Release()
	}
}

// ReadEvents blocks until at least one event is queued, then returns as many
// whole records as fit in buf.
func (w *Window) ReadEvents(buf []byte) (int, error) {
	if len(buf) < EventSize {
		return 0, ErrShortBuffer
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for len(w.events) == 0 && !w.closed {
		w.cond.Wait()
	}
	return w.drain(buf)
}

// ReadEventsNonBlock returns queued events without waiting; 0 if none.
func (w *Window) ReadEventsNonBlock(buf []byte) (int, error) {
	if len(buf) < EventSize {
		return 0, ErrShortBuffer
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.drain(buf)
}

// drain encodes queued events into buf. Caller holds mu.
func (w *Window) drain(buf []byte) (int, error) {
	count := min(len(buf)/EventSize, len(w.events))
	if count == 0 {
		return 0, nil
	}

	data, err := EncodeEvents(w.events[:count]...)
	if err != nil {
		return 0, err
	}
	w.events = w.events[count:]
	return copy(buf, data), nil
}

// PostEvents enqueues the whole records in buf and returns the bytes
// consumed. Records beyond the queue limit are dropped.
func (w *Window) PostEvents(buf []byte) (int, error) {
	events, err := DecodeEvents(buf)
	if err != nil {
		return 0, err
	}
	return w.Post(events...) * EventSize, nil
}

// Post enqueues events and returns how many were accepted.
func (w *Window) Post(events ...Event) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	accepted := min(len(events), MaxQueuedEvents-len(w.events))
	if accepted < len(events) {
		logger.Warn("window event queue full, dropped %d events", len(events)-accepted)
	}
	if accepted <= 0 {
		return 0
	}

	w.events = append(w.events, events[:accepted]...)
	w.cond.Broadcast()
	return accepted
}

// WriteGraphics records a graphics command and hands it to the renderer.
func (w *Window) WriteGraphics(buf []byte) (int, error) {
	cmd := append([]byte(nil), buf...)

	w.mu.Lock()
	if len(w.graphics) == MaxGraphicsLog {
		w.graphics = w.graphics[1:]
	}
	w.graphics = append(w.graphics, cmd)
	w.mu.Unlock()

	if w.renderer != nil {
		w.renderer.Render(w, cmd)
	}
	return len(buf), nil
}

// Graphics returns the retained graphics commands, oldest first.
func (w *Window) Graphics() [][]byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([][]byte(nil), w.graphics...)
}
