// Package console implements text consoles bound to windows.
package console

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/marmos91/kobject/pkg/kobject"
)

// Glyph cell size in pixels.
const (
	CellWidth  = 8
	CellHeight = 8
)

// MaxInput bounds the posted-but-unread input.
const MaxInput = 1024

// ErrWindowTooSmall is returned when a window cannot hold one cell.
var ErrWindowTooSmall = errors.New("window too small for a console")

// Binder creates consoles on windows.
type Binder struct{}

var _ kobject.ConsoleBinder = Binder{}

// CreateConsole binds a console to w and takes a reference on it.
func (Binder) CreateConsole(w kobject.Window) (kobject.Console, error) {
	return New(w)
}

// Console is a character grid rendered into a window, with an input queue
// fed by Post.
type Console struct {
	window     kobject.Window
	cols, rows int

	grid   [][]byte
	curX   int
	curY   int
	input  []byte
	closed bool

	mu   sync.Mutex
	cond *sync.Cond
	refs atomic.Int32
}

var _ kobject.Console = (*Console)(nil)

// New creates a console sized to w. The caller owns the returned reference.
func New(w kobject.Window) (*Console, error) {
	cols, rows := w.Width()/CellWidth, w.Height()/CellHeight
	if cols == 0 || rows == 0 {
		return nil, fmt.Errorf("%dx%d: %w", w.Width(), w.Height(), ErrWindowTooSmall)
	}

	c := &Console{window: w, cols: cols, rows: rows}
	c.grid = make([][]byte, rows)
	for i := range c.grid {
		c.grid[i] = blankLine(cols)
	}
	c.cond = sync.NewCond(&c.mu)
	c.refs.Store(1)

	w.AddRef()
	return c, nil
}

func blankLine(cols int) []byte {
	return []byte(strings.Repeat(" ", cols))
}

func (c *Console) Size() (cols, rows int) {
	return c.cols, c.rows
}

func (c *Console) AddRef() {
	c.refs.Add(1)
}

// Release drops a reference. The last release wakes blocked readers and
// releases the window.
func (c *Console) Release() {
	if c.refs.Add(-1) != 0 {
		return
	}

	c.mu.Lock()
	c.closed = true
	c.cond.Broadcast()
	c.mu.Unlock()

	c.window.Release()
}

// Write renders text into the grid and mirrors it to the window's graphics
// stream. Newline moves to the next row, carriage return to column 0 and
// backspace erases the previous cell; the grid scrolls at the bottom.
func (c *Console) Write(buf []byte) (int, error) {
	c.mu.Lock()
	for _, ch := range buf {
		c.put(ch)
	}
	c.mu.Unlock()

	if _, err := c.window.WriteGraphics(buf); err != nil {
		return 0, err
	}
	return len(buf), nil
}

// put renders one byte. Caller holds mu.
func (c *Console) put(ch byte) {
	switch ch {
	case '\n':
		c.curX = 0
		c.newline()
	case '\r':
		c.curX = 0
	case '\b':
		if c.curX > 0 {
			c.curX--
			c.grid[c.curY][c.curX] = ' '
		}
	case '\t':
		c.put(' ')
		for c.curX%4 != 0 {
			c.put(' ')
		}
	default:
		if ch < ' ' {
			return
		}
		c.grid[c.curY][c.curX] = ch
		c.curX++
		if c.curX == c.cols {
			c.curX = 0
			c.newline()
		}
	}
}

func (c *Console) newline() {
	if c.curY < c.rows-1 {
		c.curY++
		return
	}
	copy(c.grid, c.grid[1:])
	c.grid[c.rows-1] = blankLine(c.cols)
}

// Post appends typed input for readers and returns the bytes accepted.
func (c *Console) Post(buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := min(len(buf), MaxInput-len(c.input))
	if n <= 0 {
		return 0, nil
	}
	c.input = append(c.input, buf[:n]...)
	c.cond.Broadcast()
	return n, nil
}

// Read blocks until input is available.
func (c *Console) Read(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for len(c.input) == 0 && !c.closed {
		c.cond.Wait()
	}
	return c.take(buf), nil
}

func (c *Console) ReadNonBlock(buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.take(buf), nil
}

func (c *Console) take(buf []byte) int {
	n := copy(buf, c.input)
	c.input = c.input[n:]
	return n
}

// Lines returns the grid with trailing spaces trimmed.
func (c *Console) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := make([]string, c.rows)
	for i, row := range c.grid {
		lines[i] = strings.TrimRight(string(row), " ")
	}
	return lines
}

// Cursor returns the current column and row.
func (c *Console) Cursor() (col, row int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.curX, c.curY
}
