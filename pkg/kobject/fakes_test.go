package kobject

import (
	"errors"
	"sort"
	"strings"
)

// recorder tracks backend calls and resource-level reference counts.
type recorder struct {
	calls    []string
	refs     int
	releases int
}

func (r *recorder) call(name string) { r.calls = append(r.calls, name) }
func (r *recorder) AddRef()          { r.call("addref"); r.refs++ }
func (r *recorder) Release()         { r.call("release"); r.refs--; r.releases++ }

type fakeDirent struct {
	recorder
	dir      bool
	data     []byte
	children map[string]*fakeDirent
	refuse   bool
}

func newFakeFile(content string) *fakeDirent {
	return &fakeDirent{recorder: recorder{refs: 1}, data: []byte(content)}
}

func newFakeDir() *fakeDirent {
	return &fakeDirent{recorder: recorder{refs: 1}, dir: true, children: map[string]*fakeDirent{}}
}

func (d *fakeDirent) Read(buf []byte, offset int64) (int, error) {
	d.call("read")
	if offset >= int64(len(d.data)) {
		return 0, nil
	}
	return copy(buf, d.data[offset:]), nil
}

func (d *fakeDirent) Write(buf []byte, offset int64) (int, error) {
	d.call("write")
	end := int(offset) + len(buf)
	if end > len(d.data) {
		grown := make([]byte, end)
		copy(grown, d.data)
		d.data = grown
	}
	return copy(d.data[offset:], buf), nil
}

func (d *fakeDirent) Size() int64 { d.call("size"); return int64(len(d.data)) }

func (d *fakeDirent) List(buf []byte) (int, error) {
	d.call("list")
	names := make([]string, 0, len(d.children))
	for name := range d.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return copy(buf, strings.Join(names, "\n")), nil
}

func (d *fakeDirent) Traverse(name string) (Dirent, error) {
	d.call("traverse")
	child, ok := d.children[name]
	if !ok {
		return nil, nil
	}
	child.refs++
	return child, nil
}

func (d *fakeDirent) IsDir() bool { return d.dir }

func (d *fakeDirent) make(name string, dir bool) (Dirent, error) {
	if d.refuse {
		return nil, errors.New("no space")
	}
	if _, exists := d.children[name]; exists {
		return nil, errors.New("exists")
	}
	child := newFakeFile("")
	if dir {
		child = newFakeDir()
	}
	d.children[name] = child
	return child, nil
}

func (d *fakeDirent) MakeFile(name string) (Dirent, error) { d.call("mkfile"); return d.make(name, false) }
func (d *fakeDirent) MakeDir(name string) (Dirent, error)  { d.call("mkdir"); return d.make(name, true) }

func (d *fakeDirent) Remove(name string) error {
	d.call("remove")
	if _, ok := d.children[name]; !ok {
		return errors.New("missing")
	}
	delete(d.children, name)
	return nil
}

type fakeDevice struct {
	recorder
	blockSize int
	data      []byte
	lastStart int
	lastCount int
	nonblock  bool
}

func newFakeDevice(blockSize, blockCount int) *fakeDevice {
	return &fakeDevice{recorder: recorder{refs: 1}, blockSize: blockSize, data: make([]byte, blockSize*blockCount)}
}

func (d *fakeDevice) transfer(buf []byte, blocks, start int, write bool) int {
	d.lastStart, d.lastCount = start, blocks
	n := blocks * d.blockSize
	off := start * d.blockSize
	if write {
		return copy(d.data[off:off+n], buf[:n])
	}
	return copy(buf[:n], d.data[off:off+n])
}

func (d *fakeDevice) Read(buf []byte, blocks, start int) (int, error) {
	d.call("read")
	d.nonblock = false
	return d.transfer(buf, blocks, start, false), nil
}

func (d *fakeDevice) ReadNonBlock(buf []byte, blocks, start int) (int, error) {
	d.call("read_nonblock")
	d.nonblock = true
	return d.transfer(buf, blocks, start, false), nil
}

func (d *fakeDevice) Write(buf []byte, blocks, start int) (int, error) {
	d.call("write")
	return d.transfer(buf, blocks, start, true), nil
}

func (d *fakeDevice) BlockSize() int  { return d.blockSize }
func (d *fakeDevice) BlockCount() int { return len(d.data) / d.blockSize }

type fakeWindow struct {
	recorder
	width, height int
	x, y          int
	events        []byte
	graphics      []byte
	refuse        bool
}

func newFakeWindow(width, height int) *fakeWindow {
	return &fakeWindow{recorder: recorder{refs: 1}, width: width, height: height}
}

func (w *fakeWindow) CreateChild(x, y, width, height int) (Window, error) {
	w.call("create_child")
	if w.refuse || x+width > w.width || y+height > w.height {
		return nil, errors.New("out of bounds")
	}
	child := newFakeWindow(width, height)
	child.x, child.y = x, y
	return child, nil
}

func (w *fakeWindow) Move(x, y int) error { w.call("move"); w.x, w.y = x, y; return nil }

func (w *fakeWindow) ReadEvents(buf []byte) (int, error) {
	w.call("read_events")
	n := copy(buf, w.events)
	w.events = w.events[n:]
	return n, nil
}

func (w *fakeWindow) ReadEventsNonBlock(buf []byte) (int, error) {
	w.call("read_events_nonblock")
	n := copy(buf, w.events)
	w.events = w.events[n:]
	return n, nil
}

func (w *fakeWindow) WriteGraphics(buf []byte) (int, error) {
	w.call("write_graphics")
	w.graphics = append(w.graphics, buf...)
	return len(buf), nil
}

func (w *fakeWindow) PostEvents(buf []byte) (int, error) {
	w.call("post_events")
	w.events = append(w.events, buf...)
	return len(buf), nil
}

func (w *fakeWindow) Width() int  { return w.width }
func (w *fakeWindow) Height() int { return w.height }

type fakeConsole struct {
	recorder
	window *fakeWindow
	input  []byte
	output []byte
}

func (c *fakeConsole) Read(buf []byte) (int, error) {
	c.call("read")
	n := copy(buf, c.input)
	c.input = c.input[n:]
	return n, nil
}

func (c *fakeConsole) ReadNonBlock(buf []byte) (int, error) {
	c.call("read_nonblock")
	n := copy(buf, c.input)
	c.input = c.input[n:]
	return n, nil
}

func (c *fakeConsole) Write(buf []byte) (int, error) {
	c.call("write")
	c.output = append(c.output, buf...)
	return len(buf), nil
}

func (c *fakeConsole) Post(buf []byte) (int, error) {
	c.call("post")
	c.input = append(c.input, buf...)
	return len(buf), nil
}

func (c *fakeConsole) Size() (int, int) { return c.window.width / 8, c.window.height / 8 }

type fakeBinder struct{ refuse bool }

func (b fakeBinder) CreateConsole(w Window) (Console, error) {
	if b.refuse {
		return nil, errors.New("no console")
	}
	return &fakeConsole{recorder: recorder{refs: 1}, window: w.(*fakeWindow)}, nil
}

type fakePipe struct {
	recorder
	buf     []byte
	flushes int
}

func newFakePipe() *fakePipe { return &fakePipe{recorder: recorder{refs: 1}} }

func (p *fakePipe) Read(buf []byte) (int, error) {
	p.call("read")
	n := copy(buf, p.buf)
	p.buf = p.buf[n:]
	return n, nil
}

func (p *fakePipe) ReadNonBlock(buf []byte) (int, error) {
	p.call("read_nonblock")
	n := copy(buf, p.buf)
	p.buf = p.buf[n:]
	return n, nil
}

func (p *fakePipe) Write(buf []byte) (int, error) {
	p.call("write")
	p.buf = append(p.buf, buf...)
	return len(buf), nil
}

func (p *fakePipe) WriteNonBlock(buf []byte) (int, error) {
	p.call("write_nonblock")
	p.buf = append(p.buf, buf...)
	return len(buf), nil
}

func (p *fakePipe) Size() int { return len(p.buf) }
func (p *fakePipe) Flush()    { p.call("flush"); p.flushes++ }

// fixture builds one handle of the given kind and exposes its backend recorder.
func fixture(kind Kind) (*Kobject, *recorder) {
	switch kind {
	case KindFile:
		f := newFakeFile("hello")
		return NewFile(f), &f.recorder
	case KindDirectory:
		d := newFakeDir()
		d.children["child"] = newFakeFile("x")
		return NewDirectory(d), &d.recorder
	case KindDevice:
		d := newFakeDevice(512, 4)
		return NewDevice(d), &d.recorder
	case KindWindow:
		w := newFakeWindow(640, 480)
		return NewWindow(w), &w.recorder
	case KindConsole:
		c := &fakeConsole{recorder: recorder{refs: 1}, window: newFakeWindow(640, 480)}
		return NewConsole(c), &c.recorder
	case KindPipe:
		p := newFakePipe()
		return NewPipe(p), &p.recorder
	}
	panic("unknown kind")
}
