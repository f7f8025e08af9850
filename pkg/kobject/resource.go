package kobject

// RefCounted is the lifetime contract every backend resource provides.
//
// The backend owns and counts its own lifetime. A Kobject calls AddRef when
// it starts sharing the resource (Copy) and Release exactly once when it is
// destroyed. Constructors take ownership of one reference the caller already
// holds.
type RefCounted interface {
	AddRef()
	Release()
}

// Dirent is a directory entry from the filesystem layer. It backs both File
// and Directory kobjects.
type Dirent interface {
	RefCounted

	// Read reads up to len(buf) bytes starting at offset.
	Read(buf []byte, offset int64) (int, error)

	// Write writes buf starting at offset.
	Write(buf []byte, offset int64) (int, error)

	// Size returns the length of the entry in bytes.
	Size() int64

	// List serializes the names of the directory's children into buf.
	List(buf []byte) (int, error)

	// Traverse resolves name under the directory. The returned Dirent carries
	// a reference owned by the caller. A nil Dirent means the name is absent.
	Traverse(name string) (Dirent, error)

	// IsDir reports whether the entry is a directory.
	IsDir() bool

	// MakeFile creates a regular file child and returns it referenced.
	MakeFile(name string) (Dirent, error)

	// MakeDir creates a directory child and returns it referenced.
	MakeDir(name string) (Dirent, error)

	// Remove deletes the named child.
	Remove(name string) error
}

// Device is a block-addressed device. Transfers are expressed in whole
// blocks and return the number of bytes moved.
type Device interface {
	RefCounted

	Read(buf []byte, blocks, start int) (int, error)
	ReadNonBlock(buf []byte, blocks, start int) (int, error)
	Write(buf []byte, blocks, start int) (int, error)
	BlockSize() int
	BlockCount() int
}

// Window is a compositor window. Reads return input events, writes carry
// graphics commands, and posts inject synthetic events into the queue.
type Window interface {
	RefCounted

	// CreateChild creates a window nested inside this one. The returned
	// window carries a reference owned by the caller.
	CreateChild(x, y, width, height int) (Window, error)
	Move(x, y int) error
	ReadEvents(buf []byte) (int, error)
	ReadEventsNonBlock(buf []byte) (int, error)
	WriteGraphics(buf []byte) (int, error)
	PostEvents(buf []byte) (int, error)
	Width() int
	Height() int
}

// Console is a text console. Writes render text, posts inject input
// characters as if typed.
type Console interface {
	RefCounted

	Read(buf []byte) (int, error)
	ReadNonBlock(buf []byte) (int, error)
	Write(buf []byte) (int, error)
	Post(buf []byte) (int, error)
	Size() (cols, rows int)
}

// ConsoleBinder is the console subsystem entry point that binds a new
// console to an existing window.
type ConsoleBinder interface {
	CreateConsole(w Window) (Console, error)
}

// Pipe is a byte-stream pipe.
type Pipe interface {
	RefCounted

	Read(buf []byte) (int, error)
	ReadNonBlock(buf []byte) (int, error)
	Write(buf []byte) (int, error)
	WriteNonBlock(buf []byte) (int, error)
	Size() int

	// Flush pushes buffered data to waiting readers.
	Flush()
}

// resource is the closed set of payloads a Kobject can carry. The unexported
// method keeps the set sealed to this package; every dispatch site switches
// over the six variants below.
type resource interface {
	kind() Kind
	addRef()
	release()
}

type fileResource struct{ dirent Dirent }
type dirResource struct{ dirent Dirent }
type deviceResource struct{ device Device }
type windowResource struct{ window Window }
type consoleResource struct{ console Console }
type pipeResource struct{ pipe Pipe }

func (fileResource) kind() Kind    { return KindFile }
func (dirResource) kind() Kind     { return KindDirectory }
func (deviceResource) kind() Kind  { return KindDevice }
func (windowResource) kind() Kind  { return KindWindow }
func (consoleResource) kind() Kind { return KindConsole }
func (pipeResource) kind() Kind    { return KindPipe }

func (r fileResource) addRef()    { r.dirent.AddRef() }
func (r dirResource) addRef()     { r.dirent.AddRef() }
func (r deviceResource) addRef()  { r.device.AddRef() }
func (r windowResource) addRef()  { r.window.AddRef() }
func (r consoleResource) addRef() { r.console.AddRef() }
func (r pipeResource) addRef()    { r.pipe.AddRef() }

func (r fileResource) release()    { r.dirent.Release() }
func (r dirResource) release()     { r.dirent.Release() }
func (r deviceResource) release()  { r.device.Release() }
func (r windowResource) release()  { r.window.Release() }
func (r consoleResource) release() { r.console.Release() }
func (r pipeResource) release()    { r.pipe.Release() }
