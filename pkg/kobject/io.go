package kobject

// IOFlags select the backend path of Read and Write.
type IOFlags uint32

const (
	// IONonBlock selects the non-blocking backend variant
	IONonBlock IOFlags = 1 << iota

	// IOPost injects synthetic input (window events, console characters)
	// instead of writing output
	IOPost
)

func (f IOFlags) nonBlock() bool { return f&IONonBlock != 0 }
func (f IOFlags) post() bool     { return f&IOPost != 0 }

// Read transfers up to len(buf) bytes from the resource into buf.
//
// Per-kind behavior:
//   - File: reads at the handle offset
//   - Directory: always InvalidRequest (use List)
//   - Device: reads len(buf)/BlockSize whole blocks starting at block 0
//   - Pipe, Window (events), Console: IONonBlock selects the non-blocking path
//
// Whenever the backend transfers a positive count, the offset advances by
// that count, for every kind. Backend errors are returned unchanged.
func (k *Kobject) Read(buf []byte, flags IOFlags) (int, error) {
	const op = "read"
	if err := k.check(op); err != nil {
		return 0, err
	}

	var (
		n   int
		err error
	)

	switch r := k.res.(type) {
	case fileResource:
		n, err = r.dirent.Read(buf, k.offset)
	case dirResource:
		return 0, k.fail(InvalidRequest, op, nil)
	case deviceResource:
		blocks, berr := k.blocks(op, r.device, len(buf))
		if berr != nil {
			return 0, berr
		}
		if flags.nonBlock() {
			n, err = r.device.ReadNonBlock(buf, blocks, 0)
		} else {
			n, err = r.device.Read(buf, blocks, 0)
		}
	case pipeResource:
		if flags.nonBlock() {
			n, err = r.pipe.ReadNonBlock(buf)
		} else {
			n, err = r.pipe.Read(buf)
		}
	case windowResource:
		if flags.nonBlock() {
			n, err = r.window.ReadEventsNonBlock(buf)
		} else {
			n, err = r.window.ReadEvents(buf)
		}
	case consoleResource:
		if flags.nonBlock() {
			n, err = r.console.ReadNonBlock(buf)
		} else {
			n, err = r.console.Read(buf)
		}
	default:
		return 0, k.fail(NotImplemented, op, nil)
	}

	if n > 0 {
		k.offset += int64(n)
		k.metrics.RecordBytes(op, k.kind.String(), n)
	}
	k.done(op, err)
	return n, err
}

// Write transfers buf to the resource.
//
// Per-kind behavior:
//   - Window: IOPost injects input events, otherwise buf is graphics content
//   - Console: IOPost injects typed characters, otherwise buf is display text
//   - File: writes at the handle offset and advances it
//   - Device: writes len(buf)/BlockSize whole blocks at block 0
//   - Pipe: IONonBlock selects the non-blocking path
//   - Directory: writes nothing and reports no error
func (k *Kobject) Write(buf []byte, flags IOFlags) (int, error) {
	const op = "write"
	if err := k.check(op); err != nil {
		return 0, err
	}

	var (
		n   int
		err error
	)

	switch r := k.res.(type) {
	case windowResource:
		if flags.post() {
			n, err = r.window.PostEvents(buf)
		} else {
			n, err = r.window.WriteGraphics(buf)
		}
	case consoleResource:
		if flags.post() {
			n, err = r.console.Post(buf)
		} else {
			n, err = r.console.Write(buf)
		}
	case fileResource:
		n, err = r.dirent.Write(buf, k.offset)
		if n > 0 {
			k.offset += int64(n)
		}
	case deviceResource:
		blocks, berr := k.blocks(op, r.device, len(buf))
		if berr != nil {
			return 0, berr
		}
		n, err = r.device.Write(buf, blocks, 0)
	case pipeResource:
		if flags.nonBlock() {
			n, err = r.pipe.WriteNonBlock(buf)
		} else {
			n, err = r.pipe.Write(buf)
		}
	case dirResource:
		n, err = 0, nil
	default:
		return 0, k.fail(NotImplemented, op, nil)
	}

	if n > 0 {
		k.metrics.RecordBytes(op, k.kind.String(), n)
	}
	k.done(op, err)
	return n, err
}

// blocks converts a byte count into whole device blocks.
func (k *Kobject) blocks(op string, d Device, size int) (int, error) {
	bs := d.BlockSize()
	if bs <= 0 {
		return 0, k.fail(InvalidRequest, op, nil)
	}
	return size / bs, nil
}
