package kobject

// Kind returns the resource category of the handle. It never fails, even on
// a destroyed handle.
func (k *Kobject) Kind() Kind {
	return k.kind
}

// Size fills dims with the kind-specific dimensions of the resource.
//
// len(dims) must match the kind's dimensionality:
//
//	Window               2  [width, height]
//	Console              2  [columns, rows]
//	File, Directory, Pipe 1  [byteLength]
//	Device               2  [blockCount, blockSize]
//
// Any other length fails with InvalidRequest and leaves dims untouched.
func (k *Kobject) Size(dims []int) error {
	const op = "size"
	if err := k.check(op); err != nil {
		return err
	}
	if len(dims) != k.kind.Dimensions() {
		return k.fail(InvalidRequest, op, nil)
	}

	switch r := k.res.(type) {
	case windowResource:
		dims[0] = r.window.Width()
		dims[1] = r.window.Height()
	case consoleResource:
		dims[0], dims[1] = r.console.Size()
	case fileResource:
		dims[0] = int(r.dirent.Size())
	case dirResource:
		dims[0] = int(r.dirent.Size())
	case deviceResource:
		dims[0] = r.device.BlockCount()
		dims[1] = r.device.BlockSize()
	case pipeResource:
		dims[0] = r.pipe.Size()
	default:
		return k.fail(InvalidRequest, op, nil)
	}

	k.done(op, nil)
	return nil
}

// SetTag replaces the handle's label. The label is shared by all aliases of
// the handle but not by copies.
func (k *Kobject) SetTag(tag string) error {
	if err := k.check("set_tag"); err != nil {
		return err
	}
	k.tag = &tag
	return nil
}

// Tag returns the handle's label and whether one is set.
func (k *Kobject) Tag() (string, bool) {
	if k.tag == nil {
		return "", false
	}
	return *k.tag, true
}

// GetTag copies the label into buf followed by a NUL terminator.
//
// At most len(buf)-1 label bytes are copied so the terminator always fits.
// Returns the full label length and true, or 0 and false if no label is set.
// An empty buf is left untouched, so it can be used to size the label.
func (k *Kobject) GetTag(buf []byte) (int, bool) {
	if k.tag == nil {
		return 0, false
	}
	if len(buf) == 0 {
		return len(*k.tag), true
	}

	n := copy(buf[:len(buf)-1], *k.tag)
	buf[n] = 0
	return len(*k.tag), true
}
