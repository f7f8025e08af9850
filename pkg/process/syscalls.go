package process

import (
	"context"
	"fmt"

	"github.com/marmos91/kobject/pkg/kobject"
	"github.com/marmos91/kobject/pkg/resource/pipe"
)

// ============================================================================
// Namespace
// ============================================================================

// OpenFile resolves path relative to the directory in dirfd and installs a
// handle for the entry, a Directory handle if the entry is one.
func (p *Process) OpenFile(dirfd int, path string) (int, error) {
	return p.call("open_file", func() (int, error) {
		return p.withHandle(dirfd, func(dir *kobject.Kobject) (int, error) {
			child, err := dir.Lookup(path)
			if err != nil {
				return -1, err
			}
			return p.install(child)
		})
	})
}

// OpenDir is OpenFile restricted to directories.
func (p *Process) OpenDir(dirfd int, path string) (int, error) {
	return p.call("open_dir", func() (int, error) {
		return p.withHandle(dirfd, func(dir *kobject.Kobject) (int, error) {
			child, err := dir.Lookup(path)
			if err != nil {
				return -1, err
			}
			if child.Kind() != kobject.KindDirectory {
				child.Close()
				return -1, fmt.Errorf("%s: %w", path, ENOTDIR)
			}
			return p.install(child)
		})
	})
}

// MakeFile creates a regular file under dirfd and installs a handle for it.
func (p *Process) MakeFile(dirfd int, name string) (int, error) {
	return p.call("make_file", func() (int, error) {
		return p.withHandle(dirfd, func(dir *kobject.Kobject) (int, error) {
			child, err := dir.CreateFile(name)
			if err != nil {
				return -1, err
			}
			return p.install(child)
		})
	})
}

// MakeDir creates a directory under dirfd and installs a handle for it.
func (p *Process) MakeDir(dirfd int, name string) (int, error) {
	return p.call("make_dir", func() (int, error) {
		return p.withHandle(dirfd, func(dir *kobject.Kobject) (int, error) {
			child, err := dir.CreateDir(name)
			if err != nil {
				return -1, err
			}
			return p.install(child)
		})
	})
}

// List writes the NUL-terminated names of dirfd's entries into buf.
func (p *Process) List(dirfd int, buf []byte) (int, error) {
	return p.call("list", func() (int, error) {
		return p.withHandle(dirfd, func(dir *kobject.Kobject) (int, error) {
			return dir.List(buf)
		})
	})
}

// Remove deletes the entry name under dirfd.
func (p *Process) Remove(dirfd int, name string) error {
	_, err := p.call("remove", func() (int, error) {
		return p.withHandle(dirfd, func(dir *kobject.Kobject) (int, error) {
			return 0, dir.Remove(name)
		})
	})
	return err
}

// ============================================================================
// Data transfer
// ============================================================================

// Read transfers from fd into buf.
//
// A blocking read on a Pipe, Window or Console runs outside the kernel lock
// so other processes can feed it. It holds its own alias of the handle until
// it returns, and reads through aliases of one handle take turns. A
// non-blocking read that finds another read waiting returns 0.
func (p *Process) Read(fd int, buf []byte, flags kobject.IOFlags) (int, error) {
	return p.call("read", func() (int, error) {
		return p.transfer(fd, flags, false, func(k *kobject.Kobject) (int, error) {
			return k.Read(buf, flags)
		})
	})
}

// Write transfers buf to fd. IOPost injects input into windows and consoles.
func (p *Process) Write(fd int, buf []byte, flags kobject.IOFlags) (int, error) {
	return p.call("write", func() (int, error) {
		return p.transfer(fd, flags, true, func(k *kobject.Kobject) (int, error) {
			return k.Write(buf, flags)
		})
	})
}

func (p *Process) transfer(fd int, flags kobject.IOFlags, write bool, fn func(k *kobject.Kobject) (int, error)) (int, error) {
	m := p.mgr
	m.mu.Lock()
	k, err := p.table.Get(fd)
	if err != nil {
		m.mu.Unlock()
		return -1, err
	}

	if !mayBlock(k.Kind(), flags, write) {
		defer m.mu.Unlock()
		// Only a blocked reader can hold the read lock; don't queue behind it
		if rl, busy := m.readers[k]; busy && !write {
			if !rl.mu.TryLock() {
				return 0, nil
			}
			defer rl.mu.Unlock()
		}
		return fn(k)
	}

	m.pinLocked(k)
	var rl *readLock
	if !write {
		rl = m.readLockLocked(k)
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if rl != nil {
			m.dropReadLockLocked(k, rl)
		}
		m.unpinLocked(k)
	}()

	if rl != nil {
		rl.mu.Lock()
		defer rl.mu.Unlock()
	}
	return fn(k)
}

// mayBlock reports whether a transfer can wait on another process.
func mayBlock(kind kobject.Kind, flags kobject.IOFlags, write bool) bool {
	if flags&kobject.IONonBlock != 0 {
		return false
	}
	switch kind {
	case kobject.KindPipe:
		return true
	case kobject.KindWindow, kobject.KindConsole:
		return !write
	default:
		return false
	}
}

// ============================================================================
// Metadata
// ============================================================================

// Size fills dims with fd's kind-specific dimensions.
func (p *Process) Size(fd int, dims []int) error {
	_, err := p.call("size", func() (int, error) {
		return p.withHandle(fd, func(k *kobject.Kobject) (int, error) {
			return 0, k.Size(dims)
		})
	})
	return err
}

// Kind returns the kind of the handle in fd.
func (p *Process) Kind(fd int) (kobject.Kind, error) {
	n, err := p.call("kind", func() (int, error) {
		return p.withHandle(fd, func(k *kobject.Kobject) (int, error) {
			return int(k.Kind()), nil
		})
	})
	if err != nil {
		return 0, err
	}
	return kobject.Kind(n), nil
}

// SetTag labels the handle in fd. Aliases installed by Dup see the label.
func (p *Process) SetTag(fd int, tag string) error {
	_, err := p.call("set_tag", func() (int, error) {
		return p.withHandle(fd, func(k *kobject.Kobject) (int, error) {
			return 0, k.SetTag(tag)
		})
	})
	return err
}

// GetTag copies fd's label into buf, NUL-terminated, and returns the label
// length. An empty buf only reports the length. ENOENT if no label is set.
func (p *Process) GetTag(fd int, buf []byte) (int, error) {
	return p.call("get_tag", func() (int, error) {
		return p.withHandle(fd, func(k *kobject.Kobject) (int, error) {
			n, ok := k.GetTag(buf)
			if !ok {
				return -1, ENOENT
			}
			return n, nil
		})
	})
}

// FindTag returns the lowest descriptor whose handle carries tag.
func (p *Process) FindTag(tag string) (int, error) {
	return p.call("find_tag", func() (int, error) {
		return p.locked(func() (int, error) {
			fd, ok := p.table.FindTag(tag)
			if !ok {
				return -1, fmt.Errorf("tag %q: %w", tag, ENOENT)
			}
			return fd, nil
		})
	})
}

// ============================================================================
// Object creation
// ============================================================================

// OpenWindow creates a child of the window in fd and installs it.
func (p *Process) OpenWindow(fd, x, y, width, height int) (int, error) {
	return p.call("open_window", func() (int, error) {
		return p.withHandle(fd, func(w *kobject.Kobject) (int, error) {
			child, err := w.CreateWindow(x, y, width, height)
			if err != nil {
				return -1, err
			}
			return p.install(child)
		})
	})
}

// OpenConsole binds a console to the window in fd and installs it.
func (p *Process) OpenConsole(fd int) (int, error) {
	return p.call("open_console", func() (int, error) {
		return p.withHandle(fd, func(w *kobject.Kobject) (int, error) {
			c, err := w.CreateConsole(p.mgr.binder)
			if err != nil {
				return -1, err
			}
			return p.install(c)
		})
	})
}

// OpenPipe creates a pipe and installs one handle for it. Share it with a
// child through Spawn, or with Dup.
func (p *Process) OpenPipe() (int, error) {
	return p.call("open_pipe", func() (int, error) {
		return p.locked(func() (int, error) {
			k := kobject.NewPipe(pipe.New(p.mgr.cfg.PipeCapacity), p.mgr.kopts...)
			return p.install(k)
		})
	})
}

// OpenDevice installs a handle on the registered device name.
func (p *Process) OpenDevice(name string) (int, error) {
	return p.call("open_device", func() (int, error) {
		return p.locked(func() (int, error) {
			d, ok := p.mgr.devices[name]
			if !ok {
				return -1, fmt.Errorf("device %q: %w", name, ENOENT)
			}
			d.AddRef()
			return p.install(kobject.NewDevice(d, p.mgr.kopts...))
		})
	})
}

// Move repositions the window in fd within its parent.
func (p *Process) Move(fd, x, y int) error {
	_, err := p.call("move", func() (int, error) {
		return p.withHandle(fd, func(k *kobject.Kobject) (int, error) {
			return 0, k.Move(x, y)
		})
	})
	return err
}

// ============================================================================
// Descriptor management
// ============================================================================

// Dup installs an alias of fd in the lowest free slot.
func (p *Process) Dup(fd int) (int, error) {
	return p.call("dup", func() (int, error) {
		return p.locked(func() (int, error) {
			return p.table.Dup(fd)
		})
	})
}

// DupTo makes dst an alias of src.
func (p *Process) DupTo(src, dst int) (int, error) {
	return p.call("dup_to", func() (int, error) {
		return p.locked(func() (int, error) {
			return p.table.DupTo(src, dst)
		})
	})
}

// Copy installs an independent duplicate of fd (own offset and tag).
func (p *Process) Copy(fd int) (int, error) {
	return p.call("copy", func() (int, error) {
		return p.locked(func() (int, error) {
			return p.table.Copy(fd)
		})
	})
}

// Close releases descriptor fd.
func (p *Process) Close(fd int) error {
	_, err := p.call("close", func() (int, error) {
		return p.locked(func() (int, error) {
			return 0, p.table.Close(fd)
		})
	})
	return err
}

// ============================================================================
// Process lifecycle
// ============================================================================

// Spawn creates a child process whose slot i holds an alias of fds[i].
// A negative entry leaves the slot empty. Returns the child's pid.
func (p *Process) Spawn(fds []int) (int, error) {
	return p.call("spawn", func() (int, error) {
		return p.locked(func() (int, error) {
			return p.spawnLocked(fds)
		})
	})
}

func (p *Process) spawnLocked(fds []int) (int, error) {
	m := p.mgr
	if len(fds) > m.cfg.MaxObjects {
		return -1, fmt.Errorf("%d descriptors: %w", len(fds), EMFILE)
	}

	handles := make([]*kobject.Kobject, len(fds))
	for i, fd := range fds {
		if fd < 0 {
			continue
		}
		k, err := p.table.Get(fd)
		if err != nil {
			return -1, err
		}
		handles[i] = k
	}

	child := m.newProcessLocked(p.pid)
	for i, k := range handles {
		if k != nil {
			child.table.entries[i] = k.AddRef()
		}
	}
	return child.pid, nil
}

// Run spawns a child with fds and runs prog in it on its own goroutine.
// The child exits with prog's return value.
func (p *Process) Run(fds []int, prog Program) (int, error) {
	pid, err := p.Spawn(fds)
	if err != nil {
		return -1, err
	}

	child, ok := p.mgr.Get(pid)
	if !ok {
		return -1, &SyscallError{Syscall: "spawn", Errno: ESRCH}
	}
	go func() {
		child.Exit(prog(child))
	}()
	return pid, nil
}

// Exit terminates the process, closing every descriptor. Later calls are
// no-ops.
func (p *Process) Exit(status int) {
	p.mgr.mu.Lock()
	defer p.mgr.mu.Unlock()
	p.mgr.exitLocked(p, status)
}

// Wait blocks until the child pid exits, reaps it and returns its status.
func (p *Process) Wait(ctx context.Context, pid int) (int, error) {
	return p.call("wait", func() (int, error) {
		if err := p.checkChild(pid); err != nil {
			return -1, err
		}
		return p.mgr.Wait(ctx, pid)
	})
}

// Kill terminates the child pid.
func (p *Process) Kill(pid int) error {
	_, err := p.call("kill", func() (int, error) {
		if err := p.checkChild(pid); err != nil {
			return -1, err
		}
		return 0, p.mgr.Kill(pid)
	})
	return err
}

func (p *Process) checkChild(pid int) error {
	child, ok := p.mgr.Get(pid)
	if !ok {
		return ESRCH
	}
	if child.ppid != p.pid {
		return ECHILD
	}
	return nil
}
