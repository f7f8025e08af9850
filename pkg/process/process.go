package process

import (
	"context"

	"github.com/marmos91/kobject/internal/logger"
	"github.com/marmos91/kobject/internal/ratelimiter"
	"github.com/marmos91/kobject/pkg/kobject"
)

// Program is the body of a process started by Run. Its return value becomes
// the exit status.
type Program func(p *Process) int

// Process is one descriptor table plus the syscalls that operate on it.
//
// Syscalls return (value, error); the error is always a *SyscallError whose
// Errno is what user space would see. Every syscall is admitted by the
// process's rate limiter first.
type Process struct {
	pid  int
	ppid int
	mgr  *Manager

	table   *Table
	limiter *ratelimiter.RateLimiter

	// ctx is cancelled when the process exits
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// exited and status are guarded by mgr.mu
	exited bool
	status int
}

// PID returns the process id.
func (p *Process) PID() int { return p.pid }

// Parent returns the parent's pid, 0 for processes created by NewProcess.
func (p *Process) Parent() int { return p.ppid }

// Context is cancelled when the process exits or is killed.
func (p *Process) Context() context.Context { return p.ctx }

// Done is closed when the process exits or is killed.
func (p *Process) Done() <-chan struct{} { return p.done }

// Exited reports whether the process has terminated.
func (p *Process) Exited() bool {
	return p.ctx.Err() != nil
}

// Descriptors returns the open descriptor numbers.
func (p *Process) Descriptors() []int {
	p.mgr.mu.Lock()
	defer p.mgr.mu.Unlock()
	return p.table.Descriptors()
}

// Install hands k to the process in its lowest free slot. It is the kernel
// side of setting up a process and is not throttled. On error the caller
// keeps its alias.
func (p *Process) Install(k *kobject.Kobject) (int, error) {
	p.mgr.mu.Lock()
	defer p.mgr.mu.Unlock()
	if p.exited {
		return -1, ESRCH
	}
	return p.table.Install(k)
}

// InstallAt hands k to the process in slot fd, replacing its occupant.
func (p *Process) InstallAt(fd int, k *kobject.Kobject) error {
	p.mgr.mu.Lock()
	defer p.mgr.mu.Unlock()
	if p.exited {
		return ESRCH
	}
	return p.table.InstallAt(fd, k)
}

// call runs one syscall: admission, execution and error translation.
func (p *Process) call(name string, fn func() (int, error)) (int, error) {
	if p.Exited() {
		return -1, p.fail(name, ESRCH)
	}

	wait, err := p.limiter.Acquire(p.ctx)
	if wait > 0 {
		p.mgr.metrics.RecordThrottleWait(wait)
	}
	if err != nil {
		return -1, p.fail(name, err)
	}

	n, err := fn()
	if err != nil {
		return -1, p.fail(name, err)
	}
	p.mgr.metrics.RecordSyscall(name, "")
	return n, nil
}

func (p *Process) fail(name string, err error) error {
	errno := ErrnoOf(err)
	p.mgr.metrics.RecordSyscall(name, errno.String())
	logger.Debug("pid %d: %s: %v", p.pid, name, err)
	return &SyscallError{Syscall: name, Errno: errno, Err: err}
}

// locked runs fn under the kernel lock.
func (p *Process) locked(fn func() (int, error)) (int, error) {
	p.mgr.mu.Lock()
	defer p.mgr.mu.Unlock()
	return fn()
}

// withHandle runs fn on the handle in slot fd under the kernel lock.
func (p *Process) withHandle(fd int, fn func(k *kobject.Kobject) (int, error)) (int, error) {
	return p.locked(func() (int, error) {
		k, err := p.table.Get(fd)
		if err != nil {
			return -1, err
		}
		return fn(k)
	})
}

// install places a freshly created handle, closing it if the table is full.
// Caller holds the kernel lock.
func (p *Process) install(k *kobject.Kobject) (int, error) {
	fd, err := p.table.Install(k)
	if err != nil {
		k.Close()
		return -1, err
	}
	return fd, nil
}
