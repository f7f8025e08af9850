// Package process implements per-process descriptor tables and the syscall
// surface that turns integer descriptors into kobject operations.
//
// A Manager plays the part of the kernel around the handle layer: it owns
// every process and serializes table and refcount changes under one lock.
// A blocking transfer runs outside that lock on a transient alias of its
// handle, and reads through one handle are serialized by a per-handle lock.
package process

import (
	"context"
	"sync"

	"github.com/marmos91/kobject/internal/logger"
	"github.com/marmos91/kobject/internal/ratelimiter"
	"github.com/marmos91/kobject/pkg/kobject"
	"github.com/marmos91/kobject/pkg/metrics"
)

// ExitKilled is the exit status of a process terminated by Kill.
const ExitKilled = -1

// Config sizes processes created by a Manager.
type Config struct {
	// MaxObjects is the descriptor table size (DefaultMaxObjects if 0)
	MaxObjects int

	// RateLimit throttles syscalls per process
	RateLimit RateLimitConfig

	// PipeCapacity is the buffer size of pipes created by OpenPipe
	PipeCapacity int
}

// RateLimitConfig configures the per-process syscall token bucket.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate; 0 disables throttling
	RequestsPerSecond uint

	// Burst is the bucket size; 0 defaults to RequestsPerSecond
	Burst uint
}

// Option configures a Manager.
type Option func(*Manager)

// WithMetrics attaches a syscall metrics sink.
func WithMetrics(m metrics.ProcessMetrics) Option {
	return func(mgr *Manager) {
		if m != nil {
			mgr.metrics = m
		}
	}
}

// WithKobjectOptions sets the options applied to every handle a syscall creates.
func WithKobjectOptions(opts ...kobject.Option) Option {
	return func(mgr *Manager) {
		mgr.kopts = append(mgr.kopts, opts...)
	}
}

// WithConsoleBinder sets the console subsystem used by OpenConsole.
func WithConsoleBinder(b kobject.ConsoleBinder) Option {
	return func(mgr *Manager) {
		mgr.binder = b
	}
}

// Manager owns the process table.
type Manager struct {
	cfg     Config
	kopts   []kobject.Option
	binder  kobject.ConsoleBinder
	metrics metrics.ProcessMetrics

	// mu is the kernel lock: it guards procs, devices, every descriptor
	// table and every kobject reachable from one
	mu      sync.Mutex
	procs   map[int]*Process
	nextPID int
	devices map[string]kobject.Device

	// readers serializes reads through one handle. Aliases in different
	// processes share the offset, and a blocking read runs without mu.
	readers map[*kobject.Kobject]*readLock
}

// readLock is held across one read of a handle. users counts reads queued
// on it so the entry can be dropped when the last one finishes.
type readLock struct {
	mu    sync.Mutex
	users int
}

// NewManager creates an empty process manager.
func NewManager(cfg Config, opts ...Option) *Manager {
	if cfg.MaxObjects <= 0 {
		cfg.MaxObjects = DefaultMaxObjects
	}

	m := &Manager{
		cfg:     cfg,
		metrics: metrics.NewNoopProcessMetrics(),
		procs:   make(map[int]*Process),
		nextPID: 1,
		devices: make(map[string]kobject.Device),
		readers: make(map[*kobject.Kobject]*readLock),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewProcess creates a process with no parent and an empty table.
func (m *Manager) NewProcess() *Process {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newProcessLocked(0)
}

func (m *Manager) newProcessLocked(ppid int) *Process {
	ctx, cancel := context.WithCancel(context.Background())

	table := NewTable(m.cfg.MaxObjects)

	p := &Process{
		pid:     m.nextPID,
		ppid:    ppid,
		mgr:     m,
		table:   table,
		limiter: ratelimiter.New(m.cfg.RateLimit.RequestsPerSecond, m.cfg.RateLimit.Burst),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	m.nextPID++
	m.procs[p.pid] = p

	m.metrics.SetProcesses(m.liveLocked())
	logger.Debug("process %d created (parent %d)", p.pid, ppid)
	return p
}

// Get returns the process with the given pid, including exited processes
// that have not been reaped.
func (m *Manager) Get(pid int) (*Process, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.procs[pid]
	return p, ok
}

// Len returns the number of processes not yet reaped.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.procs)
}

// Kill terminates pid with ExitKilled. Killing an exited process is a no-op.
func (m *Manager) Kill(pid int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.procs[pid]
	if !ok {
		return ESRCH
	}
	m.exitLocked(p, ExitKilled)
	return nil
}

// Wait blocks until pid exits, then reaps it and returns its status.
func (m *Manager) Wait(ctx context.Context, pid int) (int, error) {
	p, ok := m.Get(pid)
	if !ok {
		return 0, ESRCH
	}

	select {
	case <-p.done:
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.procs[pid]; !ok {
		// another waiter reaped it first
		return 0, ESRCH
	}
	delete(m.procs, pid)
	logger.Debug("process %d reaped (status %d)", pid, p.status)
	return p.status, nil
}

// RegisterDevice makes d openable by name through OpenDevice. The manager
// takes ownership of the caller's reference on d.
func (m *Manager) RegisterDevice(name string, d kobject.Device) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.devices[name]; ok {
		old.Release()
	}
	m.devices[name] = d
}

// Devices returns the registered device names.
func (m *Manager) Devices() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.devices))
	for name := range m.devices {
		names = append(names, name)
	}
	return names
}

// Shutdown kills every process and drops the device registrations.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.procs {
		m.exitLocked(p, ExitKilled)
	}
	for name, d := range m.devices {
		d.Release()
		delete(m.devices, name)
	}
}

func (m *Manager) exitLocked(p *Process, status int) {
	if p.exited {
		return
	}

	p.table.CloseAll()
	p.exited = true
	p.status = status
	p.cancel()
	close(p.done)

	m.metrics.SetProcesses(m.liveLocked())
	logger.Debug("process %d exited (status %d)", p.pid, status)
}

func (m *Manager) liveLocked() int {
	n := 0
	for _, p := range m.procs {
		if !p.exited {
			n++
		}
	}
	return n
}

// pinLocked takes a transient alias of k for a transfer that runs without
// the kernel lock. Descriptors closed meanwhile drop their own aliases, so a
// Pipe is flushed and its reader woken, while k itself outlives the transfer.
func (m *Manager) pinLocked(k *kobject.Kobject) {
	k.AddRef()
}

// unpinLocked drops the alias taken by pinLocked.
func (m *Manager) unpinLocked(k *kobject.Kobject) {
	k.Close()
}

func (m *Manager) readLockLocked(k *kobject.Kobject) *readLock {
	rl, ok := m.readers[k]
	if !ok {
		rl = &readLock{}
		m.readers[k] = rl
	}
	rl.users++
	return rl
}

func (m *Manager) dropReadLockLocked(k *kobject.Kobject, rl *readLock) {
	rl.users--
	if rl.users == 0 {
		delete(m.readers, k)
	}
}
