package process

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/kobject/pkg/kobject"
	"github.com/marmos91/kobject/pkg/resource/console"
	"github.com/marmos91/kobject/pkg/resource/device"
	"github.com/marmos91/kobject/pkg/resource/fs"
	"github.com/marmos91/kobject/pkg/resource/window"
	contentmemory "github.com/marmos91/kobject/pkg/store/content/memory"
	metamemory "github.com/marmos91/kobject/pkg/store/metadata/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestProcess boots a manager with an in-memory filesystem and a
// 640x480 display, and returns an init process holding the root directory
// in StdDir and the root window in StdWin.
func newTestProcess(t *testing.T, cfg Config, opts ...Option) (*Manager, *Process) {
	t.Helper()
	ctx := context.Background()

	store, err := contentmemory.NewMemoryContentStore(ctx, 0)
	require.NoError(t, err)
	fsys := fs.New(ctx, metamemory.NewMemoryMetadataStore(), store)
	t.Cleanup(func() { _ = fsys.Close() })

	opts = append([]Option{WithConsoleBinder(console.Binder{})}, opts...)
	m := NewManager(cfg, opts...)
	t.Cleanup(m.Shutdown)

	p := m.NewProcess()

	root, err := fsys.Root()
	require.NoError(t, err)
	require.NoError(t, p.InstallAt(StdDir, kobject.NewDirectory(root)))

	display, err := window.NewRoot(640, 480, nil)
	require.NoError(t, err)
	require.NoError(t, p.InstallAt(StdWin, kobject.NewWindow(display)))

	return m, p
}

func handle(t *testing.T, p *Process, fd int) *kobject.Kobject {
	t.Helper()
	p.mgr.mu.Lock()
	defer p.mgr.mu.Unlock()
	k, err := p.table.Get(fd)
	require.NoError(t, err)
	return k
}

func TestProcess_FileRoundTrip(t *testing.T) {
	_, p := newTestProcess(t, Config{})

	fd, err := p.MakeFile(StdDir, "motd")
	require.NoError(t, err)
	assert.Equal(t, 0, fd, "lowest free slot")

	n, err := p.Write(fd, []byte("hello kernel"), 0)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	require.NoError(t, p.Close(fd))

	fd, err = p.OpenFile(StdDir, "motd")
	require.NoError(t, err)

	kind, err := p.Kind(fd)
	require.NoError(t, err)
	assert.Equal(t, kobject.KindFile, kind)

	dims := make([]int, 1)
	require.NoError(t, p.Size(fd, dims))
	assert.Equal(t, 12, dims[0])

	buf := make([]byte, 5)
	n, err = p.Read(fd, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	n, err = p.Read(fd, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, " kern", string(buf[:n]))
}

func TestProcess_Namespace(t *testing.T) {
	_, p := newTestProcess(t, Config{})

	dir, err := p.MakeDir(StdDir, "bin")
	require.NoError(t, err)
	f, err := p.MakeFile(dir, "shell")
	require.NoError(t, err)
	require.NoError(t, p.Close(f))

	shell, err := p.OpenFile(StdDir, "bin/shell")
	require.NoError(t, err)

	_, err = p.OpenDir(StdDir, "bin/shell")
	assert.ErrorIs(t, err, ENOTDIR)

	_, err = p.OpenFile(StdDir, "bin/missing")
	assert.ErrorIs(t, err, ENOENT)

	_, err = p.MakeFile(dir, "shell")
	assert.ErrorIs(t, err, EEXIST)

	buf := make([]byte, 64)
	n, err := p.List(StdDir, buf)
	require.NoError(t, err)
	assert.Equal(t, "bin\x00", string(buf[:n]))

	_, err = p.List(shell, buf)
	assert.ErrorIs(t, err, ENOTDIR, "List on a file handle")

	assert.ErrorIs(t, p.Remove(StdDir, "bin"), ENOTEMPTY)
	require.NoError(t, p.Remove(dir, "shell"))
	require.NoError(t, p.Remove(StdDir, "bin"))

	_, err = p.Read(StdDir, buf, 0)
	assert.ErrorIs(t, err, EINVAL, "Read on a directory")
}

func TestProcess_BadDescriptor(t *testing.T) {
	_, p := newTestProcess(t, Config{})

	_, err := p.Read(42, make([]byte, 4), 0)
	require.Error(t, err)

	var serr *SyscallError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "read", serr.Syscall)
	assert.Equal(t, EBADF, serr.Errno)

	assert.ErrorIs(t, p.Close(42), EBADF)
	assert.ErrorIs(t, p.Move(StdDir, 1, 1), ENOSYS)
}

func TestProcess_TagsFollowAliasesNotCopies(t *testing.T) {
	_, p := newTestProcess(t, Config{})

	fd, err := p.OpenPipe()
	require.NoError(t, err)
	require.NoError(t, p.SetTag(fd, "events"))

	alias, err := p.Dup(fd)
	require.NoError(t, err)
	cp, err := p.Copy(fd)
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, err := p.GetTag(alias, buf)
	require.NoError(t, err)
	assert.Equal(t, "events", string(buf[:n]))
	assert.Equal(t, byte(0), buf[n])

	require.NoError(t, p.SetTag(cp, "copy"))
	found, err := p.FindTag("copy")
	require.NoError(t, err)
	assert.Equal(t, cp, found)

	found, err = p.FindTag("events")
	require.NoError(t, err)
	assert.Equal(t, fd, found)

	_, err = p.FindTag("nope")
	assert.ErrorIs(t, err, ENOENT)

	_, err = p.GetTag(StdDir, buf)
	assert.ErrorIs(t, err, ENOENT)

	// A nil buffer sizes the label instead of reporting it missing
	n, err = p.GetTag(alias, nil)
	require.NoError(t, err)
	assert.Equal(t, len("events"), n)
	_, err = p.GetTag(StdDir, nil)
	assert.ErrorIs(t, err, ENOENT)
}

func TestProcess_WindowAndConsole(t *testing.T) {
	_, p := newTestProcess(t, Config{})

	win, err := p.OpenWindow(StdWin, 16, 16, 320, 240)
	require.NoError(t, err)

	_, err = p.OpenWindow(StdWin, 600, 0, 320, 240)
	assert.ErrorIs(t, err, EINVAL)

	require.NoError(t, p.Move(win, 20, 20))
	assert.ErrorIs(t, p.Move(StdWin, 1, 1), EINVAL, "root window cannot move")

	con, err := p.OpenConsole(win)
	require.NoError(t, err)

	dims := make([]int, 2)
	require.NoError(t, p.Size(con, dims))
	assert.Equal(t, []int{40, 30}, dims)

	// Posted characters come back out of Read as typed input
	_, err = p.Write(con, []byte("ls\n"), kobject.IOPost)
	require.NoError(t, err)
	buf := make([]byte, 8)
	n, err := p.Read(con, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "ls\n", string(buf[:n]))

	n, err = p.Write(con, []byte("ok"), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Window events round-trip as XDR records
	events, err := window.EncodeEvents(window.Event{Type: window.EventKeyDown, Code: 'q'})
	require.NoError(t, err)
	_, err = p.Write(win, events, kobject.IOPost)
	require.NoError(t, err)

	ebuf := make([]byte, window.EventSize)
	n, err = p.Read(win, ebuf, kobject.IONonBlock)
	require.NoError(t, err)
	got, err := window.DecodeEvents(ebuf[:n])
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint32('q'), got[0].Code)
}

func TestProcess_Device(t *testing.T) {
	m, p := newTestProcess(t, Config{})

	disk, err := device.NewRamdisk("ram0", 512, 4)
	require.NoError(t, err)
	m.RegisterDevice("ram0", disk)
	assert.Equal(t, []string{"ram0"}, m.Devices())

	fd, err := p.OpenDevice("ram0")
	require.NoError(t, err)

	block := bytes.Repeat([]byte{0xAB}, 512)
	n, err := p.Write(fd, block, 0)
	require.NoError(t, err)
	assert.Equal(t, 512, n)

	out := make([]byte, 512)
	n, err = p.Read(fd, out, 0)
	require.NoError(t, err)
	assert.Equal(t, 512, n)
	assert.Equal(t, block, out)

	dims := make([]int, 2)
	require.NoError(t, p.Size(fd, dims))
	assert.Equal(t, []int{4, 512}, dims)

	_, err = p.OpenDevice("sda")
	assert.ErrorIs(t, err, ENOENT)
}

func TestProcess_SpawnInheritsAliases(t *testing.T) {
	m, p := newTestProcess(t, Config{})

	pfd, err := p.OpenPipe()
	require.NoError(t, err)

	pid, err := p.Spawn([]int{pfd, -1, pfd})
	require.NoError(t, err)

	child, ok := m.Get(pid)
	require.True(t, ok)
	assert.Equal(t, p.PID(), child.Parent())
	assert.Equal(t, []int{0, 2}, child.Descriptors())

	k := handle(t, p, pfd)
	assert.Same(t, k, handle(t, child, 0))
	assert.Equal(t, 3, k.Refcount())

	_, err = p.Spawn([]int{77})
	assert.ErrorIs(t, err, EBADF)

	child.Exit(3)
	assert.Equal(t, 1, k.Refcount())

	status, err := p.Wait(context.Background(), pid)
	require.NoError(t, err)
	assert.Equal(t, 3, status)

	_, ok = m.Get(pid)
	assert.False(t, ok, "reaped")
}

func TestProcess_RunPipesDataToChild(t *testing.T) {
	_, p := newTestProcess(t, Config{})

	pfd, err := p.OpenPipe()
	require.NoError(t, err)

	var (
		mu  sync.Mutex
		got []byte
	)
	pid, err := p.Run([]int{pfd}, func(c *Process) int {
		buf := make([]byte, 5)
		n, err := c.Read(StdIn, buf, 0)
		if err != nil {
			return 1
		}
		mu.Lock()
		got = append(got, buf[:n]...)
		mu.Unlock()
		return 0
	})
	require.NoError(t, err)

	_, err = p.Write(pfd, []byte("hello"), 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	status, err := p.Wait(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, 0, status)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "hello", string(got))
}

func TestProcess_KillDuringBlockingRead(t *testing.T) {
	m, p := newTestProcess(t, Config{})

	pfd, err := p.OpenPipe()
	require.NoError(t, err)
	k := handle(t, p, pfd)

	reading := make(chan struct{})
	pid, err := p.Run([]int{pfd}, func(c *Process) int {
		close(reading)
		_, _ = c.Read(StdIn, make([]byte, 1), 0)
		return 0
	})
	require.NoError(t, err)
	<-reading

	// Parent, child and the read in flight
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return k.Refcount() == 3
	}, 5*time.Second, time.Millisecond)

	require.NoError(t, p.Kill(pid))

	status, err := p.Wait(context.Background(), pid)
	require.NoError(t, err)
	assert.Equal(t, ExitKilled, status)

	// Alias closes flush the pipe and wake the reader without any data
	// being written. The child's own close on exit may land before the
	// reader is waiting, so the parent keeps closing fresh aliases.
	assert.Eventually(t, func() bool {
		m.mu.Lock()
		idle := len(m.readers) == 0 && k.Refcount() == 1
		m.mu.Unlock()
		if !idle {
			if fd, err := p.Dup(pfd); err == nil {
				_ = p.Close(fd)
			}
		}
		return idle
	}, 5*time.Second, 10*time.Millisecond)
}

func TestProcess_CloseAliasWakesBlockedReader(t *testing.T) {
	m, p := newTestProcess(t, Config{})

	pfd, err := p.OpenPipe()
	require.NoError(t, err)
	alias, err := p.Dup(pfd)
	require.NoError(t, err)
	k := handle(t, p, pfd)

	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := p.Read(pfd, make([]byte, 8), 0)
		done <- result{n, err}
	}()

	// Two descriptors plus the reader's own alias
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return k.Refcount() == 3
	}, 5*time.Second, time.Millisecond)

	require.NoError(t, p.Close(alias))

	// A flush only wakes a reader already waiting in the pipe, and the
	// reader may have been pinned but not yet inside it. Keep closing
	// fresh aliases until it returns.
	var r result
	require.Eventually(t, func() bool {
		select {
		case r = <-done:
			return true
		default:
		}
		if fd, err := p.Dup(pfd); err == nil {
			_ = p.Close(fd)
		}
		return false
	}, 5*time.Second, 10*time.Millisecond, "reader still blocked after an alias was closed")
	require.NoError(t, r.err)
	assert.Equal(t, 0, r.n)

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Equal(t, 1, k.Refcount())
	assert.Empty(t, m.readers)
}

func TestProcess_ConcurrentReadersShareOffset(t *testing.T) {
	m, p := newTestProcess(t, Config{})

	pfd, err := p.OpenPipe()
	require.NoError(t, err)
	k := handle(t, p, pfd)

	var (
		mu  sync.Mutex
		got []byte
	)
	reader := func(c *Process) int {
		buf := make([]byte, 1)
		n, err := c.Read(StdIn, buf, 0)
		if err != nil || n != 1 {
			return 1
		}
		mu.Lock()
		got = append(got, buf[0])
		mu.Unlock()
		return 0
	}

	var pids []int
	for range 2 {
		pid, err := p.Run([]int{pfd}, reader)
		require.NoError(t, err)
		pids = append(pids, pid)
	}

	// Both readers are queued on the same handle
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		rl := m.readers[k]
		return rl != nil && rl.users == 2
	}, 5*time.Second, time.Millisecond)

	_, err = p.Write(pfd, []byte("ab"), kobject.IONonBlock)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pid := range pids {
		status, err := p.Wait(ctx, pid)
		require.NoError(t, err)
		assert.Equal(t, 0, status)
	}

	mu.Lock()
	assert.ElementsMatch(t, []byte("ab"), got)
	mu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Equal(t, int64(2), k.Offset())
	assert.Empty(t, m.readers)
}

func TestProcess_NonBlockingReadSkipsWaitingReader(t *testing.T) {
	m, p := newTestProcess(t, Config{})

	pfd, err := p.OpenPipe()
	require.NoError(t, err)
	k := handle(t, p, pfd)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = p.Read(pfd, make([]byte, 1), 0)
	}()

	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.readers[k] != nil
	}, 5*time.Second, time.Millisecond)

	n, err := p.Read(pfd, make([]byte, 1), kobject.IONonBlock)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = p.Write(pfd, []byte("z"), kobject.IONonBlock)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("blocked reader did not receive data")
	}
}

func TestProcess_WaitAndKillOnlyChildren(t *testing.T) {
	m, p := newTestProcess(t, Config{})
	other := m.NewProcess()

	_, err := p.Wait(context.Background(), other.PID())
	assert.ErrorIs(t, err, ECHILD)
	assert.ErrorIs(t, p.Kill(other.PID()), ECHILD)
	assert.ErrorIs(t, p.Kill(999), ESRCH)

	pid, err := p.Spawn(nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = p.Wait(ctx, pid)
	assert.ErrorIs(t, err, EINTR)
}

func TestProcess_ExitedProcessRejectsSyscalls(t *testing.T) {
	m, p := newTestProcess(t, Config{})
	assert.Equal(t, 1, m.Len())

	p.Exit(0)
	p.Exit(1)
	assert.True(t, p.Exited())
	assert.Empty(t, p.Descriptors())

	_, err := p.OpenPipe()
	assert.ErrorIs(t, err, ESRCH)

	_, err = p.Install(newPipeHandle())
	assert.ErrorIs(t, err, ESRCH)

	status, err := m.Wait(context.Background(), p.PID())
	require.NoError(t, err)
	assert.Equal(t, 0, status)
}

func TestProcess_MaxObjects(t *testing.T) {
	_, p := newTestProcess(t, Config{MaxObjects: 6})

	// slots 3 and 4 are taken by the window and directory
	for range 4 {
		_, err := p.OpenPipe()
		require.NoError(t, err)
	}
	_, err := p.OpenPipe()
	assert.ErrorIs(t, err, EMFILE)
}

type countingProcessMetrics struct {
	mu        sync.Mutex
	calls     map[string]int
	failures  map[string]int
	throttled time.Duration
	live      int
}

func newCountingProcessMetrics() *countingProcessMetrics {
	return &countingProcessMetrics{calls: map[string]int{}, failures: map[string]int{}}
}

func (c *countingProcessMetrics) RecordSyscall(name, errno string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[name]++
	if errno != "" {
		c.failures[errno]++
	}
}

func (c *countingProcessMetrics) RecordThrottleWait(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.throttled += d
}

func (c *countingProcessMetrics) SetProcesses(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.live = n
}

func TestProcess_MetricsAndThrottling(t *testing.T) {
	metrics := newCountingProcessMetrics()
	cfg := Config{RateLimit: RateLimitConfig{RequestsPerSecond: 100, Burst: 1}}
	_, p := newTestProcess(t, cfg, WithMetrics(metrics))

	for range 3 {
		_, err := p.OpenPipe()
		require.NoError(t, err)
	}
	assert.ErrorIs(t, p.Close(50), EBADF)

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	assert.Equal(t, 3, metrics.calls["open_pipe"])
	assert.Equal(t, 1, metrics.failures["EBADF"])
	assert.Greater(t, metrics.throttled, time.Duration(0))
	assert.Equal(t, 1, metrics.live)
}
