// Package kernel assembles a running kernel from configuration: the
// filesystem behind Directory and File handles, the block devices, the root
// window of the display and the process manager.
//
// Lifecycle:
//  1. Boot() builds every component from a config.Config
//  2. Init() creates the init process with the standard slots populated
//  3. AddService() registers long-running services (metrics, shell); the
//     garbage collector is registered by Boot when enabled
//  4. Serve() runs them until the context is cancelled or one stops
//  5. Shutdown() kills all processes and releases every resource
package kernel

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/kobject/internal/logger"
	"github.com/marmos91/kobject/pkg/config"
	"github.com/marmos91/kobject/pkg/gc"
	"github.com/marmos91/kobject/pkg/kobject"
	"github.com/marmos91/kobject/pkg/process"
	"github.com/marmos91/kobject/pkg/resource/console"
	"github.com/marmos91/kobject/pkg/resource/fs"
	"github.com/marmos91/kobject/pkg/resource/window"
)

// Kernel owns every resource backing the handles its processes hold.
type Kernel struct {
	cfg     *config.Config
	metrics *config.MetricsResult
	kopts   []kobject.Option

	fs      *fs.Filesystem
	display *window.Window
	procs   *process.Manager

	// mu protects services and served
	mu       sync.Mutex
	services []Service
	served   bool

	shutdownOnce sync.Once
}

// Boot builds a kernel from cfg.
//
// Parameters:
//   - ctx: Bounds store initialization and every later filesystem call
//   - cfg: Validated configuration (see config.Load)
//   - m: Metrics collectors; nil means no-op collectors
//
// On error every component built so far is released.
func Boot(ctx context.Context, cfg *config.Config, m *config.MetricsResult) (*Kernel, error) {
	if m == nil {
		m = config.InitializeMetrics(&config.Config{})
	}

	k := &Kernel{
		cfg:     cfg,
		metrics: m,
		kopts:   []kobject.Option{kobject.WithMetrics(m.Kobject)},
	}

	// Step 1: Filesystem over the node and content stores
	meta, err := config.CreateMetadataStore(ctx, &cfg.Filesystem.Metadata)
	if err != nil {
		return nil, fmt.Errorf("boot: %w", err)
	}
	store, err := config.CreateContentStore(ctx, &cfg.Filesystem.Content, m.S3)
	if err != nil {
		_ = meta.Close()
		return nil, fmt.Errorf("boot: %w", err)
	}
	k.fs = fs.New(ctx, meta, store)
	logger.Info("Filesystem ready: metadata=%s content=%s",
		cfg.Filesystem.Metadata.Type, cfg.Filesystem.Content.Type)

	// Step 2: Display
	k.display, err = window.NewRoot(cfg.Display.Width, cfg.Display.Height, logRenderer{})
	if err != nil {
		k.release()
		return nil, fmt.Errorf("boot: display: %w", err)
	}

	// Step 3: Process manager
	k.procs = process.NewManager(cfg.Process.ManagerConfig(),
		process.WithMetrics(m.Process),
		process.WithKobjectOptions(k.kopts...),
		process.WithConsoleBinder(console.Binder{}),
	)

	// Step 4: Devices, owned by the manager once registered
	for _, dc := range cfg.Devices {
		dev, err := config.CreateDevice(dc)
		if err != nil {
			k.release()
			return nil, fmt.Errorf("boot: device %s: %w", dc.Name, err)
		}
		k.procs.RegisterDevice(dc.Name, dev)
		logger.Info("Device %s registered: %s, %d x %d bytes",
			dc.Name, dc.Type, dev.BlockCount(), dev.BlockSize())
	}

	// Step 5: Orphaned content collector
	if cfg.GC.Enabled {
		collector, err := gc.NewCollector(meta, store, gc.Config{
			Interval: cfg.GC.Interval,
			DryRun:   cfg.GC.DryRun,
		})
		if err != nil {
			k.release()
			return nil, fmt.Errorf("boot: gc: %w", err)
		}
		k.services = append(k.services, collector)
	}

	logger.Info("Kernel booted: display %dx%d, max %d objects per process",
		cfg.Display.Width, cfg.Display.Height, cfg.Process.MaxObjects)
	return k, nil
}

// Processes returns the process manager.
func (k *Kernel) Processes() *process.Manager { return k.procs }

// Display returns the root window.
func (k *Kernel) Display() *window.Window { return k.display }

// Filesystem returns the filesystem behind Directory and File handles.
func (k *Kernel) Filesystem() *fs.Filesystem { return k.fs }

// Init creates a process with the standard slots populated:
//
//	StdDir  the root directory
//	StdWin  the root window
//	StdIn, StdOut, StdErr  one console on the root window, aliased
func (k *Kernel) Init() (*process.Process, error) {
	p := k.procs.NewProcess()

	fail := func(err error) (*process.Process, error) {
		_ = k.procs.Kill(p.PID())
		_, _ = k.procs.Wait(context.Background(), p.PID())
		return nil, fmt.Errorf("init: %w", err)
	}

	root, err := k.fs.Root()
	if err != nil {
		return fail(err)
	}
	dir := kobject.NewDirectory(root, k.kopts...)
	if err := p.InstallAt(process.StdDir, dir); err != nil {
		dir.Close()
		return fail(err)
	}

	k.display.AddRef()
	win := kobject.NewWindow(k.display, k.kopts...)
	if err := p.InstallAt(process.StdWin, win); err != nil {
		win.Close()
		return fail(err)
	}

	fd, err := p.OpenConsole(process.StdWin)
	if err != nil {
		return fail(err)
	}
	for _, std := range []int{process.StdIn, process.StdOut, process.StdErr} {
		if std == fd {
			continue
		}
		if _, err := p.DupTo(fd, std); err != nil {
			return fail(err)
		}
	}
	if fd > process.StdErr {
		_ = p.Close(fd)
	}

	logger.Debug("Init process %d ready", p.PID())
	return p, nil
}

// Shutdown kills every process and releases all resources. Safe to call
// more than once.
func (k *Kernel) Shutdown() error {
	var err error
	k.shutdownOnce.Do(func() {
		err = k.release()
		logger.Info("Kernel stopped")
	})
	return err
}

func (k *Kernel) release() error {
	if k.procs != nil {
		k.procs.Shutdown()
	}
	if k.display != nil {
		k.display.Release()
	}
	if k.fs != nil {
		return k.fs.Close()
	}
	return nil
}

// logRenderer logs graphics commands written to any window.
type logRenderer struct{}

func (logRenderer) Render(w *window.Window, cmd []byte) {
	x, y := w.Origin()
	logger.Debug("render %dx%d@(%d,%d): %q", w.Width(), w.Height(), x, y, cmd)
}
