package kernel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/kobject/internal/logger"
)

// Service is a long-running component served alongside the kernel, such as
// the metrics endpoint or an interactive shell.
type Service interface {
	// Name identifies the service in logs and errors. Must be unique.
	Name() string

	// Serve blocks until ctx is cancelled or the service finishes.
	// Returning before cancellation stops the kernel.
	Serve(ctx context.Context) error

	// Stop asks the service to finish. ctx bounds the wait.
	Stop(ctx context.Context) error
}

// AddService registers s to be started by Serve.
//
// Panics if Serve has already been called.
func (k *Kernel) AddService(s Service) error {
	if s == nil {
		panic("service cannot be nil")
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if k.served {
		panic("cannot add service after Serve() has been called")
	}

	for _, existing := range k.services {
		if existing.Name() == s.Name() {
			return fmt.Errorf("service %s already registered", s.Name())
		}
	}

	k.services = append(k.services, s)
	logger.Info("Registered %s service", s.Name())
	return nil
}

// Services returns a snapshot of the registered services.
func (k *Kernel) Services() []Service {
	k.mu.Lock()
	defer k.mu.Unlock()

	out := make([]Service, len(k.services))
	copy(out, k.services)
	return out
}

type serviceResult struct {
	name string
	err  error
}

// Serve runs every registered service until ctx is cancelled or one of them
// returns, then stops the rest in reverse registration order and waits for
// them. It does not call Shutdown.
//
// Returns nil on cancellation or when a service finishes cleanly, and the
// service's error otherwise.
func (k *Kernel) Serve(ctx context.Context) error {
	k.mu.Lock()
	if k.served {
		k.mu.Unlock()
		return errors.New("kernel already served")
	}
	k.served = true
	services := make([]Service, len(k.services))
	copy(services, k.services)
	k.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan serviceResult, len(services))
	var wg sync.WaitGroup

	for _, svc := range services {
		wg.Add(1)
		go func(s Service) {
			defer wg.Done()
			logger.Info("Starting %s service", s.Name())
			results <- serviceResult{name: s.Name(), err: s.Serve(ctx)}
		}(svc)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", context.Cause(ctx))
	case r := <-results:
		if r.err != nil && !errors.Is(r.err, context.Canceled) {
			logger.Error("%s service failed: %v", r.name, r.err)
			serveErr = fmt.Errorf("%s service: %w", r.name, r.err)
		} else {
			logger.Info("%s service finished", r.name)
		}
	}

	cancel()
	k.stopServices(services)
	wg.Wait()

	return serveErr
}

// stopServices stops services in reverse registration order, bounded by the
// configured shutdown timeout.
func (k *Kernel) stopServices(services []Service) {
	timeout := k.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for i := len(services) - 1; i >= 0; i-- {
		s := services[i]
		if err := s.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error stopping %s service: %v", s.Name(), err)
		} else {
			logger.Debug("%s service stopped", s.Name())
		}
	}
}
