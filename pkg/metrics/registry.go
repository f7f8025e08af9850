// Package metrics defines the instrumentation interfaces of the handle layer,
// the process manager and the storage backends, with no-op defaults.
//
// Prometheus collection is opt-in: InitRegistry creates the registry that the
// constructors in pkg/metrics/prometheus register with. Until then every
// constructor hands back a no-op sink and the kernel pays nothing for
// instrumentation.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	initOnce sync.Once
	reg      *prometheus.Registry
)

// InitRegistry creates the process-wide registry. Later calls are no-ops.
// Call it before building any Prometheus-backed metrics.
func InitRegistry() {
	initOnce.Do(func() {
		reg = prometheus.NewRegistry()
	})
}

// GetRegistry returns the registry, or nil while collection is disabled.
func GetRegistry() *prometheus.Registry {
	return reg
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return reg != nil
}
