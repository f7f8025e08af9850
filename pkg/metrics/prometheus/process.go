package prometheus

import (
	"time"

	"github.com/marmos91/kobject/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// processMetrics is the Prometheus implementation of metrics.ProcessMetrics.
type processMetrics struct {
	syscallsTotal    *prometheus.CounterVec
	throttleDuration prometheus.Histogram
	processes        prometheus.Gauge
}

// NewProcessMetrics creates a new Prometheus-backed ProcessMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled.
func NewProcessMetrics() metrics.ProcessMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopProcessMetrics()
	}
	return newProcessMetrics(metrics.GetRegistry())
}

func newProcessMetrics(reg prometheus.Registerer) *processMetrics {
	return &processMetrics{
		syscallsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "kobject_syscalls_total",
				Help: "Total number of syscalls by name and errno",
			},
			[]string{"syscall", "errno"},
		),
		throttleDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "kobject_syscall_throttle_seconds",
				Help: "Time syscalls spent waiting on the per-process rate limiter",
				Buckets: []float64{
					0.001, // 1ms
					0.01,  // 10ms
					0.1,   // 100ms
					1.0,   // 1s
				},
			},
		),
		processes: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "kobject_processes",
				Help: "Current number of live processes",
			},
		),
	}
}

func (m *processMetrics) RecordSyscall(name string, errno string) {
	if errno == "" {
		errno = "OK"
	}
	m.syscallsTotal.WithLabelValues(name, errno).Inc()
}

func (m *processMetrics) RecordThrottleWait(duration time.Duration) {
	m.throttleDuration.Observe(duration.Seconds())
}

func (m *processMetrics) SetProcesses(count int) {
	m.processes.Set(float64(count))
}
