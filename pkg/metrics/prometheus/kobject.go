// Package prometheus implements the metrics interfaces on the Prometheus
// client library.
package prometheus

import (
	"github.com/marmos91/kobject/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// kobjectMetrics is the Prometheus implementation of metrics.KobjectMetrics.
type kobjectMetrics struct {
	liveHandles      *prometheus.GaugeVec
	handlesCreated   *prometheus.CounterVec
	operationsTotal  *prometheus.CounterVec
	bytesTransferred *prometheus.CounterVec
}

// NewKobjectMetrics creates a new Prometheus-backed KobjectMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewKobjectMetrics() metrics.KobjectMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopKobjectMetrics()
	}
	return newKobjectMetrics(metrics.GetRegistry())
}

func newKobjectMetrics(reg prometheus.Registerer) *kobjectMetrics {
	return &kobjectMetrics{
		liveHandles: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kobject_live_handles",
				Help: "Current number of live kernel-object handles by kind",
			},
			[]string{"kind"},
		),
		handlesCreated: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "kobject_handles_created_total",
				Help: "Total number of kernel-object handles created by kind",
			},
			[]string{"kind"},
		),
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "kobject_operations_total",
				Help: "Total number of handle operations by operation, kind, and status",
			},
			[]string{"operation", "kind", "status"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "kobject_bytes_transferred_total",
				Help: "Total bytes moved through handles by direction and kind",
			},
			[]string{"direction", "kind"},
		),
	}
}

func (m *kobjectMetrics) RecordCreated(kind string) {
	m.liveHandles.WithLabelValues(kind).Inc()
	m.handlesCreated.WithLabelValues(kind).Inc()
}

func (m *kobjectMetrics) RecordDestroyed(kind string) {
	m.liveHandles.WithLabelValues(kind).Dec()
}

func (m *kobjectMetrics) RecordOperation(operation string, kind string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.operationsTotal.WithLabelValues(operation, kind, status).Inc()
}

func (m *kobjectMetrics) RecordBytes(direction string, kind string, bytes int) {
	m.bytesTransferred.WithLabelValues(direction, kind).Add(float64(bytes))
}
