package prometheus

import (
	"errors"
	"time"

	"github.com/marmos91/kobject/pkg/metrics"
	"github.com/marmos91/kobject/pkg/store/content"
	"github.com/marmos91/kobject/pkg/store/content/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// s3Metrics instruments the S3 content store behind File handles.
type s3Metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	bytes    *prometheus.CounterVec
}

// NewS3Metrics returns nil when metrics are disabled; the store then uses its
// own no-op sink.
func NewS3Metrics() s3.S3Metrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return newS3Metrics(metrics.GetRegistry())
}

func newS3Metrics(reg prometheus.Registerer) *s3Metrics {
	f := promauto.With(reg)
	return &s3Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kobject_content_s3_requests_total",
			Help: "S3 content store calls by store operation and outcome (success, not_found, error)",
		}, []string{"operation", "status"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name: "kobject_content_s3_request_duration_seconds",
			Help: "Latency of S3 content store calls",
			// Read-modify-write of large files can take seconds
			Buckets: prometheus.ExponentialBuckets(0.005, 4, 7),
		}, []string{"operation"}),
		bytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kobject_content_s3_bytes_total",
			Help: "File bytes read from or written to S3",
		}, []string{"direction"}),
	}
}

func (m *s3Metrics) ObserveOperation(operation string, duration time.Duration, err error) {
	m.requests.WithLabelValues(operation, s3Status(err)).Inc()
	m.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *s3Metrics) RecordBytes(direction string, bytes int64) {
	m.bytes.WithLabelValues(direction).Add(float64(bytes))
}

// s3Status separates missing content, which reads of never-written files
// hit routinely, from real failures.
func s3Status(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, content.ErrContentNotFound):
		return "not_found"
	default:
		return "error"
	}
}
