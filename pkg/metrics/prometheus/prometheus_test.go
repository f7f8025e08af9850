package prometheus

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/marmos91/kobject/pkg/store/content"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestKobjectMetrics(t *testing.T) {
	m := newKobjectMetrics(prometheus.NewRegistry())

	m.RecordCreated("file")
	m.RecordCreated("file")
	m.RecordDestroyed("file")
	m.RecordOperation("read", "file", nil)
	m.RecordOperation("read", "file", errors.New("boom"))
	m.RecordBytes("read", "file", 42)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.liveHandles.WithLabelValues("file")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.handlesCreated.WithLabelValues("file")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("read", "file", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("read", "file", "error")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.bytesTransferred.WithLabelValues("read", "file")))
}

func TestProcessMetrics(t *testing.T) {
	m := newProcessMetrics(prometheus.NewRegistry())

	m.RecordSyscall("open", "")
	m.RecordSyscall("open", "ENOENT")
	m.RecordThrottleWait(5 * time.Millisecond)
	m.SetProcesses(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.syscallsTotal.WithLabelValues("open", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.syscallsTotal.WithLabelValues("open", "ENOENT")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.processes))
}

func TestS3Metrics(t *testing.T) {
	m := newS3Metrics(prometheus.NewRegistry())

	m.ObserveOperation("WriteAt", time.Millisecond, nil)
	m.ObserveOperation("ReadAt", time.Millisecond, fmt.Errorf("get: %w", content.ErrContentNotFound))
	m.ObserveOperation("ReadAt", time.Millisecond, errors.New("timeout"))
	m.RecordBytes("write", 10)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("WriteAt", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("ReadAt", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("ReadAt", "error")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.bytes.WithLabelValues("write")))
}

func TestDisabledMetricsAreNoop(t *testing.T) {
	// The global registry is never initialized in this package's tests
	assert.NotNil(t, NewKobjectMetrics())
	assert.NotNil(t, NewProcessMetrics())
	assert.Nil(t, NewS3Metrics())
}
