package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The registry is process-global, so the disabled case must run first.

func TestServer_MetricsDisabled(t *testing.T) {
	require.False(t, IsEnabled())

	s := NewServer(ServerConfig{})
	assert.Equal(t, 9090, s.Port())
	assert.Equal(t, "metrics", s.Name())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_MetricsEnabled(t *testing.T) {
	InitRegistry()
	require.True(t, IsEnabled())

	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kobject_server_test_total",
		Help: "Test counter",
	})
	require.NoError(t, GetRegistry().Register(c))
	c.Inc()

	s := NewServer(ServerConfig{Port: 19090})
	assert.Equal(t, 19090, s.Port())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "kobject_server_test_total 1")
}
