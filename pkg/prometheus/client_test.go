package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Namespace = ""
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.HTTPServer.Enabled = true
	cfg.HTTPServer.Path = ""
	cfg.HTTPServer.Timeout = 0
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/metrics", cfg.HTTPServer.Path)
	assert.NotZero(t, cfg.HTTPServer.Timeout)

	cfg.HTTPServer.Addr = ""
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestClientRegisterAndHandler(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableGoCollector = false
	cfg.EnableProcessCollector = false

	c, err := New(cfg, nil)
	require.NoError(t, err)

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "xdooria",
		Name:      "test_total",
		Help:      "test counter",
	})
	require.NoError(t, c.Register(counter))
	assert.ErrorIs(t, c.Register(counter), ErrMetricExists)

	counter.Add(2)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "xdooria_test_total 2")

	require.NoError(t, c.Close())
	assert.True(t, c.IsClosed())
	assert.ErrorIs(t, c.Close(), ErrClientClosed)
	assert.ErrorIs(t, c.Register(counter), ErrClientClosed)
}
