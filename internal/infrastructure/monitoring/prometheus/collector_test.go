package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/BlindDock/internal/config"
	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test", Subsystem: "unit"}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func scrapeMetrics(t *testing.T, c MetricsCollector) string {
	t.Helper()
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewMetricsCollector_EmptyNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{Subsystem: "unit"}, nil)
	assert.Error(t, err)
}

func TestNewMetricsCollector_WithRuntimeMetrics(t *testing.T) {
	c, err := NewMetricsCollector(CollectorConfigFrom(config.MetricsConfig{Namespace: "blinddock"}), nil)
	require.NoError(t, err)
	out := scrapeMetrics(t, c)
	assert.Contains(t, out, "go_goroutines")
	assert.Contains(t, out, "blinddock_process_")
}

func TestRegisterCounter(t *testing.T) {
	c := newTestCollector(t)
	vec := c.RegisterCounter("events_total", "Events", "kind")
	vec.WithLabelValues("a").Inc()
	vec.WithLabelValues("a").Add(2)

	assert.Contains(t, scrapeMetrics(t, c), `test_unit_events_total{kind="a"} 3`)
}

func TestRegisterCounter_SameNameReturnsSameVector(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("events_total", "Events", "kind").WithLabelValues("a").Inc()
	c.RegisterCounter("events_total", "Events", "kind").WithLabelValues("a").Inc()

	assert.Contains(t, scrapeMetrics(t, c), `test_unit_events_total{kind="a"} 2`)
}

func TestRegister_TypeMismatchYieldsNoop(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("thing", "Thing")
	g := c.RegisterGauge("thing", "Thing")
	_, ok := g.(noopGaugeVec)
	assert.True(t, ok)
	assert.NotPanics(t, func() { g.WithLabelValues().Set(1) })
}

func TestRegisterGaugeAndHistogram(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterGauge("slots", "Slots").WithLabelValues().Set(4)
	h := c.RegisterHistogram("latency_seconds", "Latency", nil, "op")
	h.WithLabelValues("dock").Observe(0.2)

	assert.Equal(t, 1, testutil.CollectAndCount(c.Registry(), "test_unit_latency_seconds"))
	out := scrapeMetrics(t, c)
	assert.Contains(t, out, "test_unit_slots 4")
	assert.Contains(t, out, `test_unit_latency_seconds_count{op="dock"} 1`)
}

func TestTimer(t *testing.T) {
	c := newTestCollector(t)
	h := c.RegisterHistogram("op_seconds", "Op", []float64{1}).WithLabelValues()
	timer := NewTimer(h)
	time.Sleep(time.Millisecond)
	timer.ObserveDuration()

	assert.Contains(t, scrapeMetrics(t, c), "test_unit_op_seconds_count 1")
	assert.NotPanics(t, func() { NewTimer(nil).ObserveDuration() })
}

//Personal.AI order the ending
