package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, r *Registry) string {
	t.Helper()
	var b strings.Builder
	_, err := r.WriteTo(&b)
	require.NoError(t, err)
	return b.String()
}

func TestCounter(t *testing.T) {
	t.Run("without labels", func(t *testing.T) {
		c := NewRegistry().NewCounter("test_counter", "A test counter")
		require.NoError(t, c.Inc())
		require.NoError(t, c.Add(3))

		samples := c.Collect()
		require.Len(t, samples, 1)
		assert.Equal(t, 4.0, samples[0].Value)
	})

	t.Run("with labels", func(t *testing.T) {
		c := NewRegistry().NewCounter("http_requests", "Total HTTP requests", "method", "status")

		vec, err := c.WithLabels("GET", "200")
		require.NoError(t, err)
		_ = vec.Inc()
		vec, _ = c.WithLabels("GET", "200")
		_ = vec.Inc()
		vec, _ = c.WithLabels("POST", "201")
		_ = vec.Add(5)

		samples := c.Collect()
		require.Len(t, samples, 2)
		assert.Equal(t, map[string]string{"method": "GET", "status": "200"}, samples[0].Labels)
		assert.Equal(t, 2.0, samples[0].Value)
		assert.Equal(t, 5.0, samples[1].Value)
	})

	t.Run("wrong label count", func(t *testing.T) {
		c := NewRegistry().NewCounter("test", "test", "label1", "label2")
		_, err := c.WithLabels("only_one")
		assert.ErrorIs(t, err, ErrLabelCountMismatch)
		assert.ErrorIs(t, c.Inc(), ErrLabelCountMismatch)
	})

	t.Run("negative add", func(t *testing.T) {
		c := NewRegistry().NewCounter("test", "test")
		assert.ErrorIs(t, c.Add(-1), ErrNegativeCounterValue)
	})
}

func TestGauge(t *testing.T) {
	g := NewRegistry().NewGauge("queue", "Queue depth", "name")
	vec, err := g.WithLabels("a")
	require.NoError(t, err)

	vec.Set(10)
	vec.Inc()
	vec.Dec()
	vec.Dec()
	vec.Add(-2.5)

	samples := g.Collect()
	require.Len(t, samples, 1)
	assert.Equal(t, 6.5, samples[0].Value)
}

func TestHistogram(t *testing.T) {
	h := NewRegistry().NewHistogram("latency", "Latency", []float64{1, 0.1, 0.5})
	for _, v := range []float64{0.05, 0.1, 0.3, 0.7, 2} {
		require.NoError(t, h.Observe(v))
	}

	got := map[string]float64{}
	for _, s := range h.Collect() {
		got[s.Name+"|"+s.Labels["le"]] = s.Value
	}

	assert.Equal(t, 2.0, got["latency_bucket|0.1"], "bounds are inclusive")
	assert.Equal(t, 3.0, got["latency_bucket|0.5"])
	assert.Equal(t, 4.0, got["latency_bucket|1"])
	assert.Equal(t, 5.0, got["latency_bucket|+Inf"])
	assert.Equal(t, 5.0, got["latency_count|"])
	assert.InDelta(t, 3.15, got["latency_sum|"], 1e-9)
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.NewCounter("dup", "first")
	assert.PanicsWithValue(t, "duplicate metric name: dup", func() {
		r.NewGauge("dup", "second")
	})
}

func TestRegistry_WriteTo(t *testing.T) {
	r := NewRegistry()
	c := r.NewCounter("requests_total", "Total requests\nby path", "path")
	r.NewGauge("unused", "Never set")

	vec, err := c.WithLabels(`/a"b\c`)
	require.NoError(t, err)
	_ = vec.Add(2)

	out := render(t, r)
	assert.Equal(t,
		"# HELP requests_total Total requests\\nby path\n"+
			"# TYPE requests_total counter\n"+
			`requests_total{path="/a\"b\\c"} 2`+"\n",
		out)
	assert.NotContains(t, out, "unused", "metrics without samples are skipped")
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	_ = r.NewCounter("hits", "Hits").Inc()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "hits 1\n")
}

func TestRegistry_OnCollect(t *testing.T) {
	r := NewRegistry()
	g := r.NewGauge("refreshed", "Refreshed on scrape")
	calls := 0
	r.OnCollect(func() {
		calls++
		_ = g.Set(float64(calls))
	})

	assert.Contains(t, render(t, r), "refreshed 1\n")
	assert.Contains(t, render(t, r), "refreshed 2\n")
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestRegistry_WriteToError(t *testing.T) {
	r := NewRegistry()
	_ = r.NewCounter("c", "c").Inc()
	_, err := r.WriteTo(failWriter{})
	assert.EqualError(t, err, "closed")
}

func TestFormatFloat(t *testing.T) {
	tests := map[float64]string{
		0:       "0",
		2:       "2",
		0.25:    "0.25",
		1024:    "1024",
		-3.5:    "-3.5",
		1e-09:   "1e-09",
		1 << 20: "1.048576e+06",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatFloat(in))
	}
}

func TestCaptureMetrics(t *testing.T) {
	r := NewRegistry()
	m := NewCaptureMetrics(r)

	m.Observe("GET", ResultOK, 0.002, 100)
	m.Observe("GET", ResultOK, 0.001, 5000)
	m.Observe("POST", ResultBodyTooLarge, 0.01, 999999)

	out := render(t, r)
	assert.Contains(t, out, `reqcap_captures_total{method="GET",result="ok"} 2`)
	assert.Contains(t, out, `reqcap_captures_total{method="POST",result="body_too_large"} 1`)
	assert.Contains(t, out, `reqcap_capture_duration_seconds_count{result="ok"} 2`)
	assert.Contains(t, out, "reqcap_body_bytes_count 2\n")
	assert.Contains(t, out, "reqcap_body_bytes_sum 5100\n")
	assert.Contains(t, out, "# TYPE reqcap_goroutines gauge")
	assert.Contains(t, out, "# TYPE reqcap_heap_alloc_bytes gauge")
	assert.NotContains(t, out, "go_goroutines")
	assert.Contains(t, out, "reqcap_uptime_seconds ")
}

func TestCaptureMetrics_MethodLabelBounded(t *testing.T) {
	r := NewRegistry()
	m := NewCaptureMetrics(r)

	for _, method := range []string{"M", "MX", "MXX", "PROPFIND", "get"} {
		m.Observe(method, ResultOK, 0.001, 0)
	}
	m.Observe("DELETE", ResultOK, 0.001, 0)

	out := render(t, r)
	assert.Contains(t, out, `reqcap_captures_total{method="OTHER",result="ok"} 5`)
	assert.Contains(t, out, `reqcap_captures_total{method="DELETE",result="ok"} 1`)
	assert.NotContains(t, out, `method="MX"`)
	assert.NotContains(t, out, `method="get"`)
	assert.Len(t, m.CapturesTotal.Collect(), 2)
}

func TestMethodLabel(t *testing.T) {
	assert.Equal(t, "GET", MethodLabel("GET"))
	assert.Equal(t, "OPTIONS", MethodLabel("OPTIONS"))
	assert.Equal(t, MethodOther, MethodLabel("PROPFIND"))
	assert.Equal(t, MethodOther, MethodLabel(""))
}

func TestConcurrentUpdates(t *testing.T) {
	r := NewRegistry()
	c := r.NewCounter("concurrent", "c", "worker")
	h := r.NewHistogram("concurrent_latency", "h", DefaultBuckets)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				vec, _ := c.WithLabels("w")
				_ = vec.Inc()
				_ = h.Observe(0.01)
				_, _ = r.WriteTo(io.Discard)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1600.0, c.Collect()[0].Value)
	assert.Contains(t, render(t, r), "concurrent_latency_count 1600\n")
}
