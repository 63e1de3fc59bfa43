package metrics

import (
	"net/http"
	"runtime"
	"time"
)

// Capture results used as the result label.
const (
	ResultOK             = "ok"
	ResultInvalidRequest = "invalid_request"
	ResultBodyTooLarge   = "body_too_large"
	ResultBodyReadFailed = "body_read_failed"
)

// MethodOther is the method label for anything outside the standard methods.
const MethodOther = "OTHER"

var standardMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodConnect: true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
}

// MethodLabel returns method if it is a standard HTTP method and MethodOther
// otherwise, keeping the number of series bounded.
func MethodLabel(method string) string {
	if standardMethods[method] {
		return method
	}
	return MethodOther
}

// CaptureMetrics are the metrics reported by the capture server.
type CaptureMetrics struct {
	CapturesTotal   *Counter
	CaptureDuration *Histogram
	BodyBytes       *Histogram
	LogEntries      *Gauge
	Uptime          *Gauge
	Goroutines      *Gauge
	HeapAlloc       *Gauge

	started time.Time
}

// NewCaptureMetrics registers the capture metrics on reg. Runtime gauges are
// refreshed on every scrape.
func NewCaptureMetrics(reg *Registry) *CaptureMetrics {
	m := &CaptureMetrics{
		CapturesTotal: reg.NewCounter(
			"reqcap_captures_total",
			"Total number of requests seen by the capture handler",
			"method", "result",
		),
		CaptureDuration: reg.NewHistogram(
			"reqcap_capture_duration_seconds",
			"Time spent building request snapshots in seconds",
			DefaultBuckets,
			"result",
		),
		BodyBytes: reg.NewHistogram(
			"reqcap_body_bytes",
			"Size of captured request bodies in bytes",
			SizeBuckets,
		),
		LogEntries: reg.NewGauge(
			"reqcap_log_entries",
			"Number of entries held by the request log",
		),
		Uptime: reg.NewGauge(
			"reqcap_uptime_seconds",
			"Server uptime in seconds",
		),
		Goroutines: reg.NewGauge(
			"reqcap_goroutines",
			"Number of goroutines that currently exist",
		),
		HeapAlloc: reg.NewGauge(
			"reqcap_heap_alloc_bytes",
			"Number of heap bytes allocated and still in use",
		),
		started: time.Now(),
	}
	reg.OnCollect(m.collectRuntime)
	return m
}

// Observe records one capture. bodySize is ignored unless result is ResultOK.
func (m *CaptureMetrics) Observe(method, result string, seconds float64, bodySize int) {
	if vec, err := m.CapturesTotal.WithLabels(MethodLabel(method), result); err == nil {
		_ = vec.Inc()
	}
	if vec, err := m.CaptureDuration.WithLabels(result); err == nil {
		vec.Observe(seconds)
	}
	if result == ResultOK {
		_ = m.BodyBytes.Observe(float64(bodySize))
	}
}

func (m *CaptureMetrics) collectRuntime() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	_ = m.Uptime.Set(time.Since(m.started).Seconds())
	_ = m.Goroutines.Set(float64(runtime.NumGoroutine()))
	_ = m.HeapAlloc.Set(float64(mem.HeapAlloc))
}
