// Package metrics exposes capture counters and histograms in the Prometheus
// text exposition format (text/plain; version=0.0.4).
//
// Three metric types are supported: Counter, Gauge and Histogram. All of them
// are safe for concurrent use.
//
// # Capture metrics
//
// NewCaptureMetrics registers the metrics the capture server reports:
//
//   - reqcap_captures_total: captured requests (labels: method, result)
//   - reqcap_capture_duration_seconds: time to build a snapshot (labels: result)
//   - reqcap_body_bytes: captured body sizes
//   - reqcap_log_entries: entries currently held by the request log
//   - reqcap_uptime_seconds, reqcap_goroutines, reqcap_heap_alloc_bytes
//
// The result label is "ok", "invalid_request", "body_too_large" or
// "body_read_failed".
//
// # Usage
//
//	reg := metrics.NewRegistry()
//	m := metrics.NewCaptureMetrics(reg)
//	m.Observe("GET", "ok", 0.002, 512)
//	http.Handle("/metrics", reg.Handler())
package metrics
