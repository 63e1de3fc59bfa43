// Package engine serves the capture endpoint and the admin API of reqcap.
//
// Every request outside the admin prefix is captured into a request.Snapshot,
// recorded in a requestlog.Store and echoed back as JSON:
//
//	{"id":"...","method":"POST","url":"http://localhost/a","headers":{...},"body":"...","bodySize":3}
//
// Capture failures are answered with a JSON error and never stop the server:
//
//	400 invalid_request   the request line or a header name is malformed
//	413 body_too_large    the body exceeds the configured limit
//	400 body_read_failed  the body could not be read
//
// The admin API lives under /__reqcap:
//
//	GET    /__reqcap/requests              list entries, newest first
//	GET    /__reqcap/requests/stream       server-sent events of new entries
//	GET    /__reqcap/requests/{id}         one entry
//	GET    /__reqcap/requests/{id}/render  the diagnostic text of an entry
//	DELETE /__reqcap/requests              clear the log
//	GET    /__reqcap/health                liveness probe
//	GET    /__reqcap/metrics               Prometheus metrics
//
// Basic usage:
//
//	srv := engine.NewServer(config.Default(), engine.WithLogger(log))
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	defer srv.Shutdown(context.Background())
package engine
