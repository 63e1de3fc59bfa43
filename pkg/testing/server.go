package testing

import (
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/getmockd/reqcap/pkg/config"
	"github.com/getmockd/reqcap/pkg/engine"
	"github.com/getmockd/reqcap/pkg/request"
	"github.com/getmockd/reqcap/pkg/requestlog"
)

// CaptureServer is an in-process capture server bound to a test.
type CaptureServer struct {
	t       testing.TB
	server  *engine.Server
	httpSrv *httptest.Server

	mu     sync.Mutex
	snaps  []*request.Snapshot
	notify chan struct{}
}

// Option adjusts the configuration used by New.
type Option func(*config.Config)

// WithMaxBodySize limits accepted bodies; larger requests get 413.
func WithMaxBodySize(n int64) Option {
	return func(c *config.Config) { c.MaxBodySize = n }
}

// WithAuthority sets the host origin-form targets resolve against.
func WithAuthority(host string) Option {
	return func(c *config.Config) { c.DefaultAuthority = host }
}

// New starts a capture server and registers its shutdown with t.Cleanup.
func New(t testing.TB, opts ...Option) *CaptureServer {
	t.Helper()

	cfg := config.Default()
	cfg.Port = 0
	for _, opt := range opts {
		opt(cfg)
	}

	c := &CaptureServer{t: t, notify: make(chan struct{})}
	c.server = engine.NewServer(cfg, engine.WithSnapshotHook(c.record))
	c.httpSrv = httptest.NewServer(c.server)
	t.Cleanup(c.httpSrv.Close)
	return c
}

func (c *CaptureServer) record(s *request.Snapshot) {
	c.mu.Lock()
	c.snaps = append(c.snaps, s)
	close(c.notify)
	c.notify = make(chan struct{})
	c.mu.Unlock()
}

// URL returns the base URL of the server.
func (c *CaptureServer) URL() string {
	return c.httpSrv.URL
}

// Store returns the request log, which also holds failed captures.
func (c *CaptureServer) Store() requestlog.Store {
	return c.server.Store()
}

// Snapshots returns the captured snapshots, oldest first.
func (c *CaptureServer) Snapshots() []*request.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*request.Snapshot(nil), c.snaps...)
}

// Len returns the number of captured snapshots.
func (c *CaptureServer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.snaps)
}

// Last returns the most recent snapshot, or nil.
func (c *CaptureServer) Last() *request.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.snaps) == 0 {
		return nil
	}
	return c.snaps[len(c.snaps)-1]
}

// Wait blocks until at least n snapshots exist and returns them. The test
// fails if that takes longer than timeout.
func (c *CaptureServer) Wait(n int, timeout time.Duration) []*request.Snapshot {
	c.t.Helper()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		c.mu.Lock()
		if len(c.snaps) >= n {
			out := append([]*request.Snapshot(nil), c.snaps...)
			c.mu.Unlock()
			return out
		}
		ch := c.notify
		have := len(c.snaps)
		c.mu.Unlock()

		select {
		case <-ch:
		case <-deadline.C:
			c.t.Fatalf("reqcap: waited %s for %d requests, got %d", timeout, n, have)
			return nil
		}
	}
}

// Reset forgets captured snapshots and clears the request log.
func (c *CaptureServer) Reset() {
	c.mu.Lock()
	c.snaps = nil
	c.mu.Unlock()
	c.server.Store().Clear()
}
