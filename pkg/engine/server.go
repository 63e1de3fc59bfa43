package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/getmockd/reqcap/pkg/config"
	"github.com/getmockd/reqcap/pkg/logging"
	"github.com/getmockd/reqcap/pkg/metrics"
	"github.com/getmockd/reqcap/pkg/request"
	"github.com/getmockd/reqcap/pkg/requestlog"
)

// Server timeouts.
const (
	ReadHeaderTimeout = 10 * time.Second
	ShutdownTimeout   = 5 * time.Second
)

// Server is the capture server: the capture Handler behind a chi router that
// also serves the admin API.
type Server struct {
	cfg      *config.Config
	store    requestlog.Store
	registry *metrics.Registry
	handler  *Handler
	router   chi.Router
	log      *slog.Logger
	hooks    []HandlerOption

	mu         sync.RWMutex
	httpServer *http.Server
	listener   net.Listener
	running    bool
	startTime  time.Time
}

// ServerOption is a functional option for configuring a Server.
type ServerOption func(*Server)

// WithStore sets the request log store. The default is an in-memory store
// sized by the configuration.
func WithStore(store requestlog.Store) ServerOption {
	return func(s *Server) {
		s.store = store
	}
}

// WithLogger sets the operational logger for the server.
func WithLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithRegistry exposes metrics on reg instead of a private registry.
func WithRegistry(reg *metrics.Registry) ServerOption {
	return func(s *Server) {
		s.registry = reg
	}
}

// WithSnapshotHook passes every captured snapshot to fn.
func WithSnapshotHook(fn func(*request.Snapshot)) ServerOption {
	return func(s *Server) {
		s.hooks = append(s.hooks, WithCaptureHook(fn))
	}
}

// NewServer creates a Server. A nil cfg uses config.Default().
func NewServer(cfg *config.Config, opts ...ServerOption) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Server{
		cfg: cfg,
		log: logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = requestlog.NewMemoryStore(cfg.MaxLogEntries)
	}
	if s.registry == nil {
		s.registry = metrics.NewRegistry()
	}

	m := metrics.NewCaptureMetrics(s.registry)
	s.registry.OnCollect(func() { _ = m.LogEntries.Set(float64(s.store.Count())) })

	hopts := append([]HandlerOption{
		WithMaxBodySize(cfg.MaxBodySize),
		WithAuthority(cfg.DefaultAuthority),
		WithHandlerLogger(s.log),
		WithCaptureMetrics(m),
	}, s.hooks...)
	s.handler = NewHandler(s.store, hopts...)
	s.router = s.newRouter()
	return s
}

func (s *Server) newRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	admin := &adminAPI{store: s.store, registry: s.registry}
	r.Route(AdminPrefix, admin.routes)

	// Everything else is captured, including targets chi cannot route such as "*".
	r.Handle("/*", s.handler)
	r.NotFound(s.handler.ServeHTTP)
	r.MethodNotAllowed(s.handler.ServeHTTP)
	return r
}

// ServeHTTP serves the capture endpoint and the admin API. HTTP/2 without TLS
// is only available through Start.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Store returns the request log store.
func (s *Server) Store() requestlog.Store {
	return s.store
}

// Start listens on the configured port and serves in the background. Port 0
// picks a free port; see Addr.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("server is already running")
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", s.cfg.Port, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           h2c.NewHandler(s.router, &http2.Server{}),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(s.log.Handler(), slog.LevelWarn),
	}

	srv := s.httpServer
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("capture server error", "error", err)
		}
	}()

	s.running = true
	s.startTime = time.Now()
	s.log.Info("capture server started",
		"addr", ln.Addr().String(),
		"admin", AdminPrefix,
		"max_body_size", s.cfg.MaxBodySize,
	)
	return nil
}

// Addr returns the listening address, or "" when the server is not running.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// IsRunning reports whether Start has been called without a matching Shutdown.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the time since Start, or zero when not running.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startTime)
}

// Shutdown stops accepting connections and waits for in-flight captures,
// bounded by ctx and ShutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, ShutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	s.running = false
	s.listener = nil
	s.log.Info("capture server stopped")
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
