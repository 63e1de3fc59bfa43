package engine

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/getmockd/reqcap/pkg/httputil"
	"github.com/getmockd/reqcap/pkg/logging"
	"github.com/getmockd/reqcap/pkg/metrics"
	"github.com/getmockd/reqcap/pkg/request"
	"github.com/getmockd/reqcap/pkg/requestlog"
)

// Handler captures every request it serves.
type Handler struct {
	store       requestlog.Store
	metrics     *metrics.CaptureMetrics
	log         *slog.Logger
	maxBodySize int64
	authority   string
	hooks       []func(*request.Snapshot)
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithMaxBodySize rejects bodies larger than n bytes with 413. Zero disables the limit.
func WithMaxBodySize(n int64) HandlerOption {
	return func(h *Handler) {
		h.maxBodySize = n
	}
}

// WithAuthority resolves origin-form targets against host.
func WithAuthority(host string) HandlerOption {
	return func(h *Handler) {
		h.authority = host
	}
}

// WithHandlerLogger sets the operational logger.
func WithHandlerLogger(log *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// WithCaptureMetrics records every capture in m.
func WithCaptureMetrics(m *metrics.CaptureMetrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithCaptureHook calls fn with every successfully captured snapshot, after it
// has been logged. fn runs on the request goroutine and must not modify the snapshot.
func WithCaptureHook(fn func(*request.Snapshot)) HandlerOption {
	return func(h *Handler) {
		if fn != nil {
			h.hooks = append(h.hooks, fn)
		}
	}
}

// NewHandler creates a Handler that records into store.
func NewHandler(store requestlog.Store, opts ...HandlerOption) *Handler {
	h := &Handler{
		store:     store,
		log:       logging.Nop(),
		authority: request.DefaultAuthority,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EchoResponse is the body returned for a captured request.
type EchoResponse struct {
	ID       string              `json:"id"`
	Method   string              `json:"method"`
	URL      string              `json:"url"`
	Headers  map[string][]string `json:"headers"`
	Body     string              `json:"body"`
	BodySize int                 `json:"bodySize"`
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	opts := []request.Option{request.WithDefaultAuthority(h.authority)}
	if h.maxBodySize > 0 && r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
		opts = append(opts, request.WithBodyLimit(h.maxBodySize))
	}

	snap, err := request.CaptureHTTP(r, opts...)
	if err != nil {
		status, code := classify(err)
		h.observe(r.Method, code, start, 0)
		h.log.Warn("request capture failed",
			"method", r.Method,
			"target", r.RequestURI,
			"remote", r.RemoteAddr,
			"code", code,
			"error", err,
		)
		h.record(requestlog.FromError(r.Method, r.RequestURI, r.RemoteAddr, err))
		httputil.WriteError(w, status, code, err.Error())
		return
	}

	entry := requestlog.FromSnapshot(snap, r.RemoteAddr)
	h.record(entry)
	h.observe(snap.Method, metrics.ResultOK, start, len(snap.Body))
	for _, fn := range h.hooks {
		fn(snap)
	}

	if h.log.Enabled(r.Context(), slog.LevelDebug) {
		h.log.Debug("captured request",
			"id", entry.ID,
			"method", snap.Method,
			"url", entry.URL,
			"body_size", humanize.Bytes(uint64(len(snap.Body))),
			"rendered", snap.String(),
		)
	}

	httputil.WriteOK(w, EchoResponse{
		ID:       entry.ID,
		Method:   snap.Method,
		URL:      entry.URL,
		Headers:  snap.Headers.Map(),
		Body:     snap.BodyText(),
		BodySize: len(snap.Body),
	})
}

func (h *Handler) record(e *requestlog.Entry) {
	if h.store != nil {
		h.store.Log(e)
	}
}

func (h *Handler) observe(method, result string, start time.Time, bodySize int) {
	if h.metrics != nil {
		h.metrics.Observe(method, result, time.Since(start).Seconds(), bodySize)
	}
}

// classify maps a capture error to a status code and error code.
func classify(err error) (int, string) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, request.ErrTransport):
		return http.StatusBadRequest, httputil.CodeInvalidRequest
	case errors.Is(err, request.ErrBodyTooLarge), errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge, httputil.CodeBodyTooLarge
	default:
		return http.StatusBadRequest, httputil.CodeBodyReadFailed
	}
}
