package engine

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"

	"github.com/getmockd/reqcap/pkg/httputil"
	"github.com/getmockd/reqcap/pkg/metrics"
	"github.com/getmockd/reqcap/pkg/requestlog"
)

// AdminPrefix is the path prefix of the admin API. Requests under it are not captured.
const AdminPrefix = "/__reqcap"

// ListResponse is the body of GET /__reqcap/requests.
type ListResponse struct {
	Requests []*requestlog.Entry `json:"requests"`
	Count    int                 `json:"count"`
	Total    int                 `json:"total"`
}

// HealthResponse is the body of GET /__reqcap/health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Entries   int    `json:"entries"`
}

type adminAPI struct {
	store    requestlog.Store
	registry *metrics.Registry
}

func (a *adminAPI) routes(r chi.Router) {
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteNotFound(w, "unknown admin endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	r.Get("/health", a.handleHealth)
	r.Handle("/metrics", a.registry.Handler())
	r.Route("/requests", func(r chi.Router) {
		r.Get("/", a.handleListRequests)
		r.Delete("/", a.handleClearRequests)
		r.Get("/stream", a.handleStreamRequests)
		r.Get("/{id}", a.handleGetRequest)
		r.Get("/{id}/render", a.handleRenderRequest)
	})
}

func (a *adminAPI) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteOK(w, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Entries:   a.store.Count(),
	})
}

// handleListRequests supports ?method=, ?path= (prefix), ?errors=true|false,
// ?limit= and ?offset=.
func (a *adminAPI) handleListRequests(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteBadRequest(w, httputil.CodeInvalidQuery, err.Error())
		return
	}

	entries := a.store.List(filter)
	httputil.WriteOK(w, ListResponse{
		Requests: entries,
		Count:    len(entries),
		Total:    a.store.Count(),
	})
}

func parseFilter(r *http.Request) (*requestlog.Filter, error) {
	q := r.URL.Query()
	filter := &requestlog.Filter{
		Method: q.Get("method"),
		Path:   q.Get("path"),
	}

	var err error
	if filter.Limit, err = httputil.QueryInt(r, "limit", 0); err != nil {
		return nil, err
	}
	if filter.Offset, err = httputil.QueryInt(r, "offset", 0); err != nil {
		return nil, err
	}
	if raw := q.Get("errors"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, &httputil.QueryError{Name: "errors", Value: raw}
		}
		filter.HasError = &v
	}
	return filter, nil
}

func (a *adminAPI) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	entry := a.store.Get(chi.URLParam(r, "id"))
	if entry == nil {
		httputil.WriteNotFound(w, "request not found")
		return
	}
	httputil.WriteOK(w, entry)
}

func (a *adminAPI) handleRenderRequest(w http.ResponseWriter, r *http.Request) {
	entry := a.store.Get(chi.URLParam(r, "id"))
	if entry == nil {
		httputil.WriteNotFound(w, "request not found")
		return
	}
	if entry.Error != "" {
		httputil.WriteError(w, http.StatusConflict, "not_captured", "request was not captured: "+entry.Error)
		return
	}
	httputil.WriteText(w, http.StatusOK, entry.Rendered)
}

func (a *adminAPI) handleClearRequests(w http.ResponseWriter, _ *http.Request) {
	a.store.Clear()
	httputil.WriteNoContent(w)
}

// handleStreamRequests streams new entries as server-sent events until the
// client disconnects. Only stores that support subscriptions can stream.
func (a *adminAPI) handleStreamRequests(w http.ResponseWriter, r *http.Request) {
	sub, ok := a.store.(requestlog.SubscribableStore)
	if !ok {
		httputil.WriteError(w, http.StatusNotImplemented, "stream_unsupported", "the configured store does not support streaming")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, http.StatusInternalServerError, "stream_unsupported", "response does not support flushing")
		return
	}

	ch, unsubscribe := sub.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case entry, open := <-ch:
			if !open {
				return
			}
			data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(entry)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: request\ndata: %s\n\n", entry.ID, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
