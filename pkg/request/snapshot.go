package request

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// DefaultAuthority is the host origin-form targets are resolved against.
const DefaultAuthority = "localhost"

// Snapshot is a fully buffered, read-only copy of an inbound request.
// Consumers share one *Snapshot and must not modify it.
type Snapshot struct {
	// URL is always absolute.
	URL *url.URL
	// Method is copied verbatim from the request line.
	Method string
	// Headers holds every header, grouped case-insensitively.
	Headers Header
	// Body is the complete request body.
	Body []byte
}

// RawRequest is the input to Capture: a request whose body has not been read.
type RawRequest struct {
	Method string
	// Target is the request target, either origin-form ("/a?b=1") or
	// absolute-form ("http://host/a?b=1").
	Target string
	// Headers are in arrival order and may repeat names.
	Headers []HeaderPair
	// Body may be nil for requests without a body.
	Body *BodySource
}

type captureOptions struct {
	authority string
	bodyLimit int64
}

// Option configures Capture.
type Option func(*captureOptions)

// WithDefaultAuthority resolves origin-form targets against host instead of
// DefaultAuthority.
func WithDefaultAuthority(host string) Option {
	return func(o *captureOptions) {
		if host != "" {
			o.authority = host
		}
	}
}

// WithBodyLimit caps the body size for sources that do not carry their own
// limit. Larger bodies fail with ErrBodyTooLarge.
func WithBodyLimit(n int64) Option {
	return func(o *captureOptions) {
		o.bodyLimit = n
	}
}

// Capture builds a Snapshot from raw. Method, URL and headers are processed
// before the body is drained; draining is the only blocking step. Errors are
// always *CaptureError.
func Capture(ctx context.Context, raw RawRequest, opts ...Option) (*Snapshot, error) {
	o := captureOptions{authority: DefaultAuthority}
	for _, opt := range opts {
		opt(&o)
	}

	u, err := resolveURL(raw.Target, o.authority)
	if err != nil {
		return nil, err
	}

	headers := make(Header, len(raw.Headers))
	for _, p := range raw.Headers {
		if !httpguts.ValidHeaderFieldName(p.Name) {
			return nil, transportError("invalid header name %q", p.Name)
		}
		headers.Add(p.Name, p.Value)
	}

	body := []byte{}
	if raw.Body != nil {
		limit := raw.Body.limit
		if limit <= 0 {
			limit = o.bodyLimit
		}
		body, err = raw.Body.drain(ctx, limit)
		if err != nil {
			return nil, &CaptureError{Kind: KindBodyRead, Err: err}
		}
	}

	return &Snapshot{
		URL:     u,
		Method:  raw.Method,
		Headers: headers,
		Body:    body,
	}, nil
}

// resolveURL parses target, prefixing http://<authority> when it is origin-form.
func resolveURL(target, authority string) (*url.URL, error) {
	if target == "" {
		return nil, transportError("empty request target")
	}

	s := target
	if strings.HasPrefix(target, "/") {
		s = "http://" + authority + target
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, &CaptureError{Kind: KindTransport, Err: err}
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, transportError("request target %q is neither origin-form nor absolute-form", target)
	}
	return u, nil
}

// FromHTTP adapts a net/http request. net/http does not keep the wire order
// across different header names, so names are emitted sorted with Host first;
// values of one name keep their order.
func FromHTTP(r *http.Request) RawRequest {
	target := r.RequestURI
	if target == "" && r.URL != nil {
		if r.URL.IsAbs() {
			target = r.URL.String()
		} else {
			target = r.URL.RequestURI()
		}
	}

	pairs := make([]HeaderPair, 0, len(r.Header)+1)
	if r.Host != "" {
		pairs = append(pairs, HeaderPair{Name: "Host", Value: r.Host})
	}
	names := make([]string, 0, len(r.Header))
	for name := range r.Header {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range r.Header[name] {
			pairs = append(pairs, HeaderPair{Name: name, Value: v})
		}
	}

	var body *BodySource
	if r.Body != nil && r.Body != http.NoBody {
		body = NewBodySource(r.Body)
	}

	return RawRequest{
		Method:  r.Method,
		Target:  target,
		Headers: pairs,
		Body:    body,
	}
}

// CaptureHTTP captures r using its context. The body of r is consumed.
func CaptureHTTP(r *http.Request, opts ...Option) (*Snapshot, error) {
	return Capture(r.Context(), FromHTTP(r), opts...)
}
