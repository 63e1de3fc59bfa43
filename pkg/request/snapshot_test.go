package request

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawGet(target string) RawRequest {
	return RawRequest{Method: http.MethodGet, Target: target}
}

func TestCapture_AbsoluteFormTarget(t *testing.T) {
	snap, err := Capture(context.Background(), rawGet("http://example.com:8080/a/b?x=1&y=2"))
	require.NoError(t, err)

	assert.Equal(t, "http://example.com:8080/a/b?x=1&y=2", snap.URL.String())
	assert.Equal(t, "example.com:8080", snap.URL.Host)
}

func TestCapture_OriginFormTarget(t *testing.T) {
	snap, err := Capture(context.Background(), rawGet("/a/b?x=1"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost/a/b?x=1", snap.URL.String())
	assert.True(t, snap.URL.IsAbs())
}

func TestCapture_DefaultAuthorityOption(t *testing.T) {
	snap, err := Capture(context.Background(), rawGet("/ping"), WithDefaultAuthority("mock.internal:4280"))
	require.NoError(t, err)
	assert.Equal(t, "http://mock.internal:4280/ping", snap.URL.String())

	snap, err = Capture(context.Background(), rawGet("/ping"), WithDefaultAuthority(""))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost/ping", snap.URL.String())
}

func TestCapture_TransportErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"empty target", ""},
		{"asterisk form", "*"},
		{"control character", "/bad\x00path"},
		{"unterminated ipv6 host", "http://[::1/path"},
		{"missing scheme", "example.com/path"},
		{"scheme without host", "mailto:someone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := Capture(context.Background(), rawGet(tt.target))
			require.Error(t, err)
			assert.Nil(t, snap)

			var capErr *CaptureError
			require.ErrorAs(t, err, &capErr)
			assert.Equal(t, KindTransport, capErr.Kind)
			assert.ErrorIs(t, err, ErrTransport)
			assert.NotErrorIs(t, err, ErrBodyRead)
		})
	}
}

func TestCapture_InvalidHeaderName(t *testing.T) {
	body := NewBodySource(strings.NewReader("unread"))
	raw := RawRequest{
		Method:  http.MethodGet,
		Target:  "/",
		Headers: []HeaderPair{{Name: "Bad Header", Value: "x"}},
		Body:    body,
	}

	_, err := Capture(context.Background(), raw)
	require.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, BodyAvailable, body.State(), "body must not be drained when headers are rejected")
}

func TestCapture_MethodVerbatim(t *testing.T) {
	for _, method := range []string{"GET", "pAtCh", "PROPFIND", "get"} {
		raw := rawGet("/")
		raw.Method = method
		snap, err := Capture(context.Background(), raw)
		require.NoError(t, err)
		assert.Equal(t, method, snap.Method)
	}
}

func TestCapture_HeaderAggregation(t *testing.T) {
	raw := RawRequest{
		Method: http.MethodPost,
		Target: "/",
		Headers: []HeaderPair{
			{Name: "X-Foo", Value: "1"},
			{Name: "Content-Type", Value: "application/json"},
			{Name: "x-foo", Value: "2"},
			{Name: "X-FOO", Value: "3"},
		},
	}

	snap, err := Capture(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, 2, snap.Headers.Len())
	assert.Equal(t, []string{"1", "2", "3"}, snap.Headers.Values("x-foo"))
	assert.Equal(t, []string{"1", "2", "3"}, snap.Headers.Values("X-Foo"))
	assert.Equal(t, "application/json", snap.Headers.Get("content-type"))
	assert.Equal(t, "X-Foo", snap.Headers["x-foo"].Name, "display name is the first-seen casing")
}

func TestCapture_HeaderValuesPreserved(t *testing.T) {
	raw := RawRequest{
		Method: http.MethodGet,
		Target: "/",
		Headers: []HeaderPair{
			{Name: "X-Padded", Value: "  spaced  "},
			{Name: "X-Case", Value: "MiXeD"},
			{Name: "X-Empty", Value: ""},
		},
	}

	snap, err := Capture(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, []string{"  spaced  "}, snap.Headers.Values("x-padded"))
	assert.Equal(t, []string{"MiXeD"}, snap.Headers.Values("x-case"))
	assert.Equal(t, []string{""}, snap.Headers.Values("x-empty"))
}

func TestCapture_Body(t *testing.T) {
	body := NewBodySource(strings.NewReader(`{"a":1}`))
	snap, err := Capture(context.Background(), RawRequest{Method: "POST", Target: "/", Body: body})
	require.NoError(t, err)

	assert.Equal(t, []byte(`{"a":1}`), snap.Body)
	assert.Equal(t, BodyConsumed, body.State())
}

func TestCapture_NilBody(t *testing.T) {
	snap, err := Capture(context.Background(), rawGet("/"))
	require.NoError(t, err)
	assert.NotNil(t, snap.Body)
	assert.Empty(t, snap.Body)
}

func TestCapture_SourceIsSingleUse(t *testing.T) {
	body := NewBodySource(strings.NewReader("payload"))
	raw := RawRequest{Method: "PUT", Target: "/items/1", Body: body}

	_, err := Capture(context.Background(), raw)
	require.NoError(t, err)

	data, err := body.Drain(context.Background())
	assert.ErrorIs(t, err, ErrBodyConsumed)
	assert.Nil(t, data)

	_, err = Capture(context.Background(), raw)
	require.ErrorIs(t, err, ErrBodyRead)
	assert.ErrorIs(t, err, ErrBodyConsumed)
}

type failingReader struct {
	err error
}

func (r failingReader) Read([]byte) (int, error) {
	return 0, r.err
}

func TestCapture_BodyReadError(t *testing.T) {
	cause := errors.New("connection reset by peer")
	raw := RawRequest{Method: "POST", Target: "/", Body: NewBodySource(failingReader{err: cause})}

	snap, err := Capture(context.Background(), raw)
	require.Error(t, err)
	assert.Nil(t, snap)

	var capErr *CaptureError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, KindBodyRead, capErr.Kind)
	assert.ErrorIs(t, err, ErrBodyRead)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "body_read")
}

func TestCapture_BodyLimit(t *testing.T) {
	raw := RawRequest{Method: "POST", Target: "/", Body: NewBodySource(strings.NewReader("hello world"))}
	_, err := Capture(context.Background(), raw, WithBodyLimit(5))
	require.ErrorIs(t, err, ErrBodyRead)
	assert.ErrorIs(t, err, ErrBodyTooLarge)

	raw = RawRequest{Method: "POST", Target: "/", Body: NewBodySource(strings.NewReader("hello"))}
	snap, err := Capture(context.Background(), raw, WithBodyLimit(5))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(snap.Body))
}

func TestCapture_SourceLimitWins(t *testing.T) {
	raw := RawRequest{Method: "POST", Target: "/", Body: NewBodySource(strings.NewReader("abcdef"), WithLimit(3))}
	_, err := Capture(context.Background(), raw, WithBodyLimit(100))
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestCapture_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	raw := RawRequest{Method: "POST", Target: "/", Body: NewBodySource(strings.NewReader("data"))}
	snap, err := Capture(ctx, raw)
	assert.Nil(t, snap)
	require.ErrorIs(t, err, ErrBodyRead)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCapture_CancelUnblocksDrain(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_, _ = pw.Write([]byte("partial"))
		cancel()
	}()

	snap, err := Capture(ctx, RawRequest{Method: "POST", Target: "/", Body: NewBodySource(pr)})
	assert.Nil(t, snap, "no partial snapshot may be returned")
	require.ErrorIs(t, err, ErrBodyRead)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFromHTTP_OriginForm(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/a/b?x=1", strings.NewReader(`{"a":1}`))
	req.Header.Add("X-Foo", "1")
	req.Header.Add("X-Foo", "2")
	req.Header.Set("Content-Type", "application/json")

	snap, err := CaptureHTTP(req)
	require.NoError(t, err)

	assert.Equal(t, "POST", snap.Method)
	assert.Equal(t, "http://localhost/a/b?x=1", snap.URL.String())
	assert.Equal(t, []string{"1", "2"}, snap.Headers.Values("x-foo"))
	assert.Equal(t, "application/json", snap.Headers.Get("CONTENT-TYPE"))
	assert.Equal(t, "example.com", snap.Headers.Get("host"))
	assert.Equal(t, `{"a":1}`, string(snap.Body))
}

func TestFromHTTP_AbsoluteForm(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://api.example.com:8443/v1/items?page=2", nil)

	snap, err := CaptureHTTP(req)
	require.NoError(t, err)
	assert.Equal(t, "http://api.example.com:8443/v1/items?page=2", snap.URL.String())
}

func TestFromHTTP_ClientRequest(t *testing.T) {
	req, err := http.NewRequest(http.MethodDelete, "https://example.org/things/7", nil)
	require.NoError(t, err)

	raw := FromHTTP(req)
	assert.Equal(t, "https://example.org/things/7", raw.Target)
	assert.Nil(t, raw.Body)

	req.URL = &url.URL{Path: "/relative", RawQuery: "q=1"}
	raw = FromHTTP(req)
	assert.Equal(t, "/relative?q=1", raw.Target)
}

func TestFromHTTP_HeaderOrder(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Zeta", "z")
	req.Header.Set("Alpha", "a")

	raw := FromHTTP(req)
	require.Len(t, raw.Headers, 3)
	assert.Equal(t, HeaderPair{Name: "Host", Value: "example.com"}, raw.Headers[0])
	assert.Equal(t, "Alpha", raw.Headers[1].Name)
	assert.Equal(t, "Zeta", raw.Headers[2].Name)
}

func TestCapture_ConcurrentIndependentRequests(t *testing.T) {
	const n = 32
	var wg sync.WaitGroup
	snaps := make([]*Snapshot, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := strings.Repeat("x", i)
			snaps[i], errs[i] = Capture(context.Background(), RawRequest{
				Method:  "POST",
				Target:  "/c",
				Headers: []HeaderPair{{Name: "X-Index", Value: strings.Repeat("i", i)}},
				Body:    NewBodySource(strings.NewReader(body)),
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Len(t, snaps[i].Body, i)
		assert.Equal(t, strings.Repeat("i", i), snaps[i].Headers.Get("x-index"))
	}
}
