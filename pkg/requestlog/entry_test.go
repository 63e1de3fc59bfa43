package requestlog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/reqcap/pkg/request"
)

func capture(t *testing.T, method, target, body string, headers ...request.HeaderPair) *request.Snapshot {
	t.Helper()
	snap, err := request.Capture(context.Background(), request.RawRequest{
		Method:  method,
		Target:  target,
		Headers: headers,
		Body:    request.NewBodySource(strings.NewReader(body)),
	})
	require.NoError(t, err)
	return snap
}

func TestFromSnapshot(t *testing.T) {
	snap := capture(t, "POST", "/api/orders?dry=1", `{"id":1}`,
		request.HeaderPair{Name: "Content-Type", Value: "application/json"},
		request.HeaderPair{Name: "X-Trace", Value: "a"},
		request.HeaderPair{Name: "x-trace", Value: "b"},
	)

	e := FromSnapshot(snap, "10.0.0.1:5555")

	assert.Empty(t, e.ID)
	assert.Equal(t, "POST", e.Method)
	assert.Equal(t, "http://localhost/api/orders?dry=1", e.URL)
	assert.Equal(t, "/api/orders", e.Path)
	assert.Equal(t, "dry=1", e.QueryString)
	assert.Equal(t, []string{"a", "b"}, e.Headers["X-Trace"])
	assert.Equal(t, `{"id":1}`, e.Body)
	assert.Equal(t, 8, e.BodySize)
	assert.Equal(t, BodyHash([]byte(`{"id":1}`)), e.BodyHash)
	assert.Len(t, e.BodyHash, 16)
	assert.Equal(t, "10.0.0.1:5555", e.RemoteAddr)
	assert.Equal(t, snap.String(), e.Rendered)
	assert.Empty(t, e.Error)
}

func TestFromSnapshot_TruncatesLargeBody(t *testing.T) {
	body := strings.Repeat("z", MaxBodySize+50)
	e := FromSnapshot(capture(t, "PUT", "/big", body), "")

	assert.Equal(t, MaxBodySize+50, e.BodySize)
	assert.True(t, strings.HasSuffix(e.Body, "...(truncated)"))
	assert.Equal(t, BodyHash([]byte(body)), e.BodyHash)
}

func TestFromSnapshot_RenderedUsesTruncatedBody(t *testing.T) {
	body := strings.Repeat("q", 200<<10)
	snap := capture(t, "POST", "/upload", body,
		request.HeaderPair{Name: "Content-Type", Value: "text/plain"},
	)

	e := FromSnapshot(snap, "")

	assert.Len(t, e.Body, MaxBodySize+len("...(truncated)"))
	assert.Less(t, len(e.Rendered), MaxBodySize+1024)
	assert.Equal(t, "POST http://localhost/upload\nContent-Type: text/plain\n"+e.Body+"\n", e.Rendered)
	assert.Len(t, snap.Body, 200<<10, "the snapshot itself is untouched")
}

func TestFromSnapshot_TruncatedBodyIsValidUTF8(t *testing.T) {
	body := "a" + strings.Repeat("é", MaxBodySize)
	e := FromSnapshot(capture(t, "POST", "/utf8", body), "")

	assert.True(t, utf8.ValidString(e.Body))
	assert.True(t, utf8.ValidString(e.Rendered))
	assert.True(t, strings.HasSuffix(e.Body, "...(truncated)"))
}

func TestFromSnapshot_RootPath(t *testing.T) {
	e := FromSnapshot(capture(t, "GET", "http://example.com", ""), "")
	assert.Equal(t, "/", e.Path)
}

func TestFromError(t *testing.T) {
	e := FromError("GET", "*", "1.2.3.4:1", errors.New("bad target"))
	assert.Equal(t, "bad target", e.Error)
	assert.Equal(t, "*", e.URL)
}

func TestBodyHash(t *testing.T) {
	assert.Equal(t, BodyHash([]byte("abc")), BodyHash([]byte("abc")))
	assert.NotEqual(t, BodyHash([]byte("abc")), BodyHash([]byte("abd")))
}

func TestTruncateBody(t *testing.T) {
	assert.Equal(t, "short", TruncateBody("short", 10))
	assert.Equal(t, "abc...(truncated)", TruncateBody("abcdef", 3))
	assert.Equal(t, strings.Repeat("a", 10), TruncateBody(strings.Repeat("a", 10), 0))
}

func TestTruncateBody_RuneBoundary(t *testing.T) {
	assert.Equal(t, "a...(truncated)", TruncateBody("aéb", 2))
	assert.Equal(t, "aé...(truncated)", TruncateBody("aéb", 3))
	assert.Equal(t, "...(truncated)", TruncateBody("日本", 2))

	out := TruncateBody(strings.Repeat("日", 100), 50)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, strings.Repeat("日", 16)+"...(truncated)", out)
}
