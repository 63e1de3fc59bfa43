package request

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustParseURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	require.NoError(t, err)
	return u
}

func snapshotWithBody(body string) *Snapshot {
	return &Snapshot{
		Method:  "POST",
		URL:     &url.URL{Scheme: "http", Host: "localhost", Path: "/"},
		Headers: Header{},
		Body:    []byte(body),
	}
}
