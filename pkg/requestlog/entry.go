package requestlog

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/zeebo/xxh3"

	"github.com/getmockd/reqcap/pkg/request"
)

// MaxBodySize is the number of body bytes kept in an Entry for display.
const MaxBodySize = 10 * 1024

// Entry is the stored record of one captured request.
type Entry struct {
	// ID is a unique identifier assigned by the store.
	ID string `json:"id"`

	// Timestamp is when the request was captured.
	Timestamp time.Time `json:"timestamp"`

	// Method is the request method as received.
	Method string `json:"method"`

	// URL is the absolute request URL.
	URL string `json:"url"`

	// Path and QueryString are split out of URL for filtering.
	Path        string `json:"path"`
	QueryString string `json:"queryString,omitempty"`

	// Headers maps display names to values in arrival order.
	Headers map[string][]string `json:"headers,omitempty"`

	// Body is the body as text, truncated to MaxBodySize.
	Body string `json:"body,omitempty"`

	// BodySize is the full body size in bytes.
	BodySize int `json:"bodySize"`

	// BodyHash is an xxh3 fingerprint of the full body, so identical payloads
	// can be spotted even when Body is truncated.
	BodyHash string `json:"bodyHash"`

	// RemoteAddr is the client address.
	RemoteAddr string `json:"remoteAddr,omitempty"`

	// Rendered is the diagnostic text form of the request.
	Rendered string `json:"rendered,omitempty"`

	// Error is set when capture failed; the other fields are then partial.
	Error string `json:"error,omitempty"`
}

// FromSnapshot builds an Entry for snap. ID and Timestamp are left for the store.
// Body and Rendered both carry at most MaxBodySize bytes of body text.
func FromSnapshot(snap *request.Snapshot, remoteAddr string) *Entry {
	body := bodyPreview(snap.Body)

	rendered := snap.String()
	if len(snap.Body) > MaxBodySize {
		short := *snap
		short.Body = []byte(body)
		rendered = short.String()
	}

	e := &Entry{
		Method:     snap.Method,
		URL:        snap.URL.String(),
		Path:       snap.URL.Path,
		Headers:    snap.Headers.Map(),
		Body:       body,
		BodySize:   len(snap.Body),
		BodyHash:   BodyHash(snap.Body),
		RemoteAddr: remoteAddr,
		Rendered:   rendered,
	}
	if e.Path == "" {
		e.Path = "/"
	}
	e.QueryString = snap.URL.RawQuery
	return e
}

// bodyPreview returns the body as text truncated to MaxBodySize. Only a prefix
// of a large body is decoded.
func bodyPreview(body []byte) string {
	if len(body) > MaxBodySize+utf8.UTFMax {
		body = body[:MaxBodySize+utf8.UTFMax]
	}
	return TruncateBody(request.LossyText(string(body)), MaxBodySize)
}

// FromError records a request that could not be captured.
func FromError(method, target, remoteAddr string, err error) *Entry {
	return &Entry{
		Method:     method,
		URL:        target,
		Path:       target,
		RemoteAddr: remoteAddr,
		Error:      err.Error(),
	}
}

// BodyHash returns the hex xxh3 hash of body.
func BodyHash(body []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(body))
}

// TruncateBody cuts data to at most maxSize bytes and appends "...(truncated)".
// The cut never splits a UTF-8 sequence.
func TruncateBody(data string, maxSize int) string {
	if maxSize <= 0 {
		maxSize = MaxBodySize
	}
	if len(data) <= maxSize {
		return data
	}
	cut := maxSize
	for cut > 0 && !utf8.RuneStart(data[cut]) {
		cut--
	}
	return data[:cut] + "...(truncated)"
}
