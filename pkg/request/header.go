package request

import (
	"net/http"
	"slices"
	"sort"
)

// HeaderPair is a single header line as it arrived on the wire.
type HeaderPair struct {
	Name  string
	Value string
}

// HeaderField holds every value received for one header name.
type HeaderField struct {
	// Name is the casing of the first occurrence.
	Name string
	// Values are in arrival order, byte-for-byte as received.
	Values []string
}

// Header maps a normalized header name to its field. Use the methods rather
// than indexing directly so lookups go through NormalizeName.
type Header map[string]*HeaderField

// NormalizeName returns the lookup key for a header name: ASCII letters are
// lowercased, every other byte is kept as is.
func NormalizeName(name string) string {
	for i := 0; i < len(name); i++ {
		if c := name[i]; 'A' <= c && c <= 'Z' {
			return lowerASCII(name, i)
		}
	}
	return name
}

func lowerASCII(s string, from int) string {
	b := []byte(s)
	for i := from; i < len(b); i++ {
		if c := b[i]; 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// Add appends value to the field for name, creating the field on first use.
func (h Header) Add(name, value string) {
	key := NormalizeName(name)
	if f, ok := h[key]; ok {
		f.Values = append(f.Values, value)
		return
	}
	h[key] = &HeaderField{Name: name, Values: []string{value}}
}

// Values returns a copy of all values for name, or nil if absent.
func (h Header) Values(name string) []string {
	f, ok := h[NormalizeName(name)]
	if !ok {
		return nil
	}
	return slices.Clone(f.Values)
}

// Get returns the first value for name, or "" if absent.
func (h Header) Get(name string) string {
	f, ok := h[NormalizeName(name)]
	if !ok || len(f.Values) == 0 {
		return ""
	}
	return f.Values[0]
}

// Has reports whether name was present.
func (h Header) Has(name string) bool {
	_, ok := h[NormalizeName(name)]
	return ok
}

// Len returns the number of distinct header names.
func (h Header) Len() int {
	return len(h)
}

// Keys returns the normalized names in sorted order.
func (h Header) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy.
func (h Header) Clone() Header {
	out := make(Header, len(h))
	for k, f := range h {
		out[k] = &HeaderField{Name: f.Name, Values: slices.Clone(f.Values)}
	}
	return out
}

// HTTPHeader converts to an http.Header with canonical keys, for code that
// works with net/http types.
func (h Header) HTTPHeader() http.Header {
	out := make(http.Header, len(h))
	for _, k := range h.Keys() {
		f := h[k]
		ck := http.CanonicalHeaderKey(f.Name)
		out[ck] = append(out[ck], f.Values...)
	}
	return out
}

// Map returns display name to values, the shape used by JSON consumers.
func (h Header) Map() map[string][]string {
	out := make(map[string][]string, len(h))
	for _, f := range h {
		out[f.Name] = slices.Clone(f.Values)
	}
	return out
}
