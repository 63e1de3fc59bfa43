package requestlog

import "strings"

// Logger records entries.
type Logger interface {
	Log(entry *Entry)
}

// Store is request history storage queried by the admin API.
type Store interface {
	Logger

	// Get returns the entry with id, or nil.
	Get(id string) *Entry

	// List returns entries newest first, optionally filtered.
	List(filter *Filter) []*Entry

	// Clear removes all entries.
	Clear()

	// Count returns the number of stored entries.
	Count() int
}

// Filter selects entries in List.
type Filter struct {
	// Method matches exactly.
	Method string

	// Path matches as a prefix.
	Path string

	// HasError selects failed (true) or successful (false) captures.
	HasError *bool

	// Limit caps the number of results; zero means no cap.
	Limit int

	// Offset skips results after filtering.
	Offset int
}

// Matches reports whether e passes the Method, Path and HasError criteria.
func (f *Filter) Matches(e *Entry) bool {
	if f == nil {
		return true
	}
	if f.Method != "" && e.Method != f.Method {
		return false
	}
	if f.Path != "" && !strings.HasPrefix(e.Path, f.Path) {
		return false
	}
	if f.HasError != nil && *f.HasError != (e.Error != "") {
		return false
	}
	return true
}

// page applies Offset and Limit.
func (f *Filter) page(entries []*Entry) []*Entry {
	if f == nil {
		return entries
	}
	if f.Offset > 0 {
		if f.Offset >= len(entries) {
			return []*Entry{}
		}
		entries = entries[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(entries) {
		entries = entries[:f.Limit]
	}
	return entries
}

// Subscriber receives new entries.
type Subscriber chan *Entry

// SubscribableStore is a Store that can stream new entries.
type SubscribableStore interface {
	Store

	// Subscribe returns a channel of new entries and a function that
	// unregisters and closes it.
	Subscribe() (Subscriber, func())
}
