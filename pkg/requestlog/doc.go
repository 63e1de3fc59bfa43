// Package requestlog keeps the history of captured requests for inspection
// through the admin API and the CLI.
//
// It is separate from operational logging (log/slog): an Entry is the
// user-facing record of one request, built from a request.Snapshot.
//
// # Stores
//
// MemoryStore is a bounded FIFO buffer that also supports subscriptions for
// streaming new entries. SQLiteStore persists entries with the same bound so
// history survives restarts.
//
//	store := requestlog.NewMemoryStore(1000)
//	store.Log(requestlog.FromSnapshot(snap, r.RemoteAddr))
//	recent := store.List(&requestlog.Filter{Method: "POST", Limit: 10})
package requestlog
