package requestlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/getmockd/reqcap/pkg/logging"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS requests (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT    NOT NULL UNIQUE,
	ts          INTEGER NOT NULL,
	method      TEXT    NOT NULL,
	url         TEXT    NOT NULL,
	path        TEXT    NOT NULL,
	query       TEXT    NOT NULL DEFAULT '',
	headers     TEXT    NOT NULL DEFAULT '{}',
	body        TEXT    NOT NULL DEFAULT '',
	body_size   INTEGER NOT NULL DEFAULT 0,
	body_hash   TEXT    NOT NULL DEFAULT '',
	remote_addr TEXT    NOT NULL DEFAULT '',
	rendered    TEXT    NOT NULL DEFAULT '',
	error       TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_requests_method ON requests(method);
`

const entryColumns = `id, ts, method, url, path, query, headers, body, body_size, body_hash, remote_addr, rendered, error`

// SQLiteStore persists entries in an SQLite database, keeping at most
// maxEntries rows.
type SQLiteStore struct {
	db         *sql.DB
	maxEntries int
	log        *slog.Logger
}

// OpenSQLite opens (creating if needed) the database at path. ":memory:"
// gives a private in-memory database.
func OpenSQLite(path string, maxEntries int) (*SQLiteStore, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("requestlog: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("requestlog: open: %w", err)
	}
	// One connection: SQLite has a single writer, and each connection to
	// ":memory:" would otherwise see its own empty database.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("requestlog: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("requestlog: schema: %w", err)
	}

	return &SQLiteStore{db: db, maxEntries: maxEntries, log: logging.Nop()}, nil
}

// SetLogger sets the logger used to report write failures.
func (s *SQLiteStore) SetLogger(log *slog.Logger) {
	if log != nil {
		s.log = log
	} else {
		s.log = logging.Nop()
	}
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Log inserts entry and evicts the oldest rows beyond capacity. Failures are
// logged; a broken history must not break request handling.
func (s *SQLiteStore) Log(entry *Entry) {
	if entry == nil {
		return
	}
	stamp(entry)
	if err := s.insert(context.Background(), entry); err != nil {
		s.log.Warn("failed to persist request log entry", "id", entry.ID, "error", err)
	}
}

func (s *SQLiteStore) insert(ctx context.Context, e *Entry) error {
	headers, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(e.Headers)
	if err != nil {
		return fmt.Errorf("encode headers: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO requests (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp.UnixNano(), e.Method, e.URL, e.Path, e.QueryString, string(headers),
		e.Body, e.BodySize, e.BodyHash, e.RemoteAddr, e.Rendered, e.Error,
	)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`DELETE FROM requests WHERE seq <= (SELECT MAX(seq) FROM requests) - ?`, s.maxEntries)
	if err != nil {
		return fmt.Errorf("evict: %w", err)
	}
	return tx.Commit()
}

// Get returns the entry with id, or nil.
func (s *SQLiteStore) Get(id string) *Entry {
	row := s.db.QueryRow(`SELECT `+entryColumns+` FROM requests WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Warn("failed to read request log entry", "id", id, "error", err)
		}
		return nil
	}
	return e
}

// List returns matching entries, newest first.
func (s *SQLiteStore) List(filter *Filter) []*Entry {
	var where []string
	var args []any
	limit, offset := -1, 0

	if filter != nil {
		if filter.Method != "" {
			where = append(where, "method = ?")
			args = append(args, filter.Method)
		}
		if filter.Path != "" {
			where = append(where, "instr(path, ?) = 1")
			args = append(args, filter.Path)
		}
		if filter.HasError != nil {
			if *filter.HasError {
				where = append(where, "error <> ''")
			} else {
				where = append(where, "error = ''")
			}
		}
		if filter.Limit > 0 {
			limit = filter.Limit
		}
		if filter.Offset > 0 {
			offset = filter.Offset
		}
	}

	q := `SELECT ` + entryColumns + ` FROM requests`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY seq DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.Query(q, args...)
	if err != nil {
		s.log.Warn("failed to list request log entries", "error", err)
		return []*Entry{}
	}
	defer rows.Close()

	result := []*Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			s.log.Warn("failed to scan request log entry", "error", err)
			continue
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		s.log.Warn("failed to iterate request log entries", "error", err)
	}
	return result
}

// Clear removes all entries.
func (s *SQLiteStore) Clear() {
	if _, err := s.db.Exec(`DELETE FROM requests`); err != nil {
		s.log.Warn("failed to clear request log", "error", err)
	}
}

// Count returns the number of stored entries.
func (s *SQLiteStore) Count() int {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM requests`).Scan(&n); err != nil {
		s.log.Warn("failed to count request log entries", "error", err)
		return 0
	}
	return n
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		e       Entry
		ts      int64
		headers string
	)
	err := row.Scan(&e.ID, &ts, &e.Method, &e.URL, &e.Path, &e.QueryString, &headers,
		&e.Body, &e.BodySize, &e.BodyHash, &e.RemoteAddr, &e.Rendered, &e.Error)
	if err != nil {
		return nil, err
	}
	e.Timestamp = time.Unix(0, ts)
	if headers != "" && headers != "null" {
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.UnmarshalFromString(headers, &e.Headers); err != nil {
			return nil, fmt.Errorf("decode headers: %w", err)
		}
	}
	return &e, nil
}
