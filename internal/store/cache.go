// Package store provides a SQLite-backed cache of parsed usage events.
// Events are cached per source file in line order; deduplication is
// never cached, because identity collisions cross file boundaries and
// must be re-resolved on every run.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"blockwatch/internal/event"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Cache is a handle to the event cache database.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at the given path.
func Open(dbPath string) (*Cache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// FileInfo holds the tracked mtime and size for a source file.
type FileInfo struct {
	MtimeNs   int64
	SizeBytes int64
}

// TrackedFiles returns file_path -> FileInfo for every cached file.
func (c *Cache) TrackedFiles() (map[string]FileInfo, error) {
	rows, err := c.db.Query("SELECT file_path, mtime_ns, size_bytes FROM file_tracker")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]FileInfo)
	for rows.Next() {
		var path string
		var fi FileInfo
		if err := rows.Scan(&path, &fi.MtimeNs, &fi.SizeBytes); err != nil {
			return nil, err
		}
		result[path] = fi
	}
	return result, rows.Err()
}

// SaveFileEvents replaces the cached events for one file in a single
// transaction, preserving line order through seq.
func (c *Cache) SaveFileEvents(path string, mtimeNs, sizeBytes int64, events []*event.UsageEvent) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM events WHERE file_path = ?", path); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO file_tracker (file_path, mtime_ns, size_bytes, parsed_at)
		VALUES (?, ?, ?, ?)`, path, mtimeNs, sizeBytes, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO events
		(file_path, seq, session_id, ts, model, input_tokens, output_tokens,
		 cache_write_tokens, cache_read_tokens, cost_usd, is_limit_error, message_id, request_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for i, ev := range events {
		var cost any
		if ev.CostUSD != nil {
			cost = *ev.CostUSD
		}
		limitErr := 0
		if ev.IsLimitError {
			limitErr = 1
		}
		if _, err := stmt.Exec(
			path, i, ev.SessionID, ev.Timestamp.UTC().Format(time.RFC3339Nano), ev.Model,
			ev.Input, ev.Output, ev.CacheWrite, ev.CacheRead,
			cost, limitErr, ev.MessageID, ev.RequestID,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadFileEvents returns one file's cached events in line order.
func (c *Cache) LoadFileEvents(path string) ([]*event.UsageEvent, error) {
	rows, err := c.db.Query(`SELECT
		session_id, ts, model, input_tokens, output_tokens,
		cache_write_tokens, cache_read_tokens, cost_usd, is_limit_error, message_id, request_id
		FROM events WHERE file_path = ? ORDER BY seq`, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []*event.UsageEvent
	for rows.Next() {
		var (
			ev       event.UsageEvent
			ts       string
			cost     sql.NullFloat64
			limitErr int
			msgID    sql.NullString
			reqID    sql.NullString
		)
		if err := rows.Scan(
			&ev.SessionID, &ts, &ev.Model, &ev.Input, &ev.Output,
			&ev.CacheWrite, &ev.CacheRead, &cost, &limitErr, &msgID, &reqID,
		); err != nil {
			return nil, err
		}
		ev.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("cached timestamp %q: %w", ts, err)
		}
		if cost.Valid {
			v := cost.Float64
			ev.CostUSD = &v
		}
		ev.IsLimitError = limitErr != 0
		ev.MessageID = msgID.String
		ev.RequestID = reqID.String
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// DeleteFile removes a file's tracking entry and, via cascade, its
// events.
func (c *Cache) DeleteFile(path string) error {
	_, err := c.db.Exec("DELETE FROM file_tracker WHERE file_path = ?", path)
	return err
}

// EventCount returns the number of cached events.
func (c *Cache) EventCount() (int, error) {
	var count int
	err := c.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&count)
	return count, err
}

// DefaultPath returns the cache location under the user cache dir.
func DefaultPath() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "blockwatch", "events.db")
}
