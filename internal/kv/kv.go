// Package kv is the ordered key-value engine behind the index database: a
// single SQLite table keyed by BLOB primary key, giving point get/put and
// ordered prefix iteration. SQLite compares BLOBs bytewise, so iteration
// order is plain memcmp order.
package kv

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by Get for absent keys.
var ErrNotFound = errors.New("kv: key not found")

// DB is an open database.
type DB struct {
	db *sql.DB
}

// Open opens or creates the database at path with WAL mode enabled.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS records (
  key   BLOB PRIMARY KEY,
  value BLOB NOT NULL
) WITHOUT ROWID`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Put stores value under key, replacing any prior value.
func (d *DB) Put(key, value []byte) error {
	_, err := d.db.Exec("INSERT OR REPLACE INTO records (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

// Get returns the value stored under key, or ErrNotFound.
func (d *DB) Get(key []byte) ([]byte, error) {
	var value []byte
	err := d.db.QueryRow("SELECT value FROM records WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

// Scan iterates all keys with the given prefix in ascending key order,
// stopping at the first key outside the prefix. Returning an error from fn
// aborts the scan.
func (d *DB) Scan(prefix []byte, fn func(key, value []byte) error) error {
	var rows *sql.Rows
	var err error
	if upper, bounded := prefixUpperBound(prefix); bounded {
		rows, err = d.db.Query(
			"SELECT key, value FROM records WHERE key >= ? AND key < ? ORDER BY key", prefix, upper)
	} else {
		rows, err = d.db.Query(
			"SELECT key, value FROM records WHERE key >= ? ORDER BY key", prefix)
	}
	if err != nil {
		return fmt.Errorf("scan %q: %w", prefix, err)
	}
	defer rows.Close()
	for rows.Next() {
		var key, value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("scan %q: %w", prefix, err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return rows.Err()
}

// prefixUpperBound returns the smallest key greater than every key with the
// given prefix. A prefix of all 0xff bytes (or empty) has no upper bound.
func prefixUpperBound(prefix []byte) ([]byte, bool) {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1], true
		}
	}
	return nil, false
}
