// Package store maps the index onto the ordered key-value engine. Four kinds
// of record share one keyspace:
//
//	"f:" + filePath        dependency record for one compiled file
//	<file:line:col>        one entity, keyed by its defining location string
//	"d:" + name            dictionary row, NUL-delimited location strings
//	" "  (single space)    size-prefixed blob of the full entry set
//
// Location-string keys always start with an absolute path, so they can never
// collide with the prefixed records.
package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xenodium/rtags/internal/deps"
	"github.com/xenodium/rtags/internal/index"
	"github.com/xenodium/rtags/internal/kv"
)

const (
	depPrefix   = "f:"
	dictPrefix  = "d:"
	entrySetKey = " "
)

// ErrNoEntrySet is returned when the full-entry-set record is missing or
// unreadable; an update cannot proceed without it.
var ErrNoEntrySet = errors.New("store: entry set record missing")

// Writer serializes entities, dictionary rows and dependency records into
// the key-value engine. Writes are independent puts; there is no multi-key
// atomicity, and a partially written database is recovered by a full rebuild.
type Writer struct {
	db *kv.DB
}

// NewWriter wraps an open database.
func NewWriter(db *kv.DB) *Writer {
	return &Writer{db: db}
}

// WriteEntity writes one entity under its defining location string. Entities
// with an invalid cursor key are skipped.
func (w *Writer) WriteEntity(ent *index.Entity) error {
	key := ent.Cursor.Key
	if !key.Valid() {
		return nil
	}
	if err := w.db.Put([]byte(key.LocationString()), encodeRefValue(ent)); err != nil {
		return fmt.Errorf("write entity %s: %w", key, err)
	}
	return nil
}

// WriteDictionary writes one row per name variant.
func (w *Writer) WriteDictionary(dict index.Dictionary) error {
	for name, locs := range dict {
		if err := w.db.Put([]byte(dictPrefix+name), encodeDictValue(locs)); err != nil {
			return fmt.Errorf("write dictionary row %q: %w", name, err)
		}
	}
	return nil
}

// WriteDependencies writes one record per compiled file.
func (w *Writer) WriteDependencies(records []deps.Record) error {
	for _, rec := range records {
		if err := w.db.Put([]byte(depPrefix+rec.File), encodeDepsValue(rec)); err != nil {
			return fmt.Errorf("write dependencies for %s: %w", rec.File, err)
		}
	}
	return nil
}

// WriteEntitySet writes the full entry set blob under the single-space key,
// so updates can reload prior entities without re-walking clean files.
func (w *Writer) WriteEntitySet(entities []*index.Entity) error {
	if err := w.db.Put([]byte(entrySetKey), encodeEntitySet(entities)); err != nil {
		return fmt.Errorf("write entity set: %w", err)
	}
	return nil
}

// Reader reads records back out of the engine.
type Reader struct {
	db *kv.DB
}

// NewReader wraps an open database.
func NewReader(db *kv.DB) *Reader {
	return &Reader{db: db}
}

// Dependencies scans all dependency records in file-path order.
func (r *Reader) Dependencies() ([]deps.Record, error) {
	var records []deps.Record
	err := r.db.Scan([]byte(depPrefix), func(key, value []byte) error {
		file := strings.TrimPrefix(string(key), depPrefix)
		rec, err := decodeDepsValue(file, value)
		if err != nil {
			return fmt.Errorf("dependency record for %s: %w", file, err)
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// EntitySet reloads the full entry set blob. A missing or corrupt record
// yields ErrNoEntrySet.
func (r *Reader) EntitySet() ([]*index.Entity, error) {
	value, err := r.db.Get([]byte(entrySetKey))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrNoEntrySet
	}
	if err != nil {
		return nil, err
	}
	entities, err := decodeEntitySet(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoEntrySet, err)
	}
	return entities, nil
}

// Lookup returns the defining location strings recorded under a name
// variant; nil when the name is not in the dictionary.
func (r *Reader) Lookup(name string) ([]string, error) {
	value, err := r.db.Get([]byte(dictPrefix + name))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeDictValue(value), nil
}

// LookupPrefix scans dictionary rows whose name starts with prefix,
// returning name → locations.
func (r *Reader) LookupPrefix(prefix string) (map[string][]string, error) {
	out := make(map[string][]string)
	err := r.db.Scan([]byte(dictPrefix+prefix), func(key, value []byte) error {
		name := strings.TrimPrefix(string(key), dictPrefix)
		out[name] = decodeDictValue(value)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReferencesTo returns, for the entity at a defining location string, the
// location it resolves to and the locations that reference it.
func (r *Reader) ReferencesTo(loc string) (target string, refs []string, err error) {
	value, err := r.db.Get([]byte(loc))
	if errors.Is(err, kv.ErrNotFound) {
		return "", nil, fmt.Errorf("store: no entity at %s", loc)
	}
	if err != nil {
		return "", nil, err
	}
	return decodeRefValue(value)
}
