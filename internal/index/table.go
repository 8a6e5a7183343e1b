// Package index implements the entity-resolution core: deduplicating
// repeated sightings of the same symbol across translation units, linking
// declarations to out-of-line definitions, accumulating inbound reference
// sets, and building the name dictionary.
package index

import (
	"sort"

	"github.com/xenodium/rtags/internal/cursor"
)

// Data is one occurrence: its key plus the enclosing-scope name chain,
// innermost first, captured when the occurrence was seen.
type Data struct {
	Key     cursor.Key
	Parents []string
}

// Entity is the deduplicated record for one occurrence. Cursor is where the
// entity was seen; Ref is what it resolves to (its definition, or what it
// refers to). Refs is the inbound set of location strings, populated only by
// Link. An entity's Cursor key is always valid; Ref may stay null.
type Entity struct {
	HasDefinition bool
	Cursor        Data
	Ref           Data
	Refs          map[string]struct{}
}

// AddRef inserts a location string into the inbound reference set.
func (e *Entity) AddRef(loc string) {
	if e.Refs == nil {
		e.Refs = make(map[string]struct{})
	}
	e.Refs[loc] = struct{}{}
}

// SortedRefs returns the inbound reference set in sorted order.
func (e *Entity) SortedRefs() []string {
	out := make([]string, 0, len(e.Refs))
	for loc := range e.Refs {
		out = append(out, loc)
	}
	sort.Strings(out)
	return out
}

// Table is the entity table for one index build: an arena of entities in
// creation order plus a map from location key to arena id. All cross-entity
// links resolve through the arena, never through held pointers.
type Table struct {
	entities []*Entity
	byLoc    map[string]int
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{byLoc: make(map[string]int)}
}

// NewTableFrom builds a table from previously collected entities, preserving
// their order. Entities whose cursor file is in skipFiles are dropped; their
// occurrences will be re-collected.
func NewTableFrom(entities []*Entity, skipFiles map[string]bool) *Table {
	t := NewTable()
	for _, e := range entities {
		if !e.Cursor.Key.Valid() || skipFiles[e.Cursor.Key.File] {
			continue
		}
		t.byLoc[e.Cursor.Key.LocationKey()] = len(t.entities)
		t.entities = append(t.entities, e)
	}
	return t
}

// Len returns the number of entities in the arena.
func (t *Table) Len() int { return len(t.entities) }

// Entities returns the arena in creation order.
func (t *Table) Entities() []*Entity { return t.entities }

// Get returns the entity at the given location key, or nil.
func (t *Table) Get(locKey string) *Entity {
	id, ok := t.byLoc[locKey]
	if !ok {
		return nil
	}
	return t.entities[id]
}

func (t *Table) lookup(locKey string) (*Entity, bool) {
	id, ok := t.byLoc[locKey]
	if !ok {
		return nil, false
	}
	return t.entities[id], true
}

func (t *Table) create(locKey string) *Entity {
	e := &Entity{}
	t.byLoc[locKey] = len(t.entities)
	t.entities = append(t.entities, e)
	return e
}

// Merge folds a worker's private table into t. Entities unseen by t are
// adopted; where both tables saw a location, an entry that already has a
// definition wins, and among definition-less sightings a resolved reference
// is never replaced by a self-referential one. This matches the collection
// dedup rules, so merging private tables yields the same outcome as serial
// collection regardless of worker order.
func (t *Table) Merge(o *Table) {
	for _, e := range o.entities {
		locKey := e.Cursor.Key.LocationKey()
		existing, ok := t.lookup(locKey)
		if !ok {
			t.byLoc[locKey] = len(t.entities)
			t.entities = append(t.entities, e)
			continue
		}
		if existing.HasDefinition {
			continue
		}
		if e.HasDefinition {
			existing.HasDefinition = true
			existing.Cursor = e.Cursor
			existing.Ref = e.Ref
			continue
		}
		if !e.Ref.Key.Valid() {
			continue
		}
		if !existing.Ref.Key.Valid() || existing.Ref.Key.Equal(existing.Cursor.Key) {
			existing.Cursor = e.Cursor
			existing.Ref = e.Ref
		}
	}
}

// ResetRefs clears every inbound reference set so Link can rebuild them.
func (t *Table) ResetRefs() {
	for _, e := range t.entities {
		e.Refs = nil
	}
}
