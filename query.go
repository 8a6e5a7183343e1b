package rtags

import (
	"fmt"

	"github.com/xenodium/rtags/internal/deps"
	"github.com/xenodium/rtags/internal/kv"
	"github.com/xenodium/rtags/internal/store"
)

// Query is a read-only handle on an indexed database.
type Query struct {
	db *kv.DB
	r  *store.Reader
}

// Query opens the engine's database for reading.
func (e *Engine) Query() (*Query, error) {
	db, err := kv.Open(e.dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &Query{db: db, r: store.NewReader(db)}, nil
}

// OpenQuery opens a database directly, without an Engine.
func OpenQuery(dbPath string) (*Query, error) {
	db, err := kv.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &Query{db: db, r: store.NewReader(db)}, nil
}

// Close releases the database handle.
func (q *Query) Close() error { return q.db.Close() }

// FindSymbol returns the defining locations recorded under a dictionary
// name; nil when the name is unknown. Names may be bare ("m"),
// paren-qualified ("m(int)") or scope-qualified ("N::C::m").
func (q *Query) FindSymbol(name string) ([]string, error) {
	return q.r.Lookup(name)
}

// FindSymbolPrefix returns every dictionary name starting with prefix,
// mapped to its defining locations.
func (q *Query) FindSymbolPrefix(prefix string) (map[string][]string, error) {
	return q.r.LookupPrefix(prefix)
}

// ReferencesTo returns, for the entity at a defining location string
// ("file:line:col"), the location it resolves to and the sorted locations
// that reference it.
func (q *Query) ReferencesTo(loc string) (target string, refs []string, err error) {
	return q.r.ReferencesTo(loc)
}

// Dependencies returns the stored dependency records in file-path order.
func (q *Query) Dependencies() ([]deps.Record, error) {
	return q.r.Dependencies()
}
