package index

import (
	"fmt"

	"github.com/xenodium/rtags/internal/cursor"
)

// Link runs the cross-entity pass over a completed table. Method,
// constructor and destructor declarations are merged into their out-of-line
// definition entity so lookups from either side land on one canonical
// defining occurrence; every other entity contributes its location to its
// target's inbound reference set.
//
// Link must not run concurrently with collection: it requires the globally
// consistent, merged table.
func (t *Table) Link() {
	for _, entry := range t.entities {
		key := entry.Cursor.Key
		ref := entry.Ref.Key

		switch key.Kind {
		case cursor.Method, cursor.Constructor, cursor.Destructor:
			if !key.Equal(ref) && !key.Def {
				// A declaration pointing at an out-of-line
				// definition. The definition entity must have
				// been collected; anything else is a
				// collection defect.
				def := t.Get(ref.LocationKey())
				if def == nil || def == entry {
					panic(fmt.Sprintf("index: no definition entity at %s for declaration %s",
						ref.LocationString(), key))
				}
				def.Ref = entry.Cursor
			}
			continue
		}

		target := t.Get(ref.LocationKey())
		if target == nil || target == entry {
			// Self-references carry no cross-reference information;
			// a missing target means the referenced symbol lives
			// outside the indexed set and the use is dropped.
			continue
		}
		target.AddRef(key.LocationString())
	}
}
