package index

import (
	"strings"

	"github.com/xenodium/rtags/internal/cursor"
)

// Dictionary maps a symbol name variant to the set of location strings that
// define a symbol under that name. Unrelated symbols sharing a base name
// accumulate in the same set.
type Dictionary map[string]map[string]struct{}

func (d Dictionary) add(name, loc string) {
	set, ok := d[name]
	if !ok {
		set = make(map[string]struct{})
		d[name] = set
	}
	set[loc] = struct{}{}
}

// Names returns the dictionary's name variants; order is unspecified.
func (d Dictionary) Names() []string {
	out := make([]string, 0, len(d))
	for name := range d {
		out = append(out, name)
	}
	return out
}

// BuildDictionary walks the final entity set once and produces the name
// index: plain names, overload-stripped names (truncated before the
// parameter list), and scope-qualified variants for scoped kinds.
func BuildDictionary(t *Table) Dictionary {
	dict := make(Dictionary)
	for _, entry := range t.entities {
		collectDict(entry, dict)
	}
	return dict
}

// dictKinds are the kinds whose names also get scope-qualified variants.
func dictKind(k cursor.Kind) bool {
	switch k {
	case cursor.Namespace, cursor.Class, cursor.Struct, cursor.Field,
		cursor.Method, cursor.Constructor, cursor.Destructor:
		return true
	}
	return false
}

func collectDict(entry *Entity, dict Dictionary) {
	for _, data := range [2]*Data{&entry.Cursor, &entry.Ref} {
		key := data.Key
		if !key.Valid() {
			continue
		}
		// Uses are reachable through the cross-reference sets; the
		// dictionary indexes declarations and definitions only.
		if key.Kind.IsReference() || key.Kind.IsExpression() {
			continue
		}

		name := key.Symbol
		loc := key.LocationString()

		dict.add(name, loc)
		paren := strings.IndexByte(name, '(')
		if paren != -1 {
			dict.add(name[:paren], loc)
		}

		if !dictKind(key.Kind) {
			continue
		}

		for _, scope := range data.Parents {
			old := len(name)
			name = scope + "::" + name
			if paren != -1 {
				paren += len(name) - old
				dict.add(name[:paren], loc)
			}
			dict.add(name, loc)
		}
	}
}
