package index

import (
	"github.com/xenodium/rtags/internal/cursor"
	"github.com/xenodium/rtags/internal/frontend"
)

// keyFor builds the identity key for a node. A nil node or one with an
// invalid kind yields the zero (invalid) key.
func keyFor(c frontend.Cursor) cursor.Key {
	if c == nil {
		return cursor.Key{}
	}
	k := c.Kind()
	if k == cursor.Invalid {
		return cursor.Key{}
	}
	loc := c.Location()
	return cursor.Key{
		Kind:   k,
		File:   cursor.CanonicalPath(loc.File),
		Symbol: c.DisplayName(),
		Line:   loc.Line,
		Col:    loc.Col,
		Off:    loc.Off,
		Def:    isDefinition(c, k),
	}
}

// isDefinition derives the defining-occurrence flag: macro definitions
// always are; everything else defers to the front end's predicate.
func isDefinition(c frontend.Cursor, k cursor.Kind) bool {
	if k == cursor.MacroDefinition {
		return true
	}
	return c.IsDefinition()
}

// definitionFor reports whether def counts as node's own definition. A node
// that is itself a call expression never does; it remains a use of its
// callee.
func definitionFor(defKey cursor.Key, nodeKind cursor.Kind) bool {
	if nodeKind == cursor.CallExpr {
		return false
	}
	return defKey.Def
}

// resolveReferenced resolves a node's reference target by kind category. A
// call expression is never its own target (the callee sub-node carries that
// information); reference kinds prefer their declared type when concrete;
// expression, statement and declaration kinds use the generic lookup with a
// fall back to the node itself; macro expansions use the generic lookup;
// macro definitions refer to themselves. Anything else resolves to nothing.
func resolveReferenced(c frontend.Cursor) frontend.Cursor {
	k := c.Kind()
	switch {
	case k == cursor.CallExpr:
		return nil
	case k.IsReference():
		if d := c.TypeDeclaration(); keyFor(d).Valid() {
			return d
		}
		if r := c.Referenced(); keyFor(r).Valid() {
			return r
		}
		return c
	case k.IsExpression(), k.IsStatement(), k.IsDeclaration():
		if r := c.Referenced(); keyFor(r).Valid() {
			return r
		}
		return c
	case k == cursor.MacroExpansion:
		return c.Referenced()
	case k == cursor.MacroDefinition:
		return c
	default:
		return nil
	}
}

// parentNames captures the enclosing-scope name chain, innermost first. Only
// namespace, class and struct scopes contribute.
func parentNames(c frontend.Cursor) []string {
	if c == nil {
		return nil
	}
	var names []string
	for p := c.SemanticParent(); ; p = p.SemanticParent() {
		pk := keyFor(p)
		if !pk.Valid() {
			break
		}
		switch pk.Kind {
		case cursor.Struct, cursor.Class, cursor.Namespace:
			names = append(names, pk.Symbol)
		}
	}
	return names
}

// Collect walks one translation unit's tree depth-first and folds every node
// event into the table.
func (t *Table) Collect(root frontend.Cursor) {
	if root == nil {
		return
	}
	t.visit(root)
}

func (t *Table) visit(c frontend.Cursor) {
	if !t.collect(c) {
		return
	}
	for _, child := range c.Children() {
		t.visit(child)
	}
}

// collect processes one node event and reports whether to descend into its
// children. Invalid nodes (literals and friends) are skipped but still
// descended into; an inclusion directive has no meaningful substructure and
// is the one case that stops descent.
func (t *Table) collect(c frontend.Cursor) bool {
	key := keyFor(c)
	if !key.Valid() {
		return true
	}

	entry, seen := t.lookup(key.LocationKey())
	if seen && entry.HasDefinition {
		// A defining occurrence is never overwritten by later
		// sightings, but nested declarations still need discovering.
		return true
	}
	if !seen {
		entry = t.create(key.LocationKey())
	}

	if key.Kind == cursor.InclusionDirective {
		included := cursor.CanonicalPath(c.IncludedFile())
		entry.Cursor = Data{Key: key, Parents: parentNames(c)}
		entry.Ref = Data{Key: cursor.Key{
			Kind:   cursor.InclusionDirective,
			File:   included,
			Symbol: included,
			Line:   1,
			Col:    1,
		}}
		entry.HasDefinition = true
		return false
	}

	def := c.Definition()
	defKey := keyFor(def)

	if !defKey.Def || key.SameLocation(defKey) {
		// This occurrence is the defining one, or there is no separate
		// definition: treat it as a simple reference. First writer
		// wins so a re-visit never clobbers a resolved reference.
		if !entry.Ref.Key.Valid() || entry.Ref.Key.Equal(entry.Cursor.Key) {
			ref := resolveReferenced(c)
			if refKey := keyFor(ref); refKey.Valid() {
				entry.Cursor = Data{Key: key, Parents: parentNames(c)}
				entry.Ref = Data{Key: refKey, Parents: parentNames(ref)}
			}
		}
	} else {
		// A true definition exists elsewhere.
		if definitionFor(defKey, key.Kind) {
			entry.HasDefinition = true
		}
		entry.Cursor = Data{Key: key, Parents: parentNames(c)}
		if defKey.Valid() {
			entry.Ref = Data{Key: defKey, Parents: parentNames(def)}
		}
	}
	return true
}
