// Package frontend defines the contract between the indexer core and a
// source-analysis front end: something that can parse one translation unit
// and expose its syntax tree as cursors with kind, location, display name and
// resolved definition/reference relationships.
//
// The core never parses source itself; it consumes these interfaces. The
// bundled tree-sitter adapter lives in the cpp subpackage, and tests drive
// the core with the frontendtest fake.
package frontend

import (
	"context"

	"github.com/xenodium/rtags/internal/cursor"
)

// Location is a source position as reported by the front end, from the
// instantiation location of the node.
type Location struct {
	File string
	Line uint32
	Col  uint32
	Off  uint32
}

// Cursor is one node of a translation unit's syntax tree. Lookup methods
// return nil when the front end has nothing to report.
type Cursor interface {
	Kind() cursor.Kind
	Location() Location
	// DisplayName is the symbol's presentation name; callables include
	// their parameter-list text.
	DisplayName() string
	// IsDefinition reports the front end's own is-definition predicate.
	IsDefinition() bool
	// Definition is the authoritative defining occurrence statically
	// reachable from this node, if any.
	Definition() Cursor
	// Referenced is what this node's expression or reference resolves to,
	// if any.
	Referenced() Cursor
	// TypeDeclaration is the declaration of this node's type when that
	// type is concrete; nil otherwise.
	TypeDeclaration() Cursor
	// SemanticParent is the enclosing scope, walked repeatedly to build
	// the scope chain.
	SemanticParent() Cursor
	// IncludedFile is the path named by an inclusion directive; empty for
	// every other kind.
	IncludedFile() string
	// Children returns the node's direct children in tree order.
	Children() []Cursor
}

// Inclusion is one entry of a unit's inclusion enumeration: the included
// file plus the stack of files that led to its inclusion.
type Inclusion struct {
	File  string
	Stack []string
}

// Diagnostic is a parse-time message for a unit. Diagnostics are reported
// but never fatal; a unit with diagnostics still produces a tree.
type Diagnostic struct {
	Loc     Location
	Message string
}

// TranslationUnit is one parsed compiled file.
type TranslationUnit interface {
	Root() Cursor
	Inclusions() []Inclusion
	Diagnostics() []Diagnostic
}

// FrontEnd parses translation units. A Parse error means the unit produced
// no tree at all and must be skipped.
type FrontEnd interface {
	Parse(ctx context.Context, file string, args []string) (TranslationUnit, error)
}
