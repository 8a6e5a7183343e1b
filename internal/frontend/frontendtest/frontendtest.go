// Package frontendtest provides a hand-buildable front end for exercising
// the indexer core without parsing real source. Tests construct Node trees
// with explicit kinds, locations and resolution links, and register them in
// a FrontEnd keyed by file path.
package frontendtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/xenodium/rtags/internal/cursor"
	"github.com/xenodium/rtags/internal/frontend"
)

// Node implements frontend.Cursor with settable fields.
type Node struct {
	NodeKind cursor.Kind
	Loc      frontend.Location
	Name     string
	Def      bool

	DefNode    *Node
	RefNode    *Node
	TypeDecl   *Node
	Parent     *Node
	Included   string
	ChildNodes []*Node
}

var _ frontend.Cursor = (*Node)(nil)

func (n *Node) Kind() cursor.Kind           { return n.NodeKind }
func (n *Node) Location() frontend.Location { return n.Loc }
func (n *Node) DisplayName() string         { return n.Name }
func (n *Node) IsDefinition() bool          { return n.Def }
func (n *Node) IncludedFile() string        { return n.Included }

func (n *Node) Definition() frontend.Cursor {
	if n.DefNode == nil {
		return nil
	}
	return n.DefNode
}

func (n *Node) Referenced() frontend.Cursor {
	if n.RefNode == nil {
		return nil
	}
	return n.RefNode
}

func (n *Node) TypeDeclaration() frontend.Cursor {
	if n.TypeDecl == nil {
		return nil
	}
	return n.TypeDecl
}

func (n *Node) SemanticParent() frontend.Cursor {
	if n.Parent == nil {
		return nil
	}
	return n.Parent
}

func (n *Node) Children() []frontend.Cursor {
	out := make([]frontend.Cursor, len(n.ChildNodes))
	for i, c := range n.ChildNodes {
		out[i] = c
	}
	return out
}

// Add appends children, setting their semantic parent to n when unset, and
// returns n for chaining.
func (n *Node) Add(children ...*Node) *Node {
	for _, c := range children {
		if c.Parent == nil {
			c.Parent = n
		}
	}
	n.ChildNodes = append(n.ChildNodes, children...)
	return n
}

// At places the node at file:line:col with the given byte offset.
func (n *Node) At(file string, line, col, off uint32) *Node {
	n.Loc = frontend.Location{File: file, Line: line, Col: col, Off: off}
	return n
}

// New creates a node of the given kind and display name.
func New(kind cursor.Kind, name string) *Node {
	return &Node{NodeKind: kind, Name: name}
}

// Unit implements frontend.TranslationUnit over a Node tree.
type Unit struct {
	RootNode *Node
	Includes []frontend.Inclusion
	Diags    []frontend.Diagnostic
}

var _ frontend.TranslationUnit = (*Unit)(nil)

func (u *Unit) Root() frontend.Cursor              { return u.RootNode }
func (u *Unit) Inclusions() []frontend.Inclusion   { return u.Includes }
func (u *Unit) Diagnostics() []frontend.Diagnostic { return u.Diags }

// FrontEnd serves registered units by file path and records what was parsed.
// Parse is safe for concurrent use; Register is not.
type FrontEnd struct {
	Units map[string]*Unit
	Errs  map[string]error

	mu     sync.Mutex
	Parsed []string
}

var _ frontend.FrontEnd = (*FrontEnd)(nil)

// NewFrontEnd returns an empty fake front end.
func NewFrontEnd() *FrontEnd {
	return &FrontEnd{Units: make(map[string]*Unit), Errs: make(map[string]error)}
}

// Register associates a unit with a file path.
func (f *FrontEnd) Register(file string, u *Unit) {
	f.Units[file] = u
}

// ParsedFiles returns a copy of the files parsed so far.
func (f *FrontEnd) ParsedFiles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Parsed...)
}

func (f *FrontEnd) Parse(_ context.Context, file string, _ []string) (frontend.TranslationUnit, error) {
	f.mu.Lock()
	f.Parsed = append(f.Parsed, file)
	f.mu.Unlock()
	if err, ok := f.Errs[file]; ok {
		return nil, err
	}
	u, ok := f.Units[file]
	if !ok {
		return nil, fmt.Errorf("frontendtest: no unit registered for %s", file)
	}
	return u, nil
}
