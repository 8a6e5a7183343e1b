// Package cpp is the bundled tree-sitter front end for C and C++. It
// implements the frontend contract by parsing one translation unit, indexing
// its declarations by qualified name, and resolving definition and reference
// lookups against that in-unit index.
//
// Tree-sitter gives a concrete syntax tree, not semantics, so resolution is
// name-based within the unit: good enough to feed the indexer core for most
// code, and exact resolution can be swapped in behind the same interface.
package cpp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tscpp "github.com/smacker/go-tree-sitter/cpp"

	"github.com/xenodium/rtags/internal/frontend"
)

// FrontEnd parses C/C++ translation units.
type FrontEnd struct{}

// New returns a tree-sitter backed front end.
func New() *FrontEnd {
	return &FrontEnd{}
}

var _ frontend.FrontEnd = (*FrontEnd)(nil)

// Parse reads and parses one file. Include paths from -I arguments are used
// to resolve inclusion directives. A file that cannot be read or parsed at
// all is a parse failure; a tree with error nodes still indexes.
func (f *FrontEnd) Parse(ctx context.Context, file string, args []string) (frontend.TranslationUnit, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	parser := sitter.NewParser()
	parser.SetLanguage(tscpp.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	u := &unit{
		file:        file,
		src:         src,
		tree:        tree,
		defs:        make(map[string]*sitter.Node),
		decls:       make(map[string]*sitter.Node),
		includeDirs: includeDirs(args, filepath.Dir(file)),
	}
	u.indexDeclarations(tree.RootNode(), nil)
	u.collectInclusions(tree.RootNode())
	u.collectDiagnostics(tree.RootNode())
	return u, nil
}

// includeDirs extracts search directories from -I/-isystem arguments, with
// the unit's own directory first.
func includeDirs(args []string, fileDir string) []string {
	dirs := []string{fileDir}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case strings.HasPrefix(arg, "-I") && len(arg) > 2:
			dirs = append(dirs, arg[2:])
		case arg == "-isystem" && i+1 < len(args):
			dirs = append(dirs, args[i+1])
			i++
		}
	}
	return dirs
}

// unit is one parsed translation unit plus its in-unit name index.
type unit struct {
	file        string
	src         []byte
	tree        *sitter.Tree
	defs        map[string]*sitter.Node // qualified and bare name → defining node
	decls       map[string]*sitter.Node // qualified and bare name → declaring node
	includeDirs []string
	inclusions  []frontend.Inclusion
	diags       []frontend.Diagnostic
}

var _ frontend.TranslationUnit = (*unit)(nil)

func (u *unit) Root() frontend.Cursor              { return &node{u: u, n: u.tree.RootNode()} }
func (u *unit) Inclusions() []frontend.Inclusion   { return u.inclusions }
func (u *unit) Diagnostics() []frontend.Diagnostic { return u.diags }

func (u *unit) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(u.src)
}

// register records a node under its qualified name and, as a fallback, its
// bare name. First registration wins for the bare form so an unqualified
// lookup is stable.
func register(m map[string]*sitter.Node, qualified, bare string, n *sitter.Node) {
	if qualified != "" {
		if _, ok := m[qualified]; !ok {
			m[qualified] = n
		}
	}
	if bare != "" && bare != qualified {
		if _, ok := m[bare]; !ok {
			m[bare] = n
		}
	}
}

// indexDeclarations walks the tree recording defining and declaring nodes by
// name. scope is the lexical namespace/class chain, outermost first.
func (u *unit) indexDeclarations(n *sitter.Node, scope []string) {
	switch n.Type() {
	case "namespace_definition", "class_specifier", "struct_specifier", "union_specifier", "enum_specifier":
		name := u.text(n.ChildByFieldName("name"))
		if name != "" {
			register(u.defs, qualify(scope, name), name, n)
			scope = append(scope, name)
		}
	case "function_definition":
		base, qualifier := u.declaratorName(n.ChildByFieldName("declarator"))
		if base != "" {
			full := qualify(scope, base)
			if qualifier != "" {
				full = qualify(scope, qualifier+"::"+base)
			}
			register(u.defs, full, base, n)
		}
	case "field_declaration", "declaration":
		if declarator := functionDeclarator(n); declarator != nil {
			base, qualifier := u.declaratorName(declarator)
			if base != "" {
				full := qualify(scope, base)
				if qualifier != "" {
					full = qualify(scope, qualifier+"::"+base)
				}
				register(u.decls, full, base, n)
			}
		} else if name := u.text(declaredIdentifier(n)); name != "" {
			register(u.defs, qualify(scope, name), name, n)
		}
	case "enumerator":
		if name := u.text(n.ChildByFieldName("name")); name != "" {
			register(u.defs, qualify(scope, name), name, n)
		}
	case "preproc_def", "preproc_function_def":
		if name := u.text(n.ChildByFieldName("name")); name != "" {
			register(u.defs, name, name, n)
		}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		u.indexDeclarations(n.Child(i), scope)
	}
}

func qualify(scope []string, name string) string {
	if len(scope) == 0 {
		return name
	}
	return strings.Join(scope, "::") + "::" + name
}

// declaratorName unwraps a declarator to its base identifier and any
// explicit qualifier ("C" for "C::m").
func (u *unit) declaratorName(n *sitter.Node) (base, qualifier string) {
	for n != nil {
		switch n.Type() {
		case "function_declarator", "pointer_declarator", "reference_declarator", "array_declarator", "init_declarator":
			n = n.ChildByFieldName("declarator")
		case "qualified_identifier":
			qualifier = u.text(n.ChildByFieldName("scope"))
			n = n.ChildByFieldName("name")
		case "identifier", "field_identifier", "destructor_name", "operator_name", "type_identifier":
			return u.text(n), qualifier
		default:
			return "", qualifier
		}
	}
	return "", qualifier
}

// functionDeclarator digs out the function_declarator of a declaration, if
// it has one.
func functionDeclarator(n *sitter.Node) *sitter.Node {
	d := n.ChildByFieldName("declarator")
	for d != nil {
		switch d.Type() {
		case "function_declarator":
			return d
		case "pointer_declarator", "reference_declarator", "init_declarator":
			d = d.ChildByFieldName("declarator")
		default:
			return nil
		}
	}
	return nil
}

// declaredIdentifier returns the declared name node of a plain declaration.
func declaredIdentifier(n *sitter.Node) *sitter.Node {
	d := n.ChildByFieldName("declarator")
	for d != nil {
		switch d.Type() {
		case "identifier", "field_identifier":
			return d
		case "init_declarator", "pointer_declarator", "reference_declarator", "array_declarator":
			d = d.ChildByFieldName("declarator")
		default:
			return nil
		}
	}
	return nil
}

// collectInclusions resolves every #include against the include search path.
func (u *unit) collectInclusions(root *sitter.Node) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "preproc_include" {
			if path := u.resolveInclude(n); path != "" {
				u.inclusions = append(u.inclusions, frontend.Inclusion{File: path})
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
}

// includeTarget returns the raw path text of a #include, quotes stripped.
func (u *unit) includeTarget(n *sitter.Node) string {
	path := u.text(n.ChildByFieldName("path"))
	return strings.Trim(path, `"<>`)
}

func (u *unit) resolveInclude(n *sitter.Node) string {
	target := u.includeTarget(n)
	if target == "" {
		return ""
	}
	for _, dir := range u.includeDirs {
		candidate := filepath.Join(dir, target)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// collectDiagnostics reports parse error nodes as diagnostics.
func (u *unit) collectDiagnostics(root *sitter.Node) {
	if !root.HasError() {
		return
	}
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "ERROR" {
			pt := n.StartPoint()
			u.diags = append(u.diags, frontend.Diagnostic{
				Loc: frontend.Location{
					File: u.file,
					Line: pt.Row + 1,
					Col:  pt.Column + 1,
					Off:  n.StartByte(),
				},
				Message: "syntax error",
			})
			return
		}
		if !n.HasError() {
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
}
