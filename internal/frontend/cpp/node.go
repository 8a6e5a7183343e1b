package cpp

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/xenodium/rtags/internal/cursor"
	"github.com/xenodium/rtags/internal/frontend"
)

// node adapts one tree-sitter node to the frontend cursor contract.
type node struct {
	u *unit
	n *sitter.Node
}

var _ frontend.Cursor = (*node)(nil)

func (c *node) wrap(n *sitter.Node) frontend.Cursor {
	if n == nil {
		return nil
	}
	return &node{u: c.u, n: n}
}

// Kind classifies the node. Unclassified node types map to Invalid, which
// the core skips while still visiting children.
func (c *node) Kind() cursor.Kind {
	switch c.n.Type() {
	case "namespace_definition":
		return cursor.Namespace
	case "class_specifier":
		return cursor.Class
	case "struct_specifier":
		return cursor.Struct
	case "union_specifier":
		return cursor.Union
	case "enum_specifier":
		return cursor.Enum
	case "enumerator":
		return cursor.EnumConstant
	case "parameter_declaration":
		return cursor.Parameter
	case "type_definition":
		return cursor.Typedef
	case "function_definition":
		return c.functionKind()
	case "field_declaration":
		if functionDeclarator(c.n) != nil {
			return c.functionKind()
		}
		return cursor.Field
	case "declaration":
		if functionDeclarator(c.n) != nil {
			return c.functionKind()
		}
		if declaredIdentifier(c.n) != nil {
			return cursor.Variable
		}
		return cursor.Invalid
	case "type_identifier":
		return cursor.TypeRef
	case "namespace_identifier":
		return cursor.NamespaceRef
	case "call_expression":
		return cursor.CallExpr
	case "identifier":
		if c.inExpressionContext() {
			return cursor.DeclRefExpr
		}
		return cursor.Invalid
	case "field_identifier":
		if c.hasAncestor("field_expression") {
			return cursor.MemberRefExpr
		}
		return cursor.Invalid
	case "preproc_def", "preproc_function_def":
		return cursor.MacroDefinition
	case "preproc_include":
		return cursor.InclusionDirective
	default:
		return cursor.Invalid
	}
}

// functionKind distinguishes plain functions from methods, constructors and
// destructors by declarator shape and enclosing scope.
func (c *node) functionKind() cursor.Kind {
	declarator := c.n.ChildByFieldName("declarator")
	if declarator == nil {
		declarator = functionDeclarator(c.n)
	}
	base, qualifier := c.u.declaratorName(declarator)
	if base == "" {
		return cursor.Function
	}
	if strings.HasPrefix(base, "~") {
		return cursor.Destructor
	}
	class := qualifier
	if class == "" {
		if enclosing := c.enclosingType(); enclosing != nil {
			class = c.u.text(enclosing.ChildByFieldName("name"))
		}
	}
	if class == "" {
		return cursor.Function
	}
	if base == class {
		return cursor.Constructor
	}
	return cursor.Method
}

// enclosingType returns the nearest enclosing class/struct/union node.
func (c *node) enclosingType() *sitter.Node {
	for p := c.n.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "class_specifier", "struct_specifier", "union_specifier":
			return p
		case "function_definition", "namespace_definition":
			return nil
		}
	}
	return nil
}

func (c *node) inExpressionContext() bool {
	p := c.n.Parent()
	if p == nil {
		return false
	}
	switch p.Type() {
	case "call_expression", "binary_expression", "unary_expression",
		"assignment_expression", "argument_list", "return_statement",
		"field_expression", "subscript_expression", "parenthesized_expression",
		"condition_clause", "expression_statement", "init_declarator",
		"initializer_list", "update_expression", "pointer_expression":
		return true
	}
	return false
}

func (c *node) hasAncestor(nodeType string) bool {
	for p := c.n.Parent(); p != nil; p = p.Parent() {
		if p.Type() == nodeType {
			return true
		}
	}
	return false
}

// Location reports the name token's position for named declarations, the
// node start otherwise, matching how compilers point at symbols.
func (c *node) Location() frontend.Location {
	n := c.nameNode()
	if n == nil {
		n = c.n
	}
	pt := n.StartPoint()
	return frontend.Location{
		File: c.u.file,
		Line: pt.Row + 1,
		Col:  pt.Column + 1,
		Off:  n.StartByte(),
	}
}

// nameNode finds the identifier token that names this node, if any.
func (c *node) nameNode() *sitter.Node {
	switch c.n.Type() {
	case "namespace_definition", "class_specifier", "struct_specifier",
		"union_specifier", "enum_specifier", "enumerator",
		"preproc_def", "preproc_function_def":
		return c.n.ChildByFieldName("name")
	case "function_definition", "field_declaration", "declaration", "parameter_declaration":
		d := c.n.ChildByFieldName("declarator")
		return lastIdentifier(d)
	case "call_expression":
		return lastIdentifier(c.n.ChildByFieldName("function"))
	}
	return nil
}

// lastIdentifier descends a declarator or expression to its rightmost
// identifier token.
func lastIdentifier(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Type() {
		case "identifier", "field_identifier", "destructor_name",
			"operator_name", "type_identifier":
			return n
		case "qualified_identifier":
			n = n.ChildByFieldName("name")
		case "function_declarator", "pointer_declarator", "reference_declarator",
			"array_declarator", "init_declarator":
			n = n.ChildByFieldName("declarator")
		case "field_expression":
			n = n.ChildByFieldName("field")
		default:
			return nil
		}
	}
	return nil
}

// DisplayName is the symbol's presentation name; callables carry their
// parameter-list text so overloads stay distinct.
func (c *node) DisplayName() string {
	switch c.n.Type() {
	case "preproc_include":
		return c.u.includeTarget(c.n)
	case "identifier", "field_identifier", "type_identifier", "namespace_identifier":
		return c.u.text(c.n)
	case "call_expression":
		name := c.u.text(lastIdentifier(c.n.ChildByFieldName("function")))
		if name == "" {
			return ""
		}
		if args := c.n.ChildByFieldName("arguments"); args != nil {
			return name + c.u.text(args)
		}
		return name
	}
	name := c.u.text(c.nameNode())
	if name == "" {
		return ""
	}
	if params := c.parameterList(); params != nil {
		return name + c.u.text(params)
	}
	return name
}

func (c *node) parameterList() *sitter.Node {
	var d *sitter.Node
	switch c.n.Type() {
	case "function_definition":
		d = c.n.ChildByFieldName("declarator")
	case "field_declaration", "declaration":
		d = functionDeclarator(c.n)
	default:
		return nil
	}
	for d != nil {
		if d.Type() == "function_declarator" {
			return d.ChildByFieldName("parameters")
		}
		d = d.ChildByFieldName("declarator")
	}
	return nil
}

// IsDefinition reports whether the node is a defining occurrence: a function
// with a body, a type or namespace with a body, a variable, field,
// enumerator, parameter or macro definition. Bodiless declarations are not.
func (c *node) IsDefinition() bool {
	switch c.n.Type() {
	case "function_definition", "enumerator", "parameter_declaration",
		"preproc_def", "preproc_function_def", "type_definition":
		return true
	case "namespace_definition", "class_specifier", "struct_specifier",
		"union_specifier", "enum_specifier":
		return c.n.ChildByFieldName("body") != nil
	case "field_declaration":
		return functionDeclarator(c.n) == nil
	case "declaration":
		return functionDeclarator(c.n) == nil && declaredIdentifier(c.n) != nil
	}
	return false
}

// lookupName is the name this node resolves under: qualified when the scope
// is known, bare otherwise.
func (c *node) lookupName() string {
	switch c.n.Type() {
	case "identifier", "field_identifier", "type_identifier", "namespace_identifier":
		return c.u.text(c.n)
	case "call_expression":
		return c.u.text(lastIdentifier(c.n.ChildByFieldName("function")))
	}
	base, qualifier := c.u.declaratorName(declaratorOrSelf(c.n))
	if base == "" {
		base = c.u.text(c.nameNode())
	}
	if qualifier != "" {
		return qualifier + "::" + base
	}
	if enclosing := c.enclosingType(); enclosing != nil {
		if class := c.u.text(enclosing.ChildByFieldName("name")); class != "" {
			return class + "::" + base
		}
	}
	return base
}

func declaratorOrSelf(n *sitter.Node) *sitter.Node {
	if d := n.ChildByFieldName("declarator"); d != nil {
		return d
	}
	return n
}

// Definition looks up the authoritative defining node for this node's name.
func (c *node) Definition() frontend.Cursor {
	name := c.lookupName()
	if name == "" {
		return nil
	}
	if def, ok := c.u.defs[name]; ok {
		return c.wrap(def)
	}
	// Fall back to the bare name for unqualified uses.
	if i := strings.LastIndex(name, "::"); i >= 0 {
		if def, ok := c.u.defs[name[i+2:]]; ok {
			return c.wrap(def)
		}
	}
	return nil
}

// Referenced resolves what this node refers to: its definition when known,
// otherwise any declaration of the name.
func (c *node) Referenced() frontend.Cursor {
	if def := c.Definition(); def != nil {
		return def
	}
	name := c.lookupName()
	if name == "" {
		return nil
	}
	if decl, ok := c.u.decls[name]; ok {
		return c.wrap(decl)
	}
	return nil
}

// TypeDeclaration resolves a type reference to its declaring node.
func (c *node) TypeDeclaration() frontend.Cursor {
	if c.n.Type() != "type_identifier" {
		return nil
	}
	if def, ok := c.u.defs[c.u.text(c.n)]; ok {
		return c.wrap(def)
	}
	return nil
}

// SemanticParent is the enclosing scope. Out-of-line qualified definitions
// resolve their qualifier to the class node; everything else walks the tree.
func (c *node) SemanticParent() frontend.Cursor {
	if c.n.Type() == "function_definition" {
		if _, qualifier := c.u.declaratorName(c.n.ChildByFieldName("declarator")); qualifier != "" {
			if class, ok := c.u.defs[qualifier]; ok {
				return c.wrap(class)
			}
		}
	}
	for p := c.n.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "namespace_definition", "class_specifier", "struct_specifier", "union_specifier":
			return c.wrap(p)
		}
	}
	return nil
}

// IncludedFile is the resolved target of an inclusion directive.
func (c *node) IncludedFile() string {
	if c.n.Type() != "preproc_include" {
		return ""
	}
	if resolved := c.u.resolveInclude(c.n); resolved != "" {
		return resolved
	}
	return c.u.includeTarget(c.n)
}

func (c *node) Children() []frontend.Cursor {
	count := int(c.n.ChildCount())
	out := make([]frontend.Cursor, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, &node{u: c.u, n: c.n.Child(i)})
	}
	return out
}
