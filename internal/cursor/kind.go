package cursor

// Kind tags one syntax-tree node reported by the front end. The numeric
// values participate in Key ordering and in the on-disk entry encoding, so
// they are fixed: new kinds go at the end.
type Kind int32

const (
	Invalid Kind = iota

	// Declarations.
	Struct
	Union
	Class
	Enum
	Field
	EnumConstant
	Function
	Variable
	Parameter
	Typedef
	Method
	Namespace
	Constructor
	Destructor

	// References.
	TypeRef
	NamespaceRef
	MemberRef
	OverloadedDeclRef

	// Expressions.
	DeclRefExpr
	MemberRefExpr
	CallExpr

	// Statements.
	CompoundStmt
	DeclStmt
	ReturnStmt

	// Preprocessing.
	MacroDefinition
	MacroExpansion
	InclusionDirective

	Other
)

// IsDeclaration reports whether k is in the declaration category.
func (k Kind) IsDeclaration() bool {
	switch k {
	case Struct, Union, Class, Enum, Field, EnumConstant, Function,
		Variable, Parameter, Typedef, Method, Namespace, Constructor, Destructor:
		return true
	}
	return false
}

// IsReference reports whether k is in the reference category.
func (k Kind) IsReference() bool {
	switch k {
	case TypeRef, NamespaceRef, MemberRef, OverloadedDeclRef:
		return true
	}
	return false
}

// IsExpression reports whether k is in the expression category.
func (k Kind) IsExpression() bool {
	switch k {
	case DeclRefExpr, MemberRefExpr, CallExpr:
		return true
	}
	return false
}

// IsStatement reports whether k is in the statement category.
func (k Kind) IsStatement() bool {
	switch k {
	case CompoundStmt, DeclStmt, ReturnStmt:
		return true
	}
	return false
}

var kindNames = map[Kind]string{
	Invalid:            "Invalid",
	Struct:             "Struct",
	Union:              "Union",
	Class:              "Class",
	Enum:               "Enum",
	Field:              "Field",
	EnumConstant:       "EnumConstant",
	Function:           "Function",
	Variable:           "Variable",
	Parameter:          "Parameter",
	Typedef:            "Typedef",
	Method:             "Method",
	Namespace:          "Namespace",
	Constructor:        "Constructor",
	Destructor:         "Destructor",
	TypeRef:            "TypeRef",
	NamespaceRef:       "NamespaceRef",
	MemberRef:          "MemberRef",
	OverloadedDeclRef:  "OverloadedDeclRef",
	DeclRefExpr:        "DeclRefExpr",
	MemberRefExpr:      "MemberRefExpr",
	CallExpr:           "CallExpr",
	CompoundStmt:       "CompoundStmt",
	DeclStmt:           "DeclStmt",
	ReturnStmt:         "ReturnStmt",
	MacroDefinition:    "MacroDefinition",
	MacroExpansion:     "MacroExpansion",
	InclusionDirective: "InclusionDirective",
	Other:              "Other",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}
