package cursor

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(kind Kind, file, symbol string, line, col, off uint32) Key {
	return Key{Kind: kind, File: file, Symbol: symbol, Line: line, Col: col, Off: off}
}

func TestKey_Valid(t *testing.T) {
	t.Parallel()

	assert.False(t, Key{}.Valid())
	assert.False(t, Key{File: "/a.cc"}.Valid())
	assert.False(t, Key{Symbol: "f"}.Valid())
	assert.True(t, key(Function, "/a.cc", "f()", 1, 1, 0).Valid())
}

func TestKey_Less_InvalidSortsFirst(t *testing.T) {
	t.Parallel()

	valid := key(Function, "/a.cc", "f()", 1, 1, 0)
	invalid := Key{}

	assert.True(t, invalid.Less(valid))
	assert.False(t, valid.Less(invalid))
	assert.False(t, invalid.Less(invalid))
}

func TestKey_Less_Ordering(t *testing.T) {
	t.Parallel()

	keys := []Key{
		key(Function, "/b.cc", "a()", 1, 1, 0),
		key(Function, "/a.cc", "z()", 9, 1, 100),
		key(Function, "/a.cc", "a()", 1, 1, 0),
		key(Struct, "/a.cc", "a()", 1, 1, 0),
		{},
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	assert.False(t, keys[0].Valid())
	assert.Equal(t, "/a.cc", keys[1].File)
	// Same file and offset and symbol: kind breaks the tie.
	assert.Equal(t, Struct, keys[1].Kind)
	assert.Equal(t, Function, keys[2].Kind)
	assert.Equal(t, uint32(100), keys[3].Off)
	assert.Equal(t, "/b.cc", keys[4].File)
}

func TestKey_Less_StrictWeakOrder(t *testing.T) {
	t.Parallel()

	a := key(Function, "/a.cc", "f()", 1, 1, 0)
	b := key(Function, "/a.cc", "f()", 2, 5, 0) // same identity, different line/col

	assert.False(t, a.Less(b))
	assert.False(t, b.Less(a))
}

func TestKey_Equal_IgnoresLineColDef(t *testing.T) {
	t.Parallel()

	a := key(Function, "/a.cc", "f()", 1, 1, 42)
	b := key(Function, "/a.cc", "f()", 7, 3, 42)
	b.Def = true

	assert.True(t, a.Equal(b))

	c := b
	c.Off = 43
	assert.False(t, a.Equal(c))
}

func TestKey_Equal_Invalids(t *testing.T) {
	t.Parallel()

	assert.True(t, Key{}.Equal(Key{File: "/a.cc"}))
	assert.False(t, Key{}.Equal(key(Function, "/a.cc", "f()", 1, 1, 0)))
}

func TestKey_SameLocation(t *testing.T) {
	t.Parallel()

	a := key(Function, "/a.cc", "f()", 1, 1, 42)
	b := key(TypeRef, "/a.cc", "T", 9, 9, 42)

	assert.True(t, a.SameLocation(b))
	b.File = "/b.cc"
	assert.False(t, a.SameLocation(b))
}

func TestKey_LocationForms(t *testing.T) {
	t.Parallel()

	k := key(Method, "/src/a.cc", "m(int)", 12, 8, 230)

	assert.Equal(t, "/src/a.cc:230", k.LocationKey())
	assert.Equal(t, "/src/a.cc:12:8", k.LocationString())
}

func TestSplitLocationString(t *testing.T) {
	t.Parallel()

	k := key(Method, "/src/a.cc", "m(int)", 12, 8, 230)
	file, line, col, err := SplitLocationString(k.LocationString())
	require.NoError(t, err)
	assert.Equal(t, "/src/a.cc", file)
	assert.Equal(t, uint32(12), line)
	assert.Equal(t, uint32(8), col)

	// Re-encoding reproduces the original string.
	rebuilt := Key{File: file, Line: line, Col: col}
	assert.Equal(t, k.LocationString(), rebuilt.LocationString())

	_, _, _, err = SplitLocationString("no-colons")
	assert.Error(t, err)
	_, _, _, err = SplitLocationString("/a.cc:x:1")
	assert.Error(t, err)
}

func TestKind_Categories(t *testing.T) {
	t.Parallel()

	assert.True(t, Method.IsDeclaration())
	assert.True(t, TypeRef.IsReference())
	assert.True(t, CallExpr.IsExpression())
	assert.True(t, ReturnStmt.IsStatement())

	assert.False(t, Invalid.IsDeclaration())
	assert.False(t, MacroDefinition.IsDeclaration())
	assert.False(t, CallExpr.IsReference())
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "InclusionDirective", InclusionDirective.String())
	assert.Equal(t, "Unknown", Kind(9999).String())
}
