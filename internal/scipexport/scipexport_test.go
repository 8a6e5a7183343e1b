package scipexport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sourcegraph/scip/bindings/go/scip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/xenodium/rtags/internal/cursor"
	"github.com/xenodium/rtags/internal/index"
)

func testEntities() []*index.Entity {
	defKey := cursor.Key{
		Kind: cursor.Method, File: "/proj/src/a.cc", Symbol: "draw()",
		Line: 3, Col: 9, Off: 40, Def: true,
	}
	useKey := cursor.Key{
		Kind: cursor.MemberRefExpr, File: "/proj/src/main.cc", Symbol: "draw",
		Line: 10, Col: 3, Off: 100,
	}
	return []*index.Entity{
		{HasDefinition: true, Cursor: index.Data{Key: defKey}, Ref: index.Data{Key: defKey}},
		{Cursor: index.Data{Key: useKey}, Ref: index.Data{Key: defKey}},
		{}, // invalid entities are dropped
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	idx := Build(testEntities(), "/proj")

	require.NotNil(t, idx.Metadata)
	assert.Equal(t, "rtags", idx.Metadata.ToolInfo.Name)
	assert.Equal(t, "file:///proj", idx.Metadata.ProjectRoot)

	require.Len(t, idx.Documents, 2)
	assert.Equal(t, "src/a.cc", idx.Documents[0].RelativePath)
	assert.Equal(t, "src/main.cc", idx.Documents[1].RelativePath)

	defDoc := idx.Documents[0]
	require.Len(t, defDoc.Occurrences, 1)
	occ := defDoc.Occurrences[0]
	assert.Equal(t, []int32{2, 8, 14}, occ.Range)
	assert.NotZero(t, occ.SymbolRoles&int32(scip.SymbolRole_Definition))
	require.Len(t, defDoc.Symbols, 1)
	assert.Equal(t, "draw()", defDoc.Symbols[0].DisplayName)
	assert.Equal(t, scip.SymbolInformation_Method, defDoc.Symbols[0].Kind)

	// The use occurrence carries the definition's symbol.
	useDoc := idx.Documents[1]
	require.Len(t, useDoc.Occurrences, 1)
	assert.Equal(t, occ.Symbol, useDoc.Occurrences[0].Symbol)
	assert.Zero(t, useDoc.Occurrences[0].SymbolRoles)
}

func TestBuild_FileOutsideRootKeepsAbsolutePath(t *testing.T) {
	t.Parallel()

	ents := []*index.Entity{{
		Cursor: index.Data{Key: cursor.Key{
			Kind: cursor.Function, File: "/usr/include/api.h", Symbol: "api()",
			Line: 1, Col: 6, Off: 5, Def: true,
		}},
	}}
	idx := Build(ents, "/proj")
	require.Len(t, idx.Documents, 1)
	assert.Equal(t, "/usr/include/api.h", idx.Documents[0].RelativePath)
}

func TestWriteFile_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "index.scip")
	require.NoError(t, WriteFile(path, Build(testEntities(), "/proj")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got scip.Index
	require.NoError(t, proto.Unmarshal(data, &got))
	assert.Len(t, got.Documents, 2)
}
