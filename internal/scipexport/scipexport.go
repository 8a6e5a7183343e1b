// Package scipexport renders the entity table as a SCIP index, so the
// cross-reference data can feed SCIP-speaking tooling.
package scipexport

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"github.com/xenodium/rtags/internal/cursor"
	"github.com/xenodium/rtags/internal/index"
)

// Build converts entities into a SCIP index. Occurrences are grouped into
// one document per source file; paths are made relative to projectRoot where
// possible. Reference occurrences carry the symbol of the entity they
// resolve to, so definition and uses share an identity.
func Build(entities []*index.Entity, projectRoot string) *scip.Index {
	docs := make(map[string]*scip.Document)
	for _, ent := range entities {
		key := ent.Cursor.Key
		if !key.Valid() {
			continue
		}
		doc, ok := docs[key.File]
		if !ok {
			doc = &scip.Document{
				Language:     "cpp",
				RelativePath: relPath(projectRoot, key.File),
			}
			docs[key.File] = doc
		}

		sym := symbolFor(key)
		roles := int32(0)
		if key.Def {
			roles = int32(scip.SymbolRole_Definition)
			doc.Symbols = append(doc.Symbols, &scip.SymbolInformation{
				Symbol:      sym,
				DisplayName: key.Symbol,
				Kind:        symbolKind(key.Kind),
			})
		} else if ent.Ref.Key.Valid() {
			sym = symbolFor(ent.Ref.Key)
		}
		doc.Occurrences = append(doc.Occurrences, &scip.Occurrence{
			Range:       occurrenceRange(key),
			Symbol:      sym,
			SymbolRoles: roles,
		})
	}

	idx := &scip.Index{
		Metadata: &scip.Metadata{
			ToolInfo:             &scip.ToolInfo{Name: "rtags"},
			ProjectRoot:          "file://" + projectRoot,
			TextDocumentEncoding: scip.TextEncoding_UTF8,
		},
	}
	for _, doc := range docs {
		sort.Slice(doc.Occurrences, func(i, j int) bool {
			a, b := doc.Occurrences[i].Range, doc.Occurrences[j].Range
			if a[0] != b[0] {
				return a[0] < b[0]
			}
			return a[1] < b[1]
		})
		sort.Slice(doc.Symbols, func(i, j int) bool {
			return doc.Symbols[i].Symbol < doc.Symbols[j].Symbol
		})
		idx.Documents = append(idx.Documents, doc)
	}
	sort.Slice(idx.Documents, func(i, j int) bool {
		return idx.Documents[i].RelativePath < idx.Documents[j].RelativePath
	})
	return idx
}

// WriteFile marshals the index and writes it to path.
func WriteFile(path string, idx *scip.Index) error {
	data, err := proto.Marshal(idx)
	if err != nil {
		return fmt.Errorf("marshal scip index: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write scip index: %w", err)
	}
	return nil
}

func relPath(root, file string) string {
	if root == "" {
		return file
	}
	rel, err := filepath.Rel(root, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return file
	}
	return rel
}

// symbolFor derives the SCIP symbol for a defining location. The location
// string is unique per entity, which is exactly what a symbol needs to be;
// backticks keep the path-with-colons form inside one descriptor.
func symbolFor(key cursor.Key) string {
	return "rtags cpp . . `" + key.LocationString() + "`/"
}

// occurrenceRange is the SCIP half-open [startLine, startCol, endCol] form,
// zero-based, spanning the symbol name.
func occurrenceRange(key cursor.Key) []int32 {
	start := int32(key.Col) - 1
	return []int32{int32(key.Line) - 1, start, start + int32(len(key.Symbol))}
}

func symbolKind(k cursor.Kind) scip.SymbolInformation_Kind {
	switch k {
	case cursor.Namespace:
		return scip.SymbolInformation_Namespace
	case cursor.Class:
		return scip.SymbolInformation_Class
	case cursor.Struct:
		return scip.SymbolInformation_Struct
	case cursor.Union:
		return scip.SymbolInformation_Union
	case cursor.Enum:
		return scip.SymbolInformation_Enum
	case cursor.EnumConstant:
		return scip.SymbolInformation_EnumMember
	case cursor.Field:
		return scip.SymbolInformation_Field
	case cursor.Function:
		return scip.SymbolInformation_Function
	case cursor.Method, cursor.Destructor:
		return scip.SymbolInformation_Method
	case cursor.Constructor:
		return scip.SymbolInformation_Constructor
	case cursor.Variable, cursor.Parameter:
		return scip.SymbolInformation_Variable
	case cursor.Typedef:
		return scip.SymbolInformation_TypeAlias
	case cursor.MacroDefinition:
		return scip.SymbolInformation_Macro
	default:
		return scip.SymbolInformation_UnspecifiedKind
	}
}
