package cpp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenodium/rtags/internal/cursor"
	"github.com/xenodium/rtags/internal/frontend"
)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func parseSource(t *testing.T, dir, name, content string, args ...string) frontend.TranslationUnit {
	t.Helper()
	path := writeSource(t, dir, name, content)
	unit, err := New().Parse(context.Background(), path, args)
	require.NoError(t, err)
	return unit
}

// kindsOf walks the tree and collects display names by kind.
func kindsOf(root frontend.Cursor) map[cursor.Kind][]string {
	out := make(map[cursor.Kind][]string)
	var walk func(c frontend.Cursor)
	walk = func(c frontend.Cursor) {
		if k := c.Kind(); k != cursor.Invalid {
			out[k] = append(out[k], c.DisplayName())
		}
		for _, child := range c.Children() {
			walk(child)
		}
	}
	walk(root)
	return out
}

func TestParse_ClassAndMethods(t *testing.T) {
	t.Parallel()

	unit := parseSource(t, t.TempDir(), "widget.cc", `
class Widget {
  void draw(int depth);
  int size;
};

void Widget::draw(int depth) {
}
`)
	kinds := kindsOf(unit.Root())

	assert.Contains(t, kinds[cursor.Class], "Widget")
	assert.Contains(t, kinds[cursor.Field], "size")
	require.Len(t, kinds[cursor.Method], 2)
	assert.Equal(t, "draw(int depth)", kinds[cursor.Method][0])
	assert.Empty(t, unit.Diagnostics())
}

func TestParse_MethodDefinitionResolution(t *testing.T) {
	t.Parallel()

	unit := parseSource(t, t.TempDir(), "widget.cc", `
class Widget {
  void draw();
};
void Widget::draw() {}
`)

	var decl, def frontend.Cursor
	var walk func(c frontend.Cursor)
	walk = func(c frontend.Cursor) {
		if c.Kind() == cursor.Method {
			if c.IsDefinition() {
				def = c
			} else {
				decl = c
			}
		}
		for _, child := range c.Children() {
			walk(child)
		}
	}
	walk(unit.Root())

	require.NotNil(t, decl)
	require.NotNil(t, def)
	assert.Greater(t, def.Location().Line, decl.Location().Line)

	// The declaration resolves to the out-of-line definition.
	resolved := decl.Definition()
	require.NotNil(t, resolved)
	assert.Equal(t, def.Location().Off, resolved.Location().Off)
}

func TestParse_ConstructorAndDestructor(t *testing.T) {
	t.Parallel()

	unit := parseSource(t, t.TempDir(), "widget.cc", `
class Widget {
 public:
  Widget() {}
  ~Widget() {}
};
`)
	kinds := kindsOf(unit.Root())

	assert.Contains(t, kinds[cursor.Constructor], "Widget()")
	assert.Contains(t, kinds[cursor.Destructor], "~Widget()")
}

func TestParse_NamespaceAndFunction(t *testing.T) {
	t.Parallel()

	unit := parseSource(t, t.TempDir(), "util.cc", `
namespace util {
int clamp(int v) { return v; }
}
`)
	kinds := kindsOf(unit.Root())

	assert.Contains(t, kinds[cursor.Namespace], "util")
	assert.Contains(t, kinds[cursor.Function], "clamp(int v)")
}

func TestParse_MacroDefinition(t *testing.T) {
	t.Parallel()

	unit := parseSource(t, t.TempDir(), "macros.cc", "#define LIMIT 64\n")
	kinds := kindsOf(unit.Root())

	assert.Contains(t, kinds[cursor.MacroDefinition], "LIMIT")
}

func TestParse_ResolvesInclusions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	header := writeSource(t, dir, "widget.h", "class Widget;\n")
	unit := parseSource(t, dir, "widget.cc", "#include \"widget.h\"\n")

	incs := unit.Inclusions()
	require.Len(t, incs, 1)
	assert.Equal(t, header, incs[0].File)

	kinds := kindsOf(unit.Root())
	assert.Contains(t, kinds[cursor.InclusionDirective], "widget.h")
}

func TestParse_IncludeSearchPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	incDir := filepath.Join(dir, "include")
	require.NoError(t, os.Mkdir(incDir, 0o755))
	header := writeSource(t, incDir, "api.h", "void api();\n")

	unit := parseSource(t, dir, "user.cc", "#include <api.h>\n", "-I"+incDir)

	incs := unit.Inclusions()
	require.Len(t, incs, 1)
	assert.Equal(t, header, incs[0].File)
}

func TestParse_SyntaxErrorDiagnostics(t *testing.T) {
	t.Parallel()

	unit := parseSource(t, t.TempDir(), "broken.cc", "class {{{\n")
	assert.NotEmpty(t, unit.Diagnostics())
}

func TestParse_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := New().Parse(context.Background(), filepath.Join(t.TempDir(), "absent.cc"), nil)
	assert.Error(t, err)
}

func TestParse_TypeReference(t *testing.T) {
	t.Parallel()

	unit := parseSource(t, t.TempDir(), "use.cc", `
class Widget {};
Widget w;
`)
	kinds := kindsOf(unit.Root())
	assert.Contains(t, kinds[cursor.TypeRef], "Widget")
}
