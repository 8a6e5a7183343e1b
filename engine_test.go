package rtags

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenodium/rtags/internal/cursor"
	"github.com/xenodium/rtags/internal/frontend"
	"github.com/xenodium/rtags/internal/frontend/frontendtest"
)

// testProject lays out a fake project on disk (real files, so modification
// times work) and a fake front end serving hand-built trees for it.
type testProject struct {
	dir      string
	db       string
	header   string
	source   string
	mainCC   string
	fe       *frontendtest.FrontEnd
	commands string
}

func newTestProject(t *testing.T) *testProject {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	p := &testProject{
		dir:    dir,
		db:     filepath.Join(dir, ".rtags.db"),
		header: filepath.Join(dir, "widget.h"),
		source: filepath.Join(dir, "widget.cc"),
		mainCC: filepath.Join(dir, "main.cc"),
		fe:     frontendtest.NewFrontEnd(),
	}
	for _, f := range []string{p.header, p.source, p.mainCC} {
		require.NoError(t, os.WriteFile(f, []byte("// stub\n"), 0o644))
	}

	type entry struct {
		Directory string   `json:"directory"`
		File      string   `json:"file"`
		Arguments []string `json:"arguments"`
	}
	entries := []entry{
		{Directory: dir, File: p.source, Arguments: []string{"g++", "-I" + dir, "-c", p.source}},
		{Directory: dir, File: p.mainCC, Arguments: []string{"g++", "-I" + dir, "-c", p.mainCC}},
	}
	data, err := json.Marshal(entries)
	require.NoError(t, err)
	p.commands = filepath.Join(dir, "compile_commands.json")
	require.NoError(t, os.WriteFile(p.commands, data, 0o644))

	p.registerUnits()
	return p
}

// registerUnits builds the widget scenario: the class and a method
// declaration live in widget.h (seen through the widget.cc unit), the
// out-of-line definition in widget.cc, and a call in main.cc.
func (p *testProject) registerUnits() {
	class := frontendtest.New(cursor.Class, "Widget").At(p.header, 1, 7, 6)
	class.Def = true
	class.DefNode = class

	def := frontendtest.New(cursor.Method, "draw()").At(p.source, 2, 14, 30)
	def.Def = true
	def.DefNode = def
	def.Parent = class

	decl := frontendtest.New(cursor.Method, "draw()").At(p.header, 2, 8, 21)
	decl.DefNode = def
	class.Add(decl)

	call := frontendtest.New(cursor.CallExpr, "draw()").At(p.mainCC, 5, 3, 50)
	call.DefNode = def

	sourceRoot := frontendtest.New(cursor.Invalid, "").Add(class, def)
	mainRoot := frontendtest.New(cursor.Invalid, "").Add(call)

	p.fe.Register(p.source, &frontendtest.Unit{
		RootNode: sourceRoot,
		Includes: []frontend.Inclusion{{File: p.header}},
	})
	p.fe.Register(p.mainCC, &frontendtest.Unit{RootNode: mainRoot})
}

func (p *testProject) engine(opts ...Option) *Engine {
	return New(p.db, append([]Option{WithFrontEnd(p.fe), WithWorkers(1)}, opts...)...)
}

func (p *testProject) touch(t *testing.T, path string, delta time.Duration) {
	t.Helper()
	fi, err := os.Stat(path)
	require.NoError(t, err)
	newTime := fi.ModTime().Add(delta)
	require.NoError(t, os.Chtimes(path, newTime, newTime))
}

func TestBuildAndQuery(t *testing.T) {
	t.Parallel()

	p := newTestProject(t)
	e := p.engine()
	require.NoError(t, e.Build(context.Background(), p.commands))

	q, err := e.Query()
	require.NoError(t, err)
	defer q.Close()

	// Every name variant lands on the method declaration.
	for _, name := range []string{"draw()", "draw", "Widget::draw()", "Widget::draw"} {
		locs, err := q.FindSymbol(name)
		require.NoError(t, err)
		assert.Contains(t, locs, p.header+":2:8", "name %q", name)
	}

	// The definition entity resolves to the merged declaration, and the
	// call site shows up in its inbound references.
	target, refs, err := q.ReferencesTo(p.source + ":2:14")
	require.NoError(t, err)
	assert.Equal(t, p.header+":2:8", target)
	assert.Contains(t, refs, p.mainCC+":5:3")

	records, err := q.Dependencies()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, p.mainCC, records[0].File)
	assert.Equal(t, p.source, records[1].File)
	assert.Contains(t, records[1].Includes, p.header)
}

func TestFindSymbolPrefix(t *testing.T) {
	t.Parallel()

	p := newTestProject(t)
	e := p.engine()
	require.NoError(t, e.Build(context.Background(), p.commands))

	q, err := e.Query()
	require.NoError(t, err)
	defer q.Close()

	matches, err := q.FindSymbolPrefix("Widget::")
	require.NoError(t, err)
	assert.Contains(t, matches, "Widget::draw")
	assert.Contains(t, matches, "Widget::draw()")
}

func TestBuild_ParallelMatchesSerial(t *testing.T) {
	t.Parallel()

	p := newTestProject(t)
	e := p.engine(WithWorkers(4))
	require.NoError(t, e.Build(context.Background(), p.commands))

	q, err := e.Query()
	require.NoError(t, err)
	defer q.Close()

	target, refs, err := q.ReferencesTo(p.source + ":2:14")
	require.NoError(t, err)
	assert.Equal(t, p.header+":2:8", target)
	assert.Contains(t, refs, p.mainCC+":5:3")
}

func TestBuild_SkipsFailingUnit(t *testing.T) {
	t.Parallel()

	p := newTestProject(t)
	p.fe.Errs[p.mainCC] = os.ErrInvalid

	e := p.engine()
	require.NoError(t, e.Build(context.Background(), p.commands))

	q, err := e.Query()
	require.NoError(t, err)
	defer q.Close()

	// The healthy unit is still indexed; the failed one has no record.
	records, err := q.Dependencies()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, p.source, records[0].File)
}

func TestUpdate_NoChanges(t *testing.T) {
	t.Parallel()

	p := newTestProject(t)
	e := p.engine()
	require.NoError(t, e.Build(context.Background(), p.commands))
	parsed := len(p.fe.ParsedFiles())

	require.NoError(t, e.Update(context.Background()))
	assert.Len(t, p.fe.ParsedFiles(), parsed)
}

func TestUpdate_RewalksChangedFile(t *testing.T) {
	t.Parallel()

	p := newTestProject(t)
	e := p.engine()
	require.NoError(t, e.Build(context.Background(), p.commands))
	parsed := len(p.fe.ParsedFiles())

	p.touch(t, p.mainCC, time.Hour)
	require.NoError(t, e.Update(context.Background()))

	after := p.fe.ParsedFiles()
	require.Len(t, after, parsed+1)
	assert.Equal(t, p.mainCC, after[len(after)-1])

	// Cross-references survive the partial rebuild.
	q, err := e.Query()
	require.NoError(t, err)
	defer q.Close()
	target, refs, err := q.ReferencesTo(p.source + ":2:14")
	require.NoError(t, err)
	assert.Equal(t, p.header+":2:8", target)
	assert.Contains(t, refs, p.mainCC+":5:3")
}

func TestUpdate_ChangedHeaderRewalksIncluders(t *testing.T) {
	t.Parallel()

	p := newTestProject(t)
	e := p.engine()
	require.NoError(t, e.Build(context.Background(), p.commands))
	parsed := len(p.fe.ParsedFiles())

	p.touch(t, p.header, time.Hour)
	require.NoError(t, e.Update(context.Background()))

	// Only widget.cc includes the header; main.cc stays untouched.
	after := p.fe.ParsedFiles()
	require.Len(t, after, parsed+1)
	assert.Equal(t, p.source, after[len(after)-1])
}

func TestUpdate_MissingDatabase(t *testing.T) {
	t.Parallel()

	p := newTestProject(t)
	e := p.engine()
	// No entry set has ever been written.
	assert.Error(t, e.Update(context.Background()))

	// The failed update must not leave an empty database file behind.
	_, err := os.Stat(p.db)
	assert.True(t, os.IsNotExist(err))
}

func TestBuild_DebugTracesCursors(t *testing.T) {
	t.Parallel()

	p := newTestProject(t)
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := p.engine(WithLogger(log))
	require.NoError(t, e.Build(context.Background(), p.commands))

	// One trace line per valid node of every walked unit.
	out := buf.String()
	assert.Contains(t, out, "cursor.visit")
	assert.Contains(t, out, "kind=Class")
	assert.Contains(t, out, "symbol=Widget")
	assert.Contains(t, out, p.header+":1:7")
	assert.Contains(t, out, "kind=CallExpr")
}

func TestBuildFromLog(t *testing.T) {
	t.Parallel()

	p := newTestProject(t)
	e := p.engine()

	log := "g++ -I" + p.dir + " -c " + p.source + "\n" +
		"g++ -I" + p.dir + " -c " + p.mainCC + "\n"
	require.NoError(t, e.BuildFromLog(context.Background(), strings.NewReader(log)))

	q, err := e.Query()
	require.NoError(t, err)
	defer q.Close()

	locs, err := q.FindSymbol("Widget::draw")
	require.NoError(t, err)
	assert.Contains(t, locs, p.header+":2:8")
}

func TestExportSCIP(t *testing.T) {
	t.Parallel()

	p := newTestProject(t)
	e := p.engine()
	require.NoError(t, e.Build(context.Background(), p.commands))

	out := filepath.Join(p.dir, "index.scip")
	require.NoError(t, e.ExportSCIP(out, p.dir))

	fi, err := os.Stat(out)
	require.NoError(t, err)
	assert.Positive(t, fi.Size())
}
