package rtags

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sort"

	"github.com/xenodium/rtags/internal/buildlog"
	"github.com/xenodium/rtags/internal/cursor"
	"github.com/xenodium/rtags/internal/deps"
	"github.com/xenodium/rtags/internal/frontend"
	"github.com/xenodium/rtags/internal/frontend/cpp"
	"github.com/xenodium/rtags/internal/index"
	"github.com/xenodium/rtags/internal/kv"
	"github.com/xenodium/rtags/internal/store"
)

// Engine orchestrates the indexing pipeline: compile-command loading,
// translation-unit walking, entity linking, dictionary building and store
// writing.
type Engine struct {
	dbPath      string
	fe          frontend.FrontEnd
	workers     int
	sysIncludes []string
	log         *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithFrontEnd replaces the default tree-sitter C/C++ front end.
func WithFrontEnd(fe frontend.FrontEnd) Option {
	return func(e *Engine) { e.fe = fe }
}

// WithWorkers sets how many translation units are walked concurrently.
// Values below 2 select the serial path.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithSystemIncludes appends -I directories to every unit's arguments,
// without recording them in dependency records.
func WithSystemIncludes(dirs ...string) Option {
	return func(e *Engine) { e.sysIncludes = append(e.sysIncludes, dirs...) }
}

// WithLogger routes engine logging.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New creates an Engine writing to the database at dbPath.
func New(dbPath string, opts ...Option) *Engine {
	e := &Engine{
		dbPath:  dbPath,
		fe:      cpp.New(),
		workers: runtime.GOMAXPROCS(0),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Build indexes every compiled file named by the compile-command database
// at path and writes a fresh database, replacing any existing one. Units
// that fail to parse are logged and skipped.
func (e *Engine) Build(ctx context.Context, path string) error {
	cmds, err := buildlog.LoadCompileCommands(path)
	if err != nil {
		return fmt.Errorf("load compile commands: %w", err)
	}
	return e.build(ctx, cmds)
}

// BuildFromLog indexes the compiler invocations found in raw build output,
// for projects without a compile-command database.
func (e *Engine) BuildFromLog(ctx context.Context, r io.Reader) error {
	cmds, err := buildlog.ParseLog(r)
	if err != nil {
		return fmt.Errorf("parse build log: %w", err)
	}
	return e.build(ctx, cmds)
}

func (e *Engine) build(ctx context.Context, cmds []buildlog.Command) error {
	e.log.Info("build.start", "units", len(cmds), "db", e.dbPath)

	table := index.NewTable()
	records, err := e.walkUnits(ctx, table, cmds)
	if err != nil {
		return err
	}
	if err := e.write(table, records); err != nil {
		return err
	}
	e.log.Info("build.done", "entities", table.Len(), "units", len(records))
	return nil
}

// Update computes the dirty set from the stored dependency records,
// re-walks only units that changed (or include a changed header), and
// rewrites the database. Entities from clean files are reloaded from the
// stored entry set.
func (e *Engine) Update(ctx context.Context) error {
	// Opening the store would create an empty database file; an update of a
	// never-built project must fail without leaving one behind.
	if _, err := os.Stat(e.dbPath); err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	db, err := kv.Open(e.dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	reader := store.NewReader(db)
	records, err := reader.Dependencies()
	if err != nil {
		db.Close()
		return fmt.Errorf("scan dependencies: %w", err)
	}
	entities, err := reader.EntitySet()
	db.Close()
	if err != nil {
		return fmt.Errorf("read entry set: %w", err)
	}

	dirty := deps.Dirty(records, deps.Mtime)
	if len(dirty) == 0 {
		e.log.Info("update.clean")
		return nil
	}
	e.log.Info("update.start", "dirty", len(dirty))

	// A unit is re-walked when it is dirty itself or depends on a dirty
	// header; its old record is replaced by the re-walk.
	var cmds []buildlog.Command
	rewalk := make(map[string]bool)
	for _, rec := range records {
		needs := false
		if _, ok := dirty[rec.File]; ok {
			needs = true
		} else {
			for inc := range rec.Includes {
				if _, ok := dirty[inc]; ok {
					needs = true
					break
				}
			}
		}
		if needs {
			cmds = append(cmds, buildlog.Command{File: rec.File, Args: rec.Args})
			rewalk[rec.File] = true
		}
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].File < cmds[j].File })

	// Drop stale entities: anything seen in a dirty file or in a file
	// owned by a re-walked unit gets re-collected.
	skip := make(map[string]bool, len(dirty))
	for file := range dirty {
		skip[file] = true
	}
	table := index.NewTableFrom(entities, skip)
	table.ResetRefs()

	newRecords, err := e.walkUnits(ctx, table, cmds)
	if err != nil {
		return err
	}
	kept := newRecords
	for _, rec := range records {
		if !rewalk[rec.File] {
			kept = append(kept, rec)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].File < kept[j].File })

	if err := e.write(table, kept); err != nil {
		return err
	}
	e.log.Info("update.done", "entities", table.Len(), "rewalked", len(cmds))
	return nil
}

// walkUnits collects every unit into table and returns their dependency
// records, serially or via the worker pool.
func (e *Engine) walkUnits(ctx context.Context, table *index.Table, cmds []buildlog.Command) ([]deps.Record, error) {
	if e.workers > 1 && len(cmds) > 1 {
		return e.walkParallel(ctx, table, cmds)
	}
	var records []deps.Record
	for _, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, ok := e.walkUnit(ctx, table, cmd)
		if ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// walkUnit parses and collects one unit. A parse failure is logged and
// reported as not-ok; diagnostics are printed but never fatal.
func (e *Engine) walkUnit(ctx context.Context, table *index.Table, cmd buildlog.Command) (deps.Record, bool) {
	args := make([]string, 0, len(cmd.Args)+len(e.sysIncludes))
	args = append(args, cmd.Args...)
	for _, dir := range e.sysIncludes {
		args = append(args, "-I"+dir)
	}

	unit, err := e.fe.Parse(ctx, cmd.File, args)
	if err != nil {
		e.log.Warn("unit.parse_failed", "file", cmd.File, "err", err)
		return deps.Record{}, false
	}
	for _, d := range unit.Diagnostics() {
		// Diagnostics without a file name are noise.
		if d.Loc.File == "" {
			continue
		}
		fmt.Fprintf(os.Stderr, "%s:%d:%d %s\n", d.Loc.File, d.Loc.Line, d.Loc.Col, d.Message)
	}
	if e.log.Enabled(ctx, slog.LevelDebug) {
		e.traceCursors(ctx, unit.Root())
	}
	table.Collect(unit.Root())
	e.log.Debug("unit.collected", "file", cmd.File, "inclusions", len(unit.Inclusions()))
	return deps.NewRecord(cmd.File, cmd.Args, unit.Inclusions(), deps.Mtime), true
}

// traceCursors emits one debug line per valid node, following the same
// descent as collection (inclusion directives are not descended into).
// Only called when debug logging is enabled.
func (e *Engine) traceCursors(ctx context.Context, c frontend.Cursor) {
	if c == nil {
		return
	}
	k := c.Kind()
	if k != cursor.Invalid {
		loc := c.Location()
		e.log.Debug("cursor.visit",
			"kind", k.String(),
			"symbol", c.DisplayName(),
			"loc", fmt.Sprintf("%s:%d:%d", loc.File, loc.Line, loc.Col))
		if k == cursor.InclusionDirective {
			return
		}
	}
	for _, child := range c.Children() {
		e.traceCursors(ctx, child)
	}
}

// write runs the link pass, builds the dictionary and replaces the database.
func (e *Engine) write(table *index.Table, records []deps.Record) error {
	table.Link()
	dict := index.BuildDictionary(table)

	// The database is replaced wholesale; a partial write is recovered by
	// a full rebuild.
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(e.dbPath + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove old database: %w", err)
		}
	}
	db, err := kv.Open(e.dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	w := store.NewWriter(db)
	for _, ent := range table.Entities() {
		if err := w.WriteEntity(ent); err != nil {
			return err
		}
	}
	if err := w.WriteDictionary(dict); err != nil {
		return err
	}
	if err := w.WriteDependencies(records); err != nil {
		return err
	}
	if err := w.WriteEntitySet(table.Entities()); err != nil {
		return err
	}
	return nil
}
