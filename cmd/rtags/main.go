package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/xenodium/rtags"
	"github.com/xenodium/rtags/internal/config"
	"github.com/xenodium/rtags/internal/mcpserver"
)

var (
	flagDB      string
	flagVerbose bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "rtags",
	Short:         "Cross-reference indexer for C and C++ source trees",
	Long:          "rtags parses the files named by a compile-command database, resolves symbols across translation units, and writes a queryable cross-reference database.",
	SilenceErrors: true,
	SilenceUsage:  true,
	// No Run — prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .rtags.db relative to the project root)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log per-unit progress")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(symbolCmd)
	rootCmd.AddCommand(refsCmd)
	rootCmd.AddCommand(depsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
}

var (
	flagCompileCommands string
	flagBuildLog        string
	flagWorkers         int
	flagSystemIncludes  []string
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Build the cross-reference database from scratch",
	Long:  "Parses every file in the project's compile_commands.json and replaces the database.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

var updateCmd = &cobra.Command{
	Use:   "update [path]",
	Short: "Re-index only the files that changed since the last run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runUpdate,
}

func init() {
	indexCmd.Flags().StringVar(&flagCompileCommands, "compile-commands", "", "path to compile_commands.json (default: project root)")
	indexCmd.Flags().StringVar(&flagBuildLog, "build-log", "", "index from raw build output instead of compile_commands.json ('-' for stdin)")
	indexCmd.Flags().IntVar(&flagWorkers, "workers", 0, "parallel translation-unit walkers (default: GOMAXPROCS)")
	indexCmd.Flags().StringArrayVar(&flagSystemIncludes, "system-include", nil, "extra -I directory for every unit (repeatable)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()
	cfg, dir, err := loadConfig(args)
	if err != nil {
		return err
	}
	engine := newEngine(cfg)
	if flagBuildLog != "" {
		in := os.Stdin
		if flagBuildLog != "-" {
			f, err := os.Open(flagBuildLog)
			if err != nil {
				return fmt.Errorf("open build log: %w", err)
			}
			defer f.Close()
			in = f
		}
		if err := engine.BuildFromLog(context.Background(), in); err != nil {
			return fmt.Errorf("indexing: %w", err)
		}
	} else {
		compileCommands := cfg.CompileCommands
		if flagCompileCommands != "" {
			compileCommands = flagCompileCommands
		}
		if err := engine.Build(context.Background(), compileCommands); err != nil {
			return fmt.Errorf("indexing: %w", err)
		}
	}

	fmt.Fprintf(os.Stderr, "Indexed %s in %s\n", dir, time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "Database: %s\n", resolveDBPath(cfg))
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	start := time.Now()
	cfg, _, err := loadConfig(args)
	if err != nil {
		return err
	}
	engine := newEngine(cfg)
	if err := engine.Update(context.Background()); err != nil {
		return fmt.Errorf("updating: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Updated in %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

var flagPrefix bool

var symbolCmd = &cobra.Command{
	Use:   "symbol <name>",
	Short: "Look up a symbol's defining locations by name",
	Long:  "Accepts bare names (m), parenthesized names (m(int)) and scope-qualified names (N::C::m).",
	Args:  cobra.ExactArgs(1),
	RunE:  runSymbol,
}

func init() {
	symbolCmd.Flags().BoolVar(&flagPrefix, "prefix", false, "match every name starting with the given text")
}

func runSymbol(cmd *cobra.Command, args []string) error {
	q, err := openQuery()
	if err != nil {
		return err
	}
	defer q.Close()

	if flagPrefix {
		matches, err := q.FindSymbolPrefix(args[0])
		if err != nil {
			return err
		}
		names := make([]string, 0, len(matches))
		for name := range matches {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			for _, loc := range matches[name] {
				fmt.Printf("%s\t%s\n", name, loc)
			}
		}
		return nil
	}

	locs, err := q.FindSymbol(args[0])
	if err != nil {
		return err
	}
	if locs == nil {
		return fmt.Errorf("no symbol named %q", args[0])
	}
	for _, loc := range locs {
		fmt.Println(loc)
	}
	return nil
}

var refsCmd = &cobra.Command{
	Use:   "refs <file:line:col>",
	Short: "List every location that references the entity at a defining location",
	Args:  cobra.ExactArgs(1),
	RunE:  runRefs,
}

func runRefs(cmd *cobra.Command, args []string) error {
	q, err := openQuery()
	if err != nil {
		return err
	}
	defer q.Close()

	target, refs, err := q.ReferencesTo(args[0])
	if err != nil {
		return err
	}
	if target != "" && target != args[0] {
		fmt.Printf("resolves to\t%s\n", target)
	}
	for _, ref := range refs {
		fmt.Println(ref)
	}
	return nil
}

var depsCmd = &cobra.Command{
	Use:   "deps [file]",
	Short: "Show the indexed files and their recorded include dependencies",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDeps,
}

func runDeps(cmd *cobra.Command, args []string) error {
	q, err := openQuery()
	if err != nil {
		return err
	}
	defer q.Close()

	records, err := q.Dependencies()
	if err != nil {
		return err
	}
	for _, rec := range records {
		if len(args) > 0 && rec.File != args[0] {
			continue
		}
		fmt.Println(rec.File)
		includes := make([]string, 0, len(rec.Includes))
		for inc := range rec.Includes {
			includes = append(includes, inc)
		}
		sort.Strings(includes)
		for _, inc := range includes {
			fmt.Printf("\t%s\n", inc)
		}
	}
	return nil
}

var flagOut string

var exportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Export the database as a SCIP index",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&flagOut, "out", "index.scip", "output path for the SCIP index")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, dir, err := loadConfig(args)
	if err != nil {
		return err
	}
	engine := newEngine(cfg)
	if err := engine.ExportSCIP(flagOut, dir); err != nil {
		return fmt.Errorf("exporting: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", flagOut)
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve [path]",
	Short: "Serve index queries over the Model Context Protocol on stdio",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(args)
	if err != nil {
		return err
	}
	srv, err := mcpserver.New(resolveDBPath(cfg))
	if err != nil {
		return err
	}
	defer srv.Close()
	return srv.Serve()
}

// loadConfig resolves the project directory from args and loads its optional
// .rtags.yml, returning the config and the absolute project directory.
func loadConfig(args []string) (*config.Config, string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return nil, "", fmt.Errorf("not a directory: %s", abs)
	}
	cfg, err := config.Load(abs)
	if err != nil {
		return nil, "", err
	}
	return cfg, abs, nil
}

// resolveDBPath returns the database path from the --db flag or the config.
func resolveDBPath(cfg *config.Config) string {
	if flagDB != "" {
		return flagDB
	}
	return cfg.DB
}

func newEngine(cfg *config.Config) *rtags.Engine {
	opts := []rtags.Option{rtags.WithLogger(newLogger())}
	if flagWorkers > 0 {
		opts = append(opts, rtags.WithWorkers(flagWorkers))
	} else if cfg.Workers > 0 {
		opts = append(opts, rtags.WithWorkers(cfg.Workers))
	}
	includes := append([]string{}, cfg.SystemIncludes...)
	includes = append(includes, flagSystemIncludes...)
	if len(includes) > 0 {
		opts = append(opts, rtags.WithSystemIncludes(includes...))
	}
	return rtags.New(resolveDBPath(cfg), opts...)
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openQuery opens the database read-only for the query commands, resolving
// the project the same way the indexing commands do.
func openQuery() (*rtags.Query, error) {
	cfg, _, err := loadConfig(nil)
	if err != nil {
		return nil, err
	}
	path := resolveDBPath(cfg)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no database at %s (run 'rtags index' first)", path)
	}
	return rtags.OpenQuery(path)
}
