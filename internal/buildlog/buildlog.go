// Package buildlog extracts per-file compiler invocations: which files are
// compiled and with what include paths and defines. Two sources are
// supported, a clang-style compile_commands.json and raw build-log lines.
// The argument bundles are opaque to the indexer core and passed through to
// the front end unchanged.
package buildlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Command is one compiler invocation: the translation unit's main file and
// the arguments the front end needs to reparse it.
type Command struct {
	File string
	Args []string
}

// compileCommand mirrors one compile_commands.json entry. Either Command or
// Arguments is populated, per the format.
type compileCommand struct {
	Directory string   `json:"directory"`
	File      string   `json:"file"`
	Command   string   `json:"command"`
	Arguments []string `json:"arguments"`
}

// LoadCompileCommands reads a compile_commands.json database and returns one
// Command per entry, with file paths made absolute against each entry's
// directory.
func LoadCompileCommands(path string) ([]Command, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read compile commands: %w", err)
	}
	var entries []compileCommand
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cmds := make([]Command, 0, len(entries))
	for _, e := range entries {
		argv := e.Arguments
		if len(argv) == 0 {
			argv = splitCommand(e.Command)
		}
		file := e.File
		if file != "" && !filepath.IsAbs(file) && e.Directory != "" {
			file = filepath.Join(e.Directory, file)
		}
		cmd := Command{File: file, Args: extractArgs(argv, e.Directory)}
		if cmd.File == "" {
			if inputs := inputFiles(argv, e.Directory); len(inputs) > 0 {
				cmd.File = inputs[0]
			}
		}
		if cmd.File != "" {
			cmds = append(cmds, cmd)
		}
	}
	return cmds, nil
}

// ParseLog scans raw build output for compiler invocations and returns one
// Command per input file seen.
func ParseLog(r io.Reader) ([]Command, error) {
	var cmds []Command
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		argv := splitCommand(scanner.Text())
		if !isCompilerInvocation(argv) {
			continue
		}
		args := extractArgs(argv, "")
		for _, input := range inputFiles(argv, "") {
			cmds = append(cmds, Command{File: input, Args: args})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan build log: %w", err)
	}
	return cmds, nil
}

var compilerNames = map[string]bool{
	"cc": true, "c++": true, "gcc": true, "g++": true,
	"clang": true, "clang++": true,
}

func isCompilerInvocation(argv []string) bool {
	if len(argv) == 0 {
		return false
	}
	return compilerNames[filepath.Base(argv[0])]
}

// extractArgs keeps the arguments the front end needs: include paths,
// defines, standard selection and system include roots.
func extractArgs(argv []string, dir string) []string {
	var args []string
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case strings.HasPrefix(arg, "-I"), strings.HasPrefix(arg, "-D"),
			strings.HasPrefix(arg, "-std="):
			args = append(args, absolutizeInclude(arg, dir))
		case arg == "-isystem" || arg == "-include":
			if i+1 < len(argv) {
				args = append(args, arg, argv[i+1])
				i++
			}
		}
	}
	return args
}

// absolutizeInclude rewrites a relative -I path against the entry directory.
func absolutizeInclude(arg, dir string) string {
	if dir == "" || !strings.HasPrefix(arg, "-I") {
		return arg
	}
	path := arg[2:]
	if path == "" || filepath.IsAbs(path) {
		return arg
	}
	return "-I" + filepath.Join(dir, path)
}

var sourceExtensions = map[string]bool{
	".c": true, ".cc": true, ".cpp": true, ".cxx": true,
	".m": true, ".mm": true,
}

func inputFiles(argv []string, dir string) []string {
	var inputs []string
	for i, arg := range argv {
		if i == 0 || strings.HasPrefix(arg, "-") {
			continue
		}
		if !sourceExtensions[strings.ToLower(filepath.Ext(arg))] {
			continue
		}
		if !filepath.IsAbs(arg) && dir != "" {
			arg = filepath.Join(dir, arg)
		}
		inputs = append(inputs, arg)
	}
	return inputs
}

// splitCommand tokenizes a shell-ish command line, honoring single and
// double quotes but not expansions.
func splitCommand(line string) []string {
	var (
		argv    []string
		current strings.Builder
		quote   rune
		started bool
	)
	flush := func() {
		if started {
			argv = append(argv, current.String())
			current.Reset()
			started = false
		}
	}
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			started = true
		case r == ' ' || r == '\t':
			flush()
		default:
			current.WriteRune(r)
			started = true
		}
	}
	flush()
	return argv
}
