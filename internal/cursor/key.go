// Package cursor defines the identity and ordering model for syntax-tree
// occurrences: the Key value type, node kinds, and the two string forms of a
// key (the byte-offset location key used for dedup and the file:line:col
// location string used on disk).
package cursor

import (
	"fmt"
	"strconv"
	"strings"
)

// Key identifies one syntax-tree occurrence. Line and Col are location
// metadata only; identity and ordering are carried by Kind, File, Symbol and
// Off. Two keys at the same byte offset are the same occurrence even when
// line/col differ (macro expansion moves them).
type Key struct {
	Kind   Kind
	File   string // canonicalized absolute path
	Symbol string // display name, includes parameter text for callables
	Line   uint32
	Col    uint32
	Off    uint32
	Def    bool // this occurrence is a defining occurrence
}

// Valid reports whether the key identifies anything at all. Invalid keys are
// treated as null everywhere.
func (k Key) Valid() bool {
	return k.File != "" && k.Symbol != ""
}

// Less orders keys: invalid first, then by file, byte offset, symbol name and
// kind. The result is a strict weak order suitable for deterministic output.
func (k Key) Less(o Key) bool {
	if !k.Valid() {
		return o.Valid()
	}
	if !o.Valid() {
		return false
	}
	if k.File != o.File {
		return k.File < o.File
	}
	if k.Off != o.Off {
		return k.Off < o.Off
	}
	if k.Symbol != o.Symbol {
		return k.Symbol < o.Symbol
	}
	return k.Kind < o.Kind
}

// Equal compares identity fields only; Line, Col and Def do not participate.
func (k Key) Equal(o Key) bool {
	if !k.Valid() {
		return !o.Valid()
	}
	return k.Kind == o.Kind && k.Off == o.Off && k.File == o.File && k.Symbol == o.Symbol
}

// SameLocation reports whether two keys name the same byte in the same file,
// regardless of kind or symbol.
func (k Key) SameLocation(o Key) bool {
	return k.Off == o.Off && k.File == o.File
}

// LocationKey is the internal dedup identity: "file:byteOffset".
func (k Key) LocationKey() string {
	return k.File + ":" + strconv.FormatUint(uint64(k.Off), 10)
}

// LocationString is the external identity persisted to the store:
// "file:line:col".
func (k Key) LocationString() string {
	var b strings.Builder
	b.Grow(len(k.File) + 16)
	b.WriteString(k.File)
	b.WriteByte(':')
	b.WriteString(strconv.FormatUint(uint64(k.Line), 10))
	b.WriteByte(':')
	b.WriteString(strconv.FormatUint(uint64(k.Col), 10))
	return b.String()
}

// SplitLocationString decomposes "file:line:col" back into its parts. The
// file path may not itself contain ':'; paths that do are not produced by
// this package.
func SplitLocationString(s string) (file string, line, col uint32, err error) {
	last := strings.LastIndexByte(s, ':')
	if last < 0 {
		return "", 0, 0, fmt.Errorf("cursor: malformed location %q", s)
	}
	mid := strings.LastIndexByte(s[:last], ':')
	if mid < 0 {
		return "", 0, 0, fmt.Errorf("cursor: malformed location %q", s)
	}
	l, err := strconv.ParseUint(s[mid+1:last], 10, 32)
	if err != nil {
		return "", 0, 0, fmt.Errorf("cursor: malformed line in %q: %w", s, err)
	}
	c, err := strconv.ParseUint(s[last+1:], 10, 32)
	if err != nil {
		return "", 0, 0, fmt.Errorf("cursor: malformed column in %q: %w", s, err)
	}
	return s[:mid], uint32(l), uint32(c), nil
}

func (k Key) String() string {
	if !k.Valid() {
		return "(invalid)"
	}
	return fmt.Sprintf("%s %s %s", k.Kind, k.Symbol, k.LocationString())
}
