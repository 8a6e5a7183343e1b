// Package deps tracks what each compiled file was built from: its build
// arguments, its modification time at index time, and the headers it
// transitively included. On update these records determine which files are
// stale and must be re-walked.
package deps

import (
	"os"

	"github.com/xenodium/rtags/internal/cursor"
	"github.com/xenodium/rtags/internal/frontend"
)

// Record is the dependency record for one compiled file. Includes maps each
// transitively included header to its modification time at collection time
// and never contains File itself.
type Record struct {
	File         string
	Args         []string
	LastModified int64
	Includes     map[string]int64
}

// MtimeFunc probes a file's current modification time (unix seconds).
type MtimeFunc func(path string) (int64, error)

// Mtime is the disk-backed probe.
func Mtime(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return fi.ModTime().Unix(), nil
}

// NewRecord builds the record for one walked unit. Every file on the unit's
// inclusion enumeration, including the stacks that led there, is recorded
// with its current modification time.
func NewRecord(file string, args []string, inclusions []frontend.Inclusion, mtime MtimeFunc) Record {
	file = cursor.CanonicalPath(file)
	rec := Record{
		File:     file,
		Args:     args,
		Includes: make(map[string]int64),
	}
	if m, err := mtime(file); err == nil {
		rec.LastModified = m
	}
	add := func(path string) {
		p := cursor.CanonicalPath(path)
		if p == "" || p == file {
			return
		}
		if _, ok := rec.Includes[p]; ok {
			return
		}
		if m, err := mtime(p); err == nil {
			rec.Includes[p] = m
		}
	}
	for _, inc := range inclusions {
		add(inc.File)
		for _, stack := range inc.Stack {
			add(stack)
		}
	}
	return rec
}

// Dirty scans the stored records and returns the files whose recorded
// modification time no longer matches disk, mapped to their stored build
// arguments. A changed header is propagated with nil arguments — headers are
// not independently compiled — unless its own compiled-file record already
// marked it dirty with real arguments. Records must arrive in file-path
// order, as the store's prefix scan yields them.
func Dirty(records []Record, mtime MtimeFunc) map[string][]string {
	dirty := make(map[string][]string)
	for _, rec := range records {
		if m, err := mtime(rec.File); err != nil || m != rec.LastModified {
			dirty[rec.File] = rec.Args
		}
		for inc, stamp := range rec.Includes {
			if _, marked := dirty[inc]; marked {
				continue
			}
			if m, err := mtime(inc); err != nil || m != stamp {
				dirty[inc] = nil
			}
		}
	}
	return dirty
}
