package cursor

import (
	"path/filepath"

	"github.com/patrickmn/go-cache"
)

// Every occurrence the front end reports goes through path canonicalization,
// and a translation unit revisits the same handful of files millions of
// times. The resolved forms are kept in a process-wide cache.
var pathCache = cache.New(cache.NoExpiration, cache.NoExpiration)

// CanonicalPath resolves p to a cleaned absolute path, following symlinks
// when the file exists. Empty stays empty.
func CanonicalPath(p string) string {
	if p == "" {
		return ""
	}
	if v, ok := pathCache.Get(p); ok {
		return v.(string)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = filepath.Clean(p)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	pathCache.Set(p, abs, cache.NoExpiration)
	return abs
}
