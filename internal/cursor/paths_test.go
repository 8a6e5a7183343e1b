package cursor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalPath_Empty(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", CanonicalPath(""))
}

func TestCanonicalPath_CleansAbsolute(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	messy := filepath.Join(dir, "sub", "..", "a.cc")
	assert.Equal(t, filepath.Join(dir, "a.cc"), CanonicalPath(messy))
}

func TestCanonicalPath_FollowsSymlinks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	real := filepath.Join(dir, "real.h")
	require.NoError(t, os.WriteFile(real, []byte("x"), 0o644))
	link := filepath.Join(dir, "link.h")
	require.NoError(t, os.Symlink(real, link))

	assert.Equal(t, CanonicalPath(real), CanonicalPath(link))
}

func TestCanonicalPath_Stable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := filepath.Join(dir, "a.cc")
	assert.Equal(t, CanonicalPath(p), CanonicalPath(p))
}
