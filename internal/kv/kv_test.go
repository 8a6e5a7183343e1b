package kv

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPutGet(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	require.NoError(t, db.Put([]byte("k"), []byte("v1")))
	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	// Put replaces.
	require.NoError(t, db.Put([]byte("k"), []byte("v2")))
	got, err = db.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestGet_NotFound(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	_, err := db.Get([]byte("absent"))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestScan_PrefixAndOrder(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	for _, k := range []string{"f:/b", "d:beta", "f:/a", "d:alpha", " ", "e"} {
		require.NoError(t, db.Put([]byte(k), []byte("x")))
	}

	var keys []string
	err := db.Scan([]byte("d:"), func(key, value []byte) error {
		keys = append(keys, string(key))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"d:alpha", "d:beta"}, keys)
}

func TestScan_EmptyPrefixScansAll(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	for _, k := range []string{"b", "a", "c"} {
		require.NoError(t, db.Put([]byte(k), []byte("x")))
	}

	var keys []string
	err := db.Scan(nil, func(key, value []byte) error {
		keys = append(keys, string(key))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestScan_CallbackErrorAborts(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	require.NoError(t, db.Put([]byte("a"), []byte("x")))
	require.NoError(t, db.Put([]byte("b"), []byte("x")))

	boom := errors.New("boom")
	seen := 0
	err := db.Scan(nil, func(key, value []byte) error {
		seen++
		return boom
	})
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, 1, seen)
}

func TestScan_HighBytePrefix(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	require.NoError(t, db.Put([]byte{0xff, 0x01}, []byte("x")))
	require.NoError(t, db.Put([]byte{0xfe}, []byte("y")))

	var count int
	err := db.Scan([]byte{0xff}, func(key, value []byte) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPrefixUpperBound(t *testing.T) {
	t.Parallel()

	upper, ok := prefixUpperBound([]byte("d:"))
	require.True(t, ok)
	assert.Equal(t, []byte("d;"), upper)

	upper, ok = prefixUpperBound([]byte{0x61, 0xff})
	require.True(t, ok)
	assert.Equal(t, []byte{0x62}, upper)

	_, ok = prefixUpperBound([]byte{0xff, 0xff})
	assert.False(t, ok)
	_, ok = prefixUpperBound(nil)
	assert.False(t, ok)
}

func TestOpen_Reopens(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Put([]byte("k"), []byte("v")))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}
