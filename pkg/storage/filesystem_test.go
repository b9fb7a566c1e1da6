package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalStore(t *testing.T) (*LocalStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)
	return store, dir
}

func TestLocalStoreFetch(t *testing.T) {
	store, dir := newLocalStore(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "files"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "files", "report.pdf"), []byte("%PDF-1.4"), 0o644))

	reader, info, err := store.Fetch(context.Background(), "files/report.pdf")
	require.NoError(t, err)
	defer reader.Close()

	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(content))
	assert.Equal(t, int64(8), info.Size)
	assert.Contains(t, info.ContentType, "application/pdf")
}

func TestLocalStoreFetchMissing(t *testing.T) {
	store, _ := newLocalStore(t)

	_, _, err := store.Fetch(context.Background(), "files/nope.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalStoreTraversalCannotEscape(t *testing.T) {
	parent := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(parent, "secret.txt"), []byte("top secret"), 0o644))

	base := filepath.Join(parent, "files")
	store, err := NewLocalStore(base)
	require.NoError(t, err)

	// Dot-dot segments are anchored inside the base directory, so the
	// sibling file stays out of reach.
	for _, key := range []string{"../secret.txt", "x/../../secret.txt"} {
		_, _, err := store.Fetch(context.Background(), key)
		assert.ErrorIs(t, err, ErrObjectNotFound, "key %q", key)
	}
}

func TestLocalStoreStat(t *testing.T) {
	store, dir := newLocalStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))

	info, err := store.Stat(context.Background(), "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)
	assert.False(t, info.LastModified.IsZero())
}
