package storage

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveOpenDelete(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	name, err := store.Save("students.csv", []byte("first"))
	require.NoError(t, err)
	assert.Equal(t, "students.csv", name)

	_, err = store.Save("students.csv", []byte("second"))
	require.NoError(t, err)

	f, err := store.Open("students.csv")
	require.NoError(t, err)
	body, err := io.ReadAll(f)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	assert.Equal(t, "second", string(body))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not linger")

	require.NoError(t, store.Delete("students.csv"))
	require.NoError(t, store.Delete("students.csv"))
	_, err = store.Open("students.csv")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("old.pdf", []byte("x"))
	require.NoError(t, err)
	_, err = store.Save("new.pdf", []byte("y"))
	require.NoError(t, err)
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path("old.pdf"), past, past))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.pdf"}, deleted)
	_, err = os.Stat(store.Path("new.pdf"))
	assert.NoError(t, err)
}
