package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploads_CreateWritesChunksInOrder(t *testing.T) {
	uploads, err := NewUploads(filepath.Join(t.TempDir(), "static", "uploads"))
	require.NoError(t, err)

	w, err := uploads.Create()
	require.NoError(t, err)

	chunks := [][]byte{[]byte("first-"), {}, []byte("second-"), {0x00, 0xff}}
	var want []byte
	for _, c := range chunks {
		require.NoError(t, w.WriteChunk(c))
		want = append(want, c...)
	}
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	got, err := os.ReadFile(w.Path())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, int64(len(want)), w.Size())

	sum := sha256.Sum256(want)
	assert.Equal(t, hex.EncodeToString(sum[:]), w.Sum())
	assert.Equal(t, uploads.Dir(), filepath.Dir(w.Path()))
}

func TestUploads_UniqueNames(t *testing.T) {
	uploads, err := NewUploads(t.TempDir())
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		w, err := uploads.Create()
		require.NoError(t, err)
		require.NoError(t, w.Close())

		name := filepath.Base(w.Path())
		assert.Len(t, name, 36)
		assert.Empty(t, filepath.Ext(name))
		assert.False(t, seen[name], "duplicate upload name %s", name)
		seen[name] = true
	}
}

func TestChunkWriter_WriteAfterClose(t *testing.T) {
	uploads, err := NewUploads(t.TempDir())
	require.NoError(t, err)

	w, err := uploads.Create()
	require.NoError(t, err)
	require.NoError(t, w.Close())

	err = w.WriteChunk([]byte("late"))
	var we *WriteError
	require.ErrorAs(t, err, &we)
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestChunkWriter_UnderlyingFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	w := NewChunkWriter(f)
	err = w.WriteChunk([]byte("data"))

	var we *WriteError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, "write", we.Op)
	assert.Equal(t, path, we.Path)
}

func TestUploads_CreateFailsWhenDirMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gone")
	uploads, err := NewUploads(dir)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(dir))

	_, err = uploads.Create()
	var we *WriteError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, "create", we.Op)
}

func TestNewUploads_PathIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, err := NewUploads(path)
	assert.Error(t, err)
}

func TestUploads_Remove(t *testing.T) {
	uploads, err := NewUploads(t.TempDir())
	require.NoError(t, err)

	w, err := uploads.Create()
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.NoError(t, uploads.Remove(w.Path()))
	_, err = os.Stat(w.Path())
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, uploads.Remove(w.Path()))
}
