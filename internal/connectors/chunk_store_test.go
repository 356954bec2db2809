package connectors

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bodega/internal"
	"bodega/internal/storage"
)

func TestChunkStoreRoundTrip(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "chunks.db"))
	require.NoError(t, err)
	defer db.Close()

	dir := t.TempDir()
	store := NewChunkStore(db, dir)

	n, err := store.Store(internal.UploadChunk{SessionID: "a/b", Filename: "two.json", FileIndex: 2, TotalFiles: 2}, []byte(`{"n":2}`))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = store.Store(internal.UploadChunk{SessionID: "a/b", Filename: "one.json", FileIndex: 1, TotalFiles: 2}, []byte(`{"n":1}`))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// resending a file replaces it rather than adding a row
	n, err = store.Store(internal.UploadChunk{SessionID: "a/b", Filename: "one.json", FileIndex: 1, TotalFiles: 2}, []byte(`{"n":11}`))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	chunks, files, err := store.Session("a/b")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "one.json", chunks[0].Filename)
	assert.Len(t, chunks[0].Hash, 64)
	assert.Equal(t, `{"n":11}`, files["one.json"])
	sessionDir := filepath.Dir(chunks[0].RawRef)
	assert.Equal(t, dir, filepath.Dir(sessionDir))

	require.NoError(t, store.Delete("a/b"))
	_, err = os.Stat(sessionDir)
	assert.True(t, os.IsNotExist(err))
	chunks, _, err = store.Session("a/b")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSessionDirStaysInsideUploadDir(t *testing.T) {
	store := NewChunkStore(nil, "/var/uploads")
	for _, id := range []string{"", ".", "..", "../etc", "a/b", "a_b"} {
		dir := store.sessionDir(id)
		assert.Equal(t, "/var/uploads", filepath.Dir(dir), id)
		assert.NotEqual(t, "/var/uploads", dir, id)
	}
	assert.NotEqual(t, store.sessionDir("a/b"), store.sessionDir("a_b"))
}

func TestDeleteLeavesOtherSessions(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "chunks.db"))
	require.NoError(t, err)
	defer db.Close()

	dir := t.TempDir()
	store := NewChunkStore(db, dir)
	_, err = store.Store(internal.UploadChunk{SessionID: "a_b", Filename: "one.json", FileIndex: 1, TotalFiles: 2}, []byte(`{"n":1}`))
	require.NoError(t, err)

	require.NoError(t, store.Delete("."))
	require.NoError(t, store.Delete("a/b"))

	_, files, err := store.Session("a_b")
	require.NoError(t, err)
	assert.Equal(t, `{"n":1}`, files["one.json"])
}
