package filestore

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/seekerhut/docvault/internal/config"
)

func newLocalTestStore(t *testing.T) Store {
	t.Helper()
	store, err := New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": t.TempDir()},
	})
	require.NoError(t, err)
	return store
}

func TestLocalStoreRoundtrip(t *testing.T) {
	store := newLocalTestStore(t)
	ctx := context.Background()
	data := []byte("original upload bytes")

	require.NoError(t, store.Save(ctx, "doc1.txt", bytes.NewReader(data), int64(len(data))))
	reader, err := store.Open(ctx, "doc1.txt")
	require.NoError(t, err)
	defer reader.Close()
	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestLocalStoreDelete(t *testing.T) {
	store := newLocalTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "doc1.txt", bytes.NewReader([]byte("x")), 1))
	require.NoError(t, store.Delete(ctx, "doc1.txt"))
	_, err := store.Open(ctx, "doc1.txt")
	require.Error(t, err)
	require.NoError(t, store.Delete(ctx, "doc1.txt"))
}

func TestLocalStoreRejectsPathTraversal(t *testing.T) {
	store := newLocalTestStore(t)
	ctx := context.Background()
	require.Error(t, store.Save(ctx, "../escape", bytes.NewReader([]byte("x")), 1))
	_, err := store.Open(ctx, "a/b")
	require.Error(t, err)
	require.Error(t, store.Delete(ctx, ".."))
}

func TestNewUnknownStoreType(t *testing.T) {
	_, err := New(config.FileStoreConfig{Type: "ftp"})
	require.Error(t, err)
}
