package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoryDefaultsToSQLite(t *testing.T) {
	base := filepath.Join(t.TempDir(), "bm25")

	idx, err := NewBM25IndexWithBackend(base, DefaultBM25Config(), "")
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	_, isSQLite := idx.(*SQLiteBM25Index)
	assert.True(t, isSQLite)
	assert.FileExists(t, base+".db")
}

func TestFactorySelectsBleve(t *testing.T) {
	base := filepath.Join(t.TempDir(), "bm25")

	idx, err := NewBM25IndexWithBackend(base, DefaultBM25Config(), "bleve")
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	_, isBleve := idx.(*BleveBM25Index)
	assert.True(t, isBleve)
	assert.DirExists(t, base+".bleve")
}

func TestFactoryRejectsUnknownBackend(t *testing.T) {
	_, err := NewBM25IndexWithBackend("", DefaultBM25Config(), "elasticsearch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown BM25 backend")
}

func TestFactoryInMemoryWhenPathEmpty(t *testing.T) {
	idx, err := NewBM25IndexWithBackend("", DefaultBM25Config(), "sqlite")
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	seedDocs(t, idx, map[string]string{"a": "ephemeral content"})
	assert.Equal(t, 1, idx.Stats().DocumentCount)
}

func TestBackendsAgreeOnRanking(t *testing.T) {
	docs := map[string]string{
		"login":  "func login(username, password string) error { return authenticate(username, password) }",
		"logout": "func logout(sessionID string) { sessions.Remove(sessionID) }",
	}

	for _, backend := range []string{"sqlite", "bleve"} {
		idx, err := NewBM25IndexWithBackend("", DefaultBM25Config(), backend)
		require.NoError(t, err)
		seedDocs(t, idx, docs)

		results, err := idx.Search(context.Background(), "login authenticate", 10)
		require.NoError(t, err, backend)
		require.NotEmpty(t, results, backend)
		assert.Equal(t, "login", results[0].DocID, backend)
		require.NoError(t, idx.Close())
	}
}

func TestDetectBM25Backend(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "bm25")

	assert.Equal(t, BM25Backend(""), DetectBM25Backend(base))

	require.NoError(t, os.WriteFile(base+".db", []byte("x"), 0o644))
	assert.Equal(t, BM25BackendSQLite, DetectBM25Backend(base))

	require.NoError(t, os.Remove(base+".db"))
	require.NoError(t, os.MkdirAll(base+".bleve", 0o755))
	assert.Equal(t, BM25BackendBleve, DetectBM25Backend(base))
}

func TestGetBM25IndexPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/data", "bm25.db"), GetBM25IndexPath("/data", "sqlite"))
	assert.Equal(t, filepath.Join("/data", "bm25.db"), GetBM25IndexPath("/data", ""))
	assert.Equal(t, filepath.Join("/data", "bm25.bleve"), GetBM25IndexPath("/data", "bleve"))
}
