package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemSQLiteBM25(t *testing.T) *SQLiteBM25Index {
	t.Helper()
	idx, err := NewSQLiteBM25Index("", DefaultBM25Config())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestSQLiteBM25IndexAndSearch(t *testing.T) {
	idx := newMemSQLiteBM25(t)
	seedDocs(t, idx, map[string]string{
		"auth":  "func login(username, password string) error { return checkCredentials(username) }",
		"users": "func queryUsers(filter string) []User { return db.Select(filter) }",
	})

	results, err := idx.Search(context.Background(), "login credentials", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "auth", results[0].DocID)
	assert.Greater(t, results[0].Score, 0.0) // FTS5 scores are negated to higher-is-better
	assert.NotEmpty(t, results[0].MatchedTerms)
}

func TestSQLiteBM25CamelCaseMatchesParts(t *testing.T) {
	idx := newMemSQLiteBM25(t)
	seedDocs(t, idx, map[string]string{
		"doc": "func getUserById(id string) (*User, error) { return repo.FindUser(id) }",
	})

	results, err := idx.Search(context.Background(), "user by id", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "doc", results[0].DocID)
}

func TestSQLiteBM25EmptyAndStopWordOnlyQueries(t *testing.T) {
	idx := newMemSQLiteBM25(t)
	seedDocs(t, idx, map[string]string{"a": "real content words"})

	results, err := idx.Search(context.Background(), "  ", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	// Everything in the query is a stop word.
	results, err = idx.Search(context.Background(), "func return if", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSQLiteBM25QueryOperatorsAreNeutralized(t *testing.T) {
	idx := newMemSQLiteBM25(t)
	seedDocs(t, idx, map[string]string{"a": "normal searchable content"})

	// FTS5 operators and SQL metacharacters in the query must not
	// error or mutate anything; the tokenizer strips them.
	for _, q := range []string{
		`"unbalanced`,
		`content OR`,
		`'; DROP TABLE fts_content;--`,
		`col:value`,
	} {
		_, err := idx.Search(context.Background(), q, 10)
		require.NoError(t, err, q)
	}

	ids, err := idx.AllIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)
}

func TestSQLiteBM25UpsertReplacesDocument(t *testing.T) {
	idx := newMemSQLiteBM25(t)
	seedDocs(t, idx, map[string]string{"doc": "original banana content"})
	seedDocs(t, idx, map[string]string{"doc": "replacement mango content"})

	results, err := idx.Search(context.Background(), "banana", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = idx.Search(context.Background(), "mango", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, idx.Stats().DocumentCount)
}

func TestSQLiteBM25DeleteBatch(t *testing.T) {
	idx := newMemSQLiteBM25(t)
	seedDocs(t, idx, map[string]string{"a": "alpha", "b": "beta", "c": "gamma"})

	require.NoError(t, idx.Delete(context.Background(), []string{"a", "c"}))

	ids, err := idx.AllIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
}

func TestSQLiteBM25PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bm25.db")

	idx, err := NewSQLiteBM25Index(path, DefaultBM25Config())
	require.NoError(t, err)
	seedDocs(t, idx, map[string]string{"keep": "durable content"})
	require.NoError(t, idx.Save(path))
	require.NoError(t, idx.Close())

	reopened, err := NewSQLiteBM25Index(path, DefaultBM25Config())
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	results, err := reopened.Search(context.Background(), "durable", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestSQLiteBM25RecoversFromCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bm25.db")
	require.NoError(t, os.WriteFile(path, []byte("this is not a sqlite database"), 0o644))

	idx, err := NewSQLiteBM25Index(path, DefaultBM25Config())
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	seedDocs(t, idx, map[string]string{"fresh": "rebuilt content"})
	assert.Equal(t, 1, idx.Stats().DocumentCount)
}

func TestSQLiteBM25ConcurrentReadsDuringWrites(t *testing.T) {
	idx := newMemSQLiteBM25(t)
	seedDocs(t, idx, map[string]string{"base": "baseline searchable content"})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = idx.Index(context.Background(), []*Document{
				{ID: string(rune('a' + i)), Content: "written concurrently"},
			})
		}(i)
		go func() {
			defer wg.Done()
			_, _ = idx.Search(context.Background(), "searchable", 5)
		}()
	}
	wg.Wait()

	results, err := idx.Search(context.Background(), "baseline", 5)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestSQLiteBM25ClosedIndexRejectsOperations(t *testing.T) {
	idx := newMemSQLiteBM25(t)
	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())

	require.Error(t, idx.Index(context.Background(), []*Document{{ID: "a", Content: "x"}}))
	_, err := idx.Search(context.Background(), "x", 1)
	require.Error(t, err)
	require.Error(t, idx.Save(""))
	assert.Equal(t, 0, idx.Stats().DocumentCount)
}
