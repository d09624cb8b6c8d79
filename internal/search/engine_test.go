package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aerrors "github.com/aman-cerp/semantic-code-mcp/internal/errors"
	"github.com/aman-cerp/semantic-code-mcp/internal/store"
)

// testEngine wires an engine over the package mocks. The metadata store
// is returned so tests can seed chunks and index state directly.
func testEngine(t *testing.T, bm25 *MockBM25Index, vector *MockVectorStore, embedder *MockEmbedder, opts ...EngineOption) (*Engine, *MockMetadataStore) {
	t.Helper()
	meta := NewMockMetadataStore()
	e, err := NewEngine(bm25, vector, embedder, meta, DefaultConfig(), opts...)
	require.NoError(t, err)
	return e, meta
}

func seedChunks(meta *MockMetadataStore, specs ...[2]string) {
	for _, s := range specs {
		meta.chunks[s[0]] = &store.Chunk{
			ID:          s[0],
			FilePath:    s[1],
			Language:    "go",
			ContentType: store.ContentTypeCode,
			Content:     "func " + s[0] + "() {}",
		}
	}
}

func nonEmptyBM25() *MockBM25Index {
	return &MockBM25Index{
		StatsFn: func() *store.IndexStats { return &store.IndexStats{DocumentCount: 3} },
	}
}

func TestNewEngineRejectsNilDependencies(t *testing.T) {
	meta := NewMockMetadataStore()
	_, err := NewEngine(nil, &MockVectorStore{}, &MockEmbedder{}, meta, DefaultConfig())
	require.ErrorIs(t, err, ErrNilDependency)

	_, err = NewEngine(&MockBM25Index{}, nil, &MockEmbedder{}, meta, DefaultConfig())
	require.ErrorIs(t, err, ErrNilDependency)

	_, err = NewEngine(&MockBM25Index{}, &MockVectorStore{}, nil, meta, DefaultConfig())
	require.ErrorIs(t, err, ErrNilDependency)

	_, err = NewEngine(&MockBM25Index{}, &MockVectorStore{}, &MockEmbedder{}, nil, DefaultConfig())
	require.ErrorIs(t, err, ErrNilDependency)
}

func TestSearchEmptyQueryReturnsNothing(t *testing.T) {
	e, _ := testEngine(t, &MockBM25Index{}, &MockVectorStore{}, &MockEmbedder{})

	results, err := e.Search(context.Background(), "   ", SearchOptions{})
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestSearchEmptyIndexReturnsEmpty(t *testing.T) {
	bm25 := &MockBM25Index{
		StatsFn: func() *store.IndexStats { return &store.IndexStats{} },
		SearchFn: func(context.Context, string, int) ([]*store.BM25Result, error) {
			t.Fatal("no search should run against an empty index")
			return nil, nil
		},
	}
	vector := &MockVectorStore{CountFn: func() int { return 0 }}

	e, _ := testEngine(t, bm25, vector, &MockEmbedder{})

	results, err := e.Search(context.Background(), "anything", SearchOptions{})
	require.NoError(t, err)
	require.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearchFusesBothChannels(t *testing.T) {
	bm25 := nonEmptyBM25()
	bm25.SearchFn = func(_ context.Context, _ string, _ int) ([]*store.BM25Result, error) {
		return []*store.BM25Result{
			bm25Hit("login", 5.0, "login"),
			bm25Hit("logout", 2.0, "login"),
		}, nil
	}
	vector := &MockVectorStore{
		CountFn: func() int { return 3 },
		SearchFn: func(_ context.Context, _ []float32, _ int) ([]*store.VectorResult, error) {
			return []*store.VectorResult{
				vecHit("login", 0.92),
				vecHit("query_users", 0.40),
			}, nil
		},
	}

	e, meta := testEngine(t, bm25, vector, &MockEmbedder{})
	seedChunks(meta,
		[2]string{"login", "src/auth/login.go"},
		[2]string{"logout", "src/auth/logout.go"},
		[2]string{"query_users", "src/users/query.go"},
	)

	results, err := e.Search(context.Background(), "user authentication login", SearchOptions{Limit: 3})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "login", results[0].Chunk.ID)
	assert.True(t, results[0].InBothLists)
	assert.Equal(t, "logout", results[2].Chunk.ID)

	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}
}

func TestSearchEmbedderFailureFallsBackToKeywords(t *testing.T) {
	bm25 := nonEmptyBM25()
	bm25.SearchFn = func(context.Context, string, int) ([]*store.BM25Result, error) {
		return []*store.BM25Result{bm25Hit("hit", 3.0, "login")}, nil
	}
	vector := &MockVectorStore{CountFn: func() int { return 3 }}
	embedder := &MockEmbedder{
		EmbedFn: func(context.Context, string) ([]float32, error) {
			return nil, errors.New("model load failed")
		},
	}

	e, meta := testEngine(t, bm25, vector, embedder)
	seedChunks(meta, [2]string{"hit", "src/a.go"})

	results, err := e.Search(context.Background(), "login", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "hit", results[0].Chunk.ID)
	assert.Equal(t, 0, results[0].VecRank)
	assert.True(t, results[0].FromFallback)
}

func TestSearchEmbedderFailureWithFallbackDisabled(t *testing.T) {
	bm25 := nonEmptyBM25()
	bm25.SearchFn = func(context.Context, string, int) ([]*store.BM25Result, error) {
		return []*store.BM25Result{bm25Hit("hit", 3.0, "login")}, nil
	}
	embedder := &MockEmbedder{
		EmbedFn: func(context.Context, string) ([]float32, error) {
			return nil, errors.New("model load failed")
		},
	}

	e, _ := testEngine(t, bm25, &MockVectorStore{CountFn: func() int { return 3 }}, embedder)

	off := false
	_, err := e.Search(context.Background(), "login", SearchOptions{FallbackToKeyword: &off})
	require.Error(t, err)
	assert.Equal(t, aerrors.KindEmbeddingGenerationFailure, aerrors.KindOf(err))
}

func TestSearchBothChannelsFailingSurfacesError(t *testing.T) {
	bm25 := nonEmptyBM25()
	bm25.SearchFn = func(context.Context, string, int) ([]*store.BM25Result, error) {
		return nil, errors.New("bm25 broken")
	}
	vector := &MockVectorStore{CountFn: func() int { return 3 }}
	embedder := &MockEmbedder{
		EmbedFn: func(context.Context, string) ([]float32, error) {
			return nil, errors.New("embedder broken")
		},
	}

	e, _ := testEngine(t, bm25, vector, embedder)

	_, err := e.Search(context.Background(), "login", SearchOptions{})
	require.Error(t, err)
}

func TestSearchDimensionMismatchDisablesVectorChannel(t *testing.T) {
	embedCalled := false
	bm25 := nonEmptyBM25()
	bm25.SearchFn = func(context.Context, string, int) ([]*store.BM25Result, error) {
		return []*store.BM25Result{bm25Hit("kw", 1.0)}, nil
	}
	vector := &MockVectorStore{
		CountFn: func() int { return 3 },
		SearchFn: func(context.Context, []float32, int) ([]*store.VectorResult, error) {
			t.Fatal("vector search must not run on dimension mismatch")
			return nil, nil
		},
	}
	embedder := &MockEmbedder{
		EmbedFn: func(context.Context, string) ([]float32, error) {
			embedCalled = true
			return make([]float32, 768), nil
		},
	}

	e, meta := testEngine(t, bm25, vector, embedder)
	seedChunks(meta, [2]string{"kw", "src/a.go"})
	// The index claims a different dimension than the embedder reports.
	require.NoError(t, meta.SetState(context.Background(), store.StateKeyIndexDimension, "256"))

	results, err := e.Search(context.Background(), "login", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, embedCalled)
	assert.True(t, results[0].FromFallback)
}

func TestSearchBM25OnlySkipsEmbedding(t *testing.T) {
	bm25 := nonEmptyBM25()
	bm25.SearchFn = func(context.Context, string, int) ([]*store.BM25Result, error) {
		return []*store.BM25Result{bm25Hit("kw", 1.0)}, nil
	}
	embedder := &MockEmbedder{
		EmbedFn: func(context.Context, string) ([]float32, error) {
			t.Fatal("embedder must not be called in keyword-only mode")
			return nil, nil
		},
	}

	e, meta := testEngine(t, bm25, &MockVectorStore{CountFn: func() int { return 1 }}, embedder)
	seedChunks(meta, [2]string{"kw", "src/a.go"})

	results, err := e.Search(context.Background(), "login", SearchOptions{BM25Only: true})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchAppliesLimitAndDefaults(t *testing.T) {
	many := make([]*store.BM25Result, 30)
	for i := range many {
		many[i] = bm25Hit(fmt.Sprintf("c%02d", i), float64(30-i))
	}
	bm25 := nonEmptyBM25()
	bm25.SearchFn = func(context.Context, string, int) ([]*store.BM25Result, error) {
		return many, nil
	}

	e, meta := testEngine(t, bm25, &MockVectorStore{CountFn: func() int { return 1 }}, &MockEmbedder{})
	for i := 0; i < 30; i++ {
		id := fmt.Sprintf("c%02d", i)
		seedChunks(meta, [2]string{id, "src/" + id + ".go"})
	}

	// Default limit.
	results, err := e.Search(context.Background(), "query", SearchOptions{BM25Only: true})
	require.NoError(t, err)
	assert.Len(t, results, DefaultConfig().DefaultLimit)

	// Ceiling clamps oversized limits.
	results, err = e.Search(context.Background(), "query", SearchOptions{BM25Only: true, Limit: 10_000})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), DefaultConfig().MaxLimit)
}

type failingReranker struct{}

func (f *failingReranker) Rerank(context.Context, string, []string, int) ([]RerankResult, error) {
	return nil, errors.New("reranker exploded")
}
func (f *failingReranker) Available(context.Context) bool { return true }
func (f *failingReranker) Close() error                   { return nil }

func TestSearchRerankerFailureIsNonFatal(t *testing.T) {
	bm25 := nonEmptyBM25()
	bm25.SearchFn = func(context.Context, string, int) ([]*store.BM25Result, error) {
		return []*store.BM25Result{
			bm25Hit("a", 3.0), bm25Hit("b", 2.0), bm25Hit("c", 1.0),
		}, nil
	}

	e, meta := testEngine(t, bm25, &MockVectorStore{CountFn: func() int { return 1 }}, &MockEmbedder{},
		WithReranker(&failingReranker{}))
	seedChunks(meta,
		[2]string{"a", "src/a.go"},
		[2]string{"b", "src/b.go"},
		[2]string{"c", "src/c.go"},
	)

	results, err := e.Search(context.Background(), "query", SearchOptions{BM25Only: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Chunk.ID)
}

type fatalReranker struct{ t *testing.T }

func (f *fatalReranker) Rerank(context.Context, string, []string, int) ([]RerankResult, error) {
	f.t.Fatal("reranker must not run when use_reranking is off")
	return nil, nil
}
func (f *fatalReranker) Available(context.Context) bool { return true }
func (f *fatalReranker) Close() error                   { return nil }

func TestSearchUseRerankingOffSkipsReranker(t *testing.T) {
	bm25 := nonEmptyBM25()
	bm25.SearchFn = func(context.Context, string, int) ([]*store.BM25Result, error) {
		return []*store.BM25Result{
			bm25Hit("a", 3.0), bm25Hit("b", 2.0), bm25Hit("c", 1.0),
		}, nil
	}

	e, meta := testEngine(t, bm25, &MockVectorStore{CountFn: func() int { return 1 }}, &MockEmbedder{},
		WithReranker(&fatalReranker{t: t}))
	seedChunks(meta,
		[2]string{"a", "src/a.go"},
		[2]string{"b", "src/b.go"},
		[2]string{"c", "src/c.go"},
	)

	off := false
	results, err := e.Search(context.Background(), "query",
		SearchOptions{BM25Only: true, Limit: 2, UseReranking: &off})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestIndexWritesAllThreeStores(t *testing.T) {
	var bm25Docs, vectorIDs []string
	bm25 := &MockBM25Index{
		IndexFn: func(_ context.Context, docs []*store.Document) error {
			for _, d := range docs {
				bm25Docs = append(bm25Docs, d.ID)
			}
			return nil
		},
	}
	vector := &MockVectorStore{
		AddFn: func(_ context.Context, ids []string, vectors [][]float32) error {
			vectorIDs = append(vectorIDs, ids...)
			return nil
		},
	}

	e, meta := testEngine(t, bm25, vector, &MockEmbedder{})

	chunks := []*store.Chunk{
		{ID: "x_L1", FilePath: "x.go", Content: "func x() {}"},
		{ID: "y_L1", FilePath: "y.go", Content: "func y() {}"},
	}
	require.NoError(t, e.Index(context.Background(), chunks))

	assert.Equal(t, []string{"x_L1", "y_L1"}, bm25Docs)
	assert.Equal(t, []string{"x_L1", "y_L1"}, vectorIDs)
	assert.Len(t, meta.chunks, 2)

	// Dimension and model were recorded for later mismatch detection.
	dim, err := meta.GetState(context.Background(), store.StateKeyIndexDimension)
	require.NoError(t, err)
	assert.Equal(t, "768", dim)
}

func TestDeleteRemovesMetadataEvenWhenIndexesFail(t *testing.T) {
	bm25 := &MockBM25Index{
		DeleteFn: func(context.Context, []string) error { return errors.New("bm25 down") },
	}
	vector := &MockVectorStore{
		DeleteFn: func(context.Context, []string) error { return errors.New("vector down") },
	}

	e, meta := testEngine(t, bm25, vector, &MockEmbedder{})
	seedChunks(meta, [2]string{"gone", "src/gone.go"})

	require.NoError(t, e.Delete(context.Background(), []string{"gone"}))
	assert.Empty(t, meta.chunks)
}

func TestIncrementalReplaceLeavesOnlyNewRecords(t *testing.T) {
	e, meta := testEngine(t, &MockBM25Index{}, &MockVectorStore{}, &MockEmbedder{})

	v1 := []*store.Chunk{{ID: "f_L1", FilePath: "f.ts", Content: "function a(){return 1}"}}
	require.NoError(t, e.Index(context.Background(), v1))

	require.NoError(t, e.Delete(context.Background(), []string{"f_L1"}))
	v2 := []*store.Chunk{{ID: "f_L1", FilePath: "f.ts", Content: "function b(){return 2}"}}
	require.NoError(t, e.Index(context.Background(), v2))

	got, err := meta.GetChunk(context.Background(), "f_L1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Contains(t, got.Content, "function b")
}
