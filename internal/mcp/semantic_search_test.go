package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-cerp/semantic-code-mcp/internal/search"
	"github.com/aman-cerp/semantic-code-mcp/internal/store"
)

func TestCallTool_SemanticSearch_MissingQuery(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.CallTool(context.Background(), "semantic_search", map[string]any{})

	require.Error(t, err)
	mcpErr, ok := err.(*MCPError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestCallTool_SemanticSearch_ReturnsSpecShapedResults(t *testing.T) {
	engine := &MockSearchEngine{
		SearchFn: func(_ context.Context, query string, opts search.SearchOptions) ([]*search.SearchResult, error) {
			return []*search.SearchResult{
				{
					Chunk: &store.Chunk{
						FilePath:  "internal/auth/login.go",
						StartLine: 10,
						EndLine:   24,
						Content:   "func Login() error { return nil }",
						Symbols: []*store.Symbol{
							{Name: "Login", Type: store.SymbolTypeFunction, Signature: "func Login() error"},
						},
					},
					Score: 0.91,
				},
			}, nil
		},
		StatsFn: func() *search.EngineStats {
			return &search.EngineStats{VectorCount: 42}
		},
	}
	metadata := &MockMetadataStore{}
	srv, err := NewServer(engine, metadata, &MockEmbedder{}, nil, "")
	require.NoError(t, err)

	out, err := srv.CallTool(context.Background(), "semantic_search", map[string]any{
		"query": "login handler",
		"limit": float64(5),
	})
	require.NoError(t, err)

	result, ok := out.(*SemanticSearchOutput)
	require.True(t, ok)
	require.Len(t, result.Results, 1)

	r := result.Results[0]
	assert.Equal(t, "internal/auth/login.go", r.File)
	assert.Equal(t, 10, r.StartLine)
	assert.Equal(t, 24, r.EndLine)
	assert.Equal(t, "Login", r.Name)
	assert.Equal(t, "function", r.NodeType)
	assert.Equal(t, "func Login() error", r.Signature)
	assert.InDelta(t, 0.91, r.Score, 0.0001)

	assert.Equal(t, 1, result.TotalResults)
	assert.Equal(t, "login handler", result.Query)
	assert.Equal(t, 42, result.IndexStats.TotalChunks)
	assert.True(t, result.IndexStats.Indexed)
	assert.False(t, result.FromFallback)
}

func TestCallTool_SemanticSearch_FallbackChunkNodeType(t *testing.T) {
	engine := &MockSearchEngine{
		SearchFn: func(_ context.Context, _ string, _ search.SearchOptions) ([]*search.SearchResult, error) {
			return []*search.SearchResult{
				{
					Chunk: &store.Chunk{
						FilePath:  "README.md",
						StartLine: 1,
						EndLine:   40,
						Content:   "# Project",
					},
					Score: 0.5,
				},
			}, nil
		},
	}
	srv, err := NewServer(engine, &MockMetadataStore{}, &MockEmbedder{}, nil, "")
	require.NoError(t, err)

	out, err := srv.CallTool(context.Background(), "semantic_search", map[string]any{"query": "project overview"})
	require.NoError(t, err)

	result := out.(*SemanticSearchOutput)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "fallback_chunk", result.Results[0].NodeType)
	assert.Empty(t, result.Results[0].Name)
}

func TestCallTool_SemanticSearch_InvalidFilterIsFatal(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.CallTool(context.Background(), "semantic_search", map[string]any{
		"query": "anything",
		"path":  "' OR '1'='1",
	})

	require.Error(t, err)
	mcpErr, ok := err.(*MCPError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalidFilter, mcpErr.Code)
}

func TestCallTool_SemanticSearch_FromFallbackReflectsSearchOutcome(t *testing.T) {
	// The flag comes from the results the engine actually served, not
	// from a pre-flight availability probe.
	engine := &MockSearchEngine{
		SearchFn: func(_ context.Context, _ string, _ search.SearchOptions) ([]*search.SearchResult, error) {
			return []*search.SearchResult{
				{
					Chunk:        &store.Chunk{FilePath: "a.go", StartLine: 1, EndLine: 3, Content: "func a() {}"},
					Score:        0.4,
					FromFallback: true,
				},
			}, nil
		},
	}
	srv, err := NewServer(engine, &MockMetadataStore{}, &MockEmbedder{}, nil, "")
	require.NoError(t, err)

	out, err := srv.CallTool(context.Background(), "semantic_search", map[string]any{"query": "anything"})
	require.NoError(t, err)

	result := out.(*SemanticSearchOutput)
	assert.True(t, result.FromFallback)
}

func TestCallTool_SemanticSearch_ThreadsPipelineOptions(t *testing.T) {
	var gotOpts search.SearchOptions
	engine := &MockSearchEngine{
		SearchFn: func(_ context.Context, _ string, opts search.SearchOptions) ([]*search.SearchResult, error) {
			gotOpts = opts
			return nil, nil
		},
	}
	srv, err := NewServer(engine, &MockMetadataStore{}, &MockEmbedder{}, nil, "")
	require.NoError(t, err)

	_, err = srv.CallTool(context.Background(), "semantic_search", map[string]any{
		"query":                "anything",
		"use_reranking":        false,
		"candidate_multiplier": float64(8),
		"fallback_to_keyword":  false,
	})
	require.NoError(t, err)

	require.NotNil(t, gotOpts.UseReranking)
	assert.False(t, *gotOpts.UseReranking)
	assert.Equal(t, 8, gotOpts.CandidateMultiplier)
	require.NotNil(t, gotOpts.FallbackToKeyword)
	assert.False(t, *gotOpts.FallbackToKeyword)
}

func TestMCPSemanticSearchHandler_BuildsFilterFromPathAndPattern(t *testing.T) {
	var gotFilter string
	engine := &MockSearchEngine{
		SearchFn: func(_ context.Context, _ string, opts search.SearchOptions) ([]*search.SearchResult, error) {
			gotFilter = opts.PredicateFilter
			return nil, nil
		},
	}
	srv, err := NewServer(engine, &MockMetadataStore{}, &MockEmbedder{}, nil, "")
	require.NoError(t, err)

	_, out, err := srv.mcpSemanticSearchHandler(context.Background(), nil, SemanticSearchInput{
		Query:       "handler",
		Path:        "src/auth",
		FilePattern: "*.ts",
	})
	require.NoError(t, err)
	assert.Equal(t, "handler", out.Query)
	assert.Equal(t, "id LIKE 'src_auth%' AND language = 'typescript'", gotFilter)
}
