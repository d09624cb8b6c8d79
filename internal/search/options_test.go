package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-cerp/semantic-code-mcp/internal/store"
)

func resultFor(chunk *store.Chunk, score float64) *SearchResult {
	return &SearchResult{Chunk: chunk, Score: score}
}

func codeChunk(id, filePath, language string) *store.Chunk {
	return &store.Chunk{
		ID:          id,
		FilePath:    filePath,
		Language:    language,
		ContentType: store.ContentTypeCode,
		Content:     "func example() {}",
	}
}

func TestApplyFiltersNoOpWhenUnfiltered(t *testing.T) {
	results := []*SearchResult{
		resultFor(codeChunk("a", "a.go", "go"), 0.9),
	}
	out := ApplyFilters(results, SearchOptions{Filter: "all"})
	assert.Equal(t, results, out)
}

func TestApplyFiltersContentType(t *testing.T) {
	doc := &store.Chunk{ID: "doc", FilePath: "README.md", ContentType: store.ContentTypeMarkdown}
	results := []*SearchResult{
		resultFor(codeChunk("code", "a.go", "go"), 0.9),
		resultFor(doc, 0.8),
	}

	code := ApplyFilters(results, SearchOptions{Filter: "code"})
	require.Len(t, code, 1)
	assert.Equal(t, "code", code[0].Chunk.ID)

	docs := ApplyFilters(results, SearchOptions{Filter: "docs"})
	require.Len(t, docs, 1)
	assert.Equal(t, "doc", docs[0].Chunk.ID)
}

func TestApplyFiltersLanguage(t *testing.T) {
	results := []*SearchResult{
		resultFor(codeChunk("go", "a.go", "go"), 0.9),
		resultFor(codeChunk("ts", "a.ts", "typescript"), 0.8),
	}

	out := ApplyFilters(results, SearchOptions{Filter: "all", Language: "typescript"})
	require.Len(t, out, 1)
	assert.Equal(t, "ts", out[0].Chunk.ID)
}

func TestApplyFiltersSymbolType(t *testing.T) {
	fn := codeChunk("fn", "a.go", "go")
	fn.Symbols = []*store.Symbol{{Name: "Login", Type: store.SymbolTypeFunction}}
	cls := codeChunk("cls", "b.ts", "typescript")
	cls.Symbols = []*store.Symbol{{Name: "Auth", Type: store.SymbolTypeClass}}

	results := []*SearchResult{resultFor(fn, 0.9), resultFor(cls, 0.8)}

	out := ApplyFilters(results, SearchOptions{Filter: "all", SymbolType: "class"})
	require.Len(t, out, 1)
	assert.Equal(t, "cls", out[0].Chunk.ID)
}

func TestApplyFiltersScopes(t *testing.T) {
	results := []*SearchResult{
		resultFor(codeChunk("auth", "src/auth/login.go", "go"), 0.9),
		resultFor(codeChunk("api", "src/api/user.go", "go"), 0.8),
		resultFor(codeChunk("apiv2", "src/api-v2/user.go", "go"), 0.7),
	}

	out := ApplyFilters(results, SearchOptions{Filter: "all", Scopes: []string{"src/api"}})
	require.Len(t, out, 1)
	// The trailing-slash boundary keeps src/api-v2 out.
	assert.Equal(t, "api", out[0].Chunk.ID)
}

func TestApplyFiltersPredicate(t *testing.T) {
	results := []*SearchResult{
		resultFor(codeChunk("src_auth_login_go_L1", "src/auth/login.go", "go"), 0.9),
		resultFor(codeChunk("src_api_user_go_L1", "src/api/user.go", "go"), 0.8),
	}

	out := ApplyFilters(results, SearchOptions{
		Filter:          "all",
		PredicateFilter: "id LIKE 'src_auth%'",
	})
	require.Len(t, out, 1)
	assert.Equal(t, "src_auth_login_go_L1", out[0].Chunk.ID)
}

func TestApplyFiltersCombineWithAnd(t *testing.T) {
	results := []*SearchResult{
		resultFor(codeChunk("a", "src/a.go", "go"), 0.9),
		resultFor(codeChunk("b", "src/b.ts", "typescript"), 0.8),
		resultFor(codeChunk("c", "lib/c.go", "go"), 0.7),
	}

	out := ApplyFilters(results, SearchOptions{
		Filter:   "all",
		Language: "go",
		Scopes:   []string{"src"},
	})
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].Chunk.ID)
}

func TestApplyTestFilePenalty(t *testing.T) {
	impl := resultFor(codeChunk("impl", "internal/search/engine.go", "go"), 0.8)
	test := resultFor(codeChunk("test", "internal/search/engine_test.go", "go"), 0.9)

	out := ApplyTestFilePenalty([]*SearchResult{test, impl})
	require.Len(t, out, 2)
	// The test file started higher but the penalty reorders.
	assert.Equal(t, "impl", out[0].Chunk.ID)
	assert.InDelta(t, 0.45, out[1].Score, 1e-9)
}

func TestIsTestFile(t *testing.T) {
	trues := []string{
		"pkg/engine_test.go",
		"src/app.test.ts",
		"src/app.spec.js",
		"tests/helper.py",
		"a/b/test_models.py",
		"a/b/models_test.py",
		"src/__tests__/app.js",
	}
	for _, p := range trues {
		assert.True(t, IsTestFile(p), p)
	}

	falses := []string{
		"pkg/engine.go",
		"src/contest.go",
		"src/latest.ts",
		"testing_guide.md",
	}
	for _, p := range falses {
		assert.False(t, IsTestFile(p), p)
	}
}

func TestApplyPathBoost(t *testing.T) {
	impl := resultFor(codeChunk("impl", "internal/index/runner.go", "go"), 0.5)
	wrapper := resultFor(codeChunk("wrap", "cmd/app/main.go", "go"), 0.6)

	out := ApplyPathBoost([]*SearchResult{wrapper, impl})
	require.Len(t, out, 2)
	assert.Equal(t, "impl", out[0].Chunk.ID)
	assert.InDelta(t, 0.65, out[0].Score, 1e-9)
	assert.InDelta(t, 0.36, out[1].Score, 1e-9)
}

func TestNormalizeScope(t *testing.T) {
	assert.Equal(t, "src/auth", NormalizeScope("/src/auth/"))
	assert.Equal(t, "src", NormalizeScope("src"))
	assert.Equal(t, "", NormalizeScope("/"))
}

func TestValidateOptionsAcceptsAnything(t *testing.T) {
	require.NoError(t, ValidateOptions(SearchOptions{Filter: "code"}))
	require.NoError(t, ValidateOptions(SearchOptions{Filter: "mystery"}))
}
