package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, 0.65, cfg.Search.BM25Weight)
	assert.Equal(t, 0.35, cfg.Search.SemanticWeight)
	assert.Equal(t, 60, cfg.Search.RRFConstant)
	assert.Equal(t, "sqlite", cfg.Search.BM25Backend)
	assert.Equal(t, 1500, cfg.Search.ChunkSize)
	assert.Equal(t, 5, cfg.Search.CandidateMultiplier)
	assert.False(t, cfg.Search.RerankEnabled)
	assert.Equal(t, 32, cfg.Embeddings.BatchSize)
	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "text", cfg.Server.LogFormat)
	assert.Equal(t, DefaultIndexDir, cfg.Paths.IndexDir)

	require.NoError(t, cfg.Validate())
}

func TestDefaultExcludesCoverGeneratedTrees(t *testing.T) {
	cfg := NewConfig()

	for _, want := range []string{
		"**/node_modules/**",
		"**/.git/**",
		"**/dist/**",
		"**/target/**",
		"**/__pycache__/**",
		"**/.semantic-code/**",
		"**/*.min.js",
		"**/*.map",
		"**/package-lock.json",
	} {
		assert.Contains(t, cfg.Paths.Exclude, want)
	}
}

func TestLoadWithoutProjectFile(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, NewConfig().Search, cfg.Search)
}

func TestLoadProjectFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
search:
  bm25_weight: 0.5
  semantic_weight: 0.5
  max_results: 7
embeddings:
  provider: ollama
  model: nomic-embed-text
paths:
  index_dir: .cache/idx
  exclude:
    - "**/generated/**"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".semantic-code.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Search.BM25Weight)
	assert.Equal(t, 0.5, cfg.Search.SemanticWeight)
	assert.Equal(t, 7, cfg.Search.MaxResults)
	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
	assert.Equal(t, "nomic-embed-text", cfg.Embeddings.Model)
	assert.Equal(t, ".cache/idx", cfg.Paths.IndexDir)

	// Project excludes extend the defaults, they do not replace them.
	assert.Contains(t, cfg.Paths.Exclude, "**/generated/**")
	assert.Contains(t, cfg.Paths.Exclude, "**/node_modules/**")
}

func TestLoadYmlFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".semantic-code.yml"),
		[]byte("search:\n  max_results: 3\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Search.MaxResults)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".semantic-code.yaml"),
		[]byte("search: [not: a map\n"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
}

func TestEnvOverridesBeatProjectFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".semantic-code.yaml"),
		[]byte("search:\n  bm25_weight: 0.7\n  semantic_weight: 0.3\n"), 0o644))

	t.Setenv("SEMCODE_BM25_WEIGHT", "0.4")
	t.Setenv("SEMCODE_SEMANTIC_WEIGHT", "0.6")
	t.Setenv("SEMCODE_LOG_LEVEL", "debug")
	t.Setenv("SEMCODE_EMBEDDINGS_PROVIDER", "static")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 0.4, cfg.Search.BM25Weight)
	assert.Equal(t, 0.6, cfg.Search.SemanticWeight)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
}

func TestEnvOverridesIgnoreBadValues(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SEMCODE_BM25_WEIGHT", "not-a-number")
	t.Setenv("SEMCODE_RRF_CONSTANT", "-4")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 0.65, cfg.Search.BM25Weight)
	assert.Equal(t, 60, cfg.Search.RRFConstant)
}

func TestValidateRejectsWeightSum(t *testing.T) {
	cfg := NewConfig()
	cfg.Search.BM25Weight = 0.8
	cfg.Search.SemanticWeight = 0.8

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must equal 1.0")
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := NewConfig()
	cfg.Embeddings.Provider = "gpu-magic"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsBadLogSettings(t *testing.T) {
	cfg := NewConfig()
	cfg.Server.LogLevel = "verbose"
	require.Error(t, cfg.Validate())

	cfg = NewConfig()
	cfg.Server.LogFormat = "xml"
	require.Error(t, cfg.Validate())
}

func TestResolveIndexDir(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, filepath.Join("/proj", DefaultIndexDir), cfg.ResolveIndexDir("/proj"))

	cfg.Paths.IndexDir = "/var/idx"
	assert.Equal(t, "/var/idx", cfg.ResolveIndexDir("/proj"))
}

func TestDetectProjectType(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, ProjectTypeUnknown, DetectProjectType(dir))
	assert.False(t, DetectProjectType(dir).IsKnown())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.txt"), nil, 0o644))
	assert.Equal(t, ProjectTypePython, DetectProjectType(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte("{}"), 0o644))
	assert.Equal(t, ProjectTypeNode, DetectProjectType(dir))

	// go.mod outranks everything else.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module x\n"), 0o644))
	assert.Equal(t, ProjectTypeGo, DetectProjectType(dir))
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	nested := filepath.Join(root, "src", "deep")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := FindProjectRoot(nested)
	require.NoError(t, err)
	assertSamePath(t, root, found)
}

func TestFindProjectRootByConfigFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".semantic-code.yaml"), []byte("version: 1\n"), 0o644))
	nested := filepath.Join(root, "lib")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := FindProjectRoot(nested)
	require.NoError(t, err)
	assertSamePath(t, root, found)
}

func TestFindProjectRootFallsBackToStart(t *testing.T) {
	dir := t.TempDir()

	found, err := FindProjectRoot(dir)
	require.NoError(t, err)
	assertSamePath(t, dir, found)
}

// assertSamePath compares after symlink resolution; t.TempDir may hand
// back a symlinked path on macOS.
func assertSamePath(t *testing.T, want, got string) {
	t.Helper()
	w, err := filepath.EvalSymlinks(want)
	require.NoError(t, err)
	g, err := filepath.EvalSymlinks(got)
	require.NoError(t, err)
	assert.Equal(t, w, g)
}
