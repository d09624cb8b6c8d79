package index

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-cerp/semantic-code-mcp/internal/chunk"
	"github.com/aman-cerp/semantic-code-mcp/internal/config"
	"github.com/aman-cerp/semantic-code-mcp/internal/embed"
	"github.com/aman-cerp/semantic-code-mcp/internal/store"
	"github.com/aman-cerp/semantic-code-mcp/internal/ui"
)

// runnerFixture wires a Runner over real stores and the static
// embedder, against a throwaway project tree.
type runnerFixture struct {
	root     string
	dataDir  string
	metadata *store.SQLiteStore
	bm25     store.BM25Index
	vector   store.VectorStore
	runner   *Runner
}

func newRunnerFixture(t *testing.T) *runnerFixture {
	t.Helper()

	root := t.TempDir()
	dataDir := filepath.Join(root, ".semantic-code", "index")

	metadata, err := store.NewSQLiteStore(filepath.Join(dataDir, "metadata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = metadata.Close() })

	bm25, err := store.NewSQLiteBM25Index("", store.DefaultBM25Config())
	require.NoError(t, err)
	t.Cleanup(func() { _ = bm25.Close() })

	embedder := embed.NewStaticEmbedder768()
	vector, err := store.NewHNSWStore(store.DefaultVectorStoreConfig(embedder.Dimensions()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = vector.Close() })

	runner, err := NewRunner(RunnerDependencies{
		Renderer: ui.NewPlainRenderer(io.Discard),
		Config:   config.NewConfig(),
		Metadata: metadata,
		BM25:     bm25,
		Vector:   vector,
		Embedder: embedder,
	})
	require.NoError(t, err)

	return &runnerFixture{
		root: root, dataDir: dataDir,
		metadata: metadata, bm25: bm25, vector: vector,
		runner: runner,
	}
}

func (f *runnerFixture) write(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(f.root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const runnerSource = `package web

// HandleLogin validates the submitted credentials and redirects to the
// dashboard when they check out.
func HandleLogin(w ResponseWriter, r *Request) {
	user := r.FormValue("user")
	pass := r.FormValue("pass")
	if !authenticate(user, pass) {
		w.WriteHeader(401)
		return
	}
	redirect(w, "/dashboard")
}
`

func TestNewRunnerValidatesDependencies(t *testing.T) {
	_, err := NewRunner(RunnerDependencies{})
	require.Error(t, err)

	_, err = NewRunner(RunnerDependencies{Renderer: ui.NewPlainRenderer(io.Discard)})
	require.Error(t, err)
}

func TestRunIndexesProjectTree(t *testing.T) {
	f := newRunnerFixture(t)
	f.write(t, "handlers/login.go", runnerSource)
	f.write(t, "README.md", "# Demo\n\nA sample project used to exercise the indexing pipeline end to end.\n\nIt has enough text to clear the chunker's size floor.\n")
	f.write(t, "node_modules/pkg/index.js", "module.exports = {}\n") // ignored

	result, err := f.runner.Run(context.Background(), RunnerConfig{
		RootDir: f.root,
		DataDir: f.dataDir,
		Offline: true,
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, 2, result.Files)
	assert.Greater(t, result.Chunks, 0)
	assert.Equal(t, 0, result.Errors)

	// All three stores received the chunks.
	assert.Greater(t, f.vector.Count(), 0)
	assert.Greater(t, f.bm25.Stats().DocumentCount, 0)

	ctx := context.Background()
	project, err := f.metadata.GetProject(ctx, hashString(f.root))
	require.NoError(t, err)
	require.NotNil(t, project)
	assert.Equal(t, 2, project.FileCount)
	assert.Equal(t, result.Chunks, project.ChunkCount)
}

func TestRunRecordsIndexState(t *testing.T) {
	f := newRunnerFixture(t)
	f.write(t, "main.go", runnerSource)

	_, err := f.runner.Run(context.Background(), RunnerConfig{RootDir: f.root, DataDir: f.dataDir, Offline: true})
	require.NoError(t, err)

	ctx := context.Background()

	dim, err := f.metadata.GetState(ctx, store.StateKeyIndexDimension)
	require.NoError(t, err)
	assert.Equal(t, "768", dim)

	model, err := f.metadata.GetState(ctx, store.StateKeyIndexModel)
	require.NoError(t, err)
	assert.NotEmpty(t, model)

	version, err := f.metadata.GetState(ctx, store.StateKeyChunkIDVersion)
	require.NoError(t, err)
	assert.Equal(t, store.ChunkIDVersionContent, version)

	// Checkpoint cleared after a successful run.
	cp, err := f.metadata.LoadIndexCheckpoint(ctx)
	require.NoError(t, err)
	assert.Nil(t, cp)
}

func TestRunEmptyProject(t *testing.T) {
	f := newRunnerFixture(t)

	result, err := f.runner.Run(context.Background(), RunnerConfig{RootDir: f.root, DataDir: f.dataDir, Offline: true})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Files)
	assert.Equal(t, 0, result.Chunks)
}

func TestRunPersistsVectorsToDataDir(t *testing.T) {
	f := newRunnerFixture(t)
	f.write(t, "main.go", runnerSource)

	_, err := f.runner.Run(context.Background(), RunnerConfig{RootDir: f.root, DataDir: f.dataDir, Offline: true})
	require.NoError(t, err)

	// The HNSW export plus its metadata sidecar land in the data dir.
	assert.FileExists(t, filepath.Join(f.dataDir, "vectors.hnsw"))
	assert.FileExists(t, filepath.Join(f.dataDir, "vectors.hnsw.meta"))

	dims, err := store.ReadHNSWStoreDimensions(filepath.Join(f.dataDir, "vectors.hnsw"))
	require.NoError(t, err)
	assert.Equal(t, 768, dims)
}

func TestHashStringStable(t *testing.T) {
	assert.Equal(t, hashString("/proj"), hashString("/proj"))
	assert.NotEqual(t, hashString("/proj"), hashString("/other"))
}

func TestConvertChunkToStoreChunk(t *testing.T) {
	now := time.Now()
	c := &chunk.Chunk{
		ID:        "src_a_go_L1",
		FilePath:  "src/a.go",
		Language:  "go",
		NodeKind:  chunk.NodeKindFunction,
		Name:      "Login",
		Signature: "func Login(u, p string) error",
		Content:   "func Login(u, p string) error { return nil }",
		StartLine: 1,
		EndLine:   3,
	}

	sc := chunkToStoreChunk(c, "file-1", now, store.ContentTypeCode)
	assert.Equal(t, "src_a_go_L1", sc.ID)
	assert.Equal(t, "file-1", sc.FileID)
	assert.Equal(t, store.ContentTypeCode, sc.ContentType)
	assert.Equal(t, 1, sc.StartLine)
	assert.Equal(t, 3, sc.EndLine)
	require.NotEmpty(t, sc.Symbols)
	assert.Equal(t, "Login", sc.Symbols[0].Name)
	assert.Equal(t, store.SymbolTypeFunction, sc.Symbols[0].Type)
}
