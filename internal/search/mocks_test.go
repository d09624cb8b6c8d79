package search

import (
	"context"
	"time"

	"github.com/aman-cerp/semantic-code-mcp/internal/embed"
	"github.com/aman-cerp/semantic-code-mcp/internal/store"
)

// MockBM25Index implements store.BM25Index with overridable Fn fields, for
// engine benchmarks and tests that don't need a real Bleve/SQLite index.
type MockBM25Index struct {
	IndexFn  func(ctx context.Context, docs []*store.Document) error
	SearchFn func(ctx context.Context, query string, limit int) ([]*store.BM25Result, error)
	DeleteFn func(ctx context.Context, docIDs []string) error
	AllIDsFn func() ([]string, error)
	StatsFn  func() *store.IndexStats
}

func (m *MockBM25Index) Index(ctx context.Context, docs []*store.Document) error {
	if m.IndexFn != nil {
		return m.IndexFn(ctx, docs)
	}
	return nil
}

func (m *MockBM25Index) Search(ctx context.Context, query string, limit int) ([]*store.BM25Result, error) {
	if m.SearchFn != nil {
		return m.SearchFn(ctx, query, limit)
	}
	return nil, nil
}

func (m *MockBM25Index) Delete(ctx context.Context, docIDs []string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, docIDs)
	}
	return nil
}

func (m *MockBM25Index) AllIDs() ([]string, error) {
	if m.AllIDsFn != nil {
		return m.AllIDsFn()
	}
	return nil, nil
}

func (m *MockBM25Index) Stats() *store.IndexStats {
	if m.StatsFn != nil {
		return m.StatsFn()
	}
	return &store.IndexStats{}
}

func (m *MockBM25Index) Save(path string) error { return nil }
func (m *MockBM25Index) Load(path string) error { return nil }
func (m *MockBM25Index) Close() error            { return nil }

var _ store.BM25Index = (*MockBM25Index)(nil)

// MockVectorStore implements store.VectorStore with overridable Fn fields.
type MockVectorStore struct {
	AddFn      func(ctx context.Context, ids []string, vectors [][]float32) error
	SearchFn   func(ctx context.Context, query []float32, k int) ([]*store.VectorResult, error)
	DeleteFn   func(ctx context.Context, ids []string) error
	AllIDsFn   func() []string
	ContainsFn func(id string) bool
	CountFn    func() int
}

func (m *MockVectorStore) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if m.AddFn != nil {
		return m.AddFn(ctx, ids, vectors)
	}
	return nil
}

func (m *MockVectorStore) Search(ctx context.Context, query []float32, k int) ([]*store.VectorResult, error) {
	if m.SearchFn != nil {
		return m.SearchFn(ctx, query, k)
	}
	return nil, nil
}

func (m *MockVectorStore) Delete(ctx context.Context, ids []string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, ids)
	}
	return nil
}

func (m *MockVectorStore) AllIDs() []string {
	if m.AllIDsFn != nil {
		return m.AllIDsFn()
	}
	return nil
}

func (m *MockVectorStore) Contains(id string) bool {
	if m.ContainsFn != nil {
		return m.ContainsFn(id)
	}
	return false
}

func (m *MockVectorStore) Count() int {
	if m.CountFn != nil {
		return m.CountFn()
	}
	return 0
}

func (m *MockVectorStore) Save(path string) error { return nil }
func (m *MockVectorStore) Load(path string) error { return nil }
func (m *MockVectorStore) Close() error            { return nil }

var _ store.VectorStore = (*MockVectorStore)(nil)

// MockEmbedder implements embed.Embedder with overridable Fn fields.
type MockEmbedder struct {
	EmbedFn      func(ctx context.Context, text string) ([]float32, error)
	DimensionsFn func() int
	ModelNameFn  func() string
	AvailableFn  func(ctx context.Context) bool
}

func (m *MockEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return m.embed(ctx, text)
}

func (m *MockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return m.embed(ctx, text)
}

func (m *MockEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	if m.EmbedFn != nil {
		return m.EmbedFn(ctx, text)
	}
	return make([]float32, m.Dimensions()), nil
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) (embed.BatchResult, error) {
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.embed(ctx, t)
		if err != nil {
			return embed.BatchResult{}, err
		}
		vectors[i] = v
	}
	return embed.BatchResult{Vectors: vectors}, nil
}

func (m *MockEmbedder) Dimensions() int {
	if m.DimensionsFn != nil {
		return m.DimensionsFn()
	}
	return 768
}

func (m *MockEmbedder) ModelName() string {
	if m.ModelNameFn != nil {
		return m.ModelNameFn()
	}
	return "mock-embedder"
}

func (m *MockEmbedder) Available(ctx context.Context) bool {
	if m.AvailableFn != nil {
		return m.AvailableFn(ctx)
	}
	return true
}

func (m *MockEmbedder) Close() error { return nil }

var _ embed.Embedder = (*MockEmbedder)(nil)

// MockMetadataStore implements store.MetadataStore with a chunks map that
// tests populate directly, so benchmarks can seed realistic enrichment data
// without going through the real SQLite store.
type MockMetadataStore struct {
	chunks map[string]*store.Chunk
	state  map[string]string

	SaveProjectError      error
	SaveFilesError        error
	SaveChunksError       error
	GetAllEmbeddingsError error
}

func NewMockMetadataStore() *MockMetadataStore {
	return &MockMetadataStore{
		chunks: make(map[string]*store.Chunk),
		state:  make(map[string]string),
	}
}

func (m *MockMetadataStore) SaveProject(ctx context.Context, project *store.Project) error {
	return m.SaveProjectError
}

func (m *MockMetadataStore) GetProject(ctx context.Context, id string) (*store.Project, error) {
	return nil, nil
}

func (m *MockMetadataStore) UpdateProjectStats(ctx context.Context, id string, fileCount, chunkCount int) error {
	return nil
}

func (m *MockMetadataStore) RefreshProjectStats(ctx context.Context, id string) error {
	return nil
}

func (m *MockMetadataStore) SaveFiles(ctx context.Context, files []*store.File) error {
	return m.SaveFilesError
}

func (m *MockMetadataStore) GetFileByPath(ctx context.Context, projectID, path string) (*store.File, error) {
	return nil, nil
}

func (m *MockMetadataStore) GetChangedFiles(ctx context.Context, projectID string, since time.Time) ([]*store.File, error) {
	return nil, nil
}

func (m *MockMetadataStore) ListFiles(ctx context.Context, projectID, cursor string, limit int) ([]*store.File, string, error) {
	return nil, "", nil
}

func (m *MockMetadataStore) GetFilePathsByProject(ctx context.Context, projectID string) ([]string, error) {
	return nil, nil
}

func (m *MockMetadataStore) GetFilesForReconciliation(ctx context.Context, projectID string) (map[string]*store.File, error) {
	return nil, nil
}

func (m *MockMetadataStore) ListFilePathsUnder(ctx context.Context, projectID, dirPrefix string) ([]string, error) {
	return nil, nil
}

func (m *MockMetadataStore) DeleteFile(ctx context.Context, fileID string) error {
	return nil
}

func (m *MockMetadataStore) DeleteFilesByProject(ctx context.Context, projectID string) error {
	return nil
}

func (m *MockMetadataStore) SaveChunks(ctx context.Context, chunks []*store.Chunk) error {
	if m.SaveChunksError != nil {
		return m.SaveChunksError
	}
	for _, c := range chunks {
		m.chunks[c.ID] = c
	}
	return nil
}

func (m *MockMetadataStore) GetChunk(ctx context.Context, id string) (*store.Chunk, error) {
	return m.chunks[id], nil
}

func (m *MockMetadataStore) GetChunks(ctx context.Context, ids []string) ([]*store.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	result := make([]*store.Chunk, 0, len(ids))
	for _, id := range ids {
		if c, ok := m.chunks[id]; ok {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *MockMetadataStore) GetChunksByFile(ctx context.Context, fileID string) ([]*store.Chunk, error) {
	return nil, nil
}

func (m *MockMetadataStore) DeleteChunks(ctx context.Context, ids []string) error {
	for _, id := range ids {
		delete(m.chunks, id)
	}
	return nil
}

func (m *MockMetadataStore) DeleteChunksByFile(ctx context.Context, fileID string) error {
	return nil
}

func (m *MockMetadataStore) SearchSymbols(ctx context.Context, name string, limit int) ([]*store.Symbol, error) {
	return nil, nil
}

func (m *MockMetadataStore) GetState(ctx context.Context, key string) (string, error) {
	return m.state[key], nil
}

func (m *MockMetadataStore) SetState(ctx context.Context, key, value string) error {
	m.state[key] = value
	return nil
}

func (m *MockMetadataStore) SaveChunkEmbeddings(ctx context.Context, chunkIDs []string, embeddings [][]float32, model string) error {
	return nil
}

func (m *MockMetadataStore) GetAllEmbeddings(ctx context.Context) (map[string][]float32, error) {
	if m.GetAllEmbeddingsError != nil {
		return nil, m.GetAllEmbeddingsError
	}
	return nil, nil
}

func (m *MockMetadataStore) GetEmbeddingStats(ctx context.Context) (int, int, error) {
	return 0, 0, nil
}

func (m *MockMetadataStore) SaveIndexCheckpoint(ctx context.Context, stage string, total, embeddedCount int, embedderModel string) error {
	return nil
}

func (m *MockMetadataStore) LoadIndexCheckpoint(ctx context.Context) (*store.IndexCheckpoint, error) {
	return nil, nil
}

func (m *MockMetadataStore) ClearIndexCheckpoint(ctx context.Context) error {
	return nil
}

func (m *MockMetadataStore) Close() error { return nil }

var _ store.MetadataStore = (*MockMetadataStore)(nil)
