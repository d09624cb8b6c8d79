// Package store is the persistence layer: chunk metadata and file
// state in SQLite, vectors in an HNSW graph, and keyword postings in a
// BM25 index (SQLite FTS5 or Bleve). The Store facade composes the
// three engines behind one surface.
package store

import (
	"context"
	"fmt"
	"time"
)

// ContentType classifies a chunk's content.
type ContentType string

const (
	ContentTypeCode     ContentType = "code"
	ContentTypeMarkdown ContentType = "markdown"
	ContentTypeText     ContentType = "text"
)

// State keys recording which embedder built the index, so a changed
// embedder is detected instead of silently mixing vector spaces.
const (
	StateKeyIndexDimension = "index_embedding_dimension"
	StateKeyIndexModel     = "index_embedding_model"
)

// Checkpoint state keys for resumable indexing.
const (
	StateKeyCheckpointStage     = "checkpoint_stage" // scanning|chunking|embedding|indexing|complete
	StateKeyCheckpointTotal     = "checkpoint_total"
	StateKeyCheckpointEmbedded  = "checkpoint_embedded"
	StateKeyCheckpointTimestamp = "checkpoint_timestamp"
	// StateKeyCheckpointEmbedderModel validates embedder consistency on
	// resume; resuming with a different embedder would mix dimensions.
	StateKeyCheckpointEmbedderModel = "checkpoint_embedder_model"
)

// Chunk ID scheme versioning, used to detect indexes built with an
// older derivation that cannot be incrementally resumed.
const (
	StateKeyChunkIDVersion = "chunk_id_version"

	// ChunkIDVersionLegacy: ids derived from path + start line only.
	ChunkIDVersionLegacy = "1"

	// ChunkIDVersionContent: ids additionally carry a content hash and
	// survive line-number shifts.
	ChunkIDVersionContent = "2"
)

// SymbolType classifies an extracted code symbol.
type SymbolType string

const (
	SymbolTypeFunction  SymbolType = "function"
	SymbolTypeClass     SymbolType = "class"
	SymbolTypeInterface SymbolType = "interface"
	SymbolTypeType      SymbolType = "type"
	SymbolTypeVariable  SymbolType = "variable"
	SymbolTypeConstant  SymbolType = "constant"
	SymbolTypeMethod    SymbolType = "method"
)

// Symbol is one named construct found during chunking.
type Symbol struct {
	Name       string
	Type       SymbolType
	StartLine  int
	EndLine    int
	Signature  string // functions and methods
	DocComment string
}

// Chunk is the retrievable unit: a function, class, markdown section,
// or fallback window, with its location and extracted symbols.
type Chunk struct {
	ID          string            // stable id derived from path and position
	FileID      string            // parent file id
	FilePath    string            // relative to the project root
	Content     string            // full text, including context
	RawContent  string            // the bare symbol text (code only)
	Context     string            // imports / package decl (code only)
	ContentType ContentType       // code, markdown, text
	Language    string            // "go", "typescript", ...
	StartLine   int               // 1-indexed
	EndLine     int               // inclusive
	Symbols     []*Symbol         // extracted constructs
	Metadata    map[string]string // free-form annotations
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// File is one tracked file.
type File struct {
	ID          string    // hash of the relative path
	ProjectID   string    // parent project id
	Path        string    // relative to the project root
	Size        int64     // bytes
	ModTime     time.Time // last modification time
	ContentHash string    // hash of the file bytes last ingested
	Language    string
	ContentType string // code, markdown, text
	IndexedAt   time.Time
}

// Project is one indexed tree.
type Project struct {
	ID          string // hash of the absolute root path
	Name        string // directory name
	RootPath    string // absolute path
	ProjectType string // go, node, python, ...
	ChunkCount  int
	FileCount   int
	IndexedAt   time.Time
	Version     string // index schema version
}

// MetadataStore persists projects, files, chunks, symbols, embeddings,
// and runtime state in SQLite.
type MetadataStore interface {
	// Projects.
	SaveProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	UpdateProjectStats(ctx context.Context, id string, fileCount, chunkCount int) error
	RefreshProjectStats(ctx context.Context, id string) error // recount from the DB

	// Files.
	SaveFiles(ctx context.Context, files []*File) error
	GetFileByPath(ctx context.Context, projectID, path string) (*File, error)
	GetChangedFiles(ctx context.Context, projectID string, since time.Time) ([]*File, error)
	ListFiles(ctx context.Context, projectID string, cursor string, limit int) ([]*File, string, error)
	GetFilePathsByProject(ctx context.Context, projectID string) ([]string, error)
	GetFilesForReconciliation(ctx context.Context, projectID string) (map[string]*File, error)
	ListFilePathsUnder(ctx context.Context, projectID, dirPrefix string) ([]string, error)
	DeleteFile(ctx context.Context, fileID string) error // cascades to chunks
	DeleteFilesByProject(ctx context.Context, projectID string) error

	// Chunks.
	SaveChunks(ctx context.Context, chunks []*Chunk) error
	GetChunk(ctx context.Context, id string) (*Chunk, error)
	GetChunks(ctx context.Context, ids []string) ([]*Chunk, error) // batch
	GetChunksByFile(ctx context.Context, fileID string) ([]*Chunk, error)
	DeleteChunks(ctx context.Context, ids []string) error
	DeleteChunksByFile(ctx context.Context, fileID string) error

	// Symbols.
	SearchSymbols(ctx context.Context, name string, limit int) ([]*Symbol, error)

	// Runtime key-value state.
	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string) error

	// Persisted embeddings, so a graph rebuild can skip re-embedding.
	SaveChunkEmbeddings(ctx context.Context, chunkIDs []string, embeddings [][]float32, model string) error
	GetAllEmbeddings(ctx context.Context) (map[string][]float32, error)
	GetEmbeddingStats(ctx context.Context) (withEmbedding, withoutEmbedding int, err error)

	// Indexing checkpoints for resume.
	SaveIndexCheckpoint(ctx context.Context, stage string, total, embeddedCount int, embedderModel string) error
	LoadIndexCheckpoint(ctx context.Context) (*IndexCheckpoint, error)
	ClearIndexCheckpoint(ctx context.Context) error

	Close() error
}

// IndexCheckpoint is the saved position of an interrupted indexing run.
type IndexCheckpoint struct {
	Stage         string // scanning, chunking, embedding, indexing, complete
	Total         int
	EmbeddedCount int
	Timestamp     time.Time
	EmbedderModel string
}

// IndexInfo is the assembled picture of an on-disk index that `cache
// info` reports.
type IndexInfo struct {
	Location    string // index data directory
	ProjectRoot string

	IndexModel      string // model the index was built with
	IndexBackend    string
	IndexDimensions int

	ChunkCount      int
	DocumentCount   int
	IndexSizeBytes  int64
	BM25SizeBytes   int64
	VectorSizeBytes int64

	CreatedAt time.Time
	UpdatedAt time.Time

	// The embedder configured right now, for compatibility checks.
	CurrentModel      string
	CurrentBackend    string
	CurrentDimensions int
	Compatible        bool
}

// CurrentSchemaVersion is the metadata database schema version.
const CurrentSchemaVersion = 2

// Document is the unit handed to the keyword index.
type Document struct {
	ID      string // chunk id
	Content string
}

// BM25Result is one keyword hit.
type BM25Result struct {
	DocID        string
	Score        float64
	MatchedTerms []string
}

// IndexStats summarizes a keyword index.
type IndexStats struct {
	DocumentCount int
	TermCount     int
	AvgDocLength  float64
}

// BM25Index is the keyword retrieval channel.
type BM25Index interface {
	// Index adds documents.
	Index(ctx context.Context, docs []*Document) error

	// Search scores documents against query with Okapi BM25.
	Search(ctx context.Context, query string, limit int) ([]*BM25Result, error)

	// Delete removes documents.
	Delete(ctx context.Context, docIDs []string) error

	// AllIDs lists every indexed document id, for consistency checks.
	AllIDs() ([]string, error)

	// Stats reports index size.
	Stats() *IndexStats

	Save(path string) error
	Load(path string) error
	Close() error
}

// BM25Config tunes the keyword index.
type BM25Config struct {
	// K1 saturates term frequency (1.2 is the usual default).
	K1 float64

	// B controls document-length normalization (0.75 usual).
	B float64

	// StopWords are dropped during tokenization.
	StopWords []string

	// MinTokenLength records the minimum token length. No backend reads
	// it; TokenizeCode always drops tokens under two characters.
	MinTokenLength int
}

// DefaultBM25Config uses the standard Okapi parameters and a
// code-aware stop list.
func DefaultBM25Config() BM25Config {
	return BM25Config{
		K1:             1.2,
		B:              0.75,
		StopWords:      DefaultCodeStopWords,
		MinTokenLength: 2,
	}
}

// DefaultCodeStopWords filters keywords and throwaway identifiers that
// appear in nearly every source file and carry no ranking signal.
var DefaultCodeStopWords = []string{
	"var", "let", "const", "func", "function", "def", "class",
	"return", "if", "else", "for", "while",
	"data", "result", "value", "item", "key", "err", "ctx", "tmp",
}

// VectorResult is one nearest-neighbor hit.
type VectorResult struct {
	ID       string
	Distance float32 // cosine distance, lower is closer
	Score    float32 // normalized similarity in [0,1]
}

// VectorStoreConfig tunes the HNSW graph.
type VectorStoreConfig struct {
	// Dimensions must match the embedder.
	Dimensions int

	// Quantization: "f32", "f16", or "i8".
	Quantization string

	// Metric: "cos" or "l2".
	Metric string

	// M bounds connections per graph layer.
	M int

	// EfConstruction is the build-time search width.
	EfConstruction int

	// EfSearch is the query-time search width.
	EfSearch int
}

// DefaultVectorStoreConfig returns the usual HNSW parameters for a
// given dimension.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions:     dimensions,
		Quantization:   "f16",
		Metric:         "cos",
		M:              32,
		EfConstruction: 128,
		EfSearch:       64,
	}
}

// VectorStore is the dense retrieval channel.
type VectorStore interface {
	// Add inserts vectors, replacing existing ids.
	Add(ctx context.Context, ids []string, vectors [][]float32) error

	// Search returns the k nearest neighbors by cosine similarity,
	// best first.
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)

	// Delete removes vectors by id.
	Delete(ctx context.Context, ids []string) error

	// AllIDs lists every stored id, for consistency checks.
	AllIDs() []string

	// Contains reports membership.
	Contains(id string) bool

	// Count reports the number of stored vectors.
	Count() int

	Save(path string) error
	Load(path string) error
	Close() error
}

// ErrDimensionMismatch reports a vector of the wrong width.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (reindex to rebuild with the current embedder)", e.Expected, e.Got)
}
