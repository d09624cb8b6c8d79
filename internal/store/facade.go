package store

import (
	"context"
	"fmt"

	"github.com/aman-cerp/semantic-code-mcp/internal/filter"
)

// Record is the unit the facade operates on: a chunk plus the embedding
// vector that indexes it for semantic search. It is the persisted unit
// for what Upsert/VectorSearch exchange with a caller; Chunk remains the
// richer, persisted shape (symbols, timestamps, content) that MetadataStore
// deals in.
type Record struct {
	Chunk  *Chunk
	Vector []float32
}

// Store is the facade the rest of the system talks to: a single surface
// over metadata persistence, vector search, and keyword search, shaped
// around the operations the retrieval pipeline actually needs (upsert a
// batch of records, drop everything under a file path, run a predicate-
// filtered vector search, report which files are indexed). The three
// engines behind it -- HNSW for vectors, BM25 for keyword search, SQLite
// for metadata -- are swappable generic index implementations; Store is
// where the project's own contract lives.
type Store struct {
	Metadata MetadataStore
	Vectors  VectorStore
	Keyword  BM25Index
}

// NewStore composes an already-constructed metadata store, vector store,
// and BM25 index into a single facade. Callers that need direct access to
// a specific engine (e.g. index compaction, which walks the metadata
// store's embedding table directly) still reach it through the exported
// fields.
func NewStore(metadata MetadataStore, vectors VectorStore, keyword BM25Index) *Store {
	return &Store{Metadata: metadata, Vectors: vectors, Keyword: keyword}
}

// Upsert replaces each record's chunk metadata, embedding vector, and
// keyword-search document in a single call. A record whose chunk ID already
// exists in any of the three engines is fully replaced there, matching the
// "insert or replace" semantics: same id means replace.
func (s *Store) Upsert(ctx context.Context, records []*Record) error {
	if len(records) == 0 {
		return nil
	}

	chunks := make([]*Chunk, 0, len(records))
	ids := make([]string, 0, len(records))
	vectors := make([][]float32, 0, len(records))
	docs := make([]*Document, 0, len(records))

	for _, r := range records {
		if r == nil || r.Chunk == nil {
			continue
		}
		chunks = append(chunks, r.Chunk)
		docs = append(docs, &Document{ID: r.Chunk.ID, Content: r.Chunk.Content})
		if len(r.Vector) > 0 {
			ids = append(ids, r.Chunk.ID)
			vectors = append(vectors, r.Vector)
		}
	}

	if err := s.Metadata.SaveChunks(ctx, chunks); err != nil {
		return fmt.Errorf("upsert metadata: %w", err)
	}
	if len(ids) > 0 {
		if err := s.Vectors.Add(ctx, ids, vectors); err != nil {
			return fmt.Errorf("upsert vectors: %w", err)
		}
	}
	if err := s.Keyword.Index(ctx, docs); err != nil {
		return fmt.Errorf("upsert keyword index: %w", err)
	}
	return nil
}

// DeleteByFilePath removes every chunk, vector, and keyword document
// belonging to the file at path, across all three engines. It is a no-op
// if the file was never indexed.
func (s *Store) DeleteByFilePath(ctx context.Context, projectID, path string) error {
	file, err := s.Metadata.GetFileByPath(ctx, projectID, path)
	if err != nil {
		return fmt.Errorf("delete by file path: lookup %q: %w", path, err)
	}
	if file == nil {
		return nil
	}

	chunks, err := s.Metadata.GetChunksByFile(ctx, file.ID)
	if err != nil {
		return fmt.Errorf("delete by file path: chunks for %q: %w", path, err)
	}

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}

	if len(ids) > 0 {
		if err := s.Vectors.Delete(ctx, ids); err != nil {
			return fmt.Errorf("delete by file path: vectors for %q: %w", path, err)
		}
		if err := s.Keyword.Delete(ctx, ids); err != nil {
			return fmt.Errorf("delete by file path: keyword docs for %q: %w", path, err)
		}
	}
	return s.Metadata.DeleteFile(ctx, file.ID)
}

// IndexedFiles returns the paths of every file with at least one indexed
// chunk under projectID.
func (s *Store) IndexedFiles(ctx context.Context, projectID string) ([]string, error) {
	return s.Metadata.GetFilePathsByProject(ctx, projectID)
}

// VectorSearch runs a k-nearest-neighbor search and, when pred is
// non-empty, keeps only results whose chunk satisfies it. The underlying
// HNSW index has no predicate pushdown, so filtering happens by expanding
// the candidate set (searching for more than k neighbors) and applying
// pred against each candidate's resolved chunk before truncating to k --
// the same over-fetch-then-filter strategy internal/search applies to
// fused results, kept consistent here for direct callers of the facade.
func (s *Store) VectorSearch(ctx context.Context, query []float32, k int, pred filter.Predicate) ([]*VectorResult, error) {
	if pred == "" {
		return s.Vectors.Search(ctx, query, k)
	}

	const overfetchFactor = 4
	candidates, err := s.Vectors.Search(ctx, query, k*overfetchFactor)
	if err != nil {
		return nil, err
	}

	filtered := make([]*VectorResult, 0, k)
	for _, c := range candidates {
		chunk, err := s.Metadata.GetChunk(ctx, c.ID)
		if err != nil || chunk == nil {
			continue
		}
		if pred.Matches(chunk.ID, chunk.Language) {
			filtered = append(filtered, c)
			if len(filtered) == k {
				break
			}
		}
	}
	return filtered, nil
}

// FullTextSearch runs a BM25 keyword search for query, returning at most k
// results.
func (s *Store) FullTextSearch(ctx context.Context, query string, k int) ([]*BM25Result, error) {
	return s.Keyword.Search(ctx, query, k)
}

// Count returns the number of vectors currently indexed.
func (s *Store) Count() int {
	return s.Vectors.Count()
}

// IsEmpty reports whether the store holds no indexed vectors.
func (s *Store) IsEmpty() bool {
	return s.Count() == 0
}

// Close releases the keyword, vector, and metadata engines in turn,
// returning the first error encountered but still attempting to close the
// rest.
func (s *Store) Close() error {
	var errs []error
	if err := s.Keyword.Close(); err != nil {
		errs = append(errs, fmt.Errorf("keyword close: %w", err))
	}
	if err := s.Vectors.Close(); err != nil {
		errs = append(errs, fmt.Errorf("vector close: %w", err))
	}
	if err := s.Metadata.Close(); err != nil {
		errs = append(errs, fmt.Errorf("metadata close: %w", err))
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
