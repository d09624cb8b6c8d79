// Package search implements the hybrid retrieval pipeline: a query is
// embedded and run against the vector index and the keyword index in
// parallel, the two rankings are fused with reciprocal-rank fusion, an
// optional cross-encoder reranker reorders the fused candidates, and
// the test-file penalty, lexical boosting and path boosting then adjust
// the scores. The reranker sees the fused order, not the boosted one.
package search

import (
	"context"
	"time"

	"github.com/aman-cerp/semantic-code-mcp/internal/store"
)

// SearchEngine is the read/write surface the tool handler and the index
// manager share.
type SearchEngine interface {
	// Search runs a hybrid query and returns ranked results.
	Search(ctx context.Context, query string, opts SearchOptions) ([]*SearchResult, error)

	// Index adds chunks to the keyword index, the vector index, and the
	// metadata store.
	Index(ctx context.Context, chunks []*store.Chunk) error

	// Delete removes chunks from all indices.
	Delete(ctx context.Context, chunkIDs []string) error

	// Stats reports index sizes.
	Stats() *EngineStats

	// Close releases all held resources.
	Close() error
}

// SearchOptions configures one query.
type SearchOptions struct {
	// Limit caps the number of results (default 10, ceiling per config).
	Limit int

	// Filter restricts results by content type: "all", "code", "docs".
	Filter string

	// PredicateFilter is a safe predicate string produced by
	// internal/filter.Build (path and file_pattern translated to
	// "id LIKE ..." / "language = ..." conditions). Empty means no
	// predicate filtering. Only the filter builder produces these.
	PredicateFilter string

	// Language keeps only chunks of one language tag.
	Language string

	// SymbolType keeps only chunks containing a symbol of this type
	// ("function", "class", ...).
	SymbolType string

	// Weights overrides the configured BM25/semantic split.
	Weights *Weights

	// Scopes restricts results to files under any of these path
	// prefixes.
	Scopes []string

	// BM25Only skips embedding and vector search entirely.
	BM25Only bool

	// UseReranking toggles the cross-encoder pass over the candidate
	// pool. Nil means the default, which is on.
	UseReranking *bool

	// CandidateMultiplier overrides the configured candidate pool
	// widening for this query; 0 uses the engine's configured value.
	CandidateMultiplier int

	// FallbackToKeyword controls what happens when the embedder fails
	// at query time: nil or true degrades the query to keyword-only
	// results marked FromFallback; false surfaces an
	// embedding-generation failure instead.
	FallbackToKeyword *bool

	// AdjacentChunks asks for this many neighboring chunks before and
	// after each top result, for context continuity. 0 disables.
	AdjacentChunks int

	// Explain attaches ranking internals to the first result.
	Explain bool
}

// Weights splits the fused score between the two retrieval channels.
type Weights struct {
	BM25     float64
	Semantic float64
}

// DefaultWeights favors the semantic channel for mixed queries.
func DefaultWeights() Weights {
	return Weights{BM25: 0.35, Semantic: 0.65}
}

// SearchResult is one ranked hit.
type SearchResult struct {
	// Chunk is the full stored chunk.
	Chunk *store.Chunk

	// Score is the combined score in [0,1]: the fused rank score (replaced
	// by the reranker's score when reranking runs), then adjusted by the
	// test-file penalty, lexical boosting and path boosting.
	Score float64

	// BM25Score and VecScore are the per-channel scores before fusion.
	BM25Score float64
	VecScore  float64

	// BM25Rank and VecRank are 1-indexed positions in each channel's
	// ranking, 0 when the chunk was absent from that channel.
	BM25Rank int
	VecRank  int

	// InBothLists marks chunks both channels agreed on.
	InBothLists bool

	// FromFallback marks a result served from keyword search alone
	// because the vector channel was unavailable (embedder failure or
	// dimension mismatch). Clients display the degradation.
	FromFallback bool

	// Highlights are byte ranges in Content where query terms matched.
	Highlights []Range

	// MatchedTerms are the keyword-channel terms that hit this chunk.
	MatchedTerms []string

	// AdjacentContext holds neighboring chunks when requested.
	AdjacentContext AdjacentContext

	// Explain is populated on the first result when opts.Explain is set.
	Explain *ExplainData
}

// AdjacentContext carries the chunks surrounding a hit in its file,
// closest first.
type AdjacentContext struct {
	Before []*store.Chunk
	After  []*store.Chunk
}

// Range is a half-open [Start, End) byte range for highlighting.
type Range struct {
	Start int
	End   int
}

// EngineStats reports index sizes.
type EngineStats struct {
	BM25Stats   *store.IndexStats
	VectorCount int
}

// EngineConfig tunes the engine.
type EngineConfig struct {
	// DefaultLimit applies when a query sets no limit.
	DefaultLimit int

	// MaxLimit is the hard ceiling on a query's limit.
	MaxLimit int

	// DefaultWeights apply when a query sets no weights.
	DefaultWeights Weights

	// RRFConstant is the smoothing constant k in rank fusion.
	RRFConstant int

	// CandidateMultiplier widens the candidate pool fetched per channel
	// when a reranker is configured: limit × multiplier.
	CandidateMultiplier int

	// SearchTimeout bounds one query end to end.
	SearchTimeout time.Duration
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() EngineConfig {
	return EngineConfig{
		DefaultLimit:        10,
		MaxLimit:            50,
		DefaultWeights:      DefaultWeights(),
		RRFConstant:         60,
		CandidateMultiplier: 5,
		SearchTimeout:       5 * time.Second,
	}
}

// QueryType labels how a query was answered, for telemetry.
type QueryType string

const (
	// QueryTypeLexical: keyword matching dominated (identifiers, error
	// codes, quoted phrases).
	QueryTypeLexical QueryType = "LEXICAL"

	// QueryTypeSemantic: vector similarity dominated (natural-language
	// questions).
	QueryTypeSemantic QueryType = "SEMANTIC"

	// QueryTypeMixed: both channels contributed.
	QueryTypeMixed QueryType = "MIXED"
)

// ExplainData exposes the ranking internals of one query.
type ExplainData struct {
	Query             string
	BM25ResultCount   int
	VectorResultCount int
	Weights           Weights
	RRFConstant       int
	BM25Only          bool
	DimensionMismatch bool
}
