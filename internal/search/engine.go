package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aman-cerp/semantic-code-mcp/internal/embed"
	aerrors "github.com/aman-cerp/semantic-code-mcp/internal/errors"
	"github.com/aman-cerp/semantic-code-mcp/internal/store"
	"github.com/aman-cerp/semantic-code-mcp/internal/telemetry"
)

// Engine fuses keyword and vector retrieval over a shared chunk store.
type Engine struct {
	bm25     store.BM25Index
	vector   store.VectorStore
	embedder embed.Embedder
	metadata store.MetadataStore
	config   EngineConfig
	fusion   *RRFFusion
	metrics  *telemetry.QueryMetrics
	reranker Reranker
	mu       sync.RWMutex
}

var _ SearchEngine = (*Engine)(nil)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// ErrDimensionMismatch is returned when the index was built with an
// embedder of a different dimension than the one currently configured.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// EngineOption configures optional engine collaborators.
type EngineOption func(*Engine)

// WithMetrics wires a query-telemetry collector. Every search records
// latency, result count, and the query shape.
func WithMetrics(m *telemetry.QueryMetrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithReranker wires a cross-encoder reranker. Reranking runs after
// fusion; its failures demote to the fused ordering, never to an error.
func WithReranker(r Reranker) EngineOption {
	return func(e *Engine) { e.reranker = r }
}

// NewEngine builds an engine over the given indices. All four
// dependencies are required.
func NewEngine(
	bm25 store.BM25Index,
	vector store.VectorStore,
	embedder embed.Embedder,
	metadata store.MetadataStore,
	config EngineConfig,
	opts ...EngineOption,
) (*Engine, error) {
	if bm25 == nil {
		return nil, fmt.Errorf("%w: bm25 index is required", ErrNilDependency)
	}
	if vector == nil {
		return nil, fmt.Errorf("%w: vector store is required", ErrNilDependency)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrNilDependency)
	}
	if metadata == nil {
		return nil, fmt.Errorf("%w: metadata store is required", ErrNilDependency)
	}
	e := &Engine{
		bm25:     bm25,
		vector:   vector,
		embedder: embedder,
		metadata: metadata,
		config:   config,
		fusion:   NewRRFFusionWithK(config.RRFConstant),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// New is NewEngine that panics on nil dependencies.
//
// Deprecated: use NewEngine.
func New(
	bm25 store.BM25Index,
	vector store.VectorStore,
	embedder embed.Embedder,
	metadata store.MetadataStore,
	config EngineConfig,
	opts ...EngineOption,
) *Engine {
	e, err := NewEngine(bm25, vector, embedder, metadata, config, opts...)
	if err != nil {
		panic("search.New: " + err.Error())
	}
	return e
}

// Search runs the full pipeline: embed, retrieve from both channels in
// parallel, fuse, rerank, boost, filter, trim.
//
// Degradation order when parts are unavailable: a dimension mismatch or
// an embedder failure drops the vector channel and the query is
// answered from keywords alone with every result marked FromFallback —
// unless the caller set FallbackToKeyword false, in which case an
// embedder failure surfaces as an embedding-generation error instead.
// A reranker failure keeps the boosted ordering. A failure of every
// channel surfaces as an error.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) ([]*SearchResult, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	opts = e.applyDefaults(opts)

	// An empty index produces an empty result, not an error, so the
	// first query against a fresh project degrades cleanly while the
	// initial scan is still running.
	if e.vector.Count() == 0 {
		if stats := e.bm25.Stats(); stats == nil || stats.DocumentCount == 0 {
			e.recordMetrics(query, QueryTypeMixed, 0, time.Since(start))
			return []*SearchResult{}, nil
		}
	}

	keywordOnly := opts.BM25Only
	dimMismatch := false
	fromFallback := false
	if !keywordOnly {
		if err := e.validateDimensions(ctx); err != nil {
			slog.Warn("dimension mismatch, vector channel disabled for this query",
				slog.String("error", err.Error()))
			keywordOnly = true
			dimMismatch = true
			fromFallback = true
		}
	}

	fetch := e.candidateCount(opts)

	var bm25Results []*store.BM25Result
	var vecResults []*store.VectorResult
	if keywordOnly {
		var err error
		bm25Results, err = e.bm25.Search(ctx, query, fetch)
		if err != nil {
			return nil, fmt.Errorf("keyword search: %w", err)
		}
		if opts.BM25Only {
			opts.Weights = &Weights{BM25: 1.0}
		}
	} else {
		var bm25Err, vecErr error
		bm25Results, vecResults, bm25Err, vecErr = e.parallelSearch(ctx, query, fetch)
		if bm25Err != nil && vecErr != nil {
			return nil, errors.Join(bm25Err, vecErr)
		}
		if vecErr != nil {
			// The embed/vector channel is down. Per the fallback
			// contract this either degrades to keyword-only results,
			// marked so the caller can tell, or fails the query when
			// the caller opted out of degradation.
			if !*opts.FallbackToKeyword {
				return nil, aerrors.EmbeddingGenerationFailure(
					"query embedding failed and keyword fallback is disabled", vecErr)
			}
			slog.Warn("vector channel failed, serving keyword-only results",
				slog.String("error", vecErr.Error()))
			fromFallback = true
		}
		if bm25Err != nil {
			slog.Warn("keyword channel failed, serving vector-only results",
				slog.String("error", bm25Err.Error()))
		}
	}

	fused := e.fusion.Fuse(bm25Results, vecResults, *opts.Weights)
	reranked := fused
	if *opts.UseReranking {
		reranked = e.rerank(ctx, query, fused, opts.Limit)
	}

	enriched, err := e.enrich(ctx, reranked)
	if err != nil {
		return nil, err
	}
	if fromFallback {
		for _, r := range enriched {
			r.FromFallback = true
		}
	}
	e.attachAdjacentContext(ctx, enriched, opts.AdjacentChunks, 5)

	enriched = ApplyTestFilePenalty(enriched)
	enriched = ApplyLexicalBoost(enriched, query)
	enriched = ApplyPathBoost(enriched)

	filtered := ApplyFilters(enriched, opts)
	if len(filtered) > opts.Limit {
		filtered = filtered[:opts.Limit]
	}

	if opts.Explain && len(filtered) > 0 {
		filtered[0].Explain = &ExplainData{
			Query:             query,
			BM25ResultCount:   len(bm25Results),
			VectorResultCount: len(vecResults),
			Weights:           *opts.Weights,
			RRFConstant:       e.config.RRFConstant,
			BM25Only:          opts.BM25Only,
			DimensionMismatch: dimMismatch,
		}
	}

	e.recordMetrics(query, queryTypeFor(opts.Weights, keywordOnly), len(filtered), time.Since(start))
	return filtered, nil
}

// candidateCount sizes the per-channel fetch: limit × multiplier when a
// reranker will narrow the pool, 2× limit otherwise so fusion has
// something to disagree about.
func (e *Engine) candidateCount(opts SearchOptions) int {
	if e.reranker != nil && *opts.UseReranking && opts.CandidateMultiplier > 1 {
		return opts.Limit * opts.CandidateMultiplier
	}
	return opts.Limit * 2
}

func queryTypeFor(w *Weights, keywordOnly bool) QueryType {
	if keywordOnly {
		return QueryTypeLexical
	}
	if w != nil {
		if w.BM25 > 0.6 {
			return QueryTypeLexical
		}
		if w.Semantic > 0.6 {
			return QueryTypeSemantic
		}
	}
	return QueryTypeMixed
}

func (e *Engine) recordMetrics(query string, queryType QueryType, resultCount int, latency time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.Record(telemetry.QueryEvent{
		Query:       query,
		QueryType:   telemetry.QueryType(queryType),
		ResultCount: resultCount,
		Latency:     latency,
		Timestamp:   time.Now(),
	})
}

// Index writes chunks through to all three stores: keyword postings,
// vectors, and chunk metadata.
func (e *Engine) Index(ctx context.Context, chunks []*store.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	batch, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("generate embeddings: %w", err)
	}
	if len(batch.Failed) > 0 {
		// Per-chunk embedding failures drop those chunks from this
		// pass; the rest of the batch still lands.
		slog.Warn("some chunks failed to embed",
			slog.Int("failed", len(batch.Failed)),
			slog.Int("total", len(chunks)))
	}

	kept := make([]*store.Chunk, 0, len(chunks))
	docs := make([]*store.Document, 0, len(chunks))
	ids := make([]string, 0, len(chunks))
	embeddings := make([][]float32, 0, len(chunks))
	for i, c := range chunks {
		if _, failed := batch.Failed[i]; failed {
			continue
		}
		kept = append(kept, c)
		docs = append(docs, &store.Document{ID: c.ID, Content: c.Content})
		ids = append(ids, c.ID)
		embeddings = append(embeddings, batch.Vectors[i])
	}
	if len(kept) == 0 {
		return fmt.Errorf("generate embeddings: every chunk in the batch failed")
	}

	if err := e.bm25.Index(ctx, docs); err != nil {
		return fmt.Errorf("index keywords: %w", err)
	}
	if err := e.vector.Add(ctx, ids, embeddings); err != nil {
		return fmt.Errorf("add vectors: %w", err)
	}
	if err := e.metadata.SaveChunks(ctx, kept); err != nil {
		return fmt.Errorf("save chunk metadata: %w", err)
	}

	// Persisted embeddings let a rebuild skip re-embedding unchanged
	// chunks; losing them costs time, not correctness.
	if err := e.metadata.SaveChunkEmbeddings(ctx, ids, embeddings, e.embedder.ModelName()); err != nil {
		slog.Warn("failed to persist embeddings",
			slog.String("error", err.Error()),
			slog.Int("count", len(ids)))
	}

	if err := e.storeIndexEmbeddingInfo(ctx); err != nil {
		slog.Warn("failed to store index embedding info",
			slog.String("error", err.Error()))
	}
	return nil
}

// storeIndexEmbeddingInfo records the dimension and model the index was
// built with, so a later embedder swap is detected instead of silently
// mixing vector spaces.
func (e *Engine) storeIndexEmbeddingInfo(ctx context.Context) error {
	dim := fmt.Sprintf("%d", e.embedder.Dimensions())
	if err := e.metadata.SetState(ctx, store.StateKeyIndexDimension, dim); err != nil {
		return fmt.Errorf("store index dimension: %w", err)
	}
	if err := e.metadata.SetState(ctx, store.StateKeyIndexModel, e.embedder.ModelName()); err != nil {
		return fmt.Errorf("store index model: %w", err)
	}
	return nil
}

// validateDimensions compares the current embedder against the
// dimension recorded at index time. A missing record (fresh or legacy
// index) passes.
func (e *Engine) validateDimensions(ctx context.Context) error {
	storedDim, err := e.metadata.GetState(ctx, store.StateKeyIndexDimension)
	if err != nil || storedDim == "" {
		return nil
	}

	var indexDim int
	if _, err := fmt.Sscanf(storedDim, "%d", &indexDim); err != nil {
		slog.Warn("unreadable stored index dimension", slog.String("value", storedDim))
		return nil
	}

	currentDim := e.embedder.Dimensions()
	if indexDim != currentDim {
		storedModel, _ := e.metadata.GetState(ctx, store.StateKeyIndexModel)
		return fmt.Errorf("%w: index built with %d dimensions (%s), current embedder produces %d (%s); reindex to rebuild",
			ErrDimensionMismatch, indexDim, storedModel, currentDim, e.embedder.ModelName())
	}
	return nil
}

// Delete removes chunks everywhere. Metadata is the source of truth and
// must succeed; keyword/vector deletions are best-effort, and their
// orphans are filtered at query time. No compaction step removes them.
func (e *Engine) Delete(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.bm25.Delete(ctx, chunkIDs); err != nil {
		slog.Warn("keyword delete left orphans",
			slog.String("error", err.Error()),
			slog.Int("count", len(chunkIDs)))
	}
	if err := e.vector.Delete(ctx, chunkIDs); err != nil {
		slog.Warn("vector delete left orphans",
			slog.String("error", err.Error()),
			slog.Int("count", len(chunkIDs)))
	}
	if err := e.metadata.DeleteChunks(ctx, chunkIDs); err != nil {
		return fmt.Errorf("delete chunk metadata: %w", err)
	}
	return nil
}

// Stats reports index sizes.
func (e *Engine) Stats() *EngineStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return &EngineStats{
		BM25Stats:   e.bm25.Stats(),
		VectorCount: e.vector.Count(),
	}
}

// Close closes all three stores, joining any errors.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	if err := e.bm25.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.vector.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.metadata.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (e *Engine) applyDefaults(opts SearchOptions) SearchOptions {
	if opts.Limit <= 0 {
		opts.Limit = e.config.DefaultLimit
	}
	if opts.Limit > e.config.MaxLimit {
		opts.Limit = e.config.MaxLimit
	}
	if opts.Filter == "" {
		opts.Filter = "all"
	}
	if opts.Weights == nil {
		w := e.config.DefaultWeights
		opts.Weights = &w
	}
	if opts.UseReranking == nil {
		on := true
		opts.UseReranking = &on
	}
	if opts.FallbackToKeyword == nil {
		on := true
		opts.FallbackToKeyword = &on
	}
	if opts.CandidateMultiplier <= 0 {
		opts.CandidateMultiplier = e.config.CandidateMultiplier
	}
	return opts
}

// parallelSearch runs the keyword and vector channels concurrently and
// reports each channel's error separately, so the caller can decide
// per the fallback policy what a single-channel failure means.
func (e *Engine) parallelSearch(ctx context.Context, query string, limit int) (
	bm25Results []*store.BM25Result,
	vecResults []*store.VectorResult,
	bm25Err, vecErr error,
) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var searchErr error
		bm25Results, searchErr = e.bm25.Search(gctx, query, limit)
		if searchErr != nil {
			bm25Err = searchErr // keep the other channel alive
		}
		return nil
	})

	var queryEmbedding []float32
	g.Go(func() error {
		embedding, embedErr := e.embedder.EmbedQuery(gctx, query)
		if embedErr != nil {
			vecErr = embedErr
			return nil
		}
		queryEmbedding = embedding

		var searchErr error
		vecResults, searchErr = e.vector.Search(gctx, embedding, limit)
		if searchErr != nil {
			vecErr = searchErr
		}
		return nil
	})

	if waitErr := g.Wait(); waitErr != nil {
		return nil, nil, waitErr, waitErr // context cancelled
	}

	if e.metrics != nil && len(queryEmbedding) > 0 {
		e.metrics.RecordQueryEmbedding(queryEmbedding)
	}

	return bm25Results, vecResults, bm25Err, vecErr
}

// enrich resolves fused IDs to full chunks in one batch query.
func (e *Engine) enrich(ctx context.Context, fused []*FusedResult) ([]*SearchResult, error) {
	if len(fused) == 0 {
		return nil, nil
	}

	ids := make([]string, len(fused))
	byID := make(map[string]*FusedResult, len(fused))
	for i, f := range fused {
		ids[i] = f.ChunkID
		byID[f.ChunkID] = f
	}

	chunks, err := e.metadata.GetChunks(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]*SearchResult, 0, len(chunks))
	for _, chunk := range chunks {
		f, ok := byID[chunk.ID]
		if !ok {
			continue
		}
		results = append(results, &SearchResult{
			Chunk:        chunk,
			Score:        f.RRFScore,
			BM25Score:    f.BM25Score,
			VecScore:     f.VecScore,
			BM25Rank:     f.BM25Rank,
			VecRank:      f.VecRank,
			InBothLists:  f.InBothLists,
			Highlights:   calculateHighlights(chunk.Content, f.MatchedTerms),
			MatchedTerms: f.MatchedTerms,
		})
	}
	return results, nil
}

// attachAdjacentContext loads the chunks surrounding each of the top
// topN results in their files. Failures skip the file; context is an
// enrichment, not a requirement.
func (e *Engine) attachAdjacentContext(ctx context.Context, results []*SearchResult, adjacentCount, topN int) {
	if adjacentCount <= 0 || len(results) == 0 {
		return
	}

	enrichCount := len(results)
	if topN > 0 && enrichCount > topN {
		enrichCount = topN
	}

	byFile := make(map[string][]*SearchResult)
	for i := 0; i < enrichCount; i++ {
		r := results[i]
		if r.Chunk == nil || r.Chunk.FileID == "" {
			continue
		}
		byFile[r.Chunk.FileID] = append(byFile[r.Chunk.FileID], r)
	}

	for fileID, fileResults := range byFile {
		allChunks, err := e.metadata.GetChunksByFile(ctx, fileID)
		if err != nil {
			slog.Debug("adjacent context unavailable",
				slog.String("file_id", fileID),
				slog.String("error", err.Error()))
			continue
		}

		for _, result := range fileResults {
			target := result.Chunk

			var before, after []*store.Chunk
			for _, c := range allChunks {
				switch {
				case c.ID == target.ID:
				case c.EndLine < target.StartLine:
					before = append(before, c)
				case c.StartLine > target.EndLine:
					after = append(after, c)
				}
			}

			sort.Slice(before, func(i, j int) bool {
				return before[i].EndLine > before[j].EndLine
			})
			if len(before) > adjacentCount {
				before = before[:adjacentCount]
			}
			sort.Slice(after, func(i, j int) bool {
				return after[i].StartLine < after[j].StartLine
			})
			if len(after) > adjacentCount {
				after = after[:adjacentCount]
			}

			result.AdjacentContext.Before = before
			result.AdjacentContext.After = after
		}
	}
}

// rerank runs the cross-encoder over the fused candidates and reorders
// by its scores. Any failure, including an unavailable reranker, keeps
// the fused ordering; reranking never makes a query fail.
func (e *Engine) rerank(ctx context.Context, query string, fused []*FusedResult, limit int) []*FusedResult {
	if e.reranker == nil || len(fused) < 2 || len(fused) <= limit {
		return fused
	}
	if !e.reranker.Available(ctx) {
		slog.Debug("reranker unavailable, keeping fused order")
		return fused
	}

	chunkIDs := make([]string, len(fused))
	for i, f := range fused {
		chunkIDs[i] = f.ChunkID
	}
	chunks, err := e.metadata.GetChunks(ctx, chunkIDs)
	if err != nil {
		slog.Warn("chunk fetch for reranking failed, keeping fused order",
			slog.String("error", err.Error()))
		return fused
	}

	contentByID := make(map[string]string, len(chunks))
	for _, chunk := range chunks {
		contentByID[chunk.ID] = chunk.Content
	}

	documents := make([]string, 0, len(fused))
	validFused := make([]*FusedResult, 0, len(fused))
	for _, f := range fused {
		if content := contentByID[f.ChunkID]; content != "" {
			documents = append(documents, content)
			validFused = append(validFused, f)
		}
	}
	if len(documents) == 0 {
		return fused
	}

	start := time.Now()
	reranked, err := e.reranker.Rerank(ctx, query, documents, 0)
	if err != nil {
		slog.Warn("reranking failed, keeping fused order",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return fused
	}

	results := make([]*FusedResult, 0, len(reranked))
	for _, rr := range reranked {
		if rr.Index < 0 || rr.Index >= len(validFused) {
			slog.Warn("reranker returned out-of-range index",
				slog.Int("index", rr.Index),
				slog.Int("candidates", len(validFused)))
			continue
		}
		f := validFused[rr.Index]
		f.RRFScore = rr.Score // reranker score becomes the combined score
		results = append(results, f)
	}

	slog.Debug("reranked candidates",
		slog.Int("input", len(fused)),
		slog.Int("output", len(results)),
		slog.Duration("elapsed", time.Since(start)))
	return results
}

// calculateHighlights locates matched terms in content, capped per term
// so a pathological chunk cannot produce thousands of ranges.
func calculateHighlights(content string, matchedTerms []string) []Range {
	if len(matchedTerms) == 0 || len(content) == 0 {
		return []Range{}
	}

	const maxMatchesPerTerm = 10
	highlights := make([]Range, 0, len(matchedTerms)*3)
	lowerContent := strings.ToLower(content)

	for _, term := range matchedTerms {
		if term == "" {
			continue
		}
		lowerTerm := strings.ToLower(term)
		start := 0
		for matches := 0; matches < maxMatchesPerTerm; matches++ {
			idx := strings.Index(lowerContent[start:], lowerTerm)
			if idx == -1 {
				break
			}
			absStart := start + idx
			highlights = append(highlights, Range{Start: absStart, End: absStart + len(term)})
			start = absStart + len(term)
		}
	}

	if len(highlights) > 1 {
		sort.Slice(highlights, func(i, j int) bool {
			return highlights[i].Start < highlights[j].Start
		})
	}
	return highlights
}
