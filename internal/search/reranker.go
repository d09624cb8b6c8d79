package search

import "context"

// RerankResult is one scored document from a rerank pass.
type RerankResult struct {
	// Index is the document's position in the input slice.
	Index int
	// Score is the cross-encoder relevance score in [0,1].
	Score float64
	// Document is the scored text.
	Document string
}

// Reranker scores (query, document) pairs jointly. A cross-encoder
// reads both texts together, which is more accurate than comparing
// independently-produced embeddings and correspondingly more expensive,
// so it only ever sees the candidate pool, never the whole index.
type Reranker interface {
	// Rerank scores documents against query and returns them sorted by
	// score descending. topK of 0 returns all.
	Rerank(ctx context.Context, query string, documents []string, topK int) ([]RerankResult, error)

	// Available reports whether the scoring backend is reachable.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// NoOpReranker preserves the incoming order. It stands in when
// reranking is disabled.
type NoOpReranker struct{}

var _ Reranker = (*NoOpReranker)(nil)

// Rerank assigns slowly decreasing scores so the input order survives
// a sort.
func (n *NoOpReranker) Rerank(_ context.Context, _ string, documents []string, topK int) ([]RerankResult, error) {
	results := make([]RerankResult, len(documents))
	for i, doc := range documents {
		results[i] = RerankResult{
			Index:    i,
			Score:    1.0 - float64(i)*0.01,
			Document: doc,
		}
	}
	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (n *NoOpReranker) Available(_ context.Context) bool { return true }

func (n *NoOpReranker) Close() error { return nil }
