package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache configuration constants.
const (
	// DefaultEmbeddingCacheSize is the default number of embeddings to cache.
	DefaultEmbeddingCacheSize = 1000
)

// CachedEmbedder wraps an Embedder with LRU caching to avoid redundant
// embedding computations.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

// NewCachedEmbedder creates a cached embedder wrapping the given embedder.
// Cache size determines the number of unique embeddings to keep in memory.
func NewCachedEmbedder(inner Embedder, cacheSize int) *CachedEmbedder {
	if cacheSize <= 0 {
		cacheSize = DefaultEmbeddingCacheSize
	}
	cache, _ := lru.New[string, []float32](cacheSize)
	return &CachedEmbedder{
		inner: inner,
		cache: cache,
	}
}

// NewCachedEmbedderWithDefaults creates a cached embedder with default settings.
func NewCachedEmbedderWithDefaults(inner Embedder) *CachedEmbedder {
	return NewCachedEmbedder(inner, DefaultEmbeddingCacheSize)
}

// cacheKey generates a unique key for the cache based on text, call kind
// (document vs query keep separate entries since a model may embed the same
// raw text differently depending on which marker it receives), and model.
func (c *CachedEmbedder) cacheKey(kind, text string) string {
	combined := kind + "\x00" + text + "\x00" + c.inner.ModelName()
	hash := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(hash[:])
}

// EmbedDocument returns a cached document embedding if available, otherwise
// computes and caches it.
func (c *CachedEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey("document", text)
	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}
	vec, err := c.inner.EmbedDocument(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	return vec, nil
}

// EmbedQuery returns a cached query embedding if available, otherwise
// computes and caches it.
func (c *CachedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey("query", text)
	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}
	vec, err := c.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	return vec, nil
}

// EmbedBatch generates embeddings for multiple documents, caching each result
// individually for maximum reuse across calls.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) (BatchResult, error) {
	result := BatchResult{Vectors: make([][]float32, len(texts))}
	if len(texts) == 0 {
		return result, nil
	}

	uncachedIndices := make([]int, 0, len(texts))
	uncachedTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		key := c.cacheKey("document", text)
		if vec, ok := c.cache.Get(key); ok {
			result.Vectors[i] = vec
		} else {
			uncachedIndices = append(uncachedIndices, i)
			uncachedTexts = append(uncachedTexts, text)
		}
	}

	if len(uncachedTexts) == 0 {
		return result, nil
	}

	inner, err := c.inner.EmbedBatch(ctx, uncachedTexts)
	if err != nil {
		return result, err
	}

	for j, idx := range uncachedIndices {
		result.Vectors[idx] = inner.Vectors[j]
		if failErr, failed := inner.Failed[j]; failed {
			if result.Failed == nil {
				result.Failed = make(map[int]error)
			}
			result.Failed[idx] = failErr
			continue
		}
		key := c.cacheKey("document", texts[idx])
		c.cache.Add(key, inner.Vectors[j])
	}

	return result, nil
}

// Dimensions returns the embedding dimension (passthrough to inner).
func (c *CachedEmbedder) Dimensions() int {
	return c.inner.Dimensions()
}

// ModelName returns the model identifier (passthrough to inner).
func (c *CachedEmbedder) ModelName() string {
	return c.inner.ModelName()
}

// Available checks if the embedder is ready (passthrough to inner).
func (c *CachedEmbedder) Available(ctx context.Context) bool {
	return c.inner.Available(ctx)
}

// Close releases resources and closes the inner embedder.
func (c *CachedEmbedder) Close() error {
	return c.inner.Close()
}

// Inner returns the underlying embedder.
func (c *CachedEmbedder) Inner() Embedder {
	return c.inner
}
