package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Cross-encoder client defaults. The server is a local inference
// process exposing /health and /rerank.
const (
	DefaultRerankerEndpoint = "http://localhost:9659"
	DefaultRerankerModel    = "reranker-small"
	DefaultRerankerTimeout  = 30 * time.Second
	DefaultRerankerPoolSize = 50
)

// CrossEncoderConfig configures the cross-encoder client.
type CrossEncoderConfig struct {
	// Endpoint is the inference server URL.
	Endpoint string

	// Model is the reranker model alias served at the endpoint.
	Model string

	// Timeout bounds one rerank request.
	Timeout time.Duration

	// PoolSize is the usual candidate count, used for sizing hints.
	PoolSize int

	// SkipHealthCheck constructs the client without probing the server.
	SkipHealthCheck bool

	// Instruction overrides the model's default task instruction.
	Instruction string
}

// DefaultCrossEncoderConfig returns the client defaults.
func DefaultCrossEncoderConfig() CrossEncoderConfig {
	return CrossEncoderConfig{
		Endpoint: DefaultRerankerEndpoint,
		Model:    DefaultRerankerModel,
		Timeout:  DefaultRerankerTimeout,
		PoolSize: DefaultRerankerPoolSize,
	}
}

// CrossEncoderReranker scores (query, document) pairs through a local
// inference server.
type CrossEncoderReranker struct {
	client   *http.Client
	config   CrossEncoderConfig
	mu       sync.RWMutex
	closed   bool
	endpoint string
}

var _ Reranker = (*CrossEncoderReranker)(nil)

// NewCrossEncoderReranker creates the client and, unless told not to,
// verifies the server answers its health endpoint.
func NewCrossEncoderReranker(ctx context.Context, cfg CrossEncoderConfig) (*CrossEncoderReranker, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultRerankerEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultRerankerModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultRerankerTimeout
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = DefaultRerankerPoolSize
	}

	r := &CrossEncoderReranker{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		config:   cfg,
		endpoint: cfg.Endpoint,
	}

	if !cfg.SkipHealthCheck {
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := r.healthCheck(checkCtx); err != nil {
			return nil, fmt.Errorf("reranker health check: %w", err)
		}
	}

	slog.Debug("cross-encoder reranker ready",
		slog.String("endpoint", cfg.Endpoint),
		slog.String("model", cfg.Model))
	return r, nil
}

func (r *CrossEncoderReranker) healthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("connect to reranker server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("reranker server unhealthy (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

type rerankRequest struct {
	Query       string   `json:"query"`
	Documents   []string `json:"documents"`
	Model       string   `json:"model,omitempty"`
	Instruction string   `json:"instruction,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
}

type rerankResponse struct {
	Results []struct {
		Index    int     `json:"index"`
		Score    float64 `json:"score"`
		Document string  `json:"document"`
	} `json:"results"`
	Model            string  `json:"model"`
	Query            string  `json:"query"`
	Count            int     `json:"count"`
	ProcessingTimeMs float64 `json:"processing_time_ms"`
}

// Rerank posts the query and documents to the server and returns its
// scores sorted best-first.
func (r *CrossEncoderReranker) Rerank(ctx context.Context, query string, documents []string, topK int) ([]RerankResult, error) {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("reranker is closed")
	}
	if len(documents) == 0 {
		return []RerankResult{}, nil
	}

	reqBody := rerankRequest{
		Query:       query,
		Documents:   documents,
		Model:       r.config.Model,
		Instruction: r.config.Instruction,
	}
	if topK > 0 {
		reqBody.TopK = topK
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, r.endpoint+"/rerank", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank failed (status %d): %s", resp.StatusCode, string(body))
	}

	var result rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	results := make([]RerankResult, len(result.Results))
	for i, rr := range result.Results {
		results[i] = RerankResult{Index: rr.Index, Score: rr.Score, Document: rr.Document}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	slog.Debug("rerank round trip",
		slog.Int("documents", len(documents)),
		slog.Duration("elapsed", time.Since(start)),
		slog.Float64("server_ms", result.ProcessingTimeMs))
	return results, nil
}

// Available probes the health endpoint with a short timeout.
func (r *CrossEncoderReranker) Available(ctx context.Context) bool {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return false
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return r.healthCheck(checkCtx) == nil
}

// Close marks the client closed and drops idle connections.
func (r *CrossEncoderReranker) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	if transport, ok := r.client.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
	return nil
}
