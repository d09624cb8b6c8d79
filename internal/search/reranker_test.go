package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoOpRerankerKeepsOrder(t *testing.T) {
	r := &NoOpReranker{}

	docs := []string{"first", "second", "third"}
	results, err := r.Rerank(context.Background(), "query", docs, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, res := range results {
		assert.Equal(t, i, res.Index)
		assert.Equal(t, docs[i], res.Document)
		if i > 0 {
			assert.Less(t, res.Score, results[i-1].Score)
		}
	}
}

func TestNoOpRerankerTopK(t *testing.T) {
	r := &NoOpReranker{}

	results, err := r.Rerank(context.Background(), "q", []string{"a", "b", "c"}, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	assert.True(t, r.Available(context.Background()))
	assert.NoError(t, r.Close())
}

// fakeRerankServer stands in for the local cross-encoder process.
func fakeRerankServer(t *testing.T, score func(doc string) float64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/rerank", func(w http.ResponseWriter, req *http.Request) {
		var in rerankRequest
		require.NoError(t, json.NewDecoder(req.Body).Decode(&in))

		out := rerankResponse{Count: len(in.Documents)}
		for i, doc := range in.Documents {
			out.Results = append(out.Results, struct {
				Index    int     `json:"index"`
				Score    float64 `json:"score"`
				Document string  `json:"document"`
			}{Index: i, Score: score(doc), Document: doc})
		}
		require.NoError(t, json.NewEncoder(w).Encode(out))
	})
	return httptest.NewServer(mux)
}

func TestCrossEncoderRerank(t *testing.T) {
	srv := fakeRerankServer(t, func(doc string) float64 {
		if doc == "relevant" {
			return 0.95
		}
		return 0.1
	})
	defer srv.Close()

	r, err := NewCrossEncoderReranker(context.Background(), CrossEncoderConfig{
		Endpoint: srv.URL,
	})
	require.NoError(t, err)
	defer func() { require.NoError(t, r.Close()) }()

	assert.True(t, r.Available(context.Background()))

	results, err := r.Rerank(context.Background(), "find it", []string{"noise", "relevant"}, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 0.95, results[0].Score)
	assert.Equal(t, 0.1, results[1].Score)
}

func TestCrossEncoderEmptyDocuments(t *testing.T) {
	r, err := NewCrossEncoderReranker(context.Background(), CrossEncoderConfig{
		Endpoint:        "http://localhost:1", // never dialed
		SkipHealthCheck: true,
	})
	require.NoError(t, err)

	results, err := r.Rerank(context.Background(), "q", nil, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCrossEncoderHealthCheckFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewCrossEncoderReranker(context.Background(), CrossEncoderConfig{Endpoint: srv.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "health check")
}

func TestCrossEncoderClosedRejectsCalls(t *testing.T) {
	r, err := NewCrossEncoderReranker(context.Background(), CrossEncoderConfig{
		Endpoint:        "http://localhost:1",
		SkipHealthCheck: true,
	})
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close()) // idempotent

	assert.False(t, r.Available(context.Background()))
	_, err = r.Rerank(context.Background(), "q", []string{"doc"}, 0)
	require.Error(t, err)
}

func TestCrossEncoderServerError(t *testing.T) {
	srv := fakeRerankServer(t, func(string) float64 { return 0 })
	defer srv.Close()

	r, err := NewCrossEncoderReranker(context.Background(), CrossEncoderConfig{Endpoint: srv.URL})
	require.NoError(t, err)
	srv.Close() // kill the backend under the client

	_, err = r.Rerank(context.Background(), "q", []string{"doc"}, 0)
	require.Error(t, err)
	assert.False(t, r.Available(context.Background()))
}
