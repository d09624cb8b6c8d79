package embed

import "time"

// Ollama client defaults. The embedder talks straight to Ollama's
// HTTP API; there is no official Go client to wrap.
const (
	DefaultOllamaHost = "http://localhost:11434"

	// DefaultOllamaModel handles both code and prose well at a size
	// most machines can run.
	DefaultOllamaModel = "qwen3-embedding:0.6b"

	// OllamaConnectTimeout is the default OllamaConfig.ConnectTimeout. The
	// startup health probe is bounded by three times Timeout, not by this.
	OllamaConnectTimeout = 5 * time.Second

	// OllamaPoolSize caps idle HTTP connections.
	OllamaPoolSize = 4
)

// FallbackOllamaModels are tried in order when the configured model
// is not installed, before giving up on Ollama entirely.
var FallbackOllamaModels = []string{
	"embeddinggemma",
	"mxbai-embed-large",
}

// OllamaConfig configures the Ollama-backed embedder.
type OllamaConfig struct {
	// Host is the API endpoint; empty means DefaultOllamaHost.
	Host string

	// Model is the embedding model to request.
	Model string

	// FallbackModels are tried in order when Model is not installed.
	FallbackModels []string

	// Dimensions overrides auto-detection when non-zero.
	Dimensions int

	// BatchSize bounds texts per embed request.
	BatchSize int

	// Timeout bounds one API request.
	Timeout time.Duration

	// ConnectTimeout defaults to OllamaConnectTimeout. The startup health
	// probe does not read it; that probe is bounded by three times Timeout.
	ConnectTimeout time.Duration

	// MaxRetries bounds retry attempts on transient failures.
	MaxRetries int

	// PoolSize caps idle HTTP connections.
	PoolSize int

	// SkipHealthCheck builds the embedder without probing the server.
	SkipHealthCheck bool

	// ProgressFunc, when set, receives (completed, total) after each batch.
	ProgressFunc func(completed, total int)
}

// DefaultOllamaConfig returns the client defaults.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		Host:           DefaultOllamaHost,
		Model:          DefaultOllamaModel,
		FallbackModels: FallbackOllamaModels,
		Dimensions:     0, // auto-detect from the first embedding
		BatchSize:      DefaultBatchSize,
		Timeout:        DefaultTimeout,
		ConnectTimeout: OllamaConnectTimeout,
		MaxRetries:     DefaultMaxRetries,
		PoolSize:       OllamaPoolSize,
	}
}

// OllamaEmbedRequest is the /api/embed request body.
type OllamaEmbedRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"` // a string, or []string for batches
}

// OllamaEmbedResponse is the /api/embed response body.
type OllamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

// OllamaModelListResponse is the /api/tags response body.
type OllamaModelListResponse struct {
	Models []OllamaModelInfo `json:"models"`
}

// OllamaModelInfo is one installed model in the tags listing.
type OllamaModelInfo struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
}
