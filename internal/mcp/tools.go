package mcp

// SemanticSearchInput defines the input schema for the semantic_search tool,
// the single operation the tool surface exposes externally. path and
// file_pattern are translated to a store predicate by internal/filter.
type SemanticSearchInput struct {
	Query       string `json:"query" jsonschema:"natural-language or keyword query to search for"`
	Path        string `json:"path,omitempty" jsonschema:"restrict results to files under this directory prefix"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	FilePattern string `json:"file_pattern,omitempty" jsonschema:"restrict results to files matching this glob, e.g. *.ts"`

	// Pipeline tuning. The pointer booleans distinguish absent (use the
	// default, which is true for both) from an explicit false.
	UseReranking        *bool `json:"use_reranking,omitempty" jsonschema:"rerank candidates with the cross-encoder, default true"`
	CandidateMultiplier int   `json:"candidate_multiplier,omitempty" jsonschema:"fetch limit times this many candidates when reranking, default 5"`
	FallbackToKeyword   *bool `json:"fallback_to_keyword,omitempty" jsonschema:"serve keyword-only results when the embedder is unavailable, default true; false fails the call instead"`
}

// SemanticSearchOutput defines the output schema for the semantic_search tool.
type SemanticSearchOutput struct {
	Results      []SemanticSearchResult `json:"results"`
	TotalResults int                    `json:"total_results"`
	Query        string                 `json:"query"`
	IndexStats   SemanticIndexStats     `json:"index_stats"`
	FromFallback bool                   `json:"from_fallback,omitempty" jsonschema:"true when the embedder was unavailable and results come from keyword search alone"`
}

// SemanticSearchResult is a single ranked code region.
type SemanticSearchResult struct {
	File      string  `json:"file"`
	StartLine int     `json:"start_line"`
	EndLine   int     `json:"end_line"`
	Name      string  `json:"name,omitempty"`
	NodeType  string  `json:"node_type"`
	Score     float64 `json:"score"`
	Content   string  `json:"content"`
	Signature string  `json:"signature,omitempty"`
}

// SemanticIndexStats summarizes the index state alongside a search response.
type SemanticIndexStats struct {
	TotalChunks int  `json:"total_chunks"`
	Indexed     bool `json:"indexed"`
}

// SearchCodeInput is the search_code tool's input.
type SearchCodeInput struct {
	Query      string   `json:"query" jsonschema:"the code search query to execute"`
	Language   string   `json:"language,omitempty" jsonschema:"filter by programming language (go, typescript, python)"`
	SymbolType string   `json:"symbol_type,omitempty" jsonschema:"filter by symbol type: function, class, interface, type, method, or any"`
	Limit      int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	Scope      []string `json:"scope,omitempty" jsonschema:"filter by path prefixes (OR logic)"`
}

// SearchDocsInput is the search_docs tool's input.
type SearchDocsInput struct {
	Query string   `json:"query" jsonschema:"the documentation search query to execute"`
	Limit int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	Scope []string `json:"scope,omitempty" jsonschema:"filter by path prefixes (OR logic)"`
}

// IndexStatusInput is empty; index_status takes no parameters.
type IndexStatusInput struct{}

// IndexStatusOutput is the index_status tool's response. Indexing is
// present whenever the server has a background-indexing progress tracker,
// and then reports indexing, ready, or error.
type IndexStatusOutput struct {
	Project    ProjectInfo       `json:"project"`
	Stats      IndexStats        `json:"stats"`
	Embeddings EmbeddingInfo     `json:"embeddings"`
	Indexing   *IndexingProgress `json:"indexing,omitempty"`
}

// IndexingProgress mirrors async.IndexProgressSnapshot onto the tool
// surface.
type IndexingProgress struct {
	Status         string  `json:"status"`          // indexing, ready, error
	Stage          string  `json:"stage,omitempty"` // scanning, chunking, embedding, indexing
	FilesTotal     int     `json:"files_total"`
	FilesProcessed int     `json:"files_processed"`
	ChunksIndexed  int     `json:"chunks_indexed"`
	ProgressPct    float64 `json:"progress_pct"`
	ElapsedSeconds int     `json:"elapsed_seconds"`
	ErrorMessage   string  `json:"error_message,omitempty"`
}

// ProjectInfo identifies the indexed project.
type ProjectInfo struct {
	Name     string `json:"name"`
	RootPath string `json:"root_path"`
	Type     string `json:"type"`
}

// IndexStats sizes the index.
type IndexStats struct {
	FileCount      int    `json:"file_count"`
	ChunkCount     int    `json:"chunk_count"`
	IndexSizeBytes int64  `json:"index_size_bytes"`
	LastIndexed    string `json:"last_indexed"`
}

// EmbeddingInfo reports both the configured embedder and the one
// actually serving, so a client can tell when the static fallback has
// quietly replaced the real model and adjust expectations.
type EmbeddingInfo struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Status   string `json:"status"`

	ActualProvider   string `json:"actual_provider"`    // "ollama" or "static"
	ActualModel      string `json:"actual_model"`
	Dimensions       int    `json:"dimensions"`
	IsFallbackActive bool   `json:"is_fallback_active"`
	SemanticQuality  string `json:"semantic_quality"`   // "high", or "low" on the static fallback
}
