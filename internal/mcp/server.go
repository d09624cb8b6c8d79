package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aman-cerp/semantic-code-mcp/internal/async"
	"github.com/aman-cerp/semantic-code-mcp/internal/config"
	"github.com/aman-cerp/semantic-code-mcp/internal/embed"
	"github.com/aman-cerp/semantic-code-mcp/internal/filter"
	"github.com/aman-cerp/semantic-code-mcp/internal/search"
	"github.com/aman-cerp/semantic-code-mcp/internal/store"
	"github.com/aman-cerp/semantic-code-mcp/internal/telemetry"
	"github.com/aman-cerp/semantic-code-mcp/pkg/version"
)

// Server is the MCP tool handler.
// It bridges AI clients (Claude Code, Cursor) with the hybrid search engine.
type Server struct {
	mcp      *mcp.Server
	engine   search.SearchEngine
	metadata store.MetadataStore
	embedder embed.Embedder // Embedder for capability signaling
	config   *config.Config
	logger   *slog.Logger

	// Project identification for resource operations
	projectID string
	rootPath  string

	// Background indexing progress (nil if not indexing)
	indexProgress *async.IndexProgress

	// Query telemetry (optional, set via SetMetrics)
	metrics *telemetry.QueryMetrics

	mu sync.RWMutex
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// ResourceInfo contains information about a resource.
type ResourceInfo struct {
	URI      string
	Name     string
	MIMEType string
}

// ResourceContent contains the content of a resource.
type ResourceContent struct {
	URI      string
	Content  string
	MIMEType string
}

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query    string   `json:"query" jsonschema:"the search query to execute"`
	Limit    int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	Filter   string   `json:"filter,omitempty" jsonschema:"filter by content type: all, code, docs"`
	Language string   `json:"language,omitempty" jsonschema:"filter by programming language, e.g. go, typescript"`
	Scope    []string `json:"scope,omitempty" jsonschema:"filter by path prefixes (OR logic)"`
}

// SearchOutput defines the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results" jsonschema:"list of search results"`
}

// SearchResultOutput defines a single search result with context-rich metadata.
// UX-1: Enhanced response format explaining WHY results matched.
type SearchResultOutput struct {
	FilePath     string   `json:"file_path" jsonschema:"file path relative to project root"`
	Content      string   `json:"content" jsonschema:"matched content snippet"`
	Score        float64  `json:"score" jsonschema:"relevance score between 0 and 1"`
	Language     string   `json:"language,omitempty" jsonschema:"programming language of the file"`
	MatchReason  string   `json:"match_reason,omitempty" jsonschema:"human-readable explanation of why this result matched"`
	Symbol       string   `json:"symbol,omitempty" jsonschema:"primary symbol name (function, class, type)"`
	SymbolType   string   `json:"symbol_type,omitempty" jsonschema:"type of symbol: function, class, interface, type, method"`
	Signature    string   `json:"signature,omitempty" jsonschema:"full function/method signature"`
	MatchedTerms []string `json:"matched_terms,omitempty" jsonschema:"query terms that matched this result"`
	InBothLists  bool     `json:"in_both_lists,omitempty" jsonschema:"true if result appeared in both keyword and semantic search"`
}

// NewServer creates a new MCP server.
// The embedder parameter is used for capability signaling - AI clients can query
// the actual embedder state to adjust their search strategies.
// rootPath is used for project detection (go.mod, package.json, etc.).
func NewServer(engine search.SearchEngine, metadata store.MetadataStore, embedder embed.Embedder, cfg *config.Config, rootPath string) (*Server, error) {
	if engine == nil {
		return nil, errors.New("search engine is required")
	}
	if metadata == nil {
		return nil, errors.New("metadata store is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		engine:   engine,
		metadata: metadata,
		embedder: embedder, // May be nil - will report as unavailable
		config:   cfg,
		rootPath: rootPath,
		logger:   slog.Default(),
	}

	// Create MCP server with implementation info
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "semantic-code-mcp",
			Version: version.Version,
		},
		nil, // ServerOptions - capabilities are inferred from registered tools/resources
	)

	// Register tools
	s.registerTools()

	return s, nil
}

// SetIndexProgress sets the index progress tracker for background indexing.
// This enables the server to report indexing progress via index_status and
// return appropriate messages when search is called during indexing.
func (s *Server) SetIndexProgress(progress *async.IndexProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexProgress = progress
}

// SetMetrics sets the query metrics collector for telemetry.
// When set, a query_metrics resource is registered.
func (s *Server) SetMetrics(m *telemetry.QueryMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m

	// Register query_metrics resource if metrics is provided
	if m != nil {
		s.registerQueryMetricsResource()
	}
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "semantic-code-mcp", version.Version
}

// Capabilities returns whether tools and resources are enabled.
func (s *Server) Capabilities() (hasTools, hasResources bool) {
	// Both are enabled for F16
	return true, true
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	// Return the tools we register
		return []ToolInfo{
		{
			Name:        "semantic_search",
			Description: "Search the indexed codebase by meaning. Returns ranked code regions with file, line range, symbol name, node type, score and signature. Accepts an optional directory path and file_pattern glob to narrow results.",
		},
		{
			Name:        "search",
			Description: "Primary search tool. Instantly finds code and documentation using a full-codebase index. Use this for 95% of your search tasks - faster and smarter than grep. Understands code semantics, not just keywords.",
		},
		{
			Name:        "search_code",
			Description: "Code-specialized search. Finds functions, classes, and implementations by meaning, not just text matching. Use when you need to understand HOW something is implemented. Supports language and symbol type filtering.",
		},
		{
			Name:        "search_docs",
			Description: "Documentation search with context. Finds architecture decisions, design rationale, and guides. Preserves section hierarchy so you understand WHERE in the doc structure a match appears.",
		},
		{
			Name:        "index_status",
			Description: "Check if the codebase index is ready and which embedder is active. Use before searching to verify the index is complete.",
		},
	}
}

// CallTool invokes a tool by name with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch name {
	case "semantic_search":
		return s.handleSemanticSearchTool(ctx, args)
	case "search":
		return s.handleSearchTool(ctx, args)
	case "search_code":
		return s.handleSearchCodeTool(ctx, args)
	case "search_docs":
		return s.handleSearchDocsTool(ctx, args)
	case "index_status":
		return s.handleIndexStatusTool(ctx, args)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

// handleSemanticSearchTool handles the semantic_search tool invocation, the
// single externally-named operation the tool surface exposes. path and
// file_pattern are translated to a store predicate by internal/filter; a
// failure there is fatal to the request (errors.IsFatal).
func (s *Server) handleSemanticSearchTool(ctx context.Context, args map[string]any) (*SemanticSearchOutput, error) {
	start := time.Now()
	requestID := generateRequestID()

	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return nil, NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}

	params := semanticSearchParams{query: query, limit: clampLimit(0, 10, 1, 50)}
	if v, ok := args["path"].(string); ok {
		params.path = v
	}
	if v, ok := args["file_pattern"].(string); ok {
		params.filePattern = v
	}
	if l, ok := args["limit"].(float64); ok {
		params.limit = clampLimit(int(l), 10, 1, 50)
	}
	if v, ok := args["use_reranking"].(bool); ok {
		params.useReranking = &v
	}
	if v, ok := args["candidate_multiplier"].(float64); ok {
		params.candidateMultiplier = int(v)
	}
	if v, ok := args["fallback_to_keyword"].(bool); ok {
		params.fallbackToKeyword = &v
	}

	output, err := s.runSemanticSearch(ctx, params)
	duration := time.Since(start)
	if err != nil {
		s.logger.Error("semantic_search failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	s.logger.Info("semantic_search completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("result_count", len(output.Results)))

	return output, nil
}

// semanticSearchParams carries the semantic_search inputs shared by the
// CallTool and MCP SDK entry points. The pointer booleans distinguish
// absent from an explicit false, which the engine defaults to true.
type semanticSearchParams struct {
	query               string
	path                string
	filePattern         string
	limit               int
	useReranking        *bool
	candidateMultiplier int
	fallbackToKeyword   *bool
}

// runSemanticSearch builds the filter predicate, executes the search and
// assembles the tool-surface output shared by both the CallTool and MCP SDK
// entry points.
func (s *Server) runSemanticSearch(ctx context.Context, p semanticSearchParams) (*SemanticSearchOutput, error) {
	pred, err := filter.Build(filter.Options{Path: p.path, FilePattern: p.filePattern})
	if err != nil {
		return nil, err
	}

	opts := search.SearchOptions{
		Limit:               p.limit,
		UseReranking:        p.useReranking,
		CandidateMultiplier: p.candidateMultiplier,
		FallbackToKeyword:   p.fallbackToKeyword,
	}
	if pred != nil {
		opts.PredicateFilter = string(*pred)
	}

	results, err := s.engine.Search(ctx, p.query, opts)
	if err != nil {
		return nil, err
	}

	// FromFallback reflects what actually happened to this query: the
	// engine marks every result it served from keyword search alone.
	fromFallback := false
	for _, r := range results {
		if r != nil && r.FromFallback {
			fromFallback = true
			break
		}
	}

	output := &SemanticSearchOutput{
		Results:      make([]SemanticSearchResult, 0, len(results)),
		TotalResults: len(results),
		Query:        p.query,
		FromFallback: fromFallback,
	}

	for _, r := range results {
		if r == nil || r.Chunk == nil {
			continue
		}
		output.Results = append(output.Results, toSemanticSearchResult(r))
	}

	if stats := s.engine.Stats(); stats != nil {
		output.IndexStats = SemanticIndexStats{
			TotalChunks: stats.VectorCount,
			Indexed:     stats.VectorCount > 0,
		}
	}

	return output, nil
}

// toSemanticSearchResult maps an internal SearchResult to the tool's result
// shape. node_type comes from the chunk's primary symbol, falling back to
// "fallback_chunk" when no symbol was extracted.
func toSemanticSearchResult(r *search.SearchResult) SemanticSearchResult {
	out := SemanticSearchResult{
		File:      r.Chunk.FilePath,
		StartLine: r.Chunk.StartLine,
		EndLine:   r.Chunk.EndLine,
		Score:     r.Score,
		Content:   r.Chunk.Content,
		NodeType:  "fallback_chunk",
	}
	if len(r.Chunk.Symbols) > 0 {
		sym := r.Chunk.Symbols[0]
		out.Name = sym.Name
		out.NodeType = string(sym.Type)
		out.Signature = sym.Signature
	}
	return out
}

// parseQueryArg validates the required query parameter.
func parseQueryArg(args map[string]any) (string, error) {
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return "", NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}
	if strings.TrimSpace(query) == "" {
		return "", NewInvalidParamsError("query cannot be empty or whitespace only")
	}
	return query, nil
}

// parseLimitArg clamps the optional limit to [1, 50], defaulting to 10.
func parseLimitArg(args map[string]any) int {
	if l, ok := args["limit"].(float64); ok {
		return clampLimit(int(l), 10, 1, 50)
	}
	return clampLimit(0, 10, 1, 50)
}

// parseScopesArg collects the optional scope path prefixes.
func parseScopesArg(args map[string]any) []string {
	scope, ok := args["scope"].([]interface{})
	if !ok {
		return nil
	}
	var scopes []string
	for _, entry := range scope {
		if str, ok := entry.(string); ok {
			scopes = append(scopes, str)
		}
	}
	return scopes
}

// runToolSearch executes a search on behalf of one of the tools, with
// per-request logging around it.
func (s *Server) runToolSearch(ctx context.Context, tool, query string, opts search.SearchOptions) ([]*search.SearchResult, error) {
	start := time.Now()
	requestID := generateRequestID()

	s.logger.Info(tool+" started",
		slog.String("request_id", requestID),
		slog.String("query", query),
		slog.Int("limit", opts.Limit))

	results, err := s.engine.Search(ctx, query, opts)
	duration := time.Since(start)
	if err != nil {
		s.logger.Error(tool+" failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	s.logger.Info(tool+" completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("result_count", len(results)))
	return results, nil
}

// handleSearchTool serves the generic search tool as markdown. While
// the lazy background index is still building, it reports progress
// instead of serving partial results without explanation.
func (s *Server) handleSearchTool(ctx context.Context, args map[string]any) (string, error) {
	s.mu.RLock()
	progress := s.indexProgress
	s.mu.RUnlock()

	if progress != nil && progress.IsIndexing() {
		snap := progress.Snapshot()
		return fmt.Sprintf("## Indexing in Progress\n\n"+
			"**Progress:** %.1f%% (%d/%d files)\n"+
			"**Stage:** %s\n\n"+
			"Search results may be incomplete or unavailable. Please try again in a moment.",
			snap.ProgressPct, snap.FilesProcessed, snap.FilesTotal, snap.Stage), nil
	}

	query, err := parseQueryArg(args)
	if err != nil {
		return "", err
	}

	opts := search.SearchOptions{
		Limit:  parseLimitArg(args),
		Scopes: parseScopesArg(args),
	}
	if filter, ok := args["filter"].(string); ok {
		opts.Filter = filter
	}
	if lang, ok := args["language"].(string); ok {
		opts.Language = lang
	}

	results, err := s.runToolSearch(ctx, "search", query, opts)
	if err != nil {
		return "", err
	}
	return FormatSearchResults(query, results), nil
}

// handleSearchCodeTool serves search_code: always code-only, with
// optional language and symbol-type narrowing.
func (s *Server) handleSearchCodeTool(ctx context.Context, args map[string]any) (string, error) {
	query, err := parseQueryArg(args)
	if err != nil {
		return "", err
	}

	opts := search.SearchOptions{
		Limit:  parseLimitArg(args),
		Filter: "code",
		Scopes: parseScopesArg(args),
	}

	var langFilter string
	if lang, ok := args["language"].(string); ok {
		opts.Language = lang
		langFilter = lang
	}
	if symbolType, ok := args["symbol_type"].(string); ok && symbolType != "any" {
		opts.SymbolType = symbolType
	}

	results, err := s.runToolSearch(ctx, "search_code", query, opts)
	if err != nil {
		return "", err
	}
	return FormatCodeResults(query, results, langFilter), nil
}

// handleSearchDocsTool serves search_docs: markdown and text only.
func (s *Server) handleSearchDocsTool(ctx context.Context, args map[string]any) (string, error) {
	query, err := parseQueryArg(args)
	if err != nil {
		return "", err
	}

	opts := search.SearchOptions{
		Limit:  parseLimitArg(args),
		Filter: "docs",
		Scopes: parseScopesArg(args),
	}

	results, err := s.runToolSearch(ctx, "search_docs", query, opts)
	if err != nil {
		return "", err
	}
	return FormatDocsResults(query, results), nil
}

// handleIndexStatusTool reports index statistics plus the effective
// embedder state, so an AI client can tell whether semantic quality is
// high (real model) or degraded (static fallback) before searching.
func (s *Server) handleIndexStatusTool(ctx context.Context, _ map[string]any) (*IndexStatusOutput, error) {
	start := time.Now()
	requestID := generateRequestID()

	s.logger.Info("index_status started",
		slog.String("request_id", requestID))

	stats := s.engine.Stats()

	// Determine embedder capability state
	var actualProvider, actualModel, semanticQuality, status string
	var dimensions int
	var isFallbackActive bool

	if s.embedder != nil {
		actualModel = s.embedder.ModelName()
		dimensions = s.embedder.Dimensions()

		// Determine if using static fallback based on model name or dimensions
		isFallbackActive = actualModel == "static" || dimensions == embed.StaticDimensions

		if isFallbackActive {
			actualProvider = "static"
			semanticQuality = "low"
		} else {
			actualProvider = "ollama"
			semanticQuality = "high"
		}

		// Check runtime availability
		if s.embedder.Available(ctx) {
			status = "ready"
		} else {
			status = "unavailable"
		}
	} else {
		// No embedder configured
		actualProvider = "none"
		actualModel = "none"
		dimensions = 0
		isFallbackActive = true
		semanticQuality = "none"
		status = "unavailable"
	}

	// Detect project info
	detector := NewProjectDetector(s.rootPath, s.logger)
	projectInfo := detector.Detect()

	// Build output
	output := &IndexStatusOutput{
		Project: *projectInfo,
		Stats: IndexStats{
			FileCount:      0,
			ChunkCount:     0,
			IndexSizeBytes: 0,
			LastIndexed:    time.Now().Format(time.RFC3339),
		},
		Embeddings: EmbeddingInfo{
			// Config values
			Provider: s.config.Embeddings.Provider,
			Model:    s.config.Embeddings.Model,
			Status:   status,
			// Runtime state - AI clients use this to adjust search strategy
			ActualProvider:   actualProvider,
			ActualModel:      actualModel,
			Dimensions:       dimensions,
			IsFallbackActive: isFallbackActive,
			SemanticQuality:  semanticQuality,
		},
	}

	// Fill in stats if available
	if stats != nil {
		if stats.BM25Stats != nil {
			output.Stats.FileCount = stats.BM25Stats.DocumentCount
		}
		output.Stats.ChunkCount = stats.VectorCount
	}

	// Add indexing progress if available
	s.mu.RLock()
	progress := s.indexProgress
	s.mu.RUnlock()

	if progress != nil {
		snap := progress.Snapshot()
		output.Indexing = &IndexingProgress{
			Status:         snap.Status,
			Stage:          snap.Stage,
			FilesTotal:     snap.FilesTotal,
			FilesProcessed: snap.FilesProcessed,
			ChunksIndexed:  snap.ChunksIndexed,
			ProgressPct:    snap.ProgressPct,
			ElapsedSeconds: snap.ElapsedSeconds,
			ErrorMessage:   snap.ErrorMessage,
		}
	}

	duration := time.Since(start)
	s.logger.Info("index_status completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.String("project_name", projectInfo.Name),
		slog.String("project_type", projectInfo.Type))

	return output, nil
}

// registerTools registers the tool surface with the MCP SDK server.
func (s *Server) registerTools() {
	s.logger.Debug("Registering MCP tools")

	// Register semantic_search - the single externally-named tool operation.
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "semantic_search",
		Description: "Search the indexed codebase by meaning. Returns ranked code regions with file, line range, symbol name, node type, score and signature. Accepts an optional directory path and file_pattern glob to narrow results.",
	}, s.mcpSemanticSearchHandler)
	s.logger.Debug("Registered tool", slog.String("name", "semantic_search"))

	// Register search tool - generic hybrid search
		mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Primary search tool. Instantly finds code and documentation using a full-codebase index. Use this for 95% of your search tasks - faster and smarter than grep. Understands code semantics, not just keywords.",
	}, s.mcpSearchHandler)
	s.logger.Debug("Registered tool", slog.String("name", "search"))

	// Register search_code tool - code-specific search
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_code",
		Description: "Code-specialized search. Finds functions, classes, and implementations by meaning, not just text matching. Use when you need to understand HOW something is implemented. Supports language and symbol type filtering.",
	}, s.mcpSearchCodeHandler)
	s.logger.Debug("Registered tool", slog.String("name", "search_code"))

	// Register search_docs tool - documentation search
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_docs",
		Description: "Documentation search with context. Finds architecture decisions, design rationale, and guides. Preserves section hierarchy so you understand WHERE in the doc structure a match appears.",
	}, s.mcpSearchDocsHandler)
	s.logger.Debug("Registered tool", slog.String("name", "search_docs"))

	// Register index_status tool - index diagnostics
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_status",
		Description: "Check if the codebase index is ready and which embedder is active. Use before searching to verify the index is complete.",
	}, s.mcpIndexStatusHandler)
	s.logger.Debug("Registered tool", slog.String("name", "index_status"))

	s.logger.Info("MCP tools registered", slog.Int("count", 5))
}

// mcpSemanticSearchHandler is the MCP SDK handler for the semantic_search tool.
func (s *Server) mcpSemanticSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SemanticSearchInput) (
	*mcp.CallToolResult,
	SemanticSearchOutput,
	error,
) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SemanticSearchOutput{}, NewInvalidParamsError("query parameter is required")
	}

	limit := clampLimit(input.Limit, 10, 1, 50)

	output, err := s.runSemanticSearch(ctx, semanticSearchParams{
		query:               input.Query,
		path:                input.Path,
		filePattern:         input.FilePattern,
		limit:               limit,
		useReranking:        input.UseReranking,
		candidateMultiplier: input.CandidateMultiplier,
		fallbackToKeyword:   input.FallbackToKeyword,
	})
	if err != nil {
		return nil, SemanticSearchOutput{}, MapError(err)
	}

	return nil, *output, nil
}

// searchToOutput runs a search for one of the SDK handlers and maps
// the results onto the structured output shape.
func (s *Server) searchToOutput(ctx context.Context, query string, opts search.SearchOptions) (SearchOutput, error) {
	results, err := s.engine.Search(ctx, query, opts)
	if err != nil {
		return SearchOutput{}, MapError(err)
	}

	output := SearchOutput{Results: make([]SearchResultOutput, 0, len(results))}
	for _, r := range results {
		if r != nil && r.Chunk != nil {
			output.Results = append(output.Results, ToSearchResultOutput(r))
		}
	}
	return output, nil
}

// mcpSearchHandler is the MCP SDK handler for the search tool.
func (s *Server) mcpSearchHandler(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	if input.Query == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query parameter is required")
	}

	opts := search.SearchOptions{
		Limit:    10,
		Filter:   input.Filter,
		Language: input.Language,
		Scopes:   input.Scope,
	}
	if input.Limit > 0 {
		opts.Limit = input.Limit
	}

	output, err := s.searchToOutput(ctx, input.Query, opts)
	return nil, output, err
}

// mcpSearchCodeHandler is the MCP SDK handler for the search_code tool.
func (s *Server) mcpSearchCodeHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchCodeInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	if input.Query == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query parameter is required")
	}

	opts := search.SearchOptions{
		Limit:    10,
		Filter:   "code",
		Language: input.Language,
		Scopes:   input.Scope,
	}
	if input.Limit > 0 {
		opts.Limit = input.Limit
	}
	if input.SymbolType != "" && input.SymbolType != "any" {
		opts.SymbolType = input.SymbolType
	}

	output, err := s.searchToOutput(ctx, input.Query, opts)
	return nil, output, err
}

// mcpSearchDocsHandler is the MCP SDK handler for the search_docs tool.
func (s *Server) mcpSearchDocsHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchDocsInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	if input.Query == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query parameter is required")
	}

	opts := search.SearchOptions{
		Limit:  10,
		Filter: "docs",
		Scopes: input.Scope,
	}
	if input.Limit > 0 {
		opts.Limit = input.Limit
	}

	output, err := s.searchToOutput(ctx, input.Query, opts)
	return nil, output, err
}

// mcpIndexStatusHandler is the MCP SDK handler for the index_status tool.
func (s *Server) mcpIndexStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	*IndexStatusOutput,
	error,
) {
	output, err := s.handleIndexStatusTool(ctx, nil)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, output, nil
}

// ListResources lists every indexed file as a resource.
func (s *Server) ListResources(ctx context.Context, cursor string) ([]ResourceInfo, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files, err := s.metadata.GetChangedFiles(ctx, "", emptyTime)
	if err != nil {
		return nil, "", err
	}

	resources := make([]ResourceInfo, 0, len(files))
	for _, f := range files {
		resources = append(resources, ResourceInfo{
			URI:      fmt.Sprintf("file://%s", f.Path),
			Name:     f.Path,
			MIMEType: mimeTypeForLanguage(f.Language),
		})
	}

	return resources, "", nil // no pagination
}

// ReadResource resolves a chunk:// URI to its stored content.
func (s *Server) ReadResource(ctx context.Context, uri string) (*ResourceContent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// file:// URIs are served by the registered per-file handlers in
	// resources.go; this path only resolves chunk ids.
	if !strings.HasPrefix(uri, "chunk://") {
		return nil, NewResourceNotFoundError(uri)
	}
	chunkID := strings.TrimPrefix(uri, "chunk://")

	chunk, err := s.metadata.GetChunk(ctx, chunkID)
	if err != nil {
		return nil, err
	}
	if chunk == nil {
		return nil, NewResourceNotFoundError(uri)
	}

	return &ResourceContent{
		URI:      uri,
		Content:  chunk.Content,
		MIMEType: mimeTypeForLanguage(chunk.Language),
	}, nil
}

// Serve blocks serving JSON-RPC over the chosen transport until the
// context is cancelled.
func (s *Server) Serve(ctx context.Context, transport, addr string) error {
	s.logger.Info("Starting MCP server",
		slog.String("transport", transport),
		slog.String("addr", addr))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("MCP server stopped with error",
				slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	case "sse":
		return fmt.Errorf("SSE transport not yet implemented")
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// Close shuts the tool handler down. The SDK server stops with its
// context; the engine is closed so its stores drain.
func (s *Server) Close() error {
	if s.engine != nil {
		return s.engine.Close()
	}
	return nil
}

// mimeTypeForLanguage maps a language tag (rather than a filename) to
// a MIME type, for chunk resources that carry no path extension.
func mimeTypeForLanguage(lang string) string {
	switch strings.ToLower(lang) {
	case "go":
		return "text/x-go"
	case "typescript", "ts":
		return "text/typescript"
	case "javascript", "js":
		return "text/javascript"
	case "python", "py":
		return "text/x-python"
	case "rust", "rs":
		return "text/x-rust"
	case "java":
		return "text/x-java"
	case "c":
		return "text/x-c"
	case "cpp", "c++":
		return "text/x-c++"
	case "markdown", "md":
		return "text/markdown"
	default:
		return "text/plain"
	}
}

// emptyTime passed as the "since" bound lists every file.
var emptyTime = time.Time{}

// generateRequestID is a short random id correlating a request's log lines.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
