package search

import (
	"sort"
	"strings"

	"github.com/aman-cerp/semantic-code-mcp/internal/filter"
	"github.com/aman-cerp/semantic-code-mcp/internal/store"
)

// Score adjustments applied after fusion.
const (
	// TestFilePenalty halves test-file scores. Test files repeat the
	// signatures of the code they exercise and would otherwise outrank
	// the implementations.
	TestFilePenalty = 0.5

	// InternalPathBoost favors implementation code under internal/.
	InternalPathBoost = 1.3

	// CmdPathPenalty demotes CLI wrapper code under cmd/, which matches
	// many queries without being what the caller wants.
	CmdPathPenalty = 0.6
)

// FilterFunc decides whether a result stays in the output.
type FilterFunc func(result *SearchResult) bool

// ApplyFilters drops results that fail any of the filters implied by
// opts. Conditions combine with AND.
func ApplyFilters(results []*SearchResult, opts SearchOptions) []*SearchResult {
	if opts.Filter == "all" && opts.Language == "" && opts.SymbolType == "" &&
		len(opts.Scopes) == 0 && opts.PredicateFilter == "" {
		return results
	}

	filters := buildFilters(opts)
	if len(filters) == 0 {
		return results
	}

	filtered := make([]*SearchResult, 0, len(results))
	for _, r := range results {
		if matchesAllFilters(r, filters) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

func buildFilters(opts SearchOptions) []FilterFunc {
	var filters []FilterFunc

	if opts.Filter != "" && opts.Filter != "all" {
		filters = append(filters, contentTypeFilter(opts.Filter))
	}
	if opts.Language != "" {
		filters = append(filters, languageFilter(opts.Language))
	}
	if opts.SymbolType != "" {
		filters = append(filters, symbolTypeFilter(opts.SymbolType))
	}
	if len(opts.Scopes) > 0 {
		filters = append(filters, scopeFilter(opts.Scopes))
	}
	if opts.PredicateFilter != "" {
		filters = append(filters, predicateFilter(opts.PredicateFilter))
	}
	return filters
}

// predicateFilter evaluates a predicate built by internal/filter
// against each result's chunk id and language. This is where the
// tool-level path and file_pattern arguments actually take effect.
func predicateFilter(pred string) FilterFunc {
	p := filter.Predicate(pred)
	return func(r *SearchResult) bool {
		if r.Chunk == nil {
			return false
		}
		return p.Matches(r.Chunk.ID, r.Chunk.Language)
	}
}

func matchesAllFilters(result *SearchResult, filters []FilterFunc) bool {
	for _, f := range filters {
		if !f(result) {
			return false
		}
	}
	return true
}

func contentTypeFilter(kind string) FilterFunc {
	return func(r *SearchResult) bool {
		if r.Chunk == nil {
			return false
		}
		switch kind {
		case "code":
			return r.Chunk.ContentType == store.ContentTypeCode
		case "docs":
			return r.Chunk.ContentType == store.ContentTypeMarkdown ||
				r.Chunk.ContentType == store.ContentTypeText
		default:
			return true
		}
	}
}

func languageFilter(lang string) FilterFunc {
	return func(r *SearchResult) bool {
		return r.Chunk != nil && r.Chunk.Language == lang
	}
}

func symbolTypeFilter(symbolType string) FilterFunc {
	return func(r *SearchResult) bool {
		if r.Chunk == nil || len(r.Chunk.Symbols) == 0 {
			return false
		}
		target := store.SymbolType(symbolType)
		for _, s := range r.Chunk.Symbols {
			if s.Type == target {
				return true
			}
		}
		return false
	}
}

// ValidateOptions vets search options. Unknown content-type filters are
// accepted and treated as "all".
func ValidateOptions(opts SearchOptions) error {
	switch opts.Filter {
	case "", "all", "code", "docs":
	default:
	}
	return nil
}

// NormalizeScope trims leading and trailing slashes so scopes compare
// consistently.
func NormalizeScope(scope string) string {
	return strings.Trim(scope, "/")
}

// scopeFilter keeps results whose file path is under any scope. The
// trailing slash keeps "services/api" from matching "services/api-v2".
func scopeFilter(scopes []string) FilterFunc {
	normalized := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if n := NormalizeScope(s); n != "" {
			normalized = append(normalized, n+"/")
		}
	}
	if len(normalized) == 0 {
		return func(*SearchResult) bool { return true }
	}

	return func(r *SearchResult) bool {
		if r.Chunk == nil {
			return false
		}
		filePath := NormalizeScope(r.Chunk.FilePath) + "/"
		for _, scope := range normalized {
			if strings.HasPrefix(filePath, scope) {
				return true
			}
		}
		return false
	}
}

// ApplyTestFilePenalty down-weights test files and re-sorts.
func ApplyTestFilePenalty(results []*SearchResult) []*SearchResult {
	if len(results) == 0 {
		return results
	}
	for _, r := range results {
		if r.Chunk != nil && IsTestFile(r.Chunk.FilePath) {
			r.Score *= TestFilePenalty
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// IsTestFile recognizes Go, JavaScript/TypeScript, and Python test
// naming conventions plus conventional test directories.
func IsTestFile(filePath string) bool {
	if strings.HasSuffix(filePath, "_test.go") {
		return true
	}
	if strings.Contains(filePath, ".test.") || strings.Contains(filePath, ".spec.") {
		return true
	}

	fileName := filePath
	if idx := strings.LastIndex(filePath, "/"); idx >= 0 {
		fileName = filePath[idx+1:]
	}
	if strings.HasPrefix(fileName, "test_") && strings.HasSuffix(fileName, ".py") {
		return true
	}
	if strings.HasSuffix(fileName, "_test.py") {
		return true
	}

	if strings.Contains(filePath, "/test/") || strings.Contains(filePath, "/tests/") {
		return true
	}
	if strings.HasPrefix(filePath, "test/") || strings.HasPrefix(filePath, "tests/") {
		return true
	}
	if strings.Contains(filePath, "/__tests__/") || strings.HasPrefix(filePath, "__tests__/") {
		return true
	}
	return false
}

// ApplyPathBoost favors implementation paths over wrapper paths, clamps
// the scores to [0, 1], and re-sorts.
func ApplyPathBoost(results []*SearchResult) []*SearchResult {
	if len(results) == 0 {
		return results
	}
	for _, r := range results {
		if r.Chunk == nil {
			continue
		}
		if IsImplementationPath(r.Chunk.FilePath) {
			r.Score *= InternalPathBoost
		}
		if IsWrapperPath(r.Chunk.FilePath) {
			r.Score *= CmdPathPenalty
		}
		r.Score = clampUnit(r.Score)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// IsImplementationPath reports whether the path sits under internal/.
func IsImplementationPath(filePath string) bool {
	return strings.HasPrefix(filePath, "internal/") ||
		strings.Contains(filePath, "/internal/")
}

// IsWrapperPath reports whether the path sits under cmd/.
func IsWrapperPath(filePath string) bool {
	return strings.HasPrefix(filePath, "cmd/") ||
		strings.Contains(filePath, "/cmd/")
}
