package mcp

import (
	"fmt"
	"strings"

	"github.com/aman-cerp/semantic-code-mcp/internal/search"
)

// FormatSearchResults renders generic search results as markdown for
// the `search` tool.
func FormatSearchResults(query string, results []*search.SearchResult) string {
	validResults := filterValidResults(results)
	if len(validResults) == 0 {
		return fmt.Sprintf("No results found for %q", query)
	}

	var sb strings.Builder
	writeResultHeader(&sb, fmt.Sprintf("Search Results for %q", query), len(validResults))
	for i, r := range validResults {
		formatResult(&sb, i+1, r)
	}
	return sb.String()
}

// FormatCodeResults renders code-only results, noting any language
// filter in effect.
func FormatCodeResults(query string, results []*search.SearchResult, langFilter string) string {
	validResults := filterValidResults(results)
	if len(validResults) == 0 {
		msg := fmt.Sprintf("No code results found for %q", query)
		if langFilter != "" {
			msg += fmt.Sprintf(" in %s files", langFilter)
		}
		return msg
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Code Search Results for %q\n\n", query))
	if langFilter != "" {
		sb.WriteString(fmt.Sprintf("Language filter: `%s`\n\n", langFilter))
	}
	writeResultCount(&sb, len(validResults))
	for i, r := range validResults {
		formatResult(&sb, i+1, r)
	}
	return sb.String()
}

// FormatDocsResults renders documentation results, leaving markdown
// content unwrapped so its own structure shows through.
func FormatDocsResults(query string, results []*search.SearchResult) string {
	validResults := filterValidResults(results)
	if len(validResults) == 0 {
		return fmt.Sprintf("No documentation found for %q", query)
	}

	var sb strings.Builder
	writeResultHeader(&sb, fmt.Sprintf("Documentation Results for %q", query), len(validResults))
	for i, r := range validResults {
		formatDocsResult(&sb, i+1, r)
	}
	return sb.String()
}

func writeResultHeader(sb *strings.Builder, title string, count int) {
	sb.WriteString("## " + title + "\n\n")
	writeResultCount(sb, count)
}

func writeResultCount(sb *strings.Builder, count int) {
	fmt.Fprintf(sb, "Found %d result", count)
	if count != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")
}

func filterValidResults(results []*search.SearchResult) []*search.SearchResult {
	valid := make([]*search.SearchResult, 0, len(results))
	for _, r := range results {
		if r != nil && r.Chunk != nil {
			valid = append(valid, r)
		}
	}
	return valid
}

func formatResult(sb *strings.Builder, num int, r *search.SearchResult) {
	if r.Chunk == nil {
		return
	}

	fmt.Fprintf(sb, "### %d. %s:%d-%d (score: %.2f)\n",
		num, r.Chunk.FilePath, r.Chunk.StartLine, r.Chunk.EndLine, r.Score)

	if len(r.Chunk.Symbols) > 0 {
		names := make([]string, len(r.Chunk.Symbols))
		for j, sym := range r.Chunk.Symbols {
			names[j] = fmt.Sprintf("`%s`", sym.Name)
		}
		fmt.Fprintf(sb, "**Symbols:** %s\n\n", strings.Join(names, ", "))
	}

	lang := r.Chunk.Language
	if lang == "" {
		lang = "text"
	}

	// RawContent is the bare symbol without surrounding context; fall
	// back to the full content for docs and fallback chunks.
	content := r.Chunk.RawContent
	if content == "" {
		content = r.Chunk.Content
	}
	fmt.Fprintf(sb, "```%s\n%s\n```\n\n", lang, content)
}

func formatDocsResult(sb *strings.Builder, num int, r *search.SearchResult) {
	if r.Chunk == nil {
		return
	}

	fmt.Fprintf(sb, "### %d. %s (score: %.2f)\n\n", num, r.Chunk.FilePath, r.Score)

	if r.Chunk.Language == "markdown" || r.Chunk.Language == "md" {
		sb.WriteString(r.Chunk.Content)
		sb.WriteString("\n\n---\n\n")
	} else {
		fmt.Fprintf(sb, "```\n%s\n```\n\n", r.Chunk.Content)
	}
}

// clampLimit bounds a caller-supplied limit, substituting the default
// for zero and negatives.
func clampLimit(limit, defaultVal, min, max int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}

// ToSearchResultOutput maps an internal result to the tool output
// shape, with a human-readable reason for the match.
func ToSearchResultOutput(r *search.SearchResult) SearchResultOutput {
	if r == nil || r.Chunk == nil {
		return SearchResultOutput{}
	}

	output := SearchResultOutput{
		FilePath:     r.Chunk.FilePath,
		Content:      r.Chunk.Content,
		Score:        r.Score,
		Language:     r.Chunk.Language,
		MatchedTerms: r.MatchedTerms,
		InBothLists:  r.InBothLists,
	}

	if len(r.Chunk.Symbols) > 0 {
		sym := r.Chunk.Symbols[0]
		output.Symbol = sym.Name
		output.SymbolType = string(sym.Type)
		output.Signature = sym.Signature
	}

	output.MatchReason = generateMatchReason(r)
	return output
}

// generateMatchReason explains a hit in one line: the primary symbol,
// its doc line, which terms matched, and channel agreement.
func generateMatchReason(r *search.SearchResult) string {
	if r == nil || r.Chunk == nil {
		return ""
	}

	var parts []string

	if len(r.Chunk.Symbols) > 0 {
		sym := r.Chunk.Symbols[0]
		parts = append(parts, fmt.Sprintf("%s '%s'", sym.Type, sym.Name))
		if sym.DocComment != "" {
			docLine := sym.DocComment
			if idx := strings.Index(docLine, "\n"); idx > 0 {
				docLine = docLine[:idx]
			}
			if len(docLine) > 50 {
				docLine = docLine[:47] + "..."
			}
			parts = append(parts, "documented as: "+docLine)
		}
	}

	if len(r.MatchedTerms) > 0 {
		terms := r.MatchedTerms
		if len(terms) > 5 {
			terms = terms[:5]
		}
		parts = append(parts, "matched: "+strings.Join(terms, ", "))
	}

	if r.InBothLists {
		parts = append(parts, "found in both keyword and semantic search")
	}

	if len(parts) == 0 {
		return "matched content"
	}
	return strings.Join(parts, "; ")
}
