package search

import (
	"regexp"
	"sort"
	"strings"
)

// Lexical boost weights: a query-token match in the symbol name
// counts for more than a match in the signature, which counts for more than
// a plain content match.
const (
	nameMatchWeight      = 3.0
	signatureMatchWeight = 2.0
	contentMatchWeight   = 1.0

	// exactNameWordBonus rewards an exact word match in name over a
	// substring match, so "login" scores higher against a name of exactly
	// "login" than against "loginHandler".
	exactNameWordBonus = 1.0

	// lexicalBoostScale converts the raw weighted token-match sum into a
	// score increment small enough that a handful of matches nudges ranking
	// without a single lexical hit overwhelming the vector score.
	lexicalBoostScale = 0.05
)

// queryTokenPattern splits a query into unicode word tokens. Anything that
// is not a letter, digit, or underscore is a separator, so regex-special
// characters in the query (", ', ;, (, ), *, etc.) never reach a regex
// engine -- tokens are compared as plain strings.
var queryTokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// tokenizeQuery lowercases query and splits it into its word tokens.
func tokenizeQuery(query string) []string {
	return queryTokenPattern.FindAllString(strings.ToLower(query), -1)
}

// ApplyLexicalBoost adds a weighted lexical-match bonus to each result's
// Score based on query tokens found in the chunk's name, signature, and
// content, then re-sorts by the adjusted score. An empty query (no tokens)
// leaves every score unchanged. The final score is always clamped to
// [0, 1].
func ApplyLexicalBoost(results []*SearchResult, query string) []*SearchResult {
	tokens := tokenizeQuery(query)
	if len(tokens) == 0 || len(results) == 0 {
		return results
	}

	for _, r := range results {
		r.Score = clampUnit(r.Score + lexicalMatchBonus(r, tokens))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results
}

// lexicalMatchBonus computes the scaled, weighted sum of token matches in
// result's name, signature, and content.
func lexicalMatchBonus(r *SearchResult, tokens []string) float64 {
	if r.Chunk == nil {
		return 0
	}

	name := strings.ToLower(resultName(r))
	signature := strings.ToLower(resultSignature(r))
	content := strings.ToLower(r.Chunk.Content)

	var sum float64
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if strings.Contains(name, tok) {
			sum += nameMatchWeight
			if isExactWordMatch(name, tok) {
				sum += exactNameWordBonus
			}
		}
		if strings.Contains(signature, tok) {
			sum += signatureMatchWeight
		}
		if strings.Contains(content, tok) {
			sum += contentMatchWeight
		}
	}

	return sum * lexicalBoostScale
}

// isExactWordMatch reports whether tok appears in text as a whole word
// (word-boundary delimited), rather than merely as a substring.
func isExactWordMatch(text, tok string) bool {
	idx := strings.Index(text, tok)
	for idx != -1 {
		start := idx
		end := idx + len(tok)
		leftOK := start == 0 || !isWordByte(text[start-1])
		rightOK := end == len(text) || !isWordByte(text[end])
		if leftOK && rightOK {
			return true
		}
		next := strings.Index(text[idx+1:], tok)
		if next == -1 {
			break
		}
		idx = idx + 1 + next
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// resultName extracts the first symbol's name from a result's chunk, if any.
func resultName(r *SearchResult) string {
	if r.Chunk == nil || len(r.Chunk.Symbols) == 0 {
		return ""
	}
	return r.Chunk.Symbols[0].Name
}

// resultSignature extracts the first symbol's signature from a result's
// chunk, if any.
func resultSignature(r *SearchResult) string {
	if r.Chunk == nil || len(r.Chunk.Symbols) == 0 {
		return ""
	}
	return r.Chunk.Symbols[0].Signature
}

// clampUnit clamps v to the closed interval [0, 1].
func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
