package store

import (
	"regexp"
	"strings"
	"unicode"
)

// identifierRunPattern pulls alphanumeric-plus-underscore runs out of
// source text; everything else is a separator.
var identifierRunPattern = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// TokenizeCode tokenizes source text the way a code search needs:
// identifiers split on underscores and camel-case humps, everything
// lowercased, tokens under two characters dropped. "getUserById"
// indexes as get, user, by, id.
func TokenizeCode(text string) []string {
	var tokens []string

	for _, word := range identifierRunPattern.FindAllString(text, -1) {
		for _, t := range SplitCodeToken(word) {
			lower := strings.ToLower(t)
			if len(lower) >= 2 {
				tokens = append(tokens, lower)
			}
		}
	}
	return tokens
}

// SplitCodeToken splits one identifier on underscores, then on
// camel-case humps within each part.
func SplitCodeToken(token string) []string {
	if !strings.Contains(token, "_") {
		return SplitCamelCase(token)
	}

	var result []string
	for _, part := range strings.Split(token, "_") {
		if part != "" {
			result = append(result, SplitCamelCase(part)...)
		}
	}
	return result
}

// SplitCamelCase splits camelCase and PascalCase runs, keeping
// acronyms whole: "parseHTTPRequest" becomes parse, HTTP, Request.
func SplitCamelCase(s string) []string {
	if s == "" {
		return []string{}
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

			// A boundary sits before an uppercase rune that either
			// follows lowercase (camelCase hump) or precedes lowercase
			// (end of an acronym run, as in HTTPHandler).
			if prevIsLower || nextIsLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

// FilterStopWords drops tokens found in the stop map.
func FilterStopWords(tokens []string, stopWords map[string]struct{}) []string {
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStop := stopWords[strings.ToLower(token)]; !isStop {
			result = append(result, token)
		}
	}
	return result
}

// BuildStopWordMap lowers a stop list into a lookup set.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}
