// Package filter translates user-supplied path and glob filters into a
// safe query predicate. It is the sole producer of predicate strings the
// vector store trusts; no caller-supplied character reaches the store
// without first passing the whitelist in this package.
package filter

import (
	"regexp"
	"strings"

	"github.com/aman-cerp/semantic-code-mcp/internal/errors"
	"github.com/aman-cerp/semantic-code-mcp/internal/pathutil"
)

// maxPatternLength bounds any single filter input before validation.
const maxPatternLength = 500

// patternWhitelist matches the closed character set a path or glob filter
// may use. Anything outside it (quotes, semicolons, SQL keywords, backslash
// escapes) is rejected outright rather than escaped.
var patternWhitelist = regexp.MustCompile(`^[A-Za-z0-9_\-%]+$`)

// languageWhitelist matches the closed character set a translated language
// equality predicate's right-hand side may use.
var languageWhitelist = regexp.MustCompile(`^[a-z]+$`)

// extensionLanguage maps a file extension to the language tag used by the
// chunker and the store's language column. Extensions not present here fall
// through to the generic glob path rather than an equality predicate.
var extensionLanguage = map[string]string{
	".ts":   "typescript",
	".tsx":  "typescript",
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".py":   "python",
	".pyi":  "python",
	".go":   "go",
	".rs":   "rust",
	".java": "java",
	".rb":   "ruby",
	".php":  "php",
	".c":    "c",
	".h":    "c",
	".cc":   "cpp",
	".cpp":  "cpp",
	".hpp":  "cpp",
	".cs":   "csharp",
	".kt":   "kotlin",
	".swift": "swift",
	".md":   "markdown",
	".mdx":  "markdown",
}

// Options carries the user-supplied filter inputs recognized by the
// builder: a directory-prefix path and a file-pattern glob. Either may be
// empty.
type Options struct {
	// Path is a directory prefix; results must lie under it.
	Path string
	// FilePattern is a glob such as "*.ts" or "**/internal/**"; results must
	// match it.
	FilePattern string
}

// Predicate is an opaque, pre-validated query predicate string produced
// exclusively by Build. The store applies it without further escaping.
type Predicate string

// ValidatePattern reports whether a raw path or file-pattern filter input
// passes the whitelist: letters, digits, underscore, hyphen, percent, and
// at most maxPatternLength characters. It rejects SQL metacharacters
// (quotes, semicolons, whitespace, comment markers) by construction, since
// none of them appear in the whitelist.
func ValidatePattern(raw string) bool {
	if raw == "" {
		return true
	}
	if len(raw) > maxPatternLength {
		return false
	}
	return patternWhitelist.MatchString(sanitizeGlobChars(raw))
}

// sanitizeGlobChars rewrites the glob metacharacters this package
// translates (*, ?, /, .) into whitelist-safe placeholders before the
// whitelist check runs, so a legitimate glob like "**/*.go" isn't rejected
// for containing characters the whitelist otherwise forbids.
func sanitizeGlobChars(raw string) string {
	r := strings.NewReplacer(
		"**", "_",
		"*", "_",
		"?", "_",
		"/", "_",
		".", "_",
	)
	return r.Replace(raw)
}

// Build translates opts into a safe predicate. It returns (nil, nil) when
// both fields are empty -- no filtering is requested. It returns
// errors.InvalidFilter when either field fails the whitelist or exceeds the
// length bound; the caller must treat this as fatal to the enclosing
// request (see errors.IsFatal).
func Build(opts Options) (*Predicate, error) {
	var conditions []string

	if opts.Path != "" {
		cond, err := buildPathCondition(opts.Path)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, cond)
	}

	if opts.FilePattern != "" {
		cond, err := buildFilePatternCondition(opts.FilePattern)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, cond)
	}

	if len(conditions) == 0 {
		return nil, nil
	}

	joined := Predicate(strings.Join(conditions, " AND "))
	return &joined, nil
}

// Matches reports whether a chunk, identified by its id and language,
// satisfies p. An empty predicate matches everything. p is evaluated
// against the exact condition shapes Build emits ("id LIKE '{pattern}'",
// "language = '{value}'", joined by " AND ") rather than by a general SQL
// parser, since Build is p's only producer and its grammar is fixed.
func (p Predicate) Matches(chunkID, language string) bool {
	if p == "" {
		return true
	}
	for _, cond := range strings.Split(string(p), " AND ") {
		if !matchesCondition(cond, chunkID, language) {
			return false
		}
	}
	return true
}

// matchesCondition evaluates a single Build-emitted condition against a
// chunk's id and language.
func matchesCondition(cond, chunkID, language string) bool {
	switch {
	case strings.HasPrefix(cond, "id LIKE '") && strings.HasSuffix(cond, "'"):
		pattern := cond[len("id LIKE '") : len(cond)-1]
		return likeMatch(pattern, chunkID)
	case strings.HasPrefix(cond, "language = '") && strings.HasSuffix(cond, "'"):
		want := cond[len("language = '") : len(cond)-1]
		return language == want
	default:
		return false
	}
}

// likeMatch reports whether value satisfies a SQL LIKE pattern where '%'
// matches any run of characters and '_' matches exactly one. pattern
// contains only whitelist-safe literal characters plus '%'/'_', so it is
// compiled to a regexp by escaping every literal and translating the two
// wildcards -- no part of pattern reaches the regexp engine unescaped.
func likeMatch(pattern, value string) bool {
	var b strings.Builder
	b.WriteByte('^')
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	re, err := regexp.Compile(b.String())
	if err != nil {
		return false
	}
	return re.MatchString(value)
}

// buildPathCondition translates a directory-prefix filter into
// `id LIKE '{sanitized}%'`. The path is normalized the same way chunk ids
// are derived (separators and dots become underscores) so a path filter of
// "src/auth" matches ids minted from files under that directory.
func buildPathCondition(path string) (string, error) {
	if !ValidatePattern(path) {
		return "", errors.InvalidFilter("path filter contains characters outside the allowed set").
			WithDetail("path", path)
	}
	sanitized := sanitizeForLike(path)
	if !patternWhitelist.MatchString(sanitized) {
		return "", errors.InvalidFilter("path filter sanitizes to an unsafe value").
			WithDetail("path", path)
	}
	return "id LIKE '" + sanitized + "%'", nil
}

// buildFilePatternCondition translates a file_pattern glob. A pattern of
// the exact shape "*.ext" with a recognized extension becomes a language
// equality predicate; anything else (including an unrecognized extension)
// becomes a generic suffix LIKE predicate over id.
func buildFilePatternCondition(pattern string) (string, error) {
	if !ValidatePattern(pattern) {
		return "", errors.InvalidFilter("file_pattern contains characters outside the allowed set").
			WithDetail("file_pattern", pattern)
	}

	if lang, ok := extensionEquality(pattern); ok {
		if !languageWhitelist.MatchString(lang) {
			return "", errors.InvalidFilter("file_pattern resolves to an invalid language token").
				WithDetail("file_pattern", pattern)
		}
		return "language = '" + lang + "'", nil
	}

	sanitized := sanitizeGlobToLike(pattern)
	if !patternWhitelist.MatchString(sanitized) {
		return "", errors.InvalidFilter("file_pattern sanitizes to an unsafe value").
			WithDetail("file_pattern", pattern)
	}
	return "id LIKE '%" + sanitized + "'", nil
}

// extensionEquality reports the language a "*.ext" shaped pattern maps to,
// and whether pattern has that exact shape with a known extension.
func extensionEquality(pattern string) (string, bool) {
	if !strings.HasPrefix(pattern, "*.") {
		return "", false
	}
	rest := pattern[1:] // ".ext"
	if strings.ContainsAny(rest, "*?/") {
		return "", false
	}
	lang, ok := extensionLanguage[strings.ToLower(rest)]
	return lang, ok
}

// sanitizeForLike normalizes a path the same way chunk ids are minted:
// separators and dots become underscores.
func sanitizeForLike(path string) string {
	normalized := pathutil.Normalize(path)
	r := strings.NewReplacer("/", "_", ".", "_")
	return r.Replace(normalized)
}

// sanitizeGlobToLike translates glob metacharacters into LIKE equivalents:
// "**" and "*" become "%", "?" becomes "_", and separators/dots become
// underscores (matching id derivation), in that order.
func sanitizeGlobToLike(pattern string) string {
	normalized := pathutil.Normalize(pattern)
	normalized = strings.ReplaceAll(normalized, "**", "%")
	normalized = strings.ReplaceAll(normalized, "*", "%")
	normalized = strings.ReplaceAll(normalized, "?", "_")
	r := strings.NewReplacer("/", "_", ".", "_")
	return r.Replace(normalized)
}
