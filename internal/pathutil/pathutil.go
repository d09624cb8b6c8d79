// Package pathutil provides path normalization, chunk identity derivation,
// and root-containment checks shared by the chunker, index manager, and
// filter builder.
package pathutil

import (
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"unicode/utf8"
)

// byteOrderMark is the UTF-8 encoding of U+FEFF.
const byteOrderMark = "\ufeff"

// Normalize converts a path to forward-slash form, the canonical form used
// for display and for deriving chunk identifiers. It does not touch the
// filesystem.
func Normalize(path string) string {
	return filepath.ToSlash(path)
}

var idSanitizer = regexp.MustCompile(`[./\\]`)

// sanitizeForID replaces path separators and dots with underscores so the
// result is safe to embed in an identifier or a LIKE predicate.
func sanitizeForID(path string) string {
	return idSanitizer.ReplaceAllString(Normalize(path), "_")
}

// ChunkID derives a stable identifier for a chunk starting at startLine in
// path. The same (path, startLine) always produces the same id, regardless
// of the host platform's path separator.
//
//	ChunkID("src/utils/index.ts", 42) == "src_utils_index_ts_L42"
func ChunkID(path string, startLine int) string {
	return sanitizeForID(path) + "_L" + strconv.Itoa(startLine)
}

// PartChunkID derives the identifier for the partIndex'th split of an
// oversized chunk. partIndex is 1-based.
func PartChunkID(path string, startLine, partIndex int) string {
	return ChunkID(path, startLine) + "_p" + strconv.Itoa(partIndex)
}

// caseInsensitiveFS reports whether the host platform's filesystem is
// conventionally case-insensitive.
func caseInsensitiveFS() bool {
	return runtime.GOOS == "windows" || runtime.GOOS == "darwin"
}

// IsWithinRoot resolves both test and root to absolute, cleaned paths and
// reports whether test is root itself or a descendant of root. Resolution
// uses filepath.Abs (no symlink evaluation is performed, matching
// filepath.Clean semantics); comparison is case-insensitive on platforms
// whose native filesystem conventionally is.
func IsWithinRoot(test, root string) bool {
	absTest, err := filepath.Abs(test)
	if err != nil {
		return false
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	absTest = filepath.Clean(absTest)
	absRoot = filepath.Clean(absRoot)

	if caseInsensitiveFS() {
		absTest = strings.ToLower(absTest)
		absRoot = strings.ToLower(absRoot)
	}

	if absTest == absRoot {
		return true
	}
	return strings.HasPrefix(absTest, absRoot+string(filepath.Separator))
}

// StripBOM removes a single leading UTF-8 byte-order mark from content, if
// present. Interior BOMs (anywhere other than the first rune) are left
// untouched.
func StripBOM(content []byte) []byte {
	if len(content) >= len(byteOrderMark) && string(content[:len(byteOrderMark)]) == byteOrderMark {
		return content[len(byteOrderMark):]
	}
	// Also accept the raw 3-byte EF BB BF sequence directly, in case the
	// content was read without UTF-8 rune decoding.
	const rawBOM = "\xef\xbb\xbf"
	if len(content) >= len(rawBOM) && string(content[:len(rawBOM)]) == rawBOM {
		return content[len(rawBOM):]
	}
	return content
}

// ValidUTF8Prefix reports whether content begins with a structurally valid
// UTF-8 rune. Empty content counts as valid.
func ValidUTF8Prefix(content []byte) bool {
	if len(content) == 0 {
		return true
	}
	r, size := utf8.DecodeRune(content)
	return r != utf8.RuneError || size > 1
}
