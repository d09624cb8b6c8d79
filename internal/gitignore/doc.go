// Package gitignore implements gitignore pattern matching, following
// the syntax documented at https://git-scm.com/docs/gitignore:
// negation with !, directory-only patterns with a trailing slash,
// anchoring by leading or interior slashes, and * / ** / ? / [...]
// globbing. The scanner uses it to honor a project's own ignore files
// during indexing.
package gitignore
