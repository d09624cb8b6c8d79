package gitignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matcherFor(patterns ...string) *Matcher {
	m := New()
	for _, p := range patterns {
		m.AddPattern(p)
	}
	return m
}

func TestBasenamePatterns(t *testing.T) {
	m := matcherFor("*.log")

	assert.True(t, m.Match("debug.log", false))
	assert.True(t, m.Match("logs/debug.log", false))
	assert.False(t, m.Match("debug.txt", false))
	assert.False(t, m.Match("log", false))
}

func TestDirectoryOnlyPatterns(t *testing.T) {
	m := matcherFor("build/")

	assert.True(t, m.Match("build", true))
	assert.True(t, m.Match("build/output.bin", false))
	assert.True(t, m.Match("sub/build/output.bin", false))
	// A plain file named "build" is not a directory.
	assert.False(t, m.Match("build", false))
}

func TestAnchoredPatterns(t *testing.T) {
	m := matcherFor("/TODO")

	assert.True(t, m.Match("TODO", false))
	assert.False(t, m.Match("docs/TODO", false))
}

func TestInteriorSlashAnchors(t *testing.T) {
	m := matcherFor("doc/frotz")

	assert.True(t, m.Match("doc/frotz", false))
	assert.False(t, m.Match("a/doc/frotz", false))
}

func TestNegationUnignores(t *testing.T) {
	m := matcherFor("*.log", "!important.log")

	assert.True(t, m.Match("debug.log", false))
	assert.False(t, m.Match("important.log", false))
}

func TestNegationOrderMatters(t *testing.T) {
	// The later rule wins: re-ignored after the negation.
	m := matcherFor("!keep.log", "*.log")
	assert.True(t, m.Match("keep.log", false))
}

func TestDoubleStarPatterns(t *testing.T) {
	m := matcherFor("**/node_modules")
	assert.True(t, m.Match("node_modules", false))
	assert.True(t, m.Match("a/b/node_modules", false))

	m = matcherFor("a/**/b")
	assert.True(t, m.Match("a/b", false))
	assert.True(t, m.Match("a/x/b", false))
	assert.True(t, m.Match("a/x/y/b", false))
	assert.False(t, m.Match("c/a/b", false))

	m = matcherFor("logs/**")
	assert.True(t, m.Match("logs/a/b/c.txt", false))
}

func TestQuestionMarkAndCharClass(t *testing.T) {
	m := matcherFor("file?.txt")
	assert.True(t, m.Match("file1.txt", false))
	assert.False(t, m.Match("file10.txt", false))

	m = matcherFor("[Dd]ebug.log")
	assert.True(t, m.Match("Debug.log", false))
	assert.True(t, m.Match("debug.log", false))
	assert.False(t, m.Match("rebug.log", false))
}

func TestCommentsAndBlanksIgnored(t *testing.T) {
	m := matcherFor("# a comment", "", "   ", "*.tmp")

	assert.True(t, m.Match("x.tmp", false))
	assert.False(t, m.Match("# a comment", false))
}

func TestEscapedHashAndBang(t *testing.T) {
	m := matcherFor(`\#literal`)
	assert.True(t, m.Match("#literal", false))

	m = matcherFor(`\!literal`)
	assert.True(t, m.Match("!literal", false))
}

func TestBasedPatternsOnlyApplyUnderBase(t *testing.T) {
	m := New()
	m.AddPatternWithBase("*.gen.go", "pkg/api")

	assert.True(t, m.Match("pkg/api/client.gen.go", false))
	assert.False(t, m.Match("pkg/other/client.gen.go", false))
	assert.False(t, m.Match("client.gen.go", false))
}

func TestWindowsSeparatorsNormalized(t *testing.T) {
	m := matcherFor("build/")
	assert.True(t, m.Match(filepath.FromSlash("build/out.txt"), false))
}

func TestAddFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".gitignore")
	require.NoError(t, os.WriteFile(path, []byte("*.log\n!keep.log\nbuild/\n"), 0o644))

	m := New()
	require.NoError(t, m.AddFromFile(path, ""))

	assert.True(t, m.Match("x.log", false))
	assert.False(t, m.Match("keep.log", false))
	assert.True(t, m.Match("build/a", false))
}

func TestAddFromFileMissing(t *testing.T) {
	m := New()
	require.Error(t, m.AddFromFile(filepath.Join(t.TempDir(), "absent"), ""))
}

func TestParsePatterns(t *testing.T) {
	content := "# header\n\n*.log\nbuild/\n  \n!keep.log\n"
	assert.Equal(t, []string{"*.log", "build/", "!keep.log"}, ParsePatterns(content))
}

func TestDiffPatterns(t *testing.T) {
	oldContent := "*.log\nbuild/\n"
	newContent := "*.log\ndist/\n"

	added, removed := DiffPatterns(oldContent, newContent)
	assert.Equal(t, []string{"dist/"}, added)
	assert.Equal(t, []string{"build/"}, removed)

	added, removed = DiffPatterns(newContent, newContent)
	assert.Empty(t, added)
	assert.Empty(t, removed)
}

func TestMatchesAnyPattern(t *testing.T) {
	patterns := []string{"*.log", "build/"}
	assert.True(t, MatchesAnyPattern("x.log", patterns))
	assert.True(t, MatchesAnyPattern("build/out", patterns))
	assert.False(t, MatchesAnyPattern("main.go", patterns))
	assert.False(t, MatchesAnyPattern("anything", nil))
}
