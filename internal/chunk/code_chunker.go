package chunk

import (
	"context"
	"fmt"
	"strings"

	"github.com/aman-cerp/semantic-code-mcp/internal/pathutil"
)

// CodeChunker implements AST-aware code chunking using tree-sitter. When a
// file's language has no registered grammar, or the grammar fails to parse
// the content, it falls back to fixed-size line windows.
type CodeChunker struct {
	parser    *Parser
	extractor *SymbolExtractor
	registry  *LanguageRegistry
}

// NewCodeChunker creates a new code chunker backed by the default language
// registry.
func NewCodeChunker() *CodeChunker {
	registry := DefaultRegistry()
	return &CodeChunker{
		parser:    NewParserWithRegistry(registry),
		extractor: NewSymbolExtractorWithRegistry(registry),
		registry:  registry,
	}
}

// Close releases chunker resources.
func (c *CodeChunker) Close() {
	if c.parser != nil {
		c.parser.Close()
	}
}

// SupportedExtensions returns file extensions this chunker handles via
// tree-sitter. Files with other extensions still chunk successfully through
// the line-window fallback; this list only affects which files attempt AST
// parsing.
func (c *CodeChunker) SupportedExtensions() []string {
	return c.registry.SupportedExtensions()
}

// Chunk splits a file into semantic chunks.
func (c *CodeChunker) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	content := pathutil.StripBOM(file.Content)
	if len(strings.TrimSpace(string(content))) == 0 {
		return nil, nil
	}

	if _, supported := c.registry.GetByName(file.Language); !supported {
		return c.chunkByLines(file.Path, file.Language, content), nil
	}

	tree, err := c.parser.Parse(ctx, content, file.Language)
	if err != nil {
		return c.chunkByLines(file.Path, file.Language, content), nil
	}

	symbolNodes := c.findSymbolNodes(tree, file.Language)
	if len(symbolNodes) == 0 {
		return c.chunkByLines(file.Path, file.Language, content), nil
	}

	var chunks []*Chunk
	for _, info := range symbolNodes {
		chunks = append(chunks, c.chunksFromSymbol(info, tree, file)...)
	}

	if len(chunks) == 0 {
		return c.chunkByLines(file.Path, file.Language, content), nil
	}
	return chunks, nil
}

type symbolNodeInfo struct {
	node   *Node
	symbol *Symbol
}

// findSymbolNodes finds all symbol-defining nodes in the tree.
func (c *CodeChunker) findSymbolNodes(tree *Tree, language string) []*symbolNodeInfo {
	config, ok := c.registry.GetByName(language)
	if !ok {
		return nil
	}

	symbolTypes := make(map[string]SymbolType)
	for _, t := range config.FunctionTypes {
		symbolTypes[t] = SymbolTypeFunction
	}
	for _, t := range config.MethodTypes {
		symbolTypes[t] = SymbolTypeMethod
	}
	for _, t := range config.ClassTypes {
		symbolTypes[t] = SymbolTypeClass
	}
	for _, t := range config.InterfaceTypes {
		symbolTypes[t] = SymbolTypeInterface
	}
	for _, t := range config.TypeDefTypes {
		symbolTypes[t] = SymbolTypeType
	}
	for _, t := range config.ConstantTypes {
		symbolTypes[t] = SymbolTypeConstant
	}
	for _, t := range config.VariableTypes {
		symbolTypes[t] = SymbolTypeVariable
	}

	var symbolNodes []*symbolNodeInfo
	tree.Root.Walk(func(n *Node) bool {
		if n.Type == "lexical_declaration" || n.Type == "variable_declaration" {
			if sym := c.extractor.extractSpecialSymbol(n, tree.Source, language); sym != nil {
				symbolNodes = append(symbolNodes, &symbolNodeInfo{node: n, symbol: sym})
				return true
			}
		}

		if symType, isSymbol := symbolTypes[n.Type]; isSymbol {
			if sym := c.extractSymbol(n, tree, symType, language); sym != nil {
				symbolNodes = append(symbolNodes, &symbolNodeInfo{node: n, symbol: sym})
			}
		}
		return true
	})

	return symbolNodes
}

func (c *CodeChunker) extractSymbol(n *Node, tree *Tree, symType SymbolType, language string) *Symbol {
	config, _ := c.registry.GetByName(language)
	name := c.extractor.extractName(n, tree.Source, config, language)
	if name == "" {
		return nil
	}

	return &Symbol{
		Name:       name,
		Type:       symType,
		StartLine:  int(n.StartPoint.Row) + 1,
		EndLine:    int(n.EndPoint.Row) + 1,
		Signature:  c.extractor.extractSignature(n, tree.Source, symType, language),
		DocComment: c.docstring(n, tree.Source, language),
	}
}

// docstring returns the documentation attached to a symbol node. Python
// looks inside the body for a leading string-literal statement; every other
// supported language looks at the comment lines immediately preceding the
// declaration.
func (c *CodeChunker) docstring(n *Node, source []byte, language string) string {
	if language == "python" {
		if doc := pythonDocstring(n, source); doc != "" {
			return doc
		}
	}
	return c.extractDocComment(n, source, language)
}

// pythonDocstring looks for a leading string-literal expression statement
// inside a function or class body, the idiomatic location of a Python
// docstring.
func pythonDocstring(n *Node, source []byte) string {
	var body *Node
	for _, child := range n.Children {
		if child.Type == "block" {
			body = child
			break
		}
	}
	if body == nil || len(body.Children) == 0 {
		return ""
	}

	first := body.Children[0]
	if first.Type != "expression_statement" || len(first.Children) == 0 {
		return ""
	}
	str := first.Children[0]
	if str.Type != "string" {
		return ""
	}

	raw := str.GetContent(source)
	raw = strings.TrimPrefix(raw, "r")
	for _, quote := range []string{`"""`, "'''", `"`, "'"} {
		raw = strings.TrimPrefix(raw, quote)
		raw = strings.TrimSuffix(raw, quote)
	}
	return strings.TrimSpace(raw)
}

// extractDocComment walks backwards from a node's start line collecting
// contiguous single-line comments.
func (c *CodeChunker) extractDocComment(n *Node, source []byte, language string) string {
	lineStart := int(n.StartByte)
	for lineStart > 0 && source[lineStart-1] != '\n' {
		lineStart--
	}
	if lineStart <= 1 {
		return ""
	}

	var commentLines []string
	pos := lineStart - 1

	for pos > 0 {
		prevLineEnd := pos
		pos--
		for pos > 0 && source[pos] != '\n' {
			pos--
		}
		prevLineStart := pos
		if pos > 0 {
			prevLineStart++
		}

		prevLine := strings.TrimSpace(string(source[prevLineStart:prevLineEnd]))

		switch language {
		case "go", "typescript", "tsx", "javascript", "jsx", "java", "c", "rust", "php":
			if strings.HasPrefix(prevLine, "//") {
				commentLines = append([]string{strings.TrimPrefix(strings.TrimPrefix(prevLine, "///"), "//")}, commentLines...)
				continue
			}
		case "python", "ruby":
			if strings.HasPrefix(prevLine, "#") {
				commentLines = append([]string{strings.TrimPrefix(prevLine, "#")}, commentLines...)
				continue
			}
		}

		break
	}

	if len(commentLines) == 0 {
		return ""
	}
	return strings.TrimSpace(strings.Join(commentLines, "\n"))
}

// chunksFromSymbol turns one symbol node into one or more chunks, splitting
// the node's content if it exceeds MaxChunkChars.
func (c *CodeChunker) chunksFromSymbol(info *symbolNodeInfo, tree *Tree, file *FileInput) []*Chunk {
	content := string(tree.Source[info.node.StartByte:info.node.EndByte])
	startLine := info.symbol.StartLine

	if len(content) <= MaxChunkChars {
		chunk := &Chunk{
			ID:        pathutil.ChunkID(file.Path, startLine),
			FilePath:  file.Path,
			Language:  file.Language,
			NodeKind:  info.symbol.Type.nodeKind(),
			Name:      info.symbol.Name,
			Signature: info.symbol.Signature,
			Docstring: info.symbol.DocComment,
			Content:   content,
			StartLine: startLine,
			EndLine:   info.symbol.EndLine,
		}
		if !meetsSizeFloor(chunk) {
			return nil
		}
		return []*Chunk{chunk}
	}

	return splitContent(file, content, startLine, info.symbol.Type.nodeKind(), info.symbol.Name, info.symbol.Signature, info.symbol.DocComment)
}

// splitContent breaks oversized content into line-aligned parts of at most
// MaxChunkChars, each overlapping the previous part by OverlapRatio of its
// size. Only the first part keeps the symbol's signature/docstring; later
// parts are plain continuations.
func splitContent(file *FileInput, content string, startLine int, kind NodeKind, name, signature, doc string) []*Chunk {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 {
		return nil
	}

	avgLineLen := len(content) / len(lines)
	if avgLineLen == 0 {
		avgLineLen = 1
	}
	linesPerPart := MaxChunkChars / avgLineLen
	if linesPerPart < 1 {
		linesPerPart = 1
	}
	overlapLines := int(float64(linesPerPart) * OverlapRatio)

	var chunks []*Chunk
	for i := 0; i < len(lines); {
		end := i + linesPerPart
		if end > len(lines) {
			end = len(lines)
		}

		partContent := strings.Join(lines[i:end], "\n")
		partStartLine := startLine + i
		partEndLine := startLine + end - 1
		partIndex := len(chunks) + 1

		chunk := &Chunk{
			FilePath:  file.Path,
			Language:  file.Language,
			NodeKind:  kind,
			StartLine: partStartLine,
			EndLine:   partEndLine,
			Content:   partContent,
		}
		if partIndex == 1 {
			chunk.ID = pathutil.ChunkID(file.Path, startLine)
			chunk.Name = name
			chunk.Signature = signature
			chunk.Docstring = doc
		} else {
			chunk.ID = pathutil.PartChunkID(file.Path, startLine, partIndex)
			chunk.Name = fmt.Sprintf("%s_part%d", name, partIndex)
		}

		if meetsSizeFloor(chunk) {
			chunks = append(chunks, chunk)
		}

		if end >= len(lines) {
			break
		}
		i = end - overlapLines
		if i <= 0 {
			i = end
		}
	}

	return chunks
}

// meetsSizeFloor reports whether a chunk carries enough content to be worth
// indexing.
func meetsSizeFloor(chunk *Chunk) bool {
	if len(strings.TrimSpace(chunk.Content)) < MinChunkChars {
		return false
	}
	return chunk.EndLine-chunk.StartLine+1 >= MinChunkLines
}

// chunkByLines is the fallback for unsupported languages, parse failures,
// and files with no extractable symbols.
func (c *CodeChunker) chunkByLines(path, language string, content []byte) []*Chunk {
	text := string(content)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	linesPerChunk := MaxChunkChars / 80
	if linesPerChunk < 1 {
		linesPerChunk = 1
	}
	overlapLines := int(float64(linesPerChunk) * OverlapRatio)

	var chunks []*Chunk
	for i := 0; i < len(lines); {
		end := i + linesPerChunk
		if end > len(lines) {
			end = len(lines)
		}

		chunkContent := strings.Join(lines[i:end], "\n")
		startLine := i + 1
		endLine := end

		chunk := &Chunk{
			ID:        pathutil.ChunkID(path, startLine),
			FilePath:  path,
			Language:  language,
			NodeKind:  NodeKindFallbackChunk,
			Content:   chunkContent,
			StartLine: startLine,
			EndLine:   endLine,
		}
		if meetsSizeFloor(chunk) {
			chunks = append(chunks, chunk)
		}

		if end >= len(lines) {
			break
		}
		i = end - overlapLines
		if i <= 0 {
			i = end
		}
	}

	return chunks
}

// NewMarkdownChunker creates a chunker for markdown/documentation files.
// Markdown has no registered tree-sitter grammar in the language registry,
// so this reuses CodeChunker: every markdown file falls through to the
// line-windowed fallback path automatically.
func NewMarkdownChunker() *CodeChunker {
	return NewCodeChunker()
}
