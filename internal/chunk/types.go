package chunk

import (
	"context"
)

// Chunk boundary defaults. A chunk larger than MaxChunkChars is split into
// parts, with OverlapRatio of the trailing content repeated at the start of
// the next part so a symbol split across a boundary is not lost to either
// half. A chunk smaller than MinChunkChars/MinChunkLines carries too little
// signal to be worth indexing and is discarded.
const (
	MaxChunkChars = 1500
	OverlapRatio  = 0.15
	MinChunkChars = 50
	MinChunkLines = 2
	TokensPerChar = 4 // rough approximation, kept for legacy size estimates
)

// NodeKind classifies the AST construct (or absence of one) a chunk was
// extracted from.
type NodeKind string

const (
	NodeKindFunction      NodeKind = "function"
	NodeKindMethod        NodeKind = "method"
	NodeKindClass         NodeKind = "class"
	NodeKindInterface     NodeKind = "interface"
	NodeKindType          NodeKind = "type"
	NodeKindConstant      NodeKind = "constant"
	NodeKindVariable      NodeKind = "variable"
	NodeKindFallbackChunk NodeKind = "fallback_chunk"
)

// Chunk is a retrievable unit of source content.
type Chunk struct {
	ID        string // derived via pathutil.ChunkID/PartChunkID
	FilePath  string // relative to the indexed root, forward-slash form
	Language  string // go, typescript, python, etc.; empty for unrecognized files
	NodeKind  NodeKind
	Name      string // symbol name; empty for fallback_chunk
	Signature string // first line of a function/class/type declaration
	Docstring string // leading comment or string-literal docstring, if any
	Content   string // exact source text covered by [StartLine, EndLine]
	StartLine int    // 1-indexed
	EndLine   int    // inclusive
}

// FileInput is input to the Chunker interface.
type FileInput struct {
	Path     string // relative path
	Content  []byte // file content
	Language string // go, typescript, python, etc.
}

// Chunker splits a file into semantic chunks.
type Chunker interface {
	Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error)
	SupportedExtensions() []string
}

// SymbolType represents the kind of code symbol found while walking an AST.
type SymbolType string

const (
	SymbolTypeFunction  SymbolType = "function"
	SymbolTypeClass     SymbolType = "class"
	SymbolTypeInterface SymbolType = "interface"
	SymbolTypeType      SymbolType = "type"
	SymbolTypeVariable  SymbolType = "variable"
	SymbolTypeConstant  SymbolType = "constant"
	SymbolTypeMethod    SymbolType = "method"
)

// nodeKind maps the internal symbol classification to the external node_kind
// vocabulary.
func (t SymbolType) nodeKind() NodeKind {
	switch t {
	case SymbolTypeFunction:
		return NodeKindFunction
	case SymbolTypeClass:
		return NodeKindClass
	case SymbolTypeInterface:
		return NodeKindInterface
	case SymbolTypeType:
		return NodeKindType
	case SymbolTypeConstant:
		return NodeKindConstant
	case SymbolTypeVariable:
		return NodeKindVariable
	case SymbolTypeMethod:
		return NodeKindMethod
	default:
		return NodeKindFallbackChunk
	}
}

// Symbol represents a code symbol extracted from parsing.
type Symbol struct {
	Name       string
	Type       SymbolType
	StartLine  int
	EndLine    int
	Signature  string
	DocComment string
}

// Tree represents a parsed AST.
type Tree struct {
	Root     *Node
	Source   []byte
	Language string
}

// Node represents a node in the AST.
type Node struct {
	Type       string
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
	Children   []*Node
	HasError   bool
}

// Point represents a position in the source code.
type Point struct {
	Row    uint32 // 0-indexed line number
	Column uint32
}

// LanguageConfig holds configuration for a supported language.
type LanguageConfig struct {
	Name       string
	Extensions []string

	// Node types that indicate function declarations
	FunctionTypes []string

	// Node types that indicate class/struct definitions
	ClassTypes []string

	// Node types that indicate interface definitions
	InterfaceTypes []string

	// Node types that indicate method definitions
	MethodTypes []string

	// Node types that indicate type definitions
	TypeDefTypes []string

	// Node types that indicate constant declarations
	ConstantTypes []string

	// Node types that indicate variable declarations
	VariableTypes []string

	// Node type for name identifier
	NameField string
}
