package chunk

import (
	"strings"
)

// SymbolExtractor walks a parsed tree and pulls out the named
// constructs: functions, methods, classes, interfaces, types,
// constants, variables.
type SymbolExtractor struct {
	registry *LanguageRegistry
}

// NewSymbolExtractor uses the default language registry.
func NewSymbolExtractor() *SymbolExtractor {
	return &SymbolExtractor{registry: DefaultRegistry()}
}

// NewSymbolExtractorWithRegistry uses a caller-supplied registry.
func NewSymbolExtractorWithRegistry(registry *LanguageRegistry) *SymbolExtractor {
	return &SymbolExtractor{registry: registry}
}

// Extract returns every symbol found in the tree, in source order.
// Unknown languages yield an empty slice, never nil.
func (e *SymbolExtractor) Extract(tree *Tree, source []byte) []*Symbol {
	if tree == nil || tree.Root == nil {
		return []*Symbol{}
	}

	config, ok := e.registry.GetByName(tree.Language)
	if !ok {
		return []*Symbol{}
	}

	var symbols []*Symbol
	tree.Root.Walk(func(n *Node) bool {
		if symbol := e.extractSymbolFromNode(n, source, config, tree.Language); symbol != nil {
			symbols = append(symbols, symbol)
		}
		return true
	})
	return symbols
}

// classifyNode maps a node type onto a symbol type via the language's
// node-kind table.
func classifyNode(nodeType string, config *LanguageConfig) (SymbolType, bool) {
	kinds := []struct {
		types      []string
		symbolType SymbolType
	}{
		{config.FunctionTypes, SymbolTypeFunction},
		{config.MethodTypes, SymbolTypeMethod},
		{config.ClassTypes, SymbolTypeClass},
		{config.InterfaceTypes, SymbolTypeInterface},
		{config.TypeDefTypes, SymbolTypeType},
		{config.ConstantTypes, SymbolTypeConstant},
		{config.VariableTypes, SymbolTypeVariable},
	}
	for _, k := range kinds {
		for _, t := range k.types {
			if nodeType == t {
				return k.symbolType, true
			}
		}
	}
	return "", false
}

func (e *SymbolExtractor) extractSymbolFromNode(n *Node, source []byte, config *LanguageConfig, language string) *Symbol {
	symbolType, found := classifyNode(n.Type, config)
	if !found {
		// Arrow functions and function-valued const/let declarations
		// don't sit in the node-kind tables but still name a function.
		return e.extractSpecialSymbol(n, source, language)
	}

	name := e.extractName(n, source, config, language)
	if name == "" {
		return nil
	}

	return &Symbol{
		Name:       name,
		Type:       symbolType,
		StartLine:  int(n.StartPoint.Row) + 1, // tree-sitter rows are 0-indexed
		EndLine:    int(n.EndPoint.Row) + 1,
		Signature:  e.extractSignature(n, source, symbolType, language),
		DocComment: e.extractDocComment(n, source, language),
	}
}

// extractName finds the declared name under a symbol node. Grammars
// disagree about where the name lives, so the main languages get
// dedicated walks and everything else uses the first identifier-like
// child (C, Java, Rust, and PHP). C function names are read from inside
// their function or pointer declarator; Java skips type identifiers,
// which there name a return or field type rather than the declaration.
func (e *SymbolExtractor) extractName(n *Node, source []byte, config *LanguageConfig, language string) string {
	switch language {
	case "go":
		return e.extractGoName(n, source)
	case "typescript", "tsx":
		return e.extractTypeScriptName(n, source)
	case "javascript", "jsx":
		return e.extractJavaScriptName(n, source)
	case "python":
		return e.extractPythonName(n, source)
	case "ruby":
		return e.extractRubyName(n, source)
	default:
		for _, child := range n.Children {
			if child.Type == "function_declarator" || child.Type == "pointer_declarator" {
				return e.extractName(child, source, config, language)
			}
		}
		for _, child := range n.Children {
			switch child.Type {
			case "identifier", "name", "field_identifier":
				return child.GetContent(source)
			case "type_identifier":
				if language != "java" {
					return child.GetContent(source)
				}
			}
		}
	}
	return ""
}

func (e *SymbolExtractor) extractRubyName(n *Node, source []byte) string {
	// Ruby class and module names parse as "constant" nodes.
	for _, child := range n.Children {
		switch child.Type {
		case "constant", "identifier":
			return child.GetContent(source)
		}
	}
	return ""
}

func (e *SymbolExtractor) extractGoName(n *Node, source []byte) string {
	// The name's location depends on the declaration form: plain
	// identifier for functions, field_identifier for methods, and a
	// spec child for type/const/var blocks.
	switch n.Type {
	case "function_declaration":
		for _, child := range n.Children {
			if child.Type == "identifier" {
				return child.GetContent(source)
			}
		}
	case "method_declaration":
		for _, child := range n.Children {
			if child.Type == "field_identifier" {
				return child.GetContent(source)
			}
		}
	case "type_declaration":
		return firstGrandchildContent(n, "type_spec", "type_identifier", source)
	case "const_declaration":
		return firstGrandchildContent(n, "const_spec", "identifier", source)
	case "var_declaration":
		return firstGrandchildContent(n, "var_spec", "identifier", source)
	}
	return ""
}

// firstGrandchildContent finds the first specType child, then its
// first nameType child, and returns that node's text. Grouped Go
// declarations (const (...) blocks) report their first name.
func firstGrandchildContent(n *Node, specType, nameType string, source []byte) string {
	for _, child := range n.Children {
		if child.Type != specType {
			continue
		}
		for _, grandchild := range child.Children {
			if grandchild.Type == nameType {
				return grandchild.GetContent(source)
			}
		}
	}
	return ""
}

func (e *SymbolExtractor) extractTypeScriptName(n *Node, source []byte) string {
	if n.Type == "lexical_declaration" || n.Type == "variable_declaration" {
		return firstGrandchildContent(n, "variable_declarator", "identifier", source)
	}
	for _, child := range n.Children {
		if child.Type == "identifier" || child.Type == "type_identifier" {
			return child.GetContent(source)
		}
	}
	return ""
}

func (e *SymbolExtractor) extractJavaScriptName(n *Node, source []byte) string {
	if n.Type == "lexical_declaration" || n.Type == "variable_declaration" {
		return firstGrandchildContent(n, "variable_declarator", "identifier", source)
	}
	for _, child := range n.Children {
		if child.Type == "identifier" {
			return child.GetContent(source)
		}
	}
	return ""
}

func (e *SymbolExtractor) extractPythonName(n *Node, source []byte) string {
	for _, child := range n.Children {
		if child.Type == "identifier" {
			return child.GetContent(source)
		}
	}
	return ""
}

func (e *SymbolExtractor) extractSpecialSymbol(n *Node, source []byte, language string) *Symbol {
	switch language {
	case "typescript", "tsx", "javascript", "jsx":
		if n.Type == "lexical_declaration" || n.Type == "variable_declaration" {
			return e.extractJSVariableFunctionSymbol(n, source)
		}
	}
	return nil
}

// extractJSVariableFunctionSymbol recognizes `const f = () => {}` and
// `const f = function() {}`: a declarator whose initializer is a
// function counts as a function symbol named after the variable.
func (e *SymbolExtractor) extractJSVariableFunctionSymbol(n *Node, source []byte) *Symbol {
	for _, child := range n.Children {
		if child.Type != "variable_declarator" {
			continue
		}

		var name string
		var hasFunction bool
		for _, grandchild := range child.Children {
			switch grandchild.Type {
			case "identifier":
				name = grandchild.GetContent(source)
			case "arrow_function", "function", "function_expression":
				hasFunction = true
			}
		}

		if name != "" && hasFunction {
			return &Symbol{
				Name:      name,
				Type:      SymbolTypeFunction,
				StartLine: int(n.StartPoint.Row) + 1,
				EndLine:   int(n.EndPoint.Row) + 1,
				Signature: e.extractFunctionSignature(n.GetContent(source), "javascript"),
			}
		}
	}
	return nil
}

// extractDocComment looks at the single line above the symbol for a
// line comment. Python is excluded: its docstrings live inside the
// body and are handled by the chunker's docstring extraction instead.
func (e *SymbolExtractor) extractDocComment(n *Node, source []byte, language string) string {
	if n.StartPoint.Row == 0 {
		return ""
	}

	lineStart := int(n.StartByte)
	for lineStart > 0 && source[lineStart-1] != '\n' {
		lineStart--
	}
	if lineStart <= 1 {
		return ""
	}

	prevLineEnd := lineStart - 1
	prevLineStart := prevLineEnd - 1
	for prevLineStart > 0 && source[prevLineStart-1] != '\n' {
		prevLineStart--
	}
	prevLine := strings.TrimSpace(string(source[prevLineStart:prevLineEnd]))

	switch language {
	case "go", "javascript", "jsx", "typescript", "tsx":
		if strings.HasPrefix(prevLine, "//") {
			return strings.TrimPrefix(prevLine, "//")
		}
	case "python":
		return ""
	}
	return ""
}

// extractSignature renders the declaration head: everything up to the
// body delimiter, so an embedding model sees the interface without the
// implementation.
func (e *SymbolExtractor) extractSignature(n *Node, source []byte, symbolType SymbolType, language string) string {
	content := n.GetContent(source)
	if content == "" {
		return ""
	}

	switch symbolType {
	case SymbolTypeFunction, SymbolTypeMethod:
		return e.extractFunctionSignature(content, language)
	case SymbolTypeClass, SymbolTypeInterface, SymbolTypeType:
		return e.extractTypeSignature(content, language)
	}
	return ""
}

func (e *SymbolExtractor) extractFunctionSignature(content, language string) string {
	lines := strings.SplitN(content, "\n", 2)
	if len(lines) == 0 {
		return ""
	}
	firstLine := strings.TrimSpace(lines[0])

	switch language {
	case "python":
		// def name(params): — keep the colon.
		return firstLine
	default:
		// Brace languages: cut before the opening brace.
		if idx := strings.Index(firstLine, "{"); idx != -1 {
			return strings.TrimSpace(firstLine[:idx])
		}
		return firstLine
	}
}

func (e *SymbolExtractor) extractTypeSignature(content, language string) string {
	lines := strings.SplitN(content, "\n", 2)
	if len(lines) == 0 {
		return ""
	}
	firstLine := strings.TrimSpace(lines[0])

	if language == "python" {
		return firstLine
	}
	if idx := strings.Index(firstLine, "{"); idx != -1 {
		return strings.TrimSpace(firstLine[:idx])
	}
	return firstLine
}
