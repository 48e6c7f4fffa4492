// Package tsparser implements parser.Parser on top of tree-sitter grammars.
package tsparser

import (
	"fmt"

	"github.com/0x5457/ws-index/internal/lang"
	"github.com/0x5457/ws-index/internal/models"
	"github.com/0x5457/ws-index/internal/parser"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	sittergo "github.com/tree-sitter/tree-sitter-go/bindings/go"
	sitterjavascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	sitterpython "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tstypes "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
	"go.uber.org/zap"
)

// capture turns a matched node into zero or more symbols.
type capture func(n *tree_sitter.Node, code []byte) []models.SymbolRecord

type grammar struct {
	language func() *tree_sitter.Language
	captures map[string]capture
	// scopes are node kinds whose descendants are not top-level visible.
	scopes map[string]bool
}

var ecmaCaptures = map[string]capture{
	"function_declaration":           named(models.SymbolFunction),
	"generator_function_declaration": named(models.SymbolFunction),
	"function_signature":             named(models.SymbolFunction),
	"class_declaration":              named(models.SymbolClass),
	"abstract_class_declaration":     named(models.SymbolClass),
	"interface_declaration":          named(models.SymbolInterface),
	"type_alias_declaration":         named(models.SymbolType),
	"enum_declaration":               named(models.SymbolEnum),
	"lexical_declaration":            ecmaVariables,
	"variable_declaration":           ecmaVariables,
}

var ecmaScopes = set(
	"function_declaration", "generator_function_declaration", "function_expression",
	"function", "generator_function", "arrow_function", "method_definition",
	"class_declaration", "abstract_class_declaration", "class", "class_static_block",
)

var grammars = map[lang.Language]grammar{
	lang.TypeScript: {
		language: func() *tree_sitter.Language { return tree_sitter.NewLanguage(tstypes.LanguageTypescript()) },
		captures: ecmaCaptures,
		scopes:   ecmaScopes,
	},
	lang.TSX: {
		language: func() *tree_sitter.Language { return tree_sitter.NewLanguage(tstypes.LanguageTSX()) },
		captures: ecmaCaptures,
		scopes:   ecmaScopes,
	},
	lang.JavaScript: {
		language: func() *tree_sitter.Language { return tree_sitter.NewLanguage(sitterjavascript.Language()) },
		captures: ecmaCaptures,
		scopes:   ecmaScopes,
	},
	lang.Go: {
		language: func() *tree_sitter.Language { return tree_sitter.NewLanguage(sittergo.Language()) },
		captures: map[string]capture{
			"function_declaration": named(models.SymbolFunction),
			"method_declaration":   named(models.SymbolMethod),
			"type_spec":            goTypeSpec,
			"type_alias":           named(models.SymbolType),
			"var_declaration":      goValues,
			"const_declaration":    goValues,
		},
		scopes: set("function_declaration", "method_declaration", "func_literal"),
	},
	lang.Python: {
		language: func() *tree_sitter.Language { return tree_sitter.NewLanguage(sitterpython.Language()) },
		captures: map[string]capture{
			"function_definition":  named(models.SymbolFunction),
			"class_definition":     named(models.SymbolClass),
			"expression_statement": pythonAssignment,
		},
		scopes: set("function_definition", "class_definition", "lambda"),
	},
}

type TSParser struct {
	log *zap.Logger
}

func New(log *zap.Logger) *TSParser {
	if log == nil {
		log = zap.NewNop()
	}
	return &TSParser{log: log}
}

// Supports reports whether l has a grammar.
func Supports(l lang.Language) bool {
	_, ok := grammars[l]
	return ok
}

func (p *TSParser) Extract(path string, content []byte) ([]models.SymbolRecord, error) {
	g, ok := grammars[lang.Detect(path)]
	if !ok {
		return []models.SymbolRecord{}, nil
	}

	ts := tree_sitter.NewParser()
	defer ts.Close()
	if err := ts.SetLanguage(g.language()); err != nil {
		return nil, fmt.Errorf("set language for %s: %w", path, err)
	}
	tree := ts.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("parse %s: no tree", path)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		p.log.Warn("syntax errors, keeping recoverable declarations", zap.String("file", path))
	}

	symbols := []models.SymbolRecord{}
	var walk func(n *tree_sitter.Node, nested bool)
	walk = func(n *tree_sitter.Node, nested bool) {
		kind := n.Kind()
		if !nested {
			if c, ok := g.captures[kind]; ok {
				symbols = append(symbols, c(n, content)...)
			}
		}
		nested = nested || g.scopes[kind]
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i), nested)
		}
	}
	walk(root, false)
	return symbols, nil
}

func named(kind models.SymbolKind) capture {
	return func(n *tree_sitter.Node, code []byte) []models.SymbolRecord {
		name := childIdentifier(n, code)
		if name == "" {
			return nil
		}
		return []models.SymbolRecord{record(name, kind, n)}
	}
}

// ecmaVariables captures identifier bindings of a declaration that sits
// directly in the program or in a top-level export statement. Every binding
// is positioned at the declaration keyword.
func ecmaVariables(n *tree_sitter.Node, code []byte) []models.SymbolRecord {
	parent := n.Parent()
	if parent == nil {
		return nil
	}
	if parent.Kind() == "export_statement" {
		parent = parent.Parent()
	}
	if parent == nil || parent.Kind() != "program" {
		return nil
	}
	var out []models.SymbolRecord
	for i := uint(0); i < n.NamedChildCount(); i++ {
		d := n.NamedChild(i)
		if d.Kind() != "variable_declarator" {
			continue
		}
		if id := d.ChildByFieldName("name"); id != nil && id.Kind() == "identifier" {
			out = append(out, record(id.Utf8Text(code), models.SymbolVariable, n))
		}
	}
	return out
}

func goTypeSpec(n *tree_sitter.Node, code []byte) []models.SymbolRecord {
	name := childIdentifier(n, code)
	if name == "" {
		return nil
	}
	kind := models.SymbolType
	if t := n.ChildByFieldName("type"); t != nil {
		switch t.Kind() {
		case "struct_type":
			kind = models.SymbolClass
		case "interface_type":
			kind = models.SymbolInterface
		}
	}
	return []models.SymbolRecord{record(name, kind, n)}
}

// goValues captures the names of package level var and const specs,
// including grouped declarations.
func goValues(n *tree_sitter.Node, code []byte) []models.SymbolRecord {
	if p := n.Parent(); p == nil || p.Kind() != "source_file" {
		return nil
	}
	var out []models.SymbolRecord
	var visit func(c *tree_sitter.Node)
	visit = func(c *tree_sitter.Node) {
		switch c.Kind() {
		case "var_spec", "const_spec":
			for i := uint(0); i < c.NamedChildCount(); i++ {
				id := c.NamedChild(i)
				if id.Kind() == "identifier" && id.Utf8Text(code) != "_" {
					out = append(out, record(id.Utf8Text(code), models.SymbolVariable, id))
				}
			}
			return
		case "func_literal":
			return
		}
		for i := uint(0); i < c.NamedChildCount(); i++ {
			visit(c.NamedChild(i))
		}
	}
	visit(n)
	return out
}

func pythonAssignment(n *tree_sitter.Node, code []byte) []models.SymbolRecord {
	if p := n.Parent(); p == nil || p.Kind() != "module" {
		return nil
	}
	if n.NamedChildCount() == 0 {
		return nil
	}
	a := n.NamedChild(0)
	if a.Kind() != "assignment" {
		return nil
	}
	left := a.ChildByFieldName("left")
	if left == nil || left.Kind() != "identifier" {
		return nil
	}
	return []models.SymbolRecord{record(left.Utf8Text(code), models.SymbolVariable, a)}
}

func record(name string, kind models.SymbolKind, n *tree_sitter.Node) models.SymbolRecord {
	pos := n.StartPosition()
	return models.SymbolRecord{
		Name: name,
		Kind: kind,
		Line: int(pos.Row) + 1,
		Col:  int(pos.Column) + 1,
	}
}

func childIdentifier(n *tree_sitter.Node, code []byte) string {
	// Prefer named field `name` if available
	if c := n.ChildByFieldName("name"); c != nil {
		return c.Utf8Text(code)
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		switch c.Kind() {
		case "identifier", "type_identifier", "property_identifier":
			return c.Utf8Text(code)
		}
	}
	return ""
}

func set(kinds ...string) map[string]bool {
	m := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		m[k] = true
	}
	return m
}

var _ parser.Parser = (*TSParser)(nil)
