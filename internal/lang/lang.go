// Package lang maps file extensions onto a closed set of languages and the
// capabilities the indexer has for each of them.
package lang

import (
	"path"
	"strings"
)

type Language string

const (
	Unknown    Language = "unknown"
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
	JavaScript Language = "javascript"
	Go         Language = "go"
	Python     Language = "python"
	JSON       Language = "json"
	Markdown   Language = "markdown"
	YAML       Language = "yaml"
	CSS        Language = "css"
	HTML       Language = "html"
	Shell      Language = "shell"
	Rust       Language = "rust"
	Java       Language = "java"
)

type capability struct {
	parseable bool
	reexport  bool
}

var capabilities = map[Language]capability{
	TypeScript: {parseable: true, reexport: true},
	TSX:        {parseable: true, reexport: true},
	JavaScript: {parseable: true, reexport: true},
	Go:         {parseable: true},
	Python:     {parseable: true},
}

var byExt = map[string]Language{
	".ts":       TypeScript,
	".mts":      TypeScript,
	".cts":      TypeScript,
	".tsx":      TSX,
	".js":       JavaScript,
	".jsx":      JavaScript,
	".mjs":      JavaScript,
	".cjs":      JavaScript,
	".go":       Go,
	".py":       Python,
	".json":     JSON,
	".md":       Markdown,
	".markdown": Markdown,
	".yaml":     YAML,
	".yml":      YAML,
	".css":      CSS,
	".html":     HTML,
	".htm":      HTML,
	".sh":       Shell,
	".bash":     Shell,
	".rs":       Rust,
	".java":     Java,
}

// Detect returns the language for a file path by extension. Declaration
// files (.d.ts) are TypeScript like any other .ts file.
func Detect(p string) Language {
	if l, ok := byExt[strings.ToLower(path.Ext(p))]; ok {
		return l
	}
	return Unknown
}

func (l Language) String() string { return string(l) }

// Parseable reports whether the symbol extractor has a grammar for l.
func (l Language) Parseable() bool { return capabilities[l].parseable }

// ModuleReexport reports whether l can re-export another module's bindings,
// which the oversized-file splitter needs for its aggregator and shim.
func (l Language) ModuleReexport() bool { return capabilities[l].reexport }
