package parserfx

import (
	"github.com/0x5457/ws-index/internal/parser"
	"github.com/0x5457/ws-index/internal/parser/tsparser"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewParser creates the tree-sitter symbol extractor
func NewParser(log *zap.Logger) parser.Parser {
	return tsparser.New(log.Named("parser"))
}

// Module provides parser components
var Module = fx.Module("parser",
	fx.Provide(NewParser),
)
