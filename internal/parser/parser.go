package parser

import "github.com/0x5457/ws-index/internal/models"

// Parser extracts top-level declarations from a source file. Languages
// without a grammar yield an empty list and no error.
type Parser interface {
	Extract(path string, content []byte) ([]models.SymbolRecord, error)
}
