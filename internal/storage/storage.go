package storage

import (
	"context"
	"errors"

	"github.com/0x5457/ws-index/internal/models"
)

var ErrNotFound = errors.New("not found")

// Meta keys written by the indexer.
const (
	MetaLastRun = "last_run"
	MetaRoot    = "root"
)

// IndexStore persists files and their symbols. Every multi-statement
// operation runs in one transaction.
type IndexStore interface {
	// UpsertFile inserts or updates rec by path and returns its row id.
	// created_at is kept from the first insert.
	UpsertFile(ctx context.Context, rec models.FileRecord) (int64, error)
	// ReplaceSymbols swaps the whole symbol set of fileID.
	ReplaceSymbols(ctx context.Context, fileID int64, symbols []models.SymbolRecord) error
	// SaveFile upserts rec and, when replace is set, replaces its symbols in
	// the same transaction.
	SaveFile(ctx context.Context, rec models.FileRecord, symbols []models.SymbolRecord, replace bool) (int64, error)
	GetFile(ctx context.Context, path string) (*models.FileRecord, error)
	ListFiles(ctx context.Context) ([]models.FileRecord, error)
	ListSymbols(ctx context.Context, filter models.SymbolFilter) ([]models.SymbolHit, error)
	// FilesDeclaring returns the paths of files with a symbol named exactly name.
	FilesDeclaring(ctx context.Context, name string) ([]string, error)
	// PruneMissing deletes every file whose path is not in observed, along
	// with its symbols, and returns the number of files removed.
	PruneMissing(ctx context.Context, observed map[string]struct{}) (int, error)
	SetMeta(ctx context.Context, key, value string) error
	GetMeta(ctx context.Context, key string) (string, error)
	Status(ctx context.Context) (models.IndexStatus, error)
	Close() error
}
