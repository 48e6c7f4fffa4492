package storagefx

import (
	"context"
	"fmt"

	"github.com/0x5457/ws-index/internal/config/configfx"
	"github.com/0x5457/ws-index/internal/storage"
	"github.com/0x5457/ws-index/internal/storage/memory"
	"github.com/0x5457/ws-index/internal/storage/sqlite"
	"go.uber.org/fx"
)

// Params represents dependencies for storage components
type Params struct {
	fx.In

	Config    *configfx.Config
	Lifecycle fx.Lifecycle
}

// Open returns the store behind dbPath. memory.DSN selects a process-local
// store that is discarded on close.
func Open(dbPath string) (storage.IndexStore, error) {
	switch dbPath {
	case "":
		return nil, fmt.Errorf("database path must be specified")
	case memory.DSN:
		return memory.NewInMemoryIndexStore(), nil
	}
	return sqlite.New(dbPath)
}

// NewIndexStore opens the index database and closes it when the app stops
func NewIndexStore(params Params) (storage.IndexStore, error) {
	store, err := Open(params.Config.DBPath)
	if err != nil {
		return nil, err
	}
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error { return store.Close() },
	})
	return store, nil
}

// Module provides storage components
var Module = fx.Module("storage",
	fx.Provide(NewIndexStore),
)
