package searchfx

import (
	"github.com/0x5457/ws-index/internal/config/configfx"
	"github.com/0x5457/ws-index/internal/metrics"
	"github.com/0x5457/ws-index/internal/search"
	"github.com/0x5457/ws-index/internal/storage"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for search service
type Params struct {
	fx.In

	Config  *configfx.Config
	Store   storage.IndexStore
	Metrics *metrics.Metrics `optional:"true"`
	Log     *zap.Logger
}

// NewSearchService creates a new search service instance
func NewSearchService(params Params) *search.Service {
	return &search.Service{
		Store:   params.Store,
		Root:    params.Config.Root,
		Metrics: params.Metrics, // Can be nil
		Log:     params.Log.Named("search"),
	}
}

// Module provides search components
var Module = fx.Module("search",
	fx.Provide(NewSearchService),
)
