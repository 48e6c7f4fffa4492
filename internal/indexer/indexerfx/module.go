package indexerfx

import (
	"github.com/0x5457/ws-index/internal/config/configfx"
	"github.com/0x5457/ws-index/internal/indexer"
	"github.com/0x5457/ws-index/internal/indexer/pipeline"
	"github.com/0x5457/ws-index/internal/metrics"
	"github.com/0x5457/ws-index/internal/parser"
	"github.com/0x5457/ws-index/internal/splitter"
	"github.com/0x5457/ws-index/internal/storage"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for indexer components
type Params struct {
	fx.In

	Config   *configfx.Config
	Parser   parser.Parser
	Store    storage.IndexStore
	Splitter *splitter.Splitter
	Metrics  *metrics.Metrics `optional:"true"`
	Log      *zap.Logger
}

func NewSplitter(config *configfx.Config, log *zap.Logger) *splitter.Splitter {
	return splitter.New(config.MaxLines, log.Named("splitter"))
}

// NewIndexer creates a new indexer instance
func NewIndexer(params Params) indexer.Indexer {
	return pipeline.New(
		params.Parser,
		params.Store,
		params.Splitter,
		params.Metrics,
		params.Log.Named("indexer"),
		pipeline.Options{
			Ignore:  params.Config.Ignore,
			Include: params.Config.Include,
		},
	)
}

// Module provides indexer components
var Module = fx.Module("indexer",
	fx.Provide(NewSplitter, NewIndexer),
)
