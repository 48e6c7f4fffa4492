package appfx

import (
	"github.com/0x5457/ws-index/cmd/cmdsfx"
	"github.com/0x5457/ws-index/internal/config/configfx"
	"github.com/0x5457/ws-index/internal/indexer/indexerfx"
	"github.com/0x5457/ws-index/internal/logger/loggerfx"
	"github.com/0x5457/ws-index/internal/mcp/mcpfx"
	"github.com/0x5457/ws-index/internal/metrics/metricsfx"
	"github.com/0x5457/ws-index/internal/parser/parserfx"
	"github.com/0x5457/ws-index/internal/search/searchfx"
	"github.com/0x5457/ws-index/internal/storage/storagefx"
	"go.uber.org/fx"
)

// Module combines all application modules
var Module = fx.Options(
	configfx.Module,
	loggerfx.Module,
	metricsfx.Module,
	parserfx.Module,
	storagefx.Module,
	searchfx.Module,
	indexerfx.Module,
	mcpfx.Module,
	cmdsfx.Module,
	fx.WithLogger(loggerfx.EventLogger),
)

// Values are the named values the CLI supplies to configfx.
type Values struct {
	Root     string
	DBPath   string
	MaxLines int
	Ignore   []string
	Include  []string
	LogLevel string
	LogFile  string
}

// Supply provides v as the named values configfx consumes.
func (v Values) Supply() fx.Option {
	return fx.Supply(
		fx.Annotate(v.Root, fx.ResultTags(`name:"root"`)),
		fx.Annotate(v.DBPath, fx.ResultTags(`name:"dbPath"`)),
		fx.Annotate(v.MaxLines, fx.ResultTags(`name:"maxLines"`)),
		fx.Annotate(v.Ignore, fx.ResultTags(`name:"ignore"`)),
		fx.Annotate(v.Include, fx.ResultTags(`name:"include"`)),
		fx.Annotate(v.LogLevel, fx.ResultTags(`name:"logLevel"`)),
		fx.Annotate(v.LogFile, fx.ResultTags(`name:"logFile"`)),
	)
}

// NewAppWithConfig creates an Fx app with the given configuration values
func NewAppWithConfig(v Values, opts ...fx.Option) *fx.App {
	return fx.New(append([]fx.Option{Module, v.Supply()}, opts...)...)
}

// NewApp creates an Fx app with default configuration
func NewApp() *fx.App {
	return fx.New(Module)
}
