package mcpfx

import (
	"context"
	"fmt"

	"github.com/0x5457/ws-index/internal/config/configfx"
	"github.com/0x5457/ws-index/internal/indexer"
	appmcp "github.com/0x5457/ws-index/internal/mcp"
	"github.com/0x5457/ws-index/internal/search"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for MCP server
type Params struct {
	fx.In

	SearchService *search.Service
	Indexer       indexer.Indexer
	Log           *zap.Logger
}

// NewMCPServer creates a new MCP server instance
func NewMCPServer(params Params) *server.MCPServer {
	return appmcp.New(params.SearchService, params.Indexer, params.Log.Named("mcp"))
}

// LifecycleParams represents dependencies for the MCP lifecycle
type LifecycleParams struct {
	fx.In

	Indexer indexer.Indexer
	Config  *configfx.Config
	Log     *zap.Logger
	// IndexOnStart runs one pass over the workspace before serving.
	IndexOnStart bool `name:"indexOnStart" optional:"true"`
}

// Lifecycle manages MCP server lifecycle
type Lifecycle struct {
	indexer      indexer.Indexer
	config       *configfx.Config
	log          *zap.Logger
	indexOnStart bool
}

// NewLifecycle creates a new MCP lifecycle manager
func NewLifecycle(params LifecycleParams) *Lifecycle {
	return &Lifecycle{
		indexer:      params.Indexer,
		config:       params.Config,
		log:          params.Log,
		indexOnStart: params.IndexOnStart,
	}
}

// Start pre-indexes the workspace when requested
func (m *Lifecycle) Start(ctx context.Context) error {
	if !m.indexOnStart {
		return nil
	}
	report, err := m.indexer.IndexProject(ctx, m.config.Root)
	if err != nil {
		return fmt.Errorf("pre-index workspace failed: %w", err)
	}
	m.log.Info("pre-index completed", zap.Int("files", report.Files), zap.Int("symbols", report.Symbols))
	return nil
}

// Stop handles graceful shutdown
func (m *Lifecycle) Stop(ctx context.Context) error {
	// MCP server cleanup is handled by the framework
	return nil
}

// Module provides MCP server components
var Module = fx.Module("mcp",
	fx.Provide(
		NewMCPServer,
		NewLifecycle,
	),
	fx.Invoke(func(lc fx.Lifecycle, l *Lifecycle) {
		lc.Append(fx.Hook{OnStart: l.Start, OnStop: l.Stop})
	}),
)
