package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/0x5457/ws-index/internal/indexer"
	"github.com/0x5457/ws-index/internal/models"
	"github.com/0x5457/ws-index/internal/search"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const (
	serverName    = "ws-index/mcp"
	serverVersion = "0.1.0"
)

var errNotInitialized = errors.New("index components not initialized")

// Server holds the components behind the MCP tools. Every tool works on the
// single workspace the search service was built for.
type Server struct {
	search  *search.Service
	indexer indexer.Indexer
	log     *zap.Logger
}

// New returns an MCP server exposing indexing, search and document tools.
// Nil components are allowed; their tools answer with an error result.
func New(svc *search.Service, idx indexer.Indexer, log *zap.Logger) *server.MCPServer {
	if log == nil {
		log = zap.NewNop()
	}
	srv := &Server{search: svc, indexer: idx, log: log}

	s := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	// Indexing tools
	s.AddTool(newIndexProjectTool(), srv.handleIndexProject)
	s.AddTool(newIndexStatusTool(), srv.handleIndexStatus)
	s.AddTool(newSplitLargeFileTool(), srv.handleSplitLargeFile)

	// Query tools
	s.AddTool(newSearchFilesTool(), srv.handleSearchFiles)
	s.AddTool(newSearchContentTool(), srv.handleSearchContent)
	s.AddTool(newListSymbolsTool(), srv.handleListSymbols)
	s.AddTool(newSearchTool(), srv.handleSearch)
	s.AddTool(newGetFileDocumentTool(), srv.handleGetFileDocument)

	return s
}

func (srv *Server) root() string {
	if srv.search == nil {
		return ""
	}
	return srv.search.Root
}

// Tool definitions
func newIndexProjectTool() mcp.Tool {
	return mcp.NewTool(
		"index_project",
		mcp.WithDescription("Index the workspace: walk, split oversized files, extract symbols, prune deleted files"),
	)
}

func newIndexStatusTool() mcp.Tool {
	return mcp.NewTool(
		"index_status",
		mcp.WithDescription("Report indexed file and symbol counts and the last index run"),
	)
}

func newSplitLargeFileTool() mcp.Tool {
	return mcp.NewTool(
		"split_large_file",
		mcp.WithDescription("Split one oversized source file into parts re-exported through an aggregator"),
		mcp.WithString("path", mcp.Description("Workspace relative file path"), mcp.Required()),
		mcp.WithNumber("max_lines", mcp.Description("Line limit per part, 0 for the configured limit")),
	)
}

func newSearchFilesTool() mcp.Tool {
	return mcp.NewTool(
		"search_files",
		mcp.WithDescription("Search indexed file paths by substring, declared symbol, then fuzzy match"),
		mcp.WithString("query", mcp.Description("Path fragment or symbol name"), mcp.Required()),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20, capped at 200)")),
	)
}

func newSearchContentTool() mcp.Tool {
	return mcp.NewTool(
		"search_content",
		mcp.WithDescription("Case-insensitive text search over indexed file contents"),
		mcp.WithString("query", mcp.Description("Text to find"), mcp.Required()),
		mcp.WithNumber("limit", mcp.Description("Max matching lines (default 20, capped at 200)")),
	)
}

func newListSymbolsTool() mcp.Tool {
	return mcp.NewTool(
		"list_symbols",
		mcp.WithDescription("List extracted symbols filtered by file, name substring and kind"),
		mcp.WithString("file", mcp.Description("Workspace relative file path")),
		mcp.WithString("name", mcp.Description("Case-insensitive name substring")),
		mcp.WithString(
			"kind",
			mcp.Description("Symbol kind"),
			mcp.Enum("function", "method", "class", "interface", "type", "enum", "variable"),
		),
		mcp.WithNumber("limit", mcp.Description("Max results (default 50, capped at 500)")),
	)
}

func newSearchTool() mcp.Tool {
	return mcp.NewTool(
		"search",
		mcp.WithDescription("Combined file path and symbol name search"),
		mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
		mcp.WithNumber("limit", mcp.Description("Max results per kind")),
	)
}

func newGetFileDocumentTool() mcp.Tool {
	return mcp.NewTool(
		"get_file_document",
		mcp.WithDescription("Read a workspace file, truncated to max_bytes"),
		mcp.WithString("path", mcp.Description("Workspace relative file path"), mcp.Required()),
		mcp.WithNumber("max_bytes", mcp.Description("Byte limit, 0 for 1 MiB")),
	)
}

// Handlers
func (srv *Server) handleIndexProject(
	ctx context.Context,
	_ mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	if srv.indexer == nil || srv.root() == "" {
		return mcp.NewToolResultError(errNotInitialized.Error()), nil
	}
	report, err := srv.indexer.IndexProject(ctx, srv.root())
	if err != nil {
		srv.log.Error("index_project failed", zap.Error(err))
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructuredOnly(reportResult(report)), nil
}

func (srv *Server) handleIndexStatus(
	ctx context.Context,
	_ mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	if srv.indexer == nil {
		return mcp.NewToolResultError(errNotInitialized.Error()), nil
	}
	st, err := srv.indexer.Status(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res := map[string]any{"files": st.Files, "symbols": st.Symbols, "root": st.Root}
	if st.LastRun != nil {
		res["lastRun"] = st.LastRun.Format(time.RFC3339)
	}
	return mcp.NewToolResultStructuredOnly(res), nil
}

func (srv *Server) handleSplitLargeFile(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if srv.indexer == nil || srv.root() == "" {
		return mcp.NewToolResultError(errNotInitialized.Error()), nil
	}
	sum, err := srv.indexer.SplitLargeFile(ctx, srv.root(), p, req.GetInt("max_lines", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if sum == nil {
		return mcp.NewToolResultStructuredOnly(map[string]any{"split": false, "original": p}), nil
	}
	return mcp.NewToolResultStructuredOnly(map[string]any{
		"split":      true,
		"original":   sum.Original,
		"parts":      sum.Parts,
		"aggregator": sum.Aggregator,
		"maxLines":   sum.MaxLines,
	}), nil
}

func (srv *Server) handleSearchFiles(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if srv.search == nil {
		return mcp.NewToolResultError(errNotInitialized.Error()), nil
	}
	hits, err := srv.search.SearchFiles(ctx, query, req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructuredOnly(map[string]any{"hits": hits}), nil
}

func (srv *Server) handleSearchContent(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if srv.search == nil {
		return mcp.NewToolResultError(errNotInitialized.Error()), nil
	}
	hits, err := srv.search.SearchContent(ctx, query, req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructuredOnly(map[string]any{"hits": hits}), nil
}

func (srv *Server) handleListSymbols(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	if srv.search == nil {
		return mcp.NewToolResultError(errNotInitialized.Error()), nil
	}
	hits, err := srv.search.ListSymbols(ctx, models.SymbolFilter{
		FilePath: req.GetString("file", ""),
		Name:     req.GetString("name", ""),
		Kind:     models.SymbolKind(req.GetString("kind", "")),
		Limit:    req.GetInt("limit", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructuredOnly(map[string]any{"symbols": hits}), nil
}

func (srv *Server) handleSearch(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if srv.search == nil {
		return mcp.NewToolResultError(errNotInitialized.Error()), nil
	}
	hits, err := srv.search.Search(ctx, query, req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructuredOnly(map[string]any{"hits": hits}), nil
}

func (srv *Server) handleGetFileDocument(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if srv.search == nil {
		return mcp.NewToolResultError(errNotInitialized.Error()), nil
	}
	doc, err := srv.search.Document(ctx, p, req.GetInt("max_bytes", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructuredOnly(doc), nil
}

func reportResult(r *models.IndexReport) map[string]any {
	splits := r.Splits
	if splits == nil {
		splits = []models.SplitSummary{}
	}
	return map[string]any{
		"files":      r.Files,
		"symbols":    r.Symbols,
		"splits":     splits,
		"failed":     r.Failed,
		"pruned":     r.Pruned,
		"durationMs": r.Duration.Milliseconds(),
	}
}
