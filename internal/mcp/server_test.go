package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/0x5457/ws-index/internal/indexer/pipeline"
	"github.com/0x5457/ws-index/internal/models"
	"github.com/0x5457/ws-index/internal/parser/tsparser"
	"github.com/0x5457/ws-index/internal/search"
	"github.com/0x5457/ws-index/internal/splitter"
	"github.com/0x5457/ws-index/internal/storage/sqlite"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// newTestServer indexes nothing yet; callers write files under root and run
// index_project first.
func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	log := zaptest.NewLogger(t)
	idx := pipeline.New(tsparser.New(log), store, splitter.New(300, log), nil, log, pipeline.Options{})
	svc := &search.Service{Store: store, Root: root, Log: log}
	return &Server{search: svc, indexer: idx, log: log}, root
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func call(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Name: name, Arguments: args}}
}

func structured(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.NotNil(t, res)
	require.False(t, res.IsError, "%v", res.Content)
	m, ok := res.StructuredContent.(map[string]any)
	require.True(t, ok, "%T", res.StructuredContent)
	return m
}

func TestNew(t *testing.T) {
	server := New(nil, nil, nil)
	assert.NotNil(t, server)
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		toolFunc func() mcp.Tool
		toolName string
		required []string
	}{
		{newIndexProjectTool, "index_project", nil},
		{newIndexStatusTool, "index_status", nil},
		{newSplitLargeFileTool, "split_large_file", []string{"path"}},
		{newSearchFilesTool, "search_files", []string{"query"}},
		{newSearchContentTool, "search_content", []string{"query"}},
		{newListSymbolsTool, "list_symbols", nil},
		{newSearchTool, "search", []string{"query"}},
		{newGetFileDocumentTool, "get_file_document", []string{"path"}},
	}

	for _, tt := range tests {
		t.Run(tt.toolName, func(t *testing.T) {
			tool := tt.toolFunc()
			assert.Equal(t, tt.toolName, tool.Name)
			assert.NotEmpty(t, tool.Description)
			for _, param := range tt.required {
				assert.Contains(t, tool.InputSchema.Properties, param)
				assert.Contains(t, tool.InputSchema.Required, param)
			}
		})
	}
}

func TestListSymbolsToolKinds(t *testing.T) {
	tool := newListSymbolsTool()
	kindProp := tool.InputSchema.Properties["kind"].(map[string]any)
	assert.Equal(t, "string", kindProp["type"])
	assert.Contains(t, kindProp["enum"], "function")
}

func TestHandlersWithoutComponents(t *testing.T) {
	ctx := context.Background()
	srv := &Server{}

	handlers := map[string]struct {
		fn   func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args map[string]any
	}{
		"index_project":     {srv.handleIndexProject, nil},
		"index_status":      {srv.handleIndexStatus, nil},
		"split_large_file":  {srv.handleSplitLargeFile, map[string]any{"path": "a.ts"}},
		"search_files":      {srv.handleSearchFiles, map[string]any{"query": "a"}},
		"search_content":    {srv.handleSearchContent, map[string]any{"query": "a"}},
		"list_symbols":      {srv.handleListSymbols, nil},
		"search":            {srv.handleSearch, map[string]any{"query": "a"}},
		"get_file_document": {srv.handleGetFileDocument, map[string]any{"path": "a.ts"}},
	}
	for name, h := range handlers {
		t.Run(name, func(t *testing.T) {
			result, err := h.fn(ctx, call(name, h.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.NotEmpty(t, result.Content)
		})
	}
}

func TestHandleMissingRequiredParams(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t)

	for name, fn := range map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"search_files":      srv.handleSearchFiles,
		"search_content":    srv.handleSearchContent,
		"search":            srv.handleSearch,
		"get_file_document": srv.handleGetFileDocument,
		"split_large_file":  srv.handleSplitLargeFile,
	} {
		result, err := fn(ctx, call(name, map[string]any{}))
		require.NoError(t, err, name)
		assert.True(t, result.IsError, name)
	}
}

func TestIndexAndQueryTools(t *testing.T) {
	ctx := context.Background()
	srv, root := newTestServer(t)
	writeFile(t, root, "src/a.ts", "export function foo() {}\nexport const bar = 1;\n")
	writeFile(t, root, "src/b.ts", "// calls foo\n")

	res, err := srv.handleIndexProject(ctx, call("index_project", nil))
	require.NoError(t, err)
	report := structured(t, res)
	assert.Equal(t, 2, report["files"])
	assert.Equal(t, 2, report["symbols"])

	res, err = srv.handleIndexStatus(ctx, call("index_status", nil))
	require.NoError(t, err)
	status := structured(t, res)
	assert.Equal(t, 2, status["files"])
	assert.Contains(t, status, "lastRun")

	res, err = srv.handleSearchFiles(ctx, call("search_files", map[string]any{"query": "a.ts"}))
	require.NoError(t, err)
	paths := structured(t, res)["hits"].([]models.PathHit)
	require.NotEmpty(t, paths)
	assert.Equal(t, "src/a.ts", paths[0].Path)

	res, err = srv.handleSearchContent(ctx, call("search_content", map[string]any{"query": "foo"}))
	require.NoError(t, err)
	lines := structured(t, res)["hits"].([]models.ContentHit)
	assert.Len(t, lines, 2)

	res, err = srv.handleListSymbols(ctx, call("list_symbols", map[string]any{"kind": "variable"}))
	require.NoError(t, err)
	syms := structured(t, res)["symbols"].([]models.SymbolHit)
	require.Len(t, syms, 1)
	assert.Equal(t, "bar", syms[0].Symbol.Name)

	res, err = srv.handleSearch(ctx, call("search", map[string]any{"query": "foo"}))
	require.NoError(t, err)
	combined := structured(t, res)["hits"].([]models.SearchHit)
	require.NotEmpty(t, combined)

	res, err = srv.handleGetFileDocument(ctx, call("get_file_document", map[string]any{"path": "src/b.ts"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	doc := res.StructuredContent.(*models.Document)
	assert.Equal(t, "// calls foo\n", doc.Content)
}

func TestToolErrorsAreResults(t *testing.T) {
	ctx := context.Background()
	srv, root := newTestServer(t)

	res, err := srv.handleGetFileDocument(ctx, call("get_file_document", map[string]any{"path": "../etc/passwd"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	writeFile(t, root, ".git/config", "[remote] token=secret\n")
	res, err = srv.handleGetFileDocument(ctx, call("get_file_document", map[string]any{"path": ".git/config"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = srv.handleListSymbols(ctx, call("list_symbols", map[string]any{"kind": "macro"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = srv.handleSearchFiles(ctx, call("search_files", map[string]any{"query": "x", "limit": -1}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = srv.handleSplitLargeFile(ctx, call("split_large_file", map[string]any{"path": "missing.ts"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleSplitLargeFile(t *testing.T) {
	ctx := context.Background()
	srv, root := newTestServer(t)
	writeFile(t, root, "small.ts", "export const a = 1;\n")
	writeFile(t, root, "big.ts",
		"export function one() {\n  return 1;\n}\nexport function two() {\n  return 2;\n}\n")

	res, err := srv.handleSplitLargeFile(ctx, call("split_large_file", map[string]any{"path": "small.ts"}))
	require.NoError(t, err)
	assert.Equal(t, false, structured(t, res)["split"])

	res, err = srv.handleSplitLargeFile(ctx, call("split_large_file", map[string]any{"path": "big.ts", "max_lines": 4}))
	require.NoError(t, err)
	out := structured(t, res)
	assert.Equal(t, true, out["split"])
	assert.Equal(t, "big_parts/index.ts", out["aggregator"])
	assert.Len(t, out["parts"], 2)
}
