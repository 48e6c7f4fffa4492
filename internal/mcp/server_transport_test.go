package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initialize(ctx context.Context, t *testing.T, cli *client.Client) {
	t.Helper()
	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "test", Version: "0.0.1"}
	initReq.Params.Capabilities = mcp.ClientCapabilities{}
	_, err := cli.Initialize(ctx, initReq)
	require.NoError(t, err)
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok, "%T", res.Content[0])
	return tc.Text
}

// exercise indexes a one-file workspace through cli and looks the file up.
func exercise(ctx context.Context, t *testing.T, cli *client.Client) {
	t.Helper()
	res, err := cli.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)
	names := map[string]bool{}
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{
		"index_project", "index_status", "search_files", "search_content",
		"list_symbols", "search", "get_file_document", "split_large_file",
	} {
		assert.True(t, names[want], want)
	}

	out, err := cli.CallTool(ctx, mcp.CallToolRequest{Params: mcp.CallToolParams{Name: "index_project"}})
	require.NoError(t, err)
	require.False(t, out.IsError, textOf(t, out))

	out, err = cli.CallTool(ctx, mcp.CallToolRequest{Params: mcp.CallToolParams{
		Name:      "search_files",
		Arguments: map[string]any{"query": "greet"},
	}})
	require.NoError(t, err)
	require.False(t, out.IsError)
	assert.Contains(t, textOf(t, out), "lib/greet.ts")

	out, err = cli.CallTool(ctx, mcp.CallToolRequest{Params: mcp.CallToolParams{
		Name:      "get_file_document",
		Arguments: map[string]any{"path": "../outside"},
	}})
	require.NoError(t, err)
	assert.True(t, out.IsError)
}

func newWorkspaceServer(t *testing.T) *server.MCPServer {
	t.Helper()
	srv, root := newTestServer(t)
	writeFile(t, root, "lib/greet.ts", "export function greet() {}\n")
	return New(srv.search, srv.indexer, srv.log)
}

// TestStreamableHTTPTransport verifies initialize, list-tools and tool calls via streamable-http
func TestStreamableHTTPTransport(t *testing.T) {
	h := server.NewStreamableHTTPServer(newWorkspaceServer(t))
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	cliTr, err := transport.NewStreamableHTTP(ts.URL)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	require.NoError(t, cliTr.Start(ctx))
	cli := client.NewClient(cliTr)
	require.NoError(t, cli.Start(ctx))
	defer func() { _ = cli.Close() }()

	initialize(ctx, t, cli)
	exercise(ctx, t, cli)
}

// TestSSETransport verifies initialize, list-tools and tool calls via SSE
func TestSSETransport(t *testing.T) {
	sse := server.NewSSEServer(newWorkspaceServer(t),
		server.WithStaticBasePath("/mcp"),
	)
	mux := http.NewServeMux()
	mux.Handle("/mcp/sse", sse.SSEHandler())
	mux.Handle("/mcp/message", sse.MessageHandler())
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	cliTr, err := transport.NewSSE(ts.URL + "/mcp/sse")
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	cli := client.NewClient(cliTr)
	require.NoError(t, cli.Start(ctx))
	defer func() { _ = cli.Close() }()

	initialize(ctx, t, cli)
	exercise(ctx, t, cli)
}

// TestInProcessClient verifies the Client wrapper over the in-process transport
func TestInProcessClient(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	c, err := NewClient(ctx, transport.NewInProcessTransport(newWorkspaceServer(t)))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	tools, err := c.ListTools(ctx)
	require.NoError(t, err)
	assert.Len(t, tools, 8)

	res, err := c.Call(ctx, "index_project", nil)
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = c.Call(ctx, "list_symbols", map[string]any{"name": "greet"})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, textOf(t, res), "greet")
}

// TestHTTPClient verifies the Client wrapper against a streamable-http server
func TestHTTPClient(t *testing.T) {
	ts := httptest.NewServer(server.NewStreamableHTTPServer(newWorkspaceServer(t)))
	t.Cleanup(ts.Close)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	c, err := NewHTTPClient(ctx, ts.URL)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	res, err := c.Call(ctx, "index_status", nil)
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, textOf(t, res), `"files":0`)
}
