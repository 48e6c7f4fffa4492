package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToolArgs(t *testing.T) {
	args, err := parseToolArgs([]string{"query=router", "limit=5", "exact=true", "expr=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"query": "router",
		"limit": 5,
		"exact": true,
		"expr":  "a=b",
	}, args)

	_, err = parseToolArgs([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseToolArgs([]string{"=x"})
	assert.Error(t, err)
}

func TestRootCommandTree(t *testing.T) {
	root := NewRootCommand()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"index", "status", "search", "symbols", "doc", "split", "mcp", "mcp-client"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("root"))
	assert.NotNil(t, root.PersistentFlags().Lookup("json"))
}

func TestIndexThenStatus(t *testing.T) {
	ws := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(ws, "a.ts"), []byte("export interface Shape {}\n"), 0o644))

	run := func(args ...string) {
		t.Helper()
		cmd := NewRootCommand()
		cmd.SetArgs(append([]string{"--root", ws, "--log-level", "error"}, args...))
		cmd.SetOut(&bytes.Buffer{})
		require.NoError(t, cmd.ExecuteContext(context.Background()))
	}
	run("index")
	run("status")
	run("symbols", "--kind", "interface")

	_, err := os.Stat(filepath.Join(ws, ".ws-index", "index.db"))
	assert.NoError(t, err)

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--root", ws, "--log-level", "error", "symbols", "--kind", "macro"})
	assert.Error(t, cmd.ExecuteContext(context.Background()))
}
