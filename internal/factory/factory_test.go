package factory_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/0x5457/ws-index/internal/config/configfx"
	"github.com/0x5457/ws-index/internal/factory"
	"github.com/0x5457/ws-index/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateComponents(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.ts"), []byte("export class A {}\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".ws-index"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".ws-index", "config.toml"),
		[]byte("max_lines = 50\nlog_level = \"warn\"\n"), 0o644))

	f, err := factory.NewComponentFactory(configfx.Config{Root: root})
	require.NoError(t, err)
	assert.Equal(t, 50, f.Config().MaxLines)
	assert.Equal(t, filepath.Join(root, ".ws-index", "index.db"), f.Config().DBPath)

	c, err := f.CreateComponents()
	require.NoError(t, err)
	defer func() { assert.NoError(t, c.Cleanup()) }()

	assert.Equal(t, 50, c.Splitter.MaxLines())
	report, err := c.Indexer.IndexProject(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Files)

	hits, err := c.Searcher.SearchFiles(context.Background(), "a.ts", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestNewComponentFactoryRejectsBadConfig(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".ws-index"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".ws-index", "config.toml"), []byte("max_lines = ["), 0o644))

	_, err := factory.NewComponentFactory(configfx.Config{Root: root})
	assert.Error(t, err)
}

func TestCreateComponentsInMemory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.ts"), []byte("export function a() {}\n"), 0o644))

	f, err := factory.NewComponentFactory(configfx.Config{Root: root, DBPath: memory.DSN})
	require.NoError(t, err)
	c, err := f.CreateComponents()
	require.NoError(t, err)
	defer func() { assert.NoError(t, c.Cleanup()) }()

	report, err := c.Indexer.IndexProject(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Symbols)
	assert.NoDirExists(t, filepath.Join(root, ".ws-index"))
}
