package search_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/0x5457/ws-index/internal/metrics"
	"github.com/0x5457/ws-index/internal/models"
	"github.com/0x5457/ws-index/internal/search"
	"github.com/0x5457/ws-index/internal/storage"
	"github.com/0x5457/ws-index/internal/storage/sqlite"
	"github.com/0x5457/ws-index/internal/workspace"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixture struct {
	root string
	svc  *search.Service
	reg  *prometheus.Registry
}

// newFixture writes files to a temp workspace and indexes them with the
// given symbols, bypassing the walker and the extractor.
func newFixture(t *testing.T, files map[string]string, symbols map[string][]models.SymbolRecord) *fixture {
	t.Helper()
	ctx := context.Background()
	root := t.TempDir()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	for p, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
		_, err := store.SaveFile(ctx, models.FileRecord{
			Path: p, Size: int64(len(content)), Lines: strings.Count(content, "\n") + 1,
			Hash: "h", Lang: "typescript", MTime: 1,
		}, symbols[p], true)
		require.NoError(t, err)
	}
	reg := prometheus.NewRegistry()
	return &fixture{
		root: root,
		reg:  reg,
		svc: &search.Service{
			Store:   store,
			Root:    root,
			Metrics: metrics.New(reg),
			Log:     zaptest.NewLogger(t),
		},
	}
}

func paths(hits []models.PathHit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Path
	}
	return out
}

func Test_SearchFiles_Ranking(t *testing.T) {
	f := newFixture(t, map[string]string{
		"src/config.ts":            "",
		"src/config/loader.ts":     "",
		"src/app_config.ts":        "",
		"docs/config.ts.md":        "",
		"test/fixtures/config.ts":  "",
		"src/components/Button.ts": "",
	}, nil)

	hits, err := f.svc.SearchFiles(context.Background(), "config.ts", 0)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	// exact basename first, then basename substrings, then path substrings
	assert.Equal(t, []string{
		"src/config.ts",
		"test/fixtures/config.ts",
		"docs/config.ts.md",
		"src/app_config.ts",
	}, paths(hits))
	for _, h := range hits {
		assert.Equal(t, models.MatchSubstring, h.Match)
	}

	hits, err = f.svc.SearchFiles(context.Background(), "CONFIG", 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func Test_SearchFiles_SymbolOwnerBeforeFuzzy(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.ts":               "export function foo() {}\n",
		"b.ts":               "export * from './b_parts/index';\n",
		"b_parts/b.part1.ts": "export function fn0() {}\n",
		"fo.ts":              "",
	}, map[string][]models.SymbolRecord{
		"a.ts": {{Name: "foo", Kind: models.SymbolFunction, Line: 1, Col: 8}},
	})

	hits, err := f.svc.SearchFiles(context.Background(), "foo", 0)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "a.ts", hits[0].Path)
	assert.Equal(t, models.MatchSymbol, hits[0].Match)
	for _, h := range hits {
		assert.NotEqual(t, models.MatchFuzzy, h.Match)
	}
}

func Test_SearchFiles_Fuzzy(t *testing.T) {
	f := newFixture(t, map[string]string{
		"src/router.ts": "",
		"src/zzz.ts":    "",
	}, nil)

	hits, err := f.svc.SearchFiles(context.Background(), "ruoter.ts", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "src/router.ts", hits[0].Path)
	assert.Equal(t, models.MatchFuzzy, hits[0].Match)
	assert.Less(t, hits[0].Score, 0.4)

	hits, err = f.svc.SearchFiles(context.Background(), "completely-unrelated", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func Test_SearchFiles_Contract(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	_, err := f.svc.SearchFiles(ctx, "x", -1)
	assert.ErrorIs(t, err, search.ErrInvalidLimit)
	_, err = f.svc.SearchFiles(ctx, "  ", 0)
	assert.ErrorIs(t, err, search.ErrEmptyQuery)

	// an empty index answers with empty results, not errors
	hits, err := f.svc.SearchFiles(ctx, "x", 1000)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func Test_SearchContent(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.ts":    "const token = 1;\nconst TOKEN_TOKEN = 2;\nother\n",
		"b.ts":    "no match here\n",
		"bin.ts":  "token\x00binary",
		"gone.ts": "token",
	}, nil)
	require.NoError(t, os.Remove(filepath.Join(f.root, "gone.ts")))

	hits, err := f.svc.SearchContent(context.Background(), "Token", 0)
	require.NoError(t, err)
	assert.Equal(t, []models.ContentHit{
		{File: "a.ts", Line: 1, Content: "const token = 1;", MatchCount: 1},
		{File: "a.ts", Line: 2, Content: "const TOKEN_TOKEN = 2;", MatchCount: 2},
	}, hits)

	hits, err = f.svc.SearchContent(context.Background(), "token", 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	_, err = f.svc.SearchContent(context.Background(), "", 0)
	assert.ErrorIs(t, err, search.ErrEmptyQuery)
}

func Test_ListSymbols(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.ts":     "",
		"lib/b.ts": "",
	}, map[string][]models.SymbolRecord{
		"a.ts": {
			{Name: "foo", Kind: models.SymbolFunction, Line: 1, Col: 1},
			{Name: "Foo", Kind: models.SymbolClass, Line: 4, Col: 1},
		},
		"lib/b.ts": {{Name: "bar", Kind: models.SymbolFunction, Line: 2, Col: 1}},
	})
	ctx := context.Background()

	hits, err := f.svc.ListSymbols(ctx, models.SymbolFilter{Kind: models.SymbolFunction})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a.ts", hits[0].File)
	assert.Equal(t, "lib/b.ts", hits[1].File)

	hits, err = f.svc.ListSymbols(ctx, models.SymbolFilter{FilePath: "./lib/b.ts"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "bar", hits[0].Symbol.Name)

	hits, err = f.svc.ListSymbols(ctx, models.SymbolFilter{Name: "foo"})
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	_, err = f.svc.ListSymbols(ctx, models.SymbolFilter{Kind: "macro"})
	assert.ErrorIs(t, err, search.ErrInvalidKind)
	_, err = f.svc.ListSymbols(ctx, models.SymbolFilter{Limit: -5})
	assert.ErrorIs(t, err, search.ErrInvalidLimit)
	_, err = f.svc.ListSymbols(ctx, models.SymbolFilter{FilePath: "../x.ts"})
	assert.ErrorIs(t, err, workspace.ErrTraversal)

	hits, err = f.svc.ListSymbols(ctx, models.SymbolFilter{Name: "nothing"})
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func Test_Search_Combined(t *testing.T) {
	f := newFixture(t, map[string]string{
		"render.ts": "",
		"view.ts":   "",
	}, map[string][]models.SymbolRecord{
		"view.ts": {{Name: "renderView", Kind: models.SymbolFunction, Line: 3, Col: 1}},
	})

	hits, err := f.svc.Search(context.Background(), "render", 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, models.HitFile, hits[0].Type)
	assert.Equal(t, "render.ts", hits[0].Path)
	assert.Equal(t, models.HitSymbol, hits[1].Type)
	assert.Equal(t, "view.ts", hits[1].Path)
	require.NotNil(t, hits[1].Symbol)
	assert.Equal(t, "renderView", hits[1].Symbol.Name)
}

func Test_Document(t *testing.T) {
	f := newFixture(t, map[string]string{
		"src/a.ts": "line one\nline two\nhéllo\n",
	}, nil)
	ctx := context.Background()

	doc, err := f.svc.Document(ctx, "src/a.ts", 0)
	require.NoError(t, err)
	assert.Equal(t, "src/a.ts", doc.Path)
	assert.Equal(t, "typescript", doc.Lang)
	assert.Equal(t, 4, doc.Lines)
	assert.False(t, doc.Truncated)
	assert.Equal(t, "line one\nline two\nhéllo\n", doc.Content)

	// truncation never splits a rune: "é" starts at byte 19
	doc, err = f.svc.Document(ctx, "src/a.ts", 20)
	require.NoError(t, err)
	assert.True(t, doc.Truncated)
	assert.Equal(t, "line one\nline two\nh", doc.Content)

	_, err = f.svc.Document(ctx, "../outside.txt", 0)
	assert.ErrorIs(t, err, workspace.ErrTraversal)
	_, err = f.svc.Document(ctx, filepath.Join(os.TempDir(), "elsewhere.txt"), 0)
	assert.ErrorIs(t, err, workspace.ErrOutsideWorkspace)
	_, err = f.svc.Document(ctx, "src/a.ts", -1)
	assert.ErrorIs(t, err, search.ErrInvalidMaxBytes)
	_, err = f.svc.Document(ctx, "src/missing.ts", 0)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func Test_Document_OnlyIndexedFiles(t *testing.T) {
	f := newFixture(t, map[string]string{"a.ts": "export const a = 1;\n"}, nil)
	writeFile := func(rel, content string) {
		abs := filepath.Join(f.root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	}
	writeFile(".git/config", "[remote] token=secret\n")
	writeFile(".gitignore", ".env\n")
	writeFile(".env", "API_KEY=xyz\n")
	ctx := context.Background()

	for _, p := range []string{".git/config", ".env", ".gitignore"} {
		doc, err := f.svc.Document(ctx, p, 0)
		assert.ErrorIs(t, err, storage.ErrNotFound, p)
		assert.Nil(t, doc, p)
	}

	doc, err := f.svc.Document(ctx, "./a.ts", 0)
	require.NoError(t, err)
	assert.Equal(t, "a.ts", doc.Path)
}

func Test_Document_SymlinkEscape(t *testing.T) {
	f := newFixture(t, nil, nil)
	outside := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o644))
	if err := os.Symlink(outside, filepath.Join(f.root, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	_, err := f.svc.Document(context.Background(), "link.txt", 0)
	assert.ErrorIs(t, err, workspace.ErrOutsideWorkspace)
}

func Test_QueriesAreMetered(t *testing.T) {
	f := newFixture(t, map[string]string{"a.ts": "x\n"}, nil)
	ctx := context.Background()

	_, err := f.svc.SearchFiles(ctx, "a", 0)
	require.NoError(t, err)
	_, err = f.svc.SearchContent(ctx, "x", 0)
	require.NoError(t, err)

	// one counter series and one histogram series per query kind
	n, err := testutil.GatherAndCount(f.reg, "ws_index_queries_total", "ws_index_query_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
