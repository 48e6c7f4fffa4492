package search

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/0x5457/ws-index/internal/constants"
	"github.com/0x5457/ws-index/internal/lang"
	"github.com/0x5457/ws-index/internal/metrics"
	"github.com/0x5457/ws-index/internal/models"
	"github.com/0x5457/ws-index/internal/storage"
	"github.com/0x5457/ws-index/internal/util"
	"github.com/0x5457/ws-index/internal/workspace"
	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"
)

var (
	ErrEmptyQuery      = errors.New("query is empty")
	ErrInvalidLimit    = errors.New("limit must not be negative")
	ErrInvalidKind     = errors.New("unknown symbol kind")
	ErrInvalidMaxBytes = errors.New("maxBytes must not be negative")
)

// maxLineContent bounds the text returned per content match.
const maxLineContent = 500

// Service answers read-only queries against the index store. Files are read
// from Root, which every caller supplied path must resolve inside.
type Service struct {
	Store   storage.IndexStore
	Root    string
	Metrics *metrics.Metrics
	Log     *zap.Logger
	// FuzzyThreshold is the normalized edit distance below which a path is a
	// fuzzy match. Zero selects the default.
	FuzzyThreshold float64
}

func (s *Service) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func resolveLimit(limit, def, ceiling int) (int, error) {
	switch {
	case limit < 0:
		return 0, fmt.Errorf("%d: %w", limit, ErrInvalidLimit)
	case limit == 0:
		return def, nil
	case limit > ceiling:
		return ceiling, nil
	}
	return limit, nil
}

func normalizeQuery(q string) (string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", ErrEmptyQuery
	}
	return strings.ToLower(q), nil
}

// SearchFiles ranks indexed paths against query. Substring matches come
// first: exact basename, then basename substring, then anywhere in the path,
// each ordered by match position. Files declaring a symbol named query follow.
// Only when both are empty are paths ranked by edit distance.
func (s *Service) SearchFiles(ctx context.Context, query string, limit int) ([]models.PathHit, error) {
	q, err := normalizeQuery(query)
	if err != nil {
		return nil, err
	}
	limit, err = resolveLimit(limit, constants.DefaultPathLimit, constants.MaxPathLimit)
	if err != nil {
		return nil, err
	}
	defer s.Metrics.ObserveQuery("path", time.Now())

	files, err := s.Store.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	hits := []models.PathHit{}
	seen := map[string]bool{}
	for _, f := range files {
		if score, ok := substringScore(q, f.Path); ok {
			hits = append(hits, models.PathHit{Path: f.Path, Match: models.MatchSubstring, Score: score})
			seen[f.Path] = true
		}
	}

	owners, err := s.Store.FilesDeclaring(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("symbol owners: %w", err)
	}
	ownerHits := []models.PathHit{}
	for _, p := range owners {
		if !seen[p] {
			ownerHits = append(ownerHits, models.PathHit{Path: p, Match: models.MatchSymbol, Score: 3})
		}
	}

	if len(hits) == 0 && len(ownerHits) == 0 {
		threshold := s.FuzzyThreshold
		if threshold <= 0 {
			threshold = constants.DefaultFuzzyThreshold
		}
		for _, f := range files {
			if d := fuzzyDistance(q, f.Path); d < threshold {
				hits = append(hits, models.PathHit{Path: f.Path, Match: models.MatchFuzzy, Score: d})
			}
		}
	}
	sortHits(hits)
	hits = append(hits, ownerHits...)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// substringScore places a match in [0,1) for an exact basename, [1,2) for a
// basename substring and [2,3) for any other substring, earlier positions
// scoring lower.
func substringScore(q, p string) (float64, bool) {
	lp := strings.ToLower(p)
	base := path.Base(lp)
	span := float64(len(lp) + 1)
	switch {
	case base == q:
		return 0, true
	case strings.Contains(base, q):
		return 1 + float64(strings.Index(base, q))/span, true
	case strings.Contains(lp, q):
		return 2 + float64(strings.Index(lp, q))/span, true
	}
	return 0, false
}

// fuzzyDistance is the smaller normalized Levenshtein distance of q to the
// whole path and to its basename.
func fuzzyDistance(q, p string) float64 {
	lp := strings.ToLower(p)
	return min(normalized(q, lp), normalized(q, path.Base(lp)))
}

func normalized(a, b string) float64 {
	n := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if n == 0 {
		return 0
	}
	return float64(levenshtein.ComputeDistance(a, b)) / float64(n)
}

func sortHits(hits []models.PathHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score < hits[j].Score
		}
		return hits[i].Path < hits[j].Path
	})
}

// SearchContent greps every indexed file line by line, case-insensitively.
// Files that cannot be read or look binary are skipped.
func (s *Service) SearchContent(ctx context.Context, query string, limit int) ([]models.ContentHit, error) {
	q, err := normalizeQuery(query)
	if err != nil {
		return nil, err
	}
	limit, err = resolveLimit(limit, constants.DefaultPathLimit, constants.MaxPathLimit)
	if err != nil {
		return nil, err
	}
	defer s.Metrics.ObserveQuery("content", time.Now())

	files, err := s.Store.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	hits := []models.ContentHit{}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		abs, _, err := workspace.Resolve(s.Root, f.Path)
		if err != nil {
			s.log().Debug("content search skip", zap.String("file", f.Path), zap.Error(err))
			continue
		}
		content, err := os.ReadFile(abs)
		if err != nil || util.IsBinary(content) {
			continue
		}
		for i, line := range strings.Split(string(content), "\n") {
			n := strings.Count(strings.ToLower(line), q)
			if n == 0 {
				continue
			}
			line = strings.TrimRight(line, "\r")
			if len(line) > maxLineContent {
				line = truncateUTF8(line, maxLineContent)
			}
			hits = append(hits, models.ContentHit{File: f.Path, Line: i + 1, Content: line, MatchCount: n})
			if len(hits) >= limit {
				return hits, nil
			}
		}
	}
	return hits, nil
}

// ListSymbols returns symbols matching filter ordered by path then line.
func (s *Service) ListSymbols(ctx context.Context, filter models.SymbolFilter) ([]models.SymbolHit, error) {
	limit, err := resolveLimit(filter.Limit, constants.DefaultSymbolLimit, constants.MaxSymbolLimit)
	if err != nil {
		return nil, err
	}
	filter.Limit = limit
	if filter.Kind != "" {
		if _, ok := models.ParseSymbolKind(string(filter.Kind)); !ok {
			return nil, fmt.Errorf("%q: %w", filter.Kind, ErrInvalidKind)
		}
	}
	if filter.FilePath != "" {
		_, rel, err := workspace.Resolve(s.Root, filter.FilePath)
		if err != nil {
			return nil, err
		}
		filter.FilePath = rel
	}
	filter.Name = strings.TrimSpace(filter.Name)
	defer s.Metrics.ObserveQuery("symbols", time.Now())

	hits, err := s.Store.ListSymbols(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	if hits == nil {
		hits = []models.SymbolHit{}
	}
	return hits, nil
}

// Search unions path hits and symbol name hits for one query. Each side is
// capped at limit.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]models.SearchHit, error) {
	paths, err := s.SearchFiles(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	symbols, err := s.ListSymbols(ctx, models.SymbolFilter{Name: query, Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]models.SearchHit, 0, len(paths)+len(symbols))
	for _, p := range paths {
		out = append(out, models.SearchHit{Type: models.HitFile, Path: p.Path, Score: p.Score})
	}
	for _, h := range symbols {
		sym := h.Symbol
		out = append(out, models.SearchHit{Type: models.HitSymbol, Path: h.File, Symbol: &sym})
	}
	return out, nil
}

// Document returns the current content of an indexed workspace file,
// truncated to maxBytes (zero selects the default). Paths escaping the
// workspace or absent from the index are rejected before anything is read.
func (s *Service) Document(ctx context.Context, p string, maxBytes int) (*models.Document, error) {
	switch {
	case maxBytes < 0:
		return nil, fmt.Errorf("%d: %w", maxBytes, ErrInvalidMaxBytes)
	case maxBytes == 0:
		maxBytes = constants.DefaultMaxDocumentBytes
	}
	abs, rel, err := workspace.Resolve(s.Root, p)
	if err != nil {
		return nil, err
	}
	defer s.Metrics.ObserveQuery("document", time.Now())

	if _, err := s.Store.GetFile(ctx, rel); err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", rel, storage.ErrNotFound)
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", rel)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}

	doc := &models.Document{
		Path:  rel,
		Lang:  lang.Detect(rel).String(),
		Size:  info.Size(),
		Lines: util.CountLines(content),
	}
	if len(content) > maxBytes {
		doc.Content = truncateUTF8(string(content), maxBytes)
		doc.Truncated = true
	} else {
		doc.Content = string(content)
	}
	return doc, nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
