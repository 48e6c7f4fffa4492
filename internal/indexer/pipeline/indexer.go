package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/0x5457/ws-index/internal/ignore"
	"github.com/0x5457/ws-index/internal/indexer"
	"github.com/0x5457/ws-index/internal/lang"
	"github.com/0x5457/ws-index/internal/metrics"
	"github.com/0x5457/ws-index/internal/models"
	"github.com/0x5457/ws-index/internal/parser"
	"github.com/0x5457/ws-index/internal/splitter"
	"github.com/0x5457/ws-index/internal/storage"
	"github.com/0x5457/ws-index/internal/util"
	"github.com/0x5457/ws-index/internal/walker"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Options struct {
	// Ignore patterns are added to the workspace .gitignore rules.
	Ignore []string
	// Include, when non-empty, restricts indexing to matching files.
	Include []string
}

type Indexer struct {
	p       parser.Parser
	store   storage.IndexStore
	split   *splitter.Splitter
	metrics *metrics.Metrics
	log     *zap.Logger
	opt     Options

	// passes collapses overlapping passes over the same root into one.
	passes singleflight.Group
}

func New(
	p parser.Parser,
	s storage.IndexStore,
	sp *splitter.Splitter,
	m *metrics.Metrics,
	log *zap.Logger,
	opt Options,
) *Indexer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Indexer{p: p, store: s, split: sp, metrics: m, log: log, opt: opt}
}

func (i *Indexer) IndexProject(ctx context.Context, root string) (*models.IndexReport, error) {
	return i.shared(ctx, root, nil)
}

func (i *Indexer) IndexProjectProgress(
	ctx context.Context,
	root string,
) (<-chan models.IndexProgress, <-chan error) {
	progCh := make(chan models.IndexProgress, 64)
	errCh := make(chan error, 1)
	go func() {
		defer close(progCh)
		defer close(errCh)
		emit := func(p models.IndexProgress) {
			// Progress is advisory; a slow reader drops updates rather
			// than stalling the pass.
			select {
			case progCh <- p:
			default:
			}
		}
		report, err := i.shared(ctx, root, emit)
		if err != nil {
			errCh <- err
			return
		}
		done := models.IndexProgress{
			Stage:      models.IndexStageDone,
			TotalFiles: report.Files,
			Processed:  report.Files,
			Symbols:    report.Symbols,
			Splits:     len(report.Splits),
			Percent:    1,
		}
		select {
		case progCh <- done:
		case <-ctx.Done():
		}
	}()
	return progCh, errCh
}

func (i *Indexer) Status(ctx context.Context) (models.IndexStatus, error) {
	return i.store.Status(ctx)
}

func (i *Indexer) SplitLargeFile(
	_ context.Context,
	root, path string,
	maxLines int,
) (*models.SplitSummary, error) {
	sum, err := i.split.Split(root, path, maxLines)
	if err == nil && sum != nil {
		i.metrics.Split()
	}
	return sum, err
}

func (i *Indexer) shared(
	ctx context.Context,
	root string,
	emit func(models.IndexProgress),
) (*models.IndexReport, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	v, err, _ := i.passes.Do(abs, func() (any, error) {
		return i.run(ctx, abs, emit)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.IndexReport), nil
}

// run performs one pass. Walked paths seed a FIFO queue; files generated by
// a split are appended to it and processed in the same pass. The seen set
// doubles as the observed set for pruning.
func (i *Indexer) run(
	ctx context.Context,
	root string,
	emit func(models.IndexProgress),
) (*models.IndexReport, error) {
	// A pass runs to completion once started.
	ctx = context.WithoutCancel(ctx)
	if emit == nil {
		emit = func(models.IndexProgress) {}
	}
	start := time.Now()

	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	i.log.Info("index pass started", zap.String("root", root))
	matcher := ignore.Build(root,
		ignore.WithPatterns(i.opt.Ignore...),
		ignore.WithInclude(i.opt.Include...),
		ignore.WithLogger(i.log),
	)
	w := walker.New(matcher, i.log)
	queue, err := w.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	emit(models.IndexProgress{Stage: models.IndexStageScan, TotalFiles: len(queue)})

	report := &models.IndexReport{}
	seen := make(map[string]struct{}, len(queue))
	processed, symbols := 0, 0
	for len(queue) > 0 {
		rel := queue[0]
		queue = queue[1:]
		if _, dup := seen[rel]; dup {
			continue
		}
		seen[rel] = struct{}{}

		res := i.indexFile(ctx, root, rel)
		if res.failed {
			report.Failed++
		}
		symbols += res.symbols
		if res.split != nil {
			report.Splits = append(report.Splits, *res.split)
			for _, g := range res.split.Generated() {
				if w.Admits(g) {
					queue = append(queue, g)
				}
			}
		}

		processed++
		total := processed + len(queue)
		emit(models.IndexProgress{
			Stage:       models.IndexStageIndex,
			TotalFiles:  total,
			Processed:   processed,
			Symbols:     symbols,
			Splits:      len(report.Splits),
			CurrentFile: rel,
			Percent:     float32(processed) / float32(total),
		})
	}

	emit(models.IndexProgress{Stage: models.IndexStagePrune, TotalFiles: processed, Processed: processed})
	pruned, err := i.store.PruneMissing(ctx, seen)
	if err != nil {
		i.log.Error("prune failed", zap.Error(err))
	}
	report.Pruned = pruned
	i.metrics.Pruned(pruned)

	if err := i.store.SetMeta(ctx, storage.MetaLastRun, strconv.FormatInt(time.Now().UnixMilli(), 10)); err != nil {
		i.log.Warn("record last run failed", zap.Error(err))
	}
	if err := i.store.SetMeta(ctx, storage.MetaRoot, root); err != nil {
		i.log.Warn("record root failed", zap.Error(err))
	}

	st, err := i.store.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	report.Files = st.Files
	report.Symbols = st.Symbols
	report.Duration = time.Since(start)
	i.metrics.PassDone(report.Duration)

	i.log.Info("index pass finished",
		zap.String("root", root),
		zap.Int("files", report.Files),
		zap.Int("symbols", report.Symbols),
		zap.Int("splits", len(report.Splits)),
		zap.Int("failed", report.Failed),
		zap.Int("pruned", report.Pruned),
		zap.Duration("took", report.Duration),
	)
	return report, nil
}

type fileResult struct {
	split   *models.SplitSummary
	symbols int
	failed  bool
}

// indexFile splits rel when oversized, then stores its record and, when the
// content changed, its freshly extracted symbols. Failures are logged and
// reported, never returned.
func (i *Indexer) indexFile(ctx context.Context, root, rel string) fileResult {
	var res fileResult
	log := i.log.With(zap.String("file", rel))

	if i.split != nil {
		sum, err := i.split.Split(root, rel, 0)
		switch {
		case err != nil:
			log.Warn("split failed", zap.Error(err))
			i.metrics.FileError(metrics.StageSplit)
			res.failed = true
		case sum != nil:
			res.split = sum
			i.metrics.Split()
		}
	}

	abs := filepath.Join(root, filepath.FromSlash(rel))
	content, err := os.ReadFile(abs)
	if err != nil {
		log.Warn("skip unreadable file", zap.Error(err))
		i.metrics.FileError(metrics.StageRead)
		res.failed = true
		return res
	}
	info, err := os.Stat(abs)
	if err != nil {
		log.Warn("skip unreadable file", zap.Error(err))
		i.metrics.FileError(metrics.StageRead)
		res.failed = true
		return res
	}

	language := lang.Detect(rel)
	rec := models.FileRecord{
		Path:      rel,
		Size:      info.Size(),
		Lines:     util.CountLines(content),
		Hash:      util.ContentHash(content),
		Lang:      language.String(),
		MTime:     info.ModTime().UnixMilli(),
		CreatedAt: info.ModTime().UnixMilli(),
	}

	replace := true
	existing, err := i.store.GetFile(ctx, rel)
	switch {
	case err == nil:
		replace = existing.Hash != rec.Hash || existing.Lang != rec.Lang
	case !errors.Is(err, storage.ErrNotFound):
		log.Warn("lookup failed", zap.Error(err))
	}

	var syms []models.SymbolRecord
	if replace && language.Parseable() && !util.IsBinary(content) {
		syms, err = i.p.Extract(rel, content)
		if err != nil {
			// Keep the previous row so the next pass retries.
			log.Warn("symbol extraction failed", zap.Error(err))
			i.metrics.FileError(metrics.StageParse)
			res.failed = true
			return res
		}
	}

	if _, err := i.store.SaveFile(ctx, rec, syms, replace); err != nil {
		log.Warn("store failed", zap.Error(err))
		i.metrics.FileError(metrics.StageStore)
		res.failed = true
		return res
	}
	i.metrics.FileIndexed()
	res.symbols = len(syms)
	log.Debug("indexed", zap.Bool("changed", replace), zap.Int("symbols", len(syms)))
	return res
}

var _ indexer.Indexer = (*Indexer)(nil)
