// Package splitter restructures source files that exceed a line-count policy
// into a directory of parts, an aggregator that re-exports every part, and a
// shim at the original path.
//
// Boundaries are found with line-level heuristics (declaration keywords at
// brace depth zero), not a parser. That keeps the splitter independent of any
// grammar; the cost is that a file whose declarations do not start with the
// recognized keywords is never split.
package splitter

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/0x5457/ws-index/internal/constants"
	"github.com/0x5457/ws-index/internal/lang"
	"github.com/0x5457/ws-index/internal/models"
	"github.com/0x5457/ws-index/internal/workspace"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("file not found")

const partsSuffix = "_parts"

// reexportExts are the extensions whose module syntax supports
// "export * from". CommonJS flavours (.cjs, .cts) are left alone.
var reexportExts = map[string]bool{
	".ts":  true,
	".tsx": true,
	".mts": true,
	".js":  true,
	".jsx": true,
	".mjs": true,
}

type Splitter struct {
	maxLines int
	log      *zap.Logger
}

func New(maxLines int, log *zap.Logger) *Splitter {
	if maxLines <= 0 {
		maxLines = constants.DefaultMaxLines
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Splitter{maxLines: maxLines, log: log}
}

func (s *Splitter) MaxLines() int { return s.maxLines }

// IsGenerated reports whether rel was produced by a split: it lives under a
// "<stem>_parts" directory or its name carries a ".part" segment. Such files
// are never split again.
func IsGenerated(rel string) bool {
	rel = filepath.ToSlash(rel)
	dir, base := path.Split(rel)
	for _, seg := range strings.Split(dir, "/") {
		if strings.HasSuffix(seg, partsSuffix) {
			return true
		}
	}
	ok, _ := path.Match("*.part*.*", base)
	return ok
}

// Split splits the workspace file p when it has more than maxLines lines.
// maxLines <= 0 selects the splitter's configured limit. It returns nil when
// no split is needed or possible: the file is short enough, generated by an
// earlier split, in a language without module re-exports, or made of fewer
// than two top-level chunks.
func (s *Splitter) Split(root, p string, maxLines int) (*models.SplitSummary, error) {
	if maxLines <= 0 {
		maxLines = s.maxLines
	}
	abs, rel, err := workspace.Resolve(root, p)
	if err != nil {
		return nil, err
	}
	if IsGenerated(rel) {
		return nil, nil
	}
	ext := path.Ext(rel)
	if !lang.Detect(rel).ModuleReexport() || !reexportExts[strings.ToLower(ext)] {
		return nil, nil
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", rel, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	lines := textLines(string(content))
	if len(lines) <= maxLines {
		return nil, nil
	}

	header, body := splitHeader(lines)
	chunks := pack(body, segments(body), len(header), maxLines)
	if len(chunks) < 2 {
		s.log.Info("split declined: no top-level boundary",
			zap.String("file", rel),
			zap.Int("lines", len(lines)),
			zap.Int("max_lines", maxLines),
		)
		return nil, nil
	}

	summary, err := s.write(abs, rel, ext, header, chunks)
	if err != nil {
		return nil, err
	}
	summary.MaxLines = maxLines
	s.log.Info("split oversized file",
		zap.String("file", rel),
		zap.Int("lines", len(lines)),
		zap.Int("parts", len(summary.Parts)),
	)
	return summary, nil
}

func (s *Splitter) write(abs, rel, ext string, header []string, chunks [][]string) (*models.SplitSummary, error) {
	base := filepath.Base(abs)
	stem := strings.TrimSuffix(base, ext)
	partsDirName := stem + partsSuffix
	partsDir := filepath.Join(filepath.Dir(abs), partsDirName)
	relDir := path.Dir(rel)

	if err := os.MkdirAll(partsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", partsDirName, err)
	}

	partHeader := rewriteSpecifiers(header)
	summary := &models.SplitSummary{Original: rel}
	written := make(map[string]bool, len(chunks))
	defaultPart := ""
	for i, chunk := range chunks {
		name := fmt.Sprintf("%s.part%d%s", stem, i+1, ext)
		if err := writeLines(filepath.Join(partsDir, name), partHeader, rewriteSpecifiers(chunk)); err != nil {
			return nil, err
		}
		written[name] = true
		summary.Parts = append(summary.Parts, path.Join(relDir, partsDirName, name))
		if defaultPart == "" && hasDefaultExport(chunk) {
			defaultPart = name
		}
	}
	if err := removeStaleParts(partsDir, stem, ext, written); err != nil {
		s.log.Warn("remove stale parts failed", zap.String("dir", partsDirName), zap.Error(err))
	}

	aggregator := "index" + ext
	agg := []string{fmt.Sprintf("// Generated by ws-index from %s. Edit the part files, not this index.", base)}
	for _, name := range partNames(summary.Parts) {
		agg = append(agg, fmt.Sprintf("export * from '%s';", specifier("./"+name, ext)))
	}
	if defaultPart != "" {
		agg = append(agg, fmt.Sprintf("export { default } from '%s';", specifier("./"+defaultPart, ext)))
	}
	if err := writeLines(filepath.Join(partsDir, aggregator), agg); err != nil {
		return nil, err
	}
	summary.Aggregator = path.Join(relDir, partsDirName, aggregator)

	target := specifier("./"+partsDirName+"/"+aggregator, ext)
	shim := []string{
		fmt.Sprintf("// Split by ws-index into ./%s.", partsDirName),
		fmt.Sprintf("export * from '%s';", target),
	}
	if defaultPart != "" {
		shim = append(shim, fmt.Sprintf("export { default } from '%s';", target))
	}
	if err := writeLines(abs, shim); err != nil {
		return nil, err
	}
	return summary, nil
}

// specifier turns a generated file name into the import specifier the
// surrounding toolchain resolves: TypeScript drops the extension, ESM
// TypeScript points at the emitted .mjs, JavaScript keeps it.
func specifier(name, ext string) string {
	switch strings.ToLower(ext) {
	case ".ts", ".tsx":
		return strings.TrimSuffix(name, ext)
	case ".mts":
		return strings.TrimSuffix(name, ext) + ".mjs"
	default:
		return name
	}
}

func partNames(parts []string) []string {
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = path.Base(p)
	}
	return out
}

func removeStaleParts(dir, stem, ext string, keep map[string]bool) error {
	matches, err := filepath.Glob(filepath.Join(dir, globEscape(stem)+".part*"+globEscape(ext)))
	if err != nil {
		return err
	}
	var errs []error
	for _, m := range matches {
		if keep[filepath.Base(m)] {
			continue
		}
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func globEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`)
	return r.Replace(s)
}

func writeLines(p string, blocks ...[]string) error {
	var b strings.Builder
	for _, block := range blocks {
		for _, l := range block {
			b.WriteString(l)
			b.WriteByte('\n')
		}
	}
	if err := os.WriteFile(p, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(p), err)
	}
	return nil
}

// textLines splits content into lines, dropping the empty element a trailing
// newline would leave behind.
func textLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	lines := strings.Split(content, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}
