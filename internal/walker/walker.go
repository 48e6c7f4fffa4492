package walker

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/0x5457/ws-index/internal/constants"
	"github.com/0x5457/ws-index/internal/ignore"
	"go.uber.org/zap"
)

// denyDirs are never descended into, whatever the ignore rules say.
var denyDirs = map[string]bool{
	".git":             true,
	".svn":             true,
	".hg":              true,
	"node_modules":     true,
	"bower_components": true,
	".pnpm-store":      true,
	".yarn":            true,
	".venv":            true,
	"__pycache__":      true,
	".mypy_cache":      true,
	".pytest_cache":    true,
	"dist":             true,
	"build":            true,
	"out":              true,
	"target":           true,
	"coverage":         true,
	".next":            true,
	".turbo":           true,
	".cache":           true,
	constants.StateDir: true,
}

// IsDenied reports whether a directory name is on the fixed denylist.
func IsDenied(name string) bool { return denyDirs[name] }

type Walker struct {
	matcher *ignore.Matcher
	log     *zap.Logger
}

func New(matcher *ignore.Matcher, log *zap.Logger) *Walker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Walker{matcher: matcher, log: log}
}

// Walk returns every regular file under root as a sorted list of
// workspace-relative POSIX paths. Symlinks are not followed. A directory that
// cannot be read is logged and skipped; the walk continues with its siblings.
func (w *Walker) Walk(root string) ([]string, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, err
	}

	var files []string
	stack := []string{""}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(filepath.Join(root, filepath.FromSlash(dir)))
		if err != nil {
			w.log.Warn("skip unreadable directory", zap.String("dir", displayDir(dir)), zap.Error(err))
			continue
		}
		for _, e := range entries {
			rel := path.Join(dir, e.Name())
			switch {
			case e.Type()&fs.ModeSymlink != 0:
				continue
			case e.IsDir():
				if denyDirs[e.Name()] || w.matcher.IsIgnored(rel+"/") {
					continue
				}
				stack = append(stack, rel)
			case e.Type().IsRegular():
				if w.matcher.IsIgnored(rel) || !w.matcher.IsIncluded(rel) {
					continue
				}
				files = append(files, rel)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// Admits reports whether a walk would collect rel: none of its parent
// directories is denied or ignored and the file itself passes the matcher.
// Files written during a pass are checked with it so that the next walk
// observes the same set.
func (w *Walker) Admits(rel string) bool {
	rel = filepath.ToSlash(rel)
	dir := ""
	segs := strings.Split(path.Dir(rel), "/")
	for _, seg := range segs {
		if seg == "." || seg == "" {
			continue
		}
		dir = path.Join(dir, seg)
		if denyDirs[seg] || w.matcher.IsIgnored(dir+"/") {
			return false
		}
	}
	return !w.matcher.IsIgnored(rel) && w.matcher.IsIncluded(rel)
}

func displayDir(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}
