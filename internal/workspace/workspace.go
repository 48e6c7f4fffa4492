// Package workspace enforces the workspace root boundary for every path that
// is read on behalf of a caller.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrEmptyPath        = errors.New("path is empty")
	ErrTraversal        = errors.New("path contains traversal segments")
	ErrOutsideWorkspace = errors.New("path resolves outside the workspace root")
)

// Resolve validates p against root and returns its absolute path together
// with the workspace-relative POSIX form. p may be relative to root or
// absolute. Paths with ".." segments are rejected even when they would land
// inside root, and symlinks are followed before the final boundary check.
func Resolve(root, p string) (abs, rel string, err error) {
	if strings.TrimSpace(p) == "" {
		return "", "", ErrEmptyPath
	}
	for _, seg := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return "", "", fmt.Errorf("%q: %w", p, ErrTraversal)
		}
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", "", fmt.Errorf("resolve workspace root: %w", err)
	}
	candidate := filepath.FromSlash(p)
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(rootAbs, candidate)
	}
	candidate = filepath.Clean(candidate)
	rel, ok := within(rootAbs, candidate)
	if !ok {
		return "", "", fmt.Errorf("%q: %w", p, ErrOutsideWorkspace)
	}

	// A symlink inside the workspace may still point outside of it.
	if real, err := filepath.EvalSymlinks(candidate); err == nil {
		realRoot, rerr := filepath.EvalSymlinks(rootAbs)
		if rerr != nil {
			realRoot = rootAbs
		}
		if _, ok := within(realRoot, real); !ok {
			return "", "", fmt.Errorf("%q: %w", p, ErrOutsideWorkspace)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", "", fmt.Errorf("resolve %q: %w", p, err)
	}
	return candidate, rel, nil
}

// RelPath converts an absolute path under root into its workspace-relative
// POSIX form.
func RelPath(root, abs string) (string, error) {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func within(root, p string) (string, bool) {
	rel, err := filepath.Rel(root, p)
	if err != nil || filepath.IsAbs(rel) {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
