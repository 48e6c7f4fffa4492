// Package ignore answers whether a workspace-relative path is excluded by the
// workspace .gitignore plus configured overrides.
package ignore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"
)

type Matcher struct {
	ignore  *gitignore.GitIgnore
	include *gitignore.GitIgnore
}

type options struct {
	extra   []string
	include []string
	log     *zap.Logger
}

type Option func(*options)

// WithPatterns appends gitignore-style patterns after the .gitignore rules.
func WithPatterns(patterns ...string) Option {
	return func(o *options) { o.extra = append(o.extra, patterns...) }
}

// WithInclude restricts matched files to those matching at least one pattern.
func WithInclude(patterns ...string) Option {
	return func(o *options) { o.include = append(o.include, patterns...) }
}

func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// Build loads <root>/.gitignore if present. A missing or empty file ignores
// nothing; any other read error is logged and treated the same way.
func Build(root string, opts ...Option) *Matcher {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	var lines []string
	content, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	switch {
	case err == nil:
		lines = splitLines(string(content))
	case !errors.Is(err, os.ErrNotExist):
		o.log.Warn("read .gitignore failed", zap.String("root", root), zap.Error(err))
	}
	lines = append(lines, o.extra...)

	m := &Matcher{ignore: gitignore.CompileIgnoreLines(lines...)}
	if inc := nonEmpty(o.include); len(inc) > 0 {
		m.include = gitignore.CompileIgnoreLines(inc...)
	}
	return m
}

// IsIgnored reports whether rel is excluded. Directories are passed with a
// trailing slash so that "dir/" patterns apply to them.
func (m *Matcher) IsIgnored(rel string) bool {
	if m == nil || m.ignore == nil || rel == "" {
		return false
	}
	return m.ignore.MatchesPath(rel)
}

// IsIncluded reports whether a file passes the include overrides. With no
// include patterns every file is included.
func (m *Matcher) IsIncluded(rel string) bool {
	if m == nil || m.include == nil {
		return true
	}
	return m.include.MatchesPath(rel)
}

func splitLines(s string) []string {
	raw := strings.Split(s, "\n")
	out := raw[:0]
	for _, l := range raw {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
