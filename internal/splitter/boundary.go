package splitter

import (
	"regexp"
	"strings"
)

var (
	importRe    = regexp.MustCompile(`^import(\s|\{|\*|'|")`)
	requireRe   = regexp.MustCompile(`^(const|let|var)\s+[^=]+=\s*require\(`)
	directiveRe = regexp.MustCompile(`^['"]use [a-z ]+['"];?$`)

	declRe = regexp.MustCompile(
		`^(export\s+)?(default\s+)?(declare\s+)?(abstract\s+)?(async\s+)?` +
			`(function\b|class\b|interface\b|type\s+[\w$]|enum\b|const\s+enum\b|namespace\b)`,
	)
	exportRe = regexp.MustCompile(`^export\b`)
	arrowRe  = regexp.MustCompile(
		`^(const|let|var)\s+[\w$]+\s*(:[^=]+)?=\s*(async\s+)?` +
			`((\([^)]*\)|[\w$]+)\s*(:\s*[^=]+)?=>|function\b)`,
	)
	defaultExportRe = regexp.MustCompile(`^export\s+default\b|^export\s*\{[^}]*\bas\s+default\b`)

	specifierRe = regexp.MustCompile(`((?:\bfrom|\bimport\(?|\brequire\()\s*)(['"])(\.\.?(?:/[^'"]*)?)(['"])`)
)

// isDeclStart reports whether a trimmed line opens a top-level declaration.
func isDeclStart(t string) bool {
	return declRe.MatchString(t) || exportRe.MatchString(t) || arrowRe.MatchString(t)
}

func isComment(t string) bool {
	return strings.HasPrefix(t, "//") || strings.HasPrefix(t, "/*") ||
		strings.HasPrefix(t, "*") || strings.HasPrefix(t, "*/")
}

// splitHeader separates the leading block of blank lines, comments, imports,
// require statements and directives from the body.
func splitHeader(lines []string) (header, body []string) {
	depth := 0
	inComment := false
	for i, l := range lines {
		t := strings.TrimSpace(l)
		switch {
		case inComment:
			if strings.Contains(t, "*/") {
				inComment = false
			}
		case depth > 0:
			depth += braceDelta(t)
		case t == "" || strings.HasPrefix(t, "//"):
		case strings.HasPrefix(t, "/*"):
			inComment = !strings.Contains(t[2:], "*/")
		case importRe.MatchString(t) || requireRe.MatchString(t) || directiveRe.MatchString(t):
			depth = max(braceDelta(t), 0)
		default:
			return lines[:i], lines[i:]
		}
	}
	return lines, nil
}

type segment struct{ start, end int }

// segments cuts the body at every declaration start found at brace depth
// zero. Comments and decorators directly above a declaration move with it.
// Lines before the first declaration belong to the first segment.
func segments(body []string) []segment {
	var segs []segment
	start := 0
	depth := 0
	for i, l := range body {
		t := strings.TrimSpace(l)
		if depth == 0 && i > start && isDeclStart(t) {
			cut := i
			for cut > start && attached(strings.TrimSpace(body[cut-1])) {
				cut--
			}
			if cut > start {
				segs = append(segs, segment{start, cut})
				start = cut
			}
		}
		depth = max(depth+braceDelta(t), 0)
	}
	if start < len(body) {
		segs = append(segs, segment{start, len(body)})
	}
	return segs
}

func attached(t string) bool {
	return isComment(t) || strings.HasPrefix(t, "@")
}

// pack groups consecutive segments into chunks, closing a chunk at the last
// boundary before header plus chunk would exceed maxLines. A segment that is
// larger than the limit on its own becomes a chunk by itself.
func pack(body []string, segs []segment, headerLen, maxLines int) [][]string {
	var chunks [][]string
	var cur []string
	for _, sg := range segs {
		seg := body[sg.start:sg.end]
		if len(cur) > 0 && headerLen+len(cur)+len(seg) > maxLines {
			chunks = append(chunks, cur)
			cur = nil
		}
		cur = append(cur, seg...)
	}
	if len(cur) > 0 {
		chunks = append(chunks, cur)
	}
	return chunks
}

func hasDefaultExport(chunk []string) bool {
	for _, l := range chunk {
		if defaultExportRe.MatchString(strings.TrimSpace(l)) {
			return true
		}
	}
	return false
}

// rewriteSpecifiers moves relative module specifiers in from, import and
// require forms one directory up, since parts live in a subdirectory of the
// original file.
func rewriteSpecifiers(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = specifierRe.ReplaceAllStringFunc(l, func(m string) string {
			sub := specifierRe.FindStringSubmatch(m)
			spec := sub[3]
			if strings.HasPrefix(spec, "..") {
				spec = "../" + spec
			} else {
				spec = ".." + spec[1:]
			}
			return sub[1] + sub[2] + spec + sub[4]
		})
	}
	return out
}

// braceDelta counts '{' minus '}' on a line, skipping string literals and
// trailing line comments. Template literals spanning lines are not tracked.
func braceDelta(line string) int {
	delta := 0
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '/':
			if i+1 < len(line) && line[i+1] == '/' {
				return delta
			}
		case '{':
			delta++
		case '}':
			delta--
		}
	}
	return delta
}
