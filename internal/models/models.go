package models

import "time"

type SymbolKind string

const (
	SymbolFunction  SymbolKind = "function"
	SymbolMethod    SymbolKind = "method"
	SymbolClass     SymbolKind = "class"
	SymbolInterface SymbolKind = "interface"
	SymbolType      SymbolKind = "type"
	SymbolEnum      SymbolKind = "enum"
	SymbolVariable  SymbolKind = "variable"
)

var symbolKinds = map[SymbolKind]bool{
	SymbolFunction:  true,
	SymbolMethod:    true,
	SymbolClass:     true,
	SymbolInterface: true,
	SymbolType:      true,
	SymbolEnum:      true,
	SymbolVariable:  true,
}

// ParseSymbolKind maps a stored or user supplied kind onto a known SymbolKind.
func ParseSymbolKind(s string) (SymbolKind, bool) {
	k := SymbolKind(s)
	return k, symbolKinds[k]
}

// FileRecord is one indexed workspace file. Path is workspace relative with
// forward slashes and is the unique key.
type FileRecord struct {
	ID        int64  `json:"id"`
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	Lines     int    `json:"lines"`
	Hash      string `json:"hash"`
	Lang      string `json:"lang"`
	MTime     int64  `json:"mtime"`
	CreatedAt int64  `json:"createdAt"`
}

// SymbolRecord is a declaration extracted from a file. Line and Col are 1-based.
type SymbolRecord struct {
	Name string     `json:"name"`
	Kind SymbolKind `json:"kind"`
	Line int        `json:"line"`
	Col  int        `json:"col"`
}

// SplitSummary describes one split of an oversized file.
type SplitSummary struct {
	Original   string   `json:"original"`
	Parts      []string `json:"parts"`
	Aggregator string   `json:"aggregator"`
	MaxLines   int      `json:"maxLines"`
}

// Generated returns every file written by the split, original shim excluded.
func (s SplitSummary) Generated() []string {
	out := make([]string, 0, len(s.Parts)+1)
	out = append(out, s.Parts...)
	if s.Aggregator != "" {
		out = append(out, s.Aggregator)
	}
	return out
}

type IndexStatus struct {
	Files   int        `json:"files"`
	Symbols int        `json:"symbols"`
	LastRun *time.Time `json:"lastRun"`
	Root    string     `json:"root,omitempty"`
}

// IndexReport summarizes a completed pass.
type IndexReport struct {
	Files    int            `json:"files"`
	Symbols  int            `json:"symbols"`
	Splits   []SplitSummary `json:"splits,omitempty"`
	Failed   int            `json:"failed"`
	Pruned   int            `json:"pruned"`
	Duration time.Duration  `json:"duration"`
}

type MatchType string

const (
	MatchSubstring MatchType = "substring"
	MatchSymbol    MatchType = "symbol"
	MatchFuzzy     MatchType = "fuzzy"
)

// PathHit is a ranked path search result. Score is lower-is-better.
type PathHit struct {
	Path  string    `json:"path"`
	Match MatchType `json:"match"`
	Score float64   `json:"score"`
}

type ContentHit struct {
	File       string `json:"file"`
	Line       int    `json:"line"`
	Content    string `json:"content"`
	MatchCount int    `json:"matchCount"`
}

type SymbolHit struct {
	Symbol SymbolRecord `json:"symbol"`
	File   string       `json:"file"`
	FileID int64        `json:"fileId"`
}

type SymbolFilter struct {
	FilePath string     `json:"filePath,omitempty"`
	Name     string     `json:"name,omitempty"`
	Kind     SymbolKind `json:"kind,omitempty"`
	Limit    int        `json:"limit,omitempty"`
}

type HitType string

const (
	HitFile   HitType = "file"
	HitSymbol HitType = "symbol"
)

// SearchHit is a combined search result, either a file or a symbol.
type SearchHit struct {
	Type   HitType       `json:"type"`
	Path   string        `json:"path"`
	Score  float64       `json:"score,omitempty"`
	Symbol *SymbolRecord `json:"symbol,omitempty"`
}

type Document struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	Lang      string `json:"lang"`
	Size      int64  `json:"size"`
	Lines     int    `json:"lines"`
	Truncated bool   `json:"truncated"`
}

// Index progress and stages
type IndexStage string

const (
	IndexStageScan  IndexStage = "scan"
	IndexStageIndex IndexStage = "index"
	IndexStagePrune IndexStage = "prune"
	IndexStageDone  IndexStage = "done"
)

// IndexProgress represents streaming progress updates for indexing
type IndexProgress struct {
	Stage       IndexStage
	TotalFiles  int
	Processed   int
	Symbols     int
	Splits      int
	CurrentFile string
	Percent     float32
}
