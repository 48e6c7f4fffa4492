package constants

const (
	// StateDir is the tool's private directory inside a workspace root.
	StateDir       = ".ws-index"
	DBFileName     = "index.db"
	ConfigFileName = "config.toml"

	DefaultMaxLines = 300

	DefaultPathLimit   = 20
	MaxPathLimit       = 200
	DefaultSymbolLimit = 50
	MaxSymbolLimit     = 500

	// DefaultFuzzyThreshold is the normalized edit distance below which a
	// path is kept as a fuzzy match.
	DefaultFuzzyThreshold = 0.4

	DefaultMaxDocumentBytes = 1 << 20

	DefaultLogLevel = "info"
)
