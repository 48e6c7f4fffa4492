package configfx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/0x5457/ws-index/internal/constants"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/fx"
)

// Config holds the application configuration
type Config struct {
	Root     string
	DBPath   string
	MaxLines int
	Ignore   []string // extra gitignore-style patterns
	Include  []string // when set, only matching files are indexed
	LogLevel string
	LogFile  string
}

// fileConfig mirrors <root>/.ws-index/config.toml.
type fileConfig struct {
	MaxLines int      `toml:"max_lines"`
	Ignore   []string `toml:"ignore"`
	Include  []string `toml:"include"`
	LogLevel string   `toml:"log_level"`
	LogFile  string   `toml:"log_file"`
}

// Params represents the parameters needed to create configuration
type Params struct {
	fx.In

	Root     string   `name:"root"     optional:"true"`
	DBPath   string   `name:"dbPath"   optional:"true"`
	MaxLines int      `name:"maxLines" optional:"true"`
	Ignore   []string `name:"ignore"   optional:"true"`
	Include  []string `name:"include"  optional:"true"`
	LogLevel string   `name:"logLevel" optional:"true"`
	LogFile  string   `name:"logFile"  optional:"true"`
}

// NewConfig creates a new configuration from explicit values, the workspace
// config file and defaults, in that order of precedence.
func NewConfig(params Params) (*Config, error) {
	config := &Config{
		Root:     params.Root,
		DBPath:   params.DBPath,
		MaxLines: params.MaxLines,
		Ignore:   params.Ignore,
		Include:  params.Include,
		LogLevel: params.LogLevel,
		LogFile:  params.LogFile,
	}
	if err := Resolve(config); err != nil {
		return nil, err
	}
	return config, nil
}

// Resolve fills unset fields of c from the workspace config file and the
// defaults. An explicit Root is made absolute; an empty one is the working
// directory.
func Resolve(c *Config) error {
	if c.Root == "" {
		c.Root = "."
	}
	root, err := filepath.Abs(c.Root)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}
	c.Root = root

	fc, err := loadFile(filepath.Join(root, constants.StateDir, constants.ConfigFileName))
	if err != nil {
		return err
	}
	if c.MaxLines <= 0 {
		c.MaxLines = fc.MaxLines
	}
	if len(c.Ignore) == 0 {
		c.Ignore = fc.Ignore
	}
	if len(c.Include) == 0 {
		c.Include = fc.Include
	}
	if c.LogLevel == "" {
		c.LogLevel = fc.LogLevel
	}
	if c.LogFile == "" {
		c.LogFile = fc.LogFile
	}

	// Set defaults
	if c.DBPath == "" {
		c.DBPath = filepath.Join(root, constants.StateDir, constants.DBFileName)
	}
	if c.MaxLines <= 0 {
		c.MaxLines = constants.DefaultMaxLines
	}
	if c.LogLevel == "" {
		c.LogLevel = constants.DefaultLogLevel
	}
	return nil
}

func loadFile(p string) (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fc, nil
		}
		return fc, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse %s: %w", p, err)
	}
	return fc, nil
}

// Module provides configuration for the application
var Module = fx.Module("config",
	fx.Provide(NewConfig),
)
