package factory

import (
	"fmt"

	"github.com/0x5457/ws-index/internal/config/configfx"
	"github.com/0x5457/ws-index/internal/indexer/pipeline"
	"github.com/0x5457/ws-index/internal/logger"
	"github.com/0x5457/ws-index/internal/metrics"
	"github.com/0x5457/ws-index/internal/parser"
	"github.com/0x5457/ws-index/internal/parser/tsparser"
	"github.com/0x5457/ws-index/internal/search"
	"github.com/0x5457/ws-index/internal/splitter"
	"github.com/0x5457/ws-index/internal/storage"
	"github.com/0x5457/ws-index/internal/storage/storagefx"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Components holds all the main components
type Components struct {
	Config   *configfx.Config
	Log      *zap.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Parser   parser.Parser
	Store    storage.IndexStore
	Splitter *splitter.Splitter
	Indexer  *pipeline.Indexer
	Searcher *search.Service
}

// ComponentFactory creates component instances without the fx container,
// for one-shot commands.
type ComponentFactory struct {
	config *configfx.Config
}

// NewComponentFactory resolves config and returns a factory for it
func NewComponentFactory(config configfx.Config) (*ComponentFactory, error) {
	if err := configfx.Resolve(&config); err != nil {
		return nil, err
	}
	return &ComponentFactory{config: &config}, nil
}

// Config returns the resolved configuration
func (f *ComponentFactory) Config() *configfx.Config { return f.config }

// CreateComponents creates all components with the given configuration
func (f *ComponentFactory) CreateComponents() (*Components, error) {
	log, err := f.CreateLogger()
	if err != nil {
		return nil, fmt.Errorf("create logger failed: %w", err)
	}

	store, err := f.CreateIndexStore()
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("create index store failed: %w", err)
	}

	reg := prometheus.NewRegistry()
	c := &Components{
		Config:   f.config,
		Log:      log,
		Registry: reg,
		Metrics:  metrics.New(reg),
		Parser:   tsparser.New(log.Named("parser")),
		Store:    store,
		Splitter: splitter.New(f.config.MaxLines, log.Named("splitter")),
	}
	c.Indexer = f.CreateIndexer(c)
	c.Searcher = f.CreateSearchService(c)
	return c, nil
}

// CreateLogger creates the process logger
func (f *ComponentFactory) CreateLogger() (*zap.Logger, error) {
	return logger.New(logger.Options{Level: f.config.LogLevel, File: f.config.LogFile})
}

// CreateIndexStore opens the index database
func (f *ComponentFactory) CreateIndexStore() (storage.IndexStore, error) {
	return storagefx.Open(f.config.DBPath)
}

// CreateSearchService creates a search service instance
func (f *ComponentFactory) CreateSearchService(c *Components) *search.Service {
	return &search.Service{
		Store:   c.Store,
		Root:    f.config.Root,
		Metrics: c.Metrics,
		Log:     c.Log.Named("search"),
	}
}

// CreateIndexer creates an indexer instance with the given components
func (f *ComponentFactory) CreateIndexer(c *Components) *pipeline.Indexer {
	return pipeline.New(
		c.Parser,
		c.Store,
		c.Splitter,
		c.Metrics,
		c.Log.Named("indexer"),
		pipeline.Options{Ignore: f.config.Ignore, Include: f.config.Include},
	)
}

// Cleanup releases resources held by components
func (c *Components) Cleanup() error {
	if c.Log != nil {
		_ = c.Log.Sync()
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			return fmt.Errorf("close index store failed: %w", err)
		}
	}
	return nil
}
