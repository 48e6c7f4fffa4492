package commands

import (
	"context"
	"fmt"

	"github.com/0x5457/ws-index/cmd/cmdsfx"
	"github.com/0x5457/ws-index/internal/app/appfx"
	"github.com/0x5457/ws-index/internal/config/configfx"
	"github.com/0x5457/ws-index/internal/factory"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

// Globals are the flags shared by every command.
type Globals struct {
	Root       string
	DBPath     string
	MaxLines   int
	Ignore     []string
	Include    []string
	LogLevel   string
	LogFile    string
	JSONOutput bool
}

// Bind registers g as persistent flags of cmd.
func (g *Globals) Bind(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVarP(&g.Root, "root", "r", ".", "workspace root")
	f.StringVar(&g.DBPath, "db", "", "SQLite DB path, or :memory: for a throwaway index (default <root>/.ws-index/index.db)")
	f.IntVar(&g.MaxLines, "max-lines", 0, "split files longer than this (default 300)")
	f.StringSliceVar(&g.Ignore, "ignore", nil, "extra gitignore-style patterns to skip")
	f.StringSliceVar(&g.Include, "include", nil, "only index files matching these patterns")
	f.StringVar(&g.LogLevel, "log-level", "", "log level: debug, info, warn, error (default info)")
	f.StringVar(&g.LogFile, "log-file", "", "also write JSON logs to this rotating file")
	f.BoolVar(&g.JSONOutput, "json", false, "print results as JSON")
}

func (g *Globals) values() appfx.Values {
	return appfx.Values{
		Root:     g.Root,
		DBPath:   g.DBPath,
		MaxLines: g.MaxLines,
		Ignore:   g.Ignore,
		Include:  g.Include,
		LogLevel: g.LogLevel,
		LogFile:  g.LogFile,
	}
}

func (g *Globals) config() configfx.Config {
	v := g.values()
	return configfx.Config{
		Root:     v.Root,
		DBPath:   v.DBPath,
		MaxLines: v.MaxLines,
		Ignore:   v.Ignore,
		Include:  v.Include,
		LogLevel: v.LogLevel,
		LogFile:  v.LogFile,
	}
}

// NewRootCommand assembles the ws-index command tree.
func NewRootCommand() *cobra.Command {
	g := &Globals{}
	cmd := &cobra.Command{
		Use:           "ws-index",
		Short:         "Index a workspace and search its files, contents and symbols",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	g.Bind(cmd)
	cmd.AddCommand(
		NewIndexCommand(g),
		NewStatusCommand(g),
		NewSearchCommand(g),
		NewSymbolsCommand(g),
		NewDocCommand(g),
		NewSplitCommand(g),
		NewMCPServeCommand(g),
		NewMCPClientCommand(g),
	)
	return cmd
}

// runApp starts the full fx application, hands its runner to fn and stops
// the application when fn returns.
func runApp(
	ctx context.Context,
	g *Globals,
	fn func(*cmdsfx.CommandRunner) error,
	opts ...fx.Option,
) (err error) {
	var runner *cmdsfx.CommandRunner
	opts = append(opts,
		fx.Supply(fx.Annotate(g.JSONOutput, fx.ResultTags(`name:"jsonOutput"`))),
		fx.Populate(&runner),
	)
	app := appfx.NewAppWithConfig(g.values(), opts...)
	if err := app.Err(); err != nil {
		return err
	}

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
		defer cancel()
		if stopErr := app.Stop(stopCtx); stopErr != nil && err == nil {
			err = fmt.Errorf("failed to stop application: %w", stopErr)
		}
	}()

	return fn(runner)
}

// runOneShot builds components directly, skipping the fx container.
func runOneShot(g *Globals, fn func(*cmdsfx.CommandRunner) error) error {
	f, err := factory.NewComponentFactory(g.config())
	if err != nil {
		return err
	}
	c, err := f.CreateComponents()
	if err != nil {
		return err
	}
	defer func() { _ = c.Cleanup() }()

	return fn(cmdsfx.NewCommandRunner(cmdsfx.Params{
		Config:        c.Config,
		SearchService: c.Searcher,
		Indexer:       c.Indexer,
		Registry:      c.Registry,
		Log:           c.Log,
		JSONOutput:    g.JSONOutput,
	}))
}
