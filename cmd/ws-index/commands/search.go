package commands

import (
	"github.com/0x5457/ws-index/cmd/cmdsfx"
	"github.com/0x5457/ws-index/internal/models"
	"github.com/spf13/cobra"
)

func NewSearchCommand(g *Globals) *cobra.Command {
	var (
		limit int
		mode  string
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search file paths (default), file contents, or paths and symbols",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOneShot(g, func(r *cmdsfx.CommandRunner) error {
				return r.RunSearch(cmd.Context(), args[0], limit, mode)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "max results (default 20)")
	cmd.Flags().StringVarP(&mode, "mode", "m", cmdsfx.SearchFiles, "files, content or all")
	return cmd
}

func NewSymbolsCommand(g *Globals) *cobra.Command {
	var filter models.SymbolFilter
	var kind string
	cmd := &cobra.Command{
		Use:   "symbols [name]",
		Short: "List extracted symbols",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				filter.Name = args[0]
			}
			filter.Kind = models.SymbolKind(kind)
			return runOneShot(g, func(r *cmdsfx.CommandRunner) error {
				return r.RunSymbols(cmd.Context(), filter)
			})
		},
	}
	cmd.Flags().StringVarP(&filter.FilePath, "file", "f", "", "only symbols declared in this file")
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "function, method, class, interface, type, enum or variable")
	cmd.Flags().IntVarP(&filter.Limit, "limit", "l", 0, "max results (default 50)")
	return cmd
}

func NewDocCommand(g *Globals) *cobra.Command {
	var maxBytes int
	cmd := &cobra.Command{
		Use:   "doc <path>",
		Short: "Print a workspace file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOneShot(g, func(r *cmdsfx.CommandRunner) error {
				return r.RunDocument(cmd.Context(), args[0], maxBytes)
			})
		},
	}
	cmd.Flags().IntVar(&maxBytes, "max-bytes", 0, "truncate after this many bytes (default 1 MiB)")
	return cmd
}
