package commands

import (
	"github.com/0x5457/ws-index/cmd/cmdsfx"
	"github.com/spf13/cobra"
)

func NewIndexCommand(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Index the workspace: split oversized files, extract symbols, prune deleted files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd.Context(), g, func(r *cmdsfx.CommandRunner) error {
				return r.RunIndex(cmd.Context())
			})
		},
	}
}

func NewStatusCommand(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show indexed file and symbol counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOneShot(g, func(r *cmdsfx.CommandRunner) error {
				return r.RunStatus(cmd.Context())
			})
		},
	}
}

func NewSplitCommand(g *Globals) *cobra.Command {
	var maxLines int
	cmd := &cobra.Command{
		Use:   "split <path>",
		Short: "Split one oversized file into parts behind an aggregator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOneShot(g, func(r *cmdsfx.CommandRunner) error {
				return r.RunSplit(cmd.Context(), args[0], maxLines)
			})
		},
	}
	cmd.Flags().IntVarP(&maxLines, "lines", "n", 0, "line limit per part (default --max-lines)")
	return cmd
}
