package commands

import (
	"github.com/0x5457/ws-index/cmd/cmdsfx"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

// NewMCPServeCommand runs the MCP server exposing the index tools.
func NewMCPServeCommand(g *Globals) *cobra.Command {
	var (
		transport      string
		address        string
		metricsAddress string
		indexOnStart   bool
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run MCP server",
		Long:  "Run MCP server, provide indexing, search and document tools for the workspace.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd.Context(), g,
				func(r *cmdsfx.CommandRunner) error {
					return r.RunMCPServer(transport, address, metricsAddress)
				},
				fx.Supply(fx.Annotate(indexOnStart, fx.ResultTags(`name:"indexOnStart"`))),
			)
		},
	}

	cmd.Flags().
		StringVarP(&transport, "transport", "t", "stdio", "transport (stdio, http, sse)")
	cmd.Flags().StringVarP(&address, "address", "a", "", "server address (http modes), e.g. :8080")
	cmd.Flags().
		StringVar(&metricsAddress, "metrics-address", "", "serve Prometheus /metrics on this address, e.g. :9090")
	cmd.Flags().BoolVar(&indexOnStart, "index", false, "index the workspace before serving")

	return cmd
}
