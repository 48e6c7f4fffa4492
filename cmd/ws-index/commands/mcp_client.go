package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	appmcp "github.com/0x5457/ws-index/internal/mcp"
	"github.com/spf13/cobra"
)

const (
	transportStdio = "stdio"
	transportHTTP  = "http"
	transportSSE   = "sse"
)

// NewMCPClientCommand creates commands for talking to a ws-index MCP server
func NewMCPClientCommand(g *Globals) *cobra.Command {
	var (
		transport string
		address   string
	)
	cmd := &cobra.Command{
		Use:   "mcp-client",
		Short: "MCP client commands",
		Long:  "Commands for calling the tools of a ws-index MCP server",
	}
	cmd.PersistentFlags().
		StringVarP(&transport, "transport", "t", transportStdio, "transport (stdio, http, sse)")
	cmd.PersistentFlags().
		StringVarP(&address, "address", "a", "", "server URL (http/sse), ignored for stdio")

	connect := func(ctx context.Context) (*appmcp.Client, error) {
		return createMCPClient(ctx, g, transport, address)
	}
	cmd.AddCommand(newMCPCallCommand(connect), newMCPListToolsCommand(connect))
	return cmd
}

type connectFunc func(ctx context.Context) (*appmcp.Client, error)

func newMCPCallCommand(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "call <tool_name> [key=value...]",
		Short: "Call a specific MCP tool",
		Long: `Call a specific MCP tool with arguments.
Arguments should be provided as key=value pairs.

Example:
  ws-index mcp-client call search_files query=router limit=5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolArgs, err := parseToolArgs(args[1:])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			client, err := connect(ctx)
			if err != nil {
				return fmt.Errorf("create MCP client failed: %w", err)
			}
			defer client.Close() //nolint:errcheck

			result, err := client.Call(ctx, args[0], toolArgs)
			if err != nil {
				return fmt.Errorf("call tool failed: %w", err)
			}

			// Pretty print result
			output, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("format result failed: %w", err)
			}
			fmt.Println(string(output))
			if result.IsError {
				return fmt.Errorf("tool %s returned an error", args[0])
			}
			return nil
		},
	}
}

func newMCPListToolsCommand(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list-tools",
		Short: "List available MCP tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client, err := connect(ctx)
			if err != nil {
				return fmt.Errorf("create MCP client failed: %w", err)
			}
			defer client.Close() //nolint:errcheck

			tools, err := client.ListTools(ctx)
			if err != nil {
				return fmt.Errorf("failed to list tools: %w", err)
			}
			if len(tools) == 0 {
				fmt.Println("No tools available")
				return nil
			}

			fmt.Printf("Available MCP tools (%d):\n\n", len(tools))
			for i, tool := range tools {
				fmt.Printf("%d. %s\n", i+1, tool.Name)
				if tool.Description != "" {
					fmt.Printf("   Description: %s\n", tool.Description)
				}
				if len(tool.InputSchema.Properties) == 0 {
					fmt.Println()
					continue
				}
				fmt.Printf("   Parameters:\n")
				names := make([]string, 0, len(tool.InputSchema.Properties))
				for name := range tool.InputSchema.Properties {
					names = append(names, name)
				}
				slices.Sort(names)
				for _, name := range names {
					required := ""
					if slices.Contains(tool.InputSchema.Required, name) {
						required = " (required)"
					}
					desc := ""
					if propMap, ok := tool.InputSchema.Properties[name].(map[string]any); ok {
						if d, ok := propMap["description"].(string); ok {
							desc = ": " + d
						}
					}
					fmt.Printf("     - %s%s%s\n", name, required, desc)
				}
				fmt.Println()
			}
			return nil
		},
	}
}

// parseToolArgs turns key=value pairs into tool arguments, keeping integers
// and booleans typed.
func parseToolArgs(pairs []string) (map[string]any, error) {
	toolArgs := make(map[string]any, len(pairs))
	for _, arg := range pairs {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid argument format: %s (expected key=value)", arg)
		}
		if val, err := strconv.Atoi(value); err == nil {
			toolArgs[key] = val
		} else if val, err := strconv.ParseBool(value); err == nil {
			toolArgs[key] = val
		} else {
			toolArgs[key] = value
		}
	}
	return toolArgs, nil
}

func createMCPClient(
	ctx context.Context,
	g *Globals,
	transport, address string,
) (*appmcp.Client, error) {
	switch transport {
	case transportStdio:
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate executable: %w", err)
		}
		args := []string{"mcp", "--root", g.Root}
		if g.DBPath != "" {
			args = append(args, "--db", g.DBPath)
		}
		if g.LogLevel != "" {
			args = append(args, "--log-level", g.LogLevel)
		}
		return appmcp.NewStdioClient(ctx, self, args...)
	case transportHTTP:
		if address == "" {
			address = "http://127.0.0.1:8080/mcp"
		}
		return appmcp.NewHTTPClient(ctx, address)
	case transportSSE:
		if address == "" {
			address = "http://127.0.0.1:8080/mcp/sse"
		}
		return appmcp.NewSSEClient(ctx, address)
	default:
		return nil, fmt.Errorf(
			"unsupported transport: %s (supported: stdio, http, sse)",
			transport,
		)
	}
}
