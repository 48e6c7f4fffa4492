package cmdsfx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/0x5457/ws-index/internal/config/configfx"
	"github.com/0x5457/ws-index/internal/indexer"
	"github.com/0x5457/ws-index/internal/metrics"
	"github.com/0x5457/ws-index/internal/models"
	"github.com/0x5457/ws-index/internal/search"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Search modes for RunSearch.
const (
	SearchFiles   = "files"
	SearchContent = "content"
	SearchAll     = "all"
)

// CommandRunner provides methods to run different application commands
type CommandRunner struct {
	config        *configfx.Config
	searchService *search.Service
	indexer       indexer.Indexer
	mcpServer     *server.MCPServer
	registry      *prometheus.Registry
	log           *zap.Logger
	jsonOutput    bool
	out           io.Writer
}

// Params represents dependencies for command runner
type Params struct {
	fx.In

	Config        *configfx.Config
	SearchService *search.Service      `optional:"true"`
	Indexer       indexer.Indexer      `optional:"true"`
	MCPServer     *server.MCPServer    `optional:"true"`
	Registry      *prometheus.Registry `optional:"true"`
	Log           *zap.Logger          `optional:"true"`
	JSONOutput    bool                 `name:"jsonOutput" optional:"true"`
	Out           io.Writer            `name:"stdout" optional:"true"`
}

// NewCommandRunner creates a new command runner
func NewCommandRunner(params Params) *CommandRunner {
	r := &CommandRunner{
		config:        params.Config,
		searchService: params.SearchService,
		indexer:       params.Indexer,
		mcpServer:     params.MCPServer,
		registry:      params.Registry,
		log:           params.Log,
		jsonOutput:    params.JSONOutput,
		out:           params.Out,
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if r.out == nil {
		r.out = os.Stdout
	}
	return r
}

func (r *CommandRunner) printJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// RunIndex executes the index command
func (r *CommandRunner) RunIndex(ctx context.Context) error {
	if r.indexer == nil {
		return fmt.Errorf("indexer not available")
	}

	// Run indexing with progress
	progCh, errCh := r.indexer.IndexProjectProgress(ctx, r.config.Root)
	var last models.IndexProgress
	for progCh != nil || errCh != nil {
		select {
		case p, ok := <-progCh:
			if !ok {
				progCh = nil
				continue
			}
			last = p
			if r.jsonOutput {
				continue
			}
			_, _ = fmt.Fprintf(r.out, "\r[%3.0f%%] stage=%s files:%d/%d symbols:%d splits:%d %-40s",
				p.Percent*100,
				p.Stage,
				p.Processed, p.TotalFiles,
				p.Symbols,
				p.Splits,
				p.CurrentFile,
			)
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				_, _ = fmt.Fprintln(r.out)
				return err
			}
		case <-ctx.Done():
			_, _ = fmt.Fprintln(r.out)
			return ctx.Err()
		}
	}
	if r.jsonOutput {
		return r.printJSON(last)
	}
	_, _ = fmt.Fprintln(r.out)
	_, _ = fmt.Fprintf(r.out, "index completed: %d files, %d symbols, %d splits\n",
		last.TotalFiles, last.Symbols, last.Splits)
	return nil
}

// RunStatus prints index counts and the last run
func (r *CommandRunner) RunStatus(ctx context.Context) error {
	if r.indexer == nil {
		return fmt.Errorf("indexer not available")
	}
	st, err := r.indexer.Status(ctx)
	if err != nil {
		return err
	}
	if r.jsonOutput {
		return r.printJSON(st)
	}
	lastRun := "never"
	if st.LastRun != nil {
		lastRun = st.LastRun.Format(time.RFC3339)
	}
	_, _ = fmt.Fprintf(r.out, "root:     %s\nfiles:    %d\nsymbols:  %d\nlast run: %s\n",
		r.config.Root, st.Files, st.Symbols, lastRun)
	return nil
}

// RunSearch searches paths, contents or both
func (r *CommandRunner) RunSearch(ctx context.Context, query string, limit int, mode string) error {
	if r.searchService == nil {
		return fmt.Errorf("search service not available")
	}

	switch mode {
	case SearchFiles, "":
		hits, err := r.searchService.SearchFiles(ctx, query, limit)
		if err != nil {
			return err
		}
		if r.jsonOutput {
			return r.printJSON(hits)
		}
		for _, h := range hits {
			_, _ = fmt.Fprintf(r.out, "[%.3f] %-9s %s\n", h.Score, h.Match, h.Path)
		}
	case SearchContent:
		hits, err := r.searchService.SearchContent(ctx, query, limit)
		if err != nil {
			return err
		}
		if r.jsonOutput {
			return r.printJSON(hits)
		}
		for _, h := range hits {
			_, _ = fmt.Fprintf(r.out, "%s:%d: %s\n", h.File, h.Line, h.Content)
		}
	case SearchAll:
		hits, err := r.searchService.Search(ctx, query, limit)
		if err != nil {
			return err
		}
		if r.jsonOutput {
			return r.printJSON(hits)
		}
		for _, h := range hits {
			if h.Symbol != nil {
				_, _ = fmt.Fprintf(r.out, "symbol %s %s %s:%d:%d\n",
					h.Symbol.Kind, h.Symbol.Name, h.Path, h.Symbol.Line, h.Symbol.Col)
				continue
			}
			_, _ = fmt.Fprintf(r.out, "file   %s\n", h.Path)
		}
	default:
		return fmt.Errorf("unsupported search mode: %s (supported: files, content, all)", mode)
	}
	return nil
}

// RunSymbols lists symbols matching filter
func (r *CommandRunner) RunSymbols(ctx context.Context, filter models.SymbolFilter) error {
	if r.searchService == nil {
		return fmt.Errorf("search service not available")
	}
	hits, err := r.searchService.ListSymbols(ctx, filter)
	if err != nil {
		return err
	}
	if r.jsonOutput {
		return r.printJSON(hits)
	}
	for _, h := range hits {
		_, _ = fmt.Fprintf(r.out, "%-9s %s %s:%d:%d\n",
			h.Symbol.Kind, h.Symbol.Name, h.File, h.Symbol.Line, h.Symbol.Col)
	}
	return nil
}

// RunDocument prints a workspace file
func (r *CommandRunner) RunDocument(ctx context.Context, path string, maxBytes int) error {
	if r.searchService == nil {
		return fmt.Errorf("search service not available")
	}
	doc, err := r.searchService.Document(ctx, path, maxBytes)
	if err != nil {
		return err
	}
	if r.jsonOutput {
		return r.printJSON(doc)
	}
	_, _ = io.WriteString(r.out, doc.Content)
	if doc.Truncated {
		_, _ = fmt.Fprintf(r.out, "\n... truncated (%d of %d bytes)\n", len(doc.Content), doc.Size)
	}
	return nil
}

// RunSplit splits one oversized file
func (r *CommandRunner) RunSplit(ctx context.Context, path string, maxLines int) error {
	if r.indexer == nil {
		return fmt.Errorf("indexer not available")
	}
	sum, err := r.indexer.SplitLargeFile(ctx, r.config.Root, path, maxLines)
	if err != nil {
		return err
	}
	if r.jsonOutput {
		return r.printJSON(sum)
	}
	if sum == nil {
		_, _ = fmt.Fprintf(r.out, "%s: no split needed\n", path)
		return nil
	}
	_, _ = fmt.Fprintf(r.out, "%s -> %s (%d parts, max %d lines)\n",
		sum.Original, sum.Aggregator, len(sum.Parts), sum.MaxLines)
	for _, p := range sum.Parts {
		_, _ = fmt.Fprintf(r.out, "  %s\n", p)
	}
	return nil
}

// RunMCPServer executes the MCP server. A non-empty metricsAddress also
// serves Prometheus metrics on /metrics.
func (r *CommandRunner) RunMCPServer(transport, address, metricsAddress string) error {
	if r.mcpServer == nil {
		return fmt.Errorf("MCP server not available")
	}

	if metricsAddress != "" {
		if r.registry == nil {
			return fmt.Errorf("metrics registry not available")
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(r.registry))
		srv := &http.Server{Addr: metricsAddress, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				r.log.Error("metrics server stopped", zap.Error(err))
			}
		}()
		defer func() { _ = srv.Close() }()
		r.log.Info("serving metrics", zap.String("address", metricsAddress))
	}

	switch transport {
	case "stdio":
		return server.ServeStdio(r.mcpServer)
	case "http":
		// Streamable HTTP server on address, default ":8080" if empty
		addr := address
		if addr == "" {
			addr = ":8080"
		}
		httpSrv := server.NewStreamableHTTPServer(r.mcpServer)
		return httpSrv.Start(addr)
	case "sse":
		// SSE server exposes two endpoints; default base path "/mcp"
		addr := address
		if addr == "" {
			addr = ":8080"
		}
		sseSrv := server.NewSSEServer(r.mcpServer,
			server.WithBaseURL(""),
			server.WithStaticBasePath("/mcp"),
		)
		return sseSrv.Start(addr)
	default:
		return fmt.Errorf(
			"unsupported transport: %s (supported: stdio, http, sse)",
			transport,
		)
	}
}

// Module provides command runner
var Module = fx.Module("commands",
	fx.Provide(NewCommandRunner),
)
