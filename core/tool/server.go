// Package tool exposes the SmartReader pipeline to agents as an MCP tool.
//
// A single tool, smart_read, takes a URL and returns the document as
// Markdown with a metadata header, or as JSON. Long documents are served
// in pages so that one call never floods the agent's context.
package tool

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/gaurav-prasanna/smartreader/core"
	"github.com/gaurav-prasanna/smartreader/core/chunk"
	"github.com/gaurav-prasanna/smartreader/core/render"
	"github.com/gaurav-prasanna/smartreader/core/reader"
)

// ToolName is the name agents call.
const ToolName = "smart_read"

// Reader is the part of *reader.Reader the tool needs.
type Reader interface {
	Read(ctx context.Context, url string, timeout time.Duration) (*core.ExtractedDocument, error)
}

// Options configures the server. Zero values take the defaults.
type Options struct {
	Version string
	// MaxWords is the page size for long documents.
	MaxWords int
	// DefaultTimeout and MaxTimeout bound the per-call timeout argument.
	DefaultTimeout time.Duration
	MaxTimeout     time.Duration
}

func (o *Options) defaults() {
	if o.Version == "" {
		o.Version = "dev"
	}
	if o.MaxWords <= 0 {
		o.MaxWords = 4000
	}
	if o.DefaultTimeout <= 0 {
		o.DefaultTimeout = 30 * time.Second
	}
	if o.MaxTimeout <= 0 {
		o.MaxTimeout = 2 * time.Minute
	}
}

type readArgs struct {
	URL            string `json:"url" jsonschema:"absolute http(s) URL of a web page or PDF"`
	Format         string `json:"format,omitempty" jsonschema:"markdown (default) or json"`
	Page           int    `json:"page,omitempty" jsonschema:"1-based page of a long document"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" jsonschema:"overall time limit for the read"`
}

// NewServer builds an MCP server with smart_read registered on it.
func NewServer(r Reader, opts Options) *mcp.Server {
	opts.defaults()
	srv := mcp.NewServer(&mcp.Implementation{Name: "smartreader", Version: opts.Version}, nil)
	h := &handler{reader: r, opts: opts, chunker: chunk.New(opts.MaxWords)}
	mcp.AddTool(srv, &mcp.Tool{
		Name: ToolName,
		Description: "Read a web page or PDF by URL. Returns the main content as Markdown " +
			"(navigation and boilerplate removed) with title, authors, publication date " +
			"and the reference list. JavaScript-heavy pages are rendered in a browser.",
	}, h.read)
	return srv
}

// ServeStdio serves srv on stdin/stdout until ctx ends or the client leaves.
func ServeStdio(ctx context.Context, srv *mcp.Server) error {
	return srv.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler serves srv over streamable HTTP.
func HTTPHandler(srv *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return srv }, nil)
}

// Router mounts the MCP endpoint at /mcp next to a /health probe.
func Router(srv *mcp.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/mcp", HTTPHandler(srv))
	return r
}

type handler struct {
	reader  Reader
	opts    Options
	chunker *chunk.Chunker
}

func (h *handler) read(ctx context.Context, _ *mcp.CallToolRequest, args readArgs) (*mcp.CallToolResult, any, error) {
	timeout := h.opts.DefaultTimeout
	if args.TimeoutSeconds > 0 {
		timeout = min(time.Duration(args.TimeoutSeconds)*time.Second, h.opts.MaxTimeout)
	}

	var renderer core.Renderer
	switch args.Format {
	case "", "markdown":
		renderer = render.NewMarkdownRenderer()
	case "json":
		renderer = render.NewJSONRenderer()
	default:
		return nil, nil, fmt.Errorf("unknown format %q: want markdown or json", args.Format)
	}

	doc, err := h.reader.Read(ctx, args.URL, timeout)
	if reader.Terminal(err) {
		zerolog.Ctx(ctx).Warn().Err(err).Str("url", args.URL).Msg("smart_read failed")
		return nil, nil, err
	}

	page := max(args.Page, 1)
	pages := h.chunker.Chunk(doc.Markdown)
	if len(pages) > 1 {
		if page > len(pages) {
			return nil, nil, fmt.Errorf("page %d out of range: document has %d pages", page, len(pages))
		}
		cp := *doc
		cp.Markdown = pages[page-1] + "\n"
		if page < len(pages) {
			cp.Warnings = append(append([]string(nil), doc.Warnings...),
				fmt.Sprintf("page %d of %d; call again with page=%d for more", page, len(pages), page+1))
		}
		doc = &cp
	}

	data, err := renderer.Render(doc)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
