// Package cmd: mcp command.
// Serves the smart_read tool to agents over stdio or streamable HTTP.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/smartreader/core/reader"
	"github.com/gaurav-prasanna/smartreader/core/tool"
)

var (
	flagHTTPAddr string
	flagMaxWords int
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the smart_read tool over MCP",
	Long: `Mcp starts a Model Context Protocol server exposing one tool, smart_read.
By default it speaks over stdin/stdout; --http serves streamable HTTP at /mcp
instead, with a /health probe.

Examples:
  smartreader mcp
  smartreader mcp --http :8080 --renderer http`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&flagHTTPAddr, "http", "", "Listen address for streamable HTTP (default: stdio)")
	mcpCmd.Flags().IntVar(&flagMaxWords, "max_words", 4000, "Page size, in words, for long documents")
}

func runMCP(cmd *cobra.Command, _ []string) error {
	r, err := reader.FromConfig(cfg)
	if err != nil {
		return fmt.Errorf("initializing reader: %w", err)
	}
	defer r.Close()

	srv := tool.NewServer(r, tool.Options{
		Version:        Version,
		MaxWords:       flagMaxWords,
		DefaultTimeout: cfg.Read.Timeout,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flagHTTPAddr == "" {
		log.Info().Str("transport", "stdio").Msg("mcp server starting")
		return tool.ServeStdio(ctx, srv)
	}

	hs := &http.Server{
		Addr:              flagHTTPAddr,
		Handler:           tool.Router(srv),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
	}()
	log.Info().Str("transport", "http").Str("addr", flagHTTPAddr).Str("path", "/mcp").Msg("mcp server starting")
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving mcp: %w", err)
	}
	return nil
}
