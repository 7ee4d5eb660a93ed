// Package cmd: read command.
// This is the main command that runs the pipeline for one URL:
// classify → render/extract → distill → normalize → output.
//
// It handles flag validation, output format selection and soft failures.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/smartreader/core"
	"github.com/gaurav-prasanna/smartreader/core/output"
	"github.com/gaurav-prasanna/smartreader/core/reader"
	"github.com/gaurav-prasanna/smartreader/core/render"
)

// Flag variables.
var (
	flagPDF       bool
	flagMarkdown  bool
	flagJSON      bool
	flagStdout    bool
	flagTimeout   time.Duration
	flagOutputDir string
)

var readCmd = &cobra.Command{
	Use:   "read <url>",
	Short: "Read a web page or PDF and write it out",
	Long: `Read classifies the URL, renders or extracts it, keeps the main content and
writes it in the chosen format (Markdown, JSON or PDF).

Examples:
  smartreader read https://example.com/post --markdown --stdout
  smartreader read https://arxiv.org/pdf/1706.03762 --json --output_dir ./out
  smartreader read https://example.com/app --pdf --renderer chromedp --timeout 60s`,
	Args: cobra.ExactArgs(1),
	RunE: runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)

	// Output format flags (mutually exclusive).
	readCmd.Flags().BoolVar(&flagPDF, "pdf", false, "Output PDF")
	readCmd.Flags().BoolVar(&flagMarkdown, "markdown", false, "Output Markdown")
	readCmd.Flags().BoolVar(&flagJSON, "json", false, "Output structured JSON")

	readCmd.Flags().BoolVar(&flagStdout, "stdout", false, "Print to stdout instead of writing a file")
	readCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "Overall time limit (default from config)")
	readCmd.Flags().StringVar(&flagOutputDir, "output_dir", "", "Output directory (default from config)")
}

func runRead(cmd *cobra.Command, args []string) error {
	rawURL := args[0]

	renderer, err := selectRenderer()
	if err != nil {
		return err
	}
	if flagStdout && flagPDF {
		return fmt.Errorf("--pdf cannot be printed to stdout")
	}

	r, err := reader.FromConfig(cfg)
	if err != nil {
		return fmt.Errorf("initializing reader: %w", err)
	}
	defer r.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	doc, err := read(ctx, r, rawURL)
	if err != nil {
		return err
	}

	if flagStdout {
		data, err := renderer.Render(doc)
		if err != nil {
			return err
		}
		_, err = writeAll(cmd.OutOrStdout(), data)
		return err
	}

	dir := flagOutputDir
	if dir == "" {
		dir = cfg.Output.Dir
	}
	writer, err := output.New(dir)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}
	path, err := writer.Write(rawURL, doc, renderer)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Written: %s\n", path)
	return nil
}

// read runs the pipeline and reports soft failures as warnings.
func read(ctx context.Context, r *reader.Reader, rawURL string) (*core.ExtractedDocument, error) {
	timeout := flagTimeout
	if timeout <= 0 {
		timeout = cfg.Read.Timeout
	}
	doc, err := r.Read(ctx, rawURL, timeout)
	if reader.Terminal(err) {
		return nil, err
	}
	for _, w := range doc.Warnings {
		log.Warn().Str("url", rawURL).Msg(w)
	}
	return doc, nil
}

func writeAll(w io.Writer, data []byte) (int, error) {
	n, err := w.Write(data)
	if err != nil {
		return n, fmt.Errorf("writing output: %w", err)
	}
	return n, nil
}

// validateFlags checks that exactly one output format is chosen.
func validateFlags() error {
	formatCount := 0
	for _, f := range []bool{flagPDF, flagMarkdown, flagJSON} {
		if f {
			formatCount++
		}
	}
	if formatCount == 0 {
		return fmt.Errorf("exactly one output format is required: --pdf, --markdown, or --json")
	}
	if formatCount > 1 {
		return fmt.Errorf("only one output format allowed per run (got %d)", formatCount)
	}
	return nil
}

// selectRenderer creates the appropriate Renderer based on flags.
func selectRenderer() (core.Renderer, error) {
	if err := validateFlags(); err != nil {
		return nil, err
	}
	switch {
	case flagMarkdown:
		return render.NewMarkdownRenderer(), nil
	case flagJSON:
		return render.NewJSONRenderer(), nil
	default:
		return render.NewPDFRenderer(), nil
	}
}
