// Package reader runs the SmartReader pipeline for one URL:
// classify → acquire (PDF extract or page render) → distill and
// metadata/references side by side → Markdown.
package reader

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/gaurav-prasanna/smartreader/core"
	"github.com/gaurav-prasanna/smartreader/core/browser"
	"github.com/gaurav-prasanna/smartreader/core/classify"
	"github.com/gaurav-prasanna/smartreader/core/config"
	"github.com/gaurav-prasanna/smartreader/core/extract"
	"github.com/gaurav-prasanna/smartreader/core/fetch"
	"github.com/gaurav-prasanna/smartreader/core/metadata"
	"github.com/gaurav-prasanna/smartreader/core/normalize"
	"github.com/gaurav-prasanna/smartreader/core/pdf"
	"github.com/gaurav-prasanna/smartreader/core/urls"
)

// Options tunes the pipeline. Zero values take the defaults.
type Options struct {
	// DefaultTimeout applies when Read is given no timeout.
	DefaultTimeout time.Duration
	// RenderShare is the part of the remaining time handed to the renderer.
	RenderShare float64
}

func (o *Options) defaults() {
	if o.DefaultTimeout <= 0 {
		o.DefaultTimeout = 30 * time.Second
	}
	if o.RenderShare <= 0 || o.RenderShare > 1 {
		o.RenderShare = 0.8
	}
}

// Stages are the collaborators of a Reader. Every field is required.
type Stages struct {
	Classifier core.Classifier
	Fetcher    core.Fetcher
	Renderer   core.PageRenderer
	PDF        core.PDFExtractor
	Distiller  core.Distiller
	Normalizer core.Normalizer
	Metadata   core.MetadataExtractor
}

// Reader is safe for concurrent use; each Read is independent.
type Reader struct {
	stages Stages
	opts   Options
}

func New(stages Stages, opts Options) *Reader {
	opts.defaults()
	return &Reader{stages: stages, opts: opts}
}

// FromConfig wires the default stages from cfg.
func FromConfig(cfg *config.Config) (*Reader, error) {
	f := fetch.New(fetch.Options{
		UserAgent: cfg.Fetch.UserAgent,
		Timeout:   cfg.Fetch.Timeout,
		MaxBytes:  cfg.Fetch.MaxBytes,
	})
	renderer, err := browser.New(cfg, f)
	if err != nil {
		return nil, err
	}
	d := cfg.Distill
	return New(Stages{
		Classifier: classify.New(f, classify.Options{
			ProbeTimeout: cfg.Classify.ProbeTimeout,
			SniffBytes:   cfg.Classify.SniffBytes,
		}),
		Fetcher:  f,
		Renderer: renderer,
		PDF: pdf.New(pdf.Options{
			HeadingRatio:  cfg.PDF.HeadingRatio,
			ParagraphGap:  cfg.PDF.ParagraphGap,
			LineTolerance: cfg.PDF.LineTolerance,
		}),
		Distiller: extract.New(extract.Options{
			MinTextLen:         d.MinTextLen,
			TieTolerance:       d.TieTolerance,
			TruncatedTolerance: d.TruncatedTolerance,
			SiblingRatio:       d.SiblingRatio,
			MaxLinkDensity:     d.MaxLinkDensity,
			MinRepeatPages:     d.MinRepeatPages,
			RepeatTolerance:    d.RepeatTolerance,
		}, nil),
		Normalizer: normalize.New(),
		Metadata: metadata.New(metadata.Options{
			TailFraction:   cfg.Metadata.TailFraction,
			MinTailEntries: cfg.Metadata.MinTailEntries,
		}),
	}, Options{
		DefaultTimeout: cfg.Read.Timeout,
		RenderShare:    cfg.Render.RenderShare,
	}), nil
}

// Close releases the renderer.
func (r *Reader) Close() error {
	return r.stages.Renderer.Close()
}

// Read turns url into an ExtractedDocument within timeout.
//
// Terminal failures come back as *core.ClassificationError,
// *core.NavigationError or *core.CorruptDocumentError with the URL set.
// When distillation is unsure the document is still returned, flagged
// LowConfidence, together with a *core.ExtractionFailure.
func (r *Reader) Read(ctx context.Context, url string, timeout time.Duration) (*core.ExtractedDocument, error) {
	if timeout <= 0 {
		timeout = r.opts.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	base := log.Logger
	if cl := zerolog.Ctx(ctx); cl.GetLevel() != zerolog.Disabled {
		base = *cl
	}
	l := base.With().Str("request_id", uuid.NewString()).Str("url", url).Logger()
	ctx = l.WithContext(ctx)
	start := time.Now()

	if _, err := urls.Parse(url); err != nil {
		return nil, &core.NavigationError{URL: url, Err: err}
	}

	kind, err := r.stages.Classifier.Classify(ctx, url, "", nil)
	if err != nil {
		return nil, core.WithURL(err, url)
	}
	l.Debug().Str("kind", string(kind)).Msg("classified")

	doc, err := r.acquire(ctx, url, kind)
	if err != nil {
		return nil, core.WithURL(err, url)
	}

	out, err := r.assemble(ctx, doc)
	if err != nil && !core.IsSoft(err) {
		return nil, core.WithURL(err, url)
	}
	l.Info().
		Str("kind", string(out.Kind)).
		Bool("truncated", out.Truncated).
		Bool("low_confidence", out.LowConfidence).
		Int("markdown_bytes", len(out.Markdown)).
		Int("references", len(out.References)).
		Dur("elapsed", time.Since(start)).
		Msg("read complete")
	return out, err
}

func (r *Reader) acquire(ctx context.Context, url string, kind core.ResourceKind) (*core.RenderedDocument, error) {
	if kind == core.KindPDF {
		res, err := r.stages.Fetcher.Fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		return r.stages.PDF.Extract(ctx, url, res.Body)
	}

	budget := time.Duration(float64(remaining(ctx)) * r.opts.RenderShare)
	doc, err := r.stages.Renderer.Render(ctx, url, budget)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("rendering %s: %w", url, ctx.Err())
		}
		return nil, err
	}
	return doc, nil
}

// assemble runs the distiller and the metadata extractor on doc side by
// side and renders the Markdown.
func (r *Reader) assemble(ctx context.Context, doc *core.RenderedDocument) (*core.ExtractedDocument, error) {
	var (
		blocks  []core.ContentBlock
		soft    error
		meta    core.DocumentMetadata
		refs    []core.Reference
		g, gctx = errgroup.WithContext(ctx)
	)
	g.Go(func() error {
		var err error
		blocks, err = r.stages.Distiller.Distill(doc)
		if err != nil {
			if !core.IsSoft(err) {
				return fmt.Errorf("distilling: %w", err)
			}
			soft = err
		}
		return gctx.Err()
	})
	g.Go(func() error {
		meta = r.stages.Metadata.Metadata(doc)
		refs = r.stages.Metadata.References(doc)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	markdown, err := r.stages.Normalizer.Normalize(blocks)
	if err != nil {
		return nil, fmt.Errorf("normalizing: %w", err)
	}
	if refs == nil {
		refs = []core.Reference{}
	}
	if meta.SourceURL == "" {
		meta.SourceURL = doc.URL
	}
	meta.SourceURL = urls.Normalize(meta.SourceURL)

	out := &core.ExtractedDocument{
		Markdown:   markdown,
		Metadata:   meta,
		References: refs,
		Kind:       doc.Kind,
		Truncated:  doc.Truncated,
	}
	if doc.Truncated {
		out.Warnings = append(out.Warnings, "page did not settle before the deadline; content may be incomplete")
	}
	if soft != nil {
		out.LowConfidence = true
		out.Warnings = append(out.Warnings, soft.Error())
		zerolog.Ctx(ctx).Warn().Err(soft).Msg("low confidence extraction")
	}
	return out, soft
}

func remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		return time.Until(dl)
	}
	return 0
}

// Terminal reports whether err should stop a caller from using the result.
func Terminal(err error) bool {
	return err != nil && !core.IsSoft(err)
}
