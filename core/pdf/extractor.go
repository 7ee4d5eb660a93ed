// Package pdf turns PDF bytes into content blocks.
//
// Page content streams are read with pdfcpu and interpreted just far
// enough to recover shown text, its position and its effective font
// size. Lines are grouped into paragraphs by vertical gap, and text set
// noticeably larger than the body becomes a heading.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog/log"

	"github.com/gaurav-prasanna/smartreader/core"
)

// ErrNotPDF is wrapped in a CorruptDocumentError when the bytes do not
// start like a PDF file.
var ErrNotPDF = errors.New("not a PDF file")

// Options tunes layout analysis. Zero values take the defaults.
type Options struct {
	// HeadingRatio is how much larger than the body size text must be to
	// count as a heading.
	HeadingRatio float64
	// ParagraphGap is the largest baseline distance, in multiples of the
	// font size, between two lines of one paragraph.
	ParagraphGap float64
	// LineTolerance is the baseline drift, in multiples of the font size,
	// allowed within one line.
	LineTolerance float64
	// MaxHeadingLen caps heading length in characters.
	MaxHeadingLen int
}

func (o *Options) defaults() {
	if o.HeadingRatio <= 0 {
		o.HeadingRatio = 1.15
	}
	if o.ParagraphGap <= 0 {
		o.ParagraphGap = 1.5
	}
	if o.LineTolerance <= 0 {
		o.LineTolerance = 0.3
	}
	if o.MaxHeadingLen <= 0 {
		o.MaxHeadingLen = 200
	}
}

// Extractor implements core.PDFExtractor. It is safe for concurrent use.
type Extractor struct {
	opts Options
}

func New(opts Options) *Extractor {
	opts.defaults()
	return &Extractor{opts: opts}
}

// Extract parses data and returns its blocks in page order. Unreadable,
// truncated or password-protected files yield *core.CorruptDocumentError.
func (e *Extractor) Extract(ctx context.Context, url string, data []byte) (doc *core.RenderedDocument, err error) {
	if !mimetype.Detect(data).Is("application/pdf") {
		return nil, &core.CorruptDocumentError{URL: url, Err: ErrNotPDF}
	}

	// pdfcpu panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, &core.CorruptDocumentError{URL: url, Err: fmt.Errorf("parser panic: %v", r)}
		}
	}()

	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return nil, &core.CorruptDocumentError{URL: url, Err: err}
	}
	if pctx.PageCount == 0 {
		return nil, &core.CorruptDocumentError{URL: url, Err: errors.New("document has no pages")}
	}

	var all []line
	for page := 1; page <= pctx.PageCount; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := pageContent(pctx, page)
		if err != nil {
			log.Warn().Err(err).Str("url", url).Int("page", page).Msg("skipping unreadable page")
			continue
		}
		maxImages := -1
		if pctx.Optimize != nil {
			maxImages = len(pdfcpu.ImageObjNrs(pctx, page))
		}
		all = append(all, e.lines(page, interpret(content), maxImages)...)
	}

	pageBody, body := bodySizes(all)
	blocks := e.blocks(e.paragraphs(all, pageBody), url)
	log.Debug().
		Str("url", url).
		Int("pages", pctx.PageCount).
		Int("lines", len(all)).
		Float64("body_size", body).
		Int("blocks", len(blocks)).
		Msg("pdf laid out")

	return &core.RenderedDocument{
		Kind:           core.KindPDF,
		URL:            url,
		Blocks:         blocks,
		SourceMetadata: info(pctx),
		Pages:          pctx.PageCount,
	}, nil
}

func pageContent(pctx *model.Context, page int) ([]byte, error) {
	r, err := pdfcpu.ExtractPageContent(pctx, page)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, nil
	}
	return io.ReadAll(r)
}

// info copies the document information dictionary into source metadata.
func info(pctx *model.Context) core.Meta {
	x := pctx.XRefTable
	m := core.Meta{}
	m.Add("title", decodeInfo(x.Title))
	m.Add("author", decodeInfo(x.Author))
	m.Add("subject", decodeInfo(x.Subject))
	m.Add("keywords", decodeInfo(x.Keywords))
	m.Add("creator", decodeInfo(x.Creator))
	m.Add("producer", decodeInfo(x.Producer))
	m.Add("creation_date", decodeInfo(x.CreationDate))
	m.Add("mod_date", decodeInfo(x.ModDate))
	return m
}
