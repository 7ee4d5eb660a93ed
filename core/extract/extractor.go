// Package extract implements the Distiller interface.
// It keeps the main content of a rendered document:
//   - web pages: the densest contiguous DOM region, with navigation and
//     other page furniture dropped
//   - PDFs: every page minus running headers, footers and page numbers
package extract

import (
	"github.com/rs/zerolog/log"

	"github.com/gaurav-prasanna/smartreader/core"
)

// Options tunes distillation. Zero values take the defaults.
type Options struct {
	// MinTextLen is the smallest amount of text a candidate region needs.
	MinTextLen int
	// TieTolerance is the relative score gap under which two regions tie.
	TieTolerance float64
	// TruncatedTolerance replaces TieTolerance for truncated pages.
	TruncatedTolerance float64
	// SiblingRatio is the share of the winner's density a neighbour needs
	// to join the region.
	SiblingRatio float64
	// MaxLinkDensity disqualifies regions that are mostly link text.
	MaxLinkDensity float64
	// MinRepeatPages is how many pages a line must recur on to count as a
	// running header or footer.
	MinRepeatPages int
	// RepeatTolerance is the vertical slack, in points, for "same position".
	RepeatTolerance float64
	// PreambleRatio drops PDF text before the first heading when it scores
	// below this share of the rest.
	PreambleRatio float64
}

func (o *Options) defaults() {
	if o.MinTextLen <= 0 {
		o.MinTextLen = 50
	}
	if o.TieTolerance <= 0 {
		o.TieTolerance = 0.1
	}
	if o.TruncatedTolerance <= 0 {
		o.TruncatedTolerance = 0.25
	}
	if o.SiblingRatio <= 0 {
		o.SiblingRatio = 0.5
	}
	if o.MaxLinkDensity <= 0 {
		o.MaxLinkDensity = 0.5
	}
	if o.MinRepeatPages <= 0 {
		o.MinRepeatPages = 3
	}
	if o.RepeatTolerance <= 0 {
		o.RepeatTolerance = 2
	}
	if o.PreambleRatio <= 0 {
		o.PreambleRatio = 0.5
	}
}

// Distiller picks the main content of a document. It holds no per-call
// state and is safe for concurrent use.
type Distiller struct {
	opts   Options
	scorer Scorer
}

// New creates a Distiller. A nil scorer means DensityScorer.
func New(opts Options, scorer Scorer) *Distiller {
	opts.defaults()
	if scorer == nil {
		scorer = DensityScorer{MaxLinkDensity: opts.MaxLinkDensity}
	}
	return &Distiller{opts: opts, scorer: scorer}
}

// Distill returns the main-content blocks of doc in reading order. When
// no confident region exists it returns fallback blocks together with a
// *core.ExtractionFailure.
func (d *Distiller) Distill(doc *core.RenderedDocument) ([]core.ContentBlock, error) {
	if len(doc.Blocks) == 0 {
		return nil, &core.ExtractionFailure{URL: doc.URL, Reason: "document has no content blocks"}
	}

	var blocks []core.ContentBlock
	switch doc.Kind {
	case core.KindPDF:
		blocks = d.distillPDF(doc)
	default:
		if doc.DOM == nil {
			return doc.Blocks, nil
		}
		blocks = d.distillHTML(doc)
	}

	if !hasText(blocks) {
		log.Debug().Str("url", doc.URL).Int("blocks", len(doc.Blocks)).Msg("no main region, falling back to all blocks")
		return doc.Blocks, &core.ExtractionFailure{URL: doc.URL, Reason: "no main content region found"}
	}
	return blocks, nil
}

func hasText(blocks []core.ContentBlock) bool {
	for _, b := range blocks {
		switch b.Kind {
		case core.BlockHeading, core.BlockParagraph, core.BlockListItem, core.BlockTable, core.BlockLink:
			if b.PlainText() != "" {
				return true
			}
		}
	}
	return false
}
