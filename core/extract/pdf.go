package extract

import (
	"math"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gaurav-prasanna/smartreader/core"
)

var digitRun = regexp.MustCompile(`\d+`)

// furnitureKey folds text so that "Page 3" and "Page 4" compare equal.
func furnitureKey(s string) string {
	return digitRun.ReplaceAllString(strings.ToLower(core.CollapseSpace(s)), "#")
}

func (d *Distiller) distillPDF(doc *core.RenderedDocument) []core.ContentBlock {
	blocks := d.stripFurniture(doc.Blocks)
	return d.dropPreamble(blocks)
}

// stripFurniture removes text that recurs at the same height on at least
// MinRepeatPages pages: running heads, footers and page numbers.
func (d *Distiller) stripFurniture(blocks []core.ContentBlock) []core.ContentBlock {
	type spot struct {
		page int
		y    float64
	}
	byKey := make(map[string][]spot)
	for _, b := range blocks {
		if b.Origin.Page == 0 || (b.Kind != core.BlockParagraph && b.Kind != core.BlockHeading) {
			continue
		}
		k := furnitureKey(b.Text)
		byKey[k] = append(byKey[k], spot{b.Origin.Page, b.Origin.Y})
	}

	repeated := func(b core.ContentBlock) bool {
		spots := byKey[furnitureKey(b.Text)]
		if len(spots) < d.opts.MinRepeatPages {
			return false
		}
		pages := make(map[int]bool)
		for _, s := range spots {
			if math.Abs(s.y-b.Origin.Y) <= d.opts.RepeatTolerance {
				pages[s.page] = true
			}
		}
		return len(pages) >= d.opts.MinRepeatPages
	}

	out := make([]core.ContentBlock, 0, len(blocks))
	removed := 0
	for _, b := range blocks {
		if b.Origin.Page != 0 && (b.Kind == core.BlockParagraph || b.Kind == core.BlockHeading) && repeated(b) {
			removed++
			continue
		}
		out = append(out, b)
	}
	if removed > 0 {
		log.Debug().Int("removed", removed).Msg("stripped running headers and footers")
	}
	return out
}

// dropPreamble removes the blocks before the first heading when they are
// clearly weaker than what follows (cover stamps, journal banners).
func (d *Distiller) dropPreamble(blocks []core.ContentBlock) []core.ContentBlock {
	first := -1
	for i, b := range blocks {
		if b.Kind == core.BlockHeading {
			first = i
			break
		}
	}
	if first <= 0 {
		return blocks
	}
	pre := d.scorer.Score(blockRegion(blocks[:first]))
	rest := d.scorer.Score(blockRegion(blocks[first:]))
	if rest > 0 && pre < rest*d.opts.PreambleRatio {
		log.Debug().Int("blocks", first).Float64("score", pre).Msg("dropped preamble before first heading")
		return blocks[first:]
	}
	return blocks
}

// blockOverhead stands in for markup around each block of a PDF, which has
// none of its own.
const blockOverhead = 20

func blockRegion(blocks []core.ContentBlock) Region {
	r := Region{Blocks: len(blocks)}
	for _, b := range blocks {
		n := visibleLen(b.PlainText())
		r.TextLen += n
		r.MarkupLen += n + blockOverhead
		if b.Kind == core.BlockHeading {
			r.Headings++
		}
	}
	return r
}
