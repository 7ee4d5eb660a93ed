package metadata

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gaurav-prasanna/smartreader/core"
	"github.com/gaurav-prasanna/smartreader/core/urls"
)

var (
	refHeading = regexp.MustCompile(`(?i)^(?:[0-9ivx]+\.?\s+)?(?:references|bibliography|works cited|literature cited|sources|citations|reference list)\s*:?$`)
	// An ordinal marker: "[12]" anywhere, or "12." at the start or after a space.
	marker    = regexp.MustCompile(`\[(\d{1,4})\]\s*|(?:^|\s)(\d{1,4})\.\s+`)
	urlExpr   = regexp.MustCompile(`https?://[^\s<>()\[\]"']+`)
	doiExpr   = regexp.MustCompile(`\b10\.\d{4,9}/[-._;()/:A-Za-z0-9]+`)
	arxivExpr = regexp.MustCompile(`(?i)arxiv[:\s]*(\d{4}\.\d{4,5}(?:v\d+)?)`)
	pageLike  = regexp.MustCompile(`(?i)^(?:page\s*)?\d+(?:\s*(?:/|of)\s*\d+)?$`)
)

const trailingPunct = ".,;:)]}'\""

// References returns the bibliography of doc in document order. A
// document without one yields an empty, non-nil slice.
func (e *Extractor) References(doc *core.RenderedDocument) []core.Reference {
	out := []core.Reference{}
	blocks := doc.Blocks
	if len(blocks) == 0 {
		return out
	}

	if section, ok := referenceSection(blocks); ok {
		for _, en := range split(section) {
			out = append(out, en.reference())
		}
		log.Debug().Str("url", doc.URL).Int("references", len(out)).Msg("reference section found")
		return out
	}

	n := int(math.Ceil(float64(len(blocks)) * e.opts.TailFraction))
	var numbered []entry
	for _, en := range split(blocks[len(blocks)-n:]) {
		if en.ordinal != nil {
			numbered = append(numbered, en)
		}
	}
	if len(numbered) < e.opts.MinTailEntries {
		return out
	}
	for _, en := range numbered {
		out = append(out, en.reference())
	}
	log.Debug().Str("url", doc.URL).Int("references", len(out)).Msg("numbered references found in document tail")
	return out
}

// referenceSection returns the blocks under the last reference heading,
// up to the next heading of the same or higher rank. A short paragraph
// reading "References" counts as a heading for documents without styled
// headings.
func referenceSection(blocks []core.ContentBlock) ([]core.ContentBlock, bool) {
	at := -1
	for i, b := range blocks {
		if (b.Kind == core.BlockHeading || b.Kind == core.BlockParagraph) && refHeading.MatchString(b.PlainText()) {
			at = i
		}
	}
	if at < 0 {
		return nil, false
	}
	level := blocks[at].Level
	if blocks[at].Kind != core.BlockHeading {
		level = 6
	}
	end := len(blocks)
	for i := at + 1; i < len(blocks); i++ {
		if blocks[i].Kind == core.BlockHeading && blocks[i].Level <= level {
			end = i
			break
		}
	}
	return blocks[at+1 : end], true
}

type entry struct {
	ordinal *int
	text    string // Markdown inline text, links intact
}

func (en entry) reference() core.Reference {
	raw := core.CollapseSpace(core.StripInline(en.text))
	return core.Reference{RawText: raw, Ordinal: en.ordinal, ResolvedURL: resolve(en.text)}
}

// unitText flattens a block to one line of inline Markdown.
func unitText(b core.ContentBlock) string {
	switch b.Kind {
	case core.BlockLink:
		return "[" + b.Text + "](" + b.Href + ")"
	case core.BlockTable:
		rows := make([]string, 0, len(b.Rows))
		for _, r := range b.Rows {
			rows = append(rows, strings.Join(r, " "))
		}
		return strings.Join(rows, " ")
	case core.BlockImage:
		return ""
	default:
		return b.Text
	}
}

// split cuts blocks into entries. Each block starts a new entry; inside a
// block, further markers split only while ordinals run consecutively, so
// years and volume numbers stay put.
func split(blocks []core.ContentBlock) []entry {
	var (
		out  []entry
		last int
	)
	add := func(ord int, text string) {
		text = strings.TrimSpace(text)
		if text == "" || pageLike.MatchString(text) {
			return
		}
		en := entry{text: text}
		if ord > 0 {
			o := ord
			en.ordinal = &o
		}
		out = append(out, en)
	}

	for _, b := range blocks {
		text := core.CollapseSpace(unitText(b))
		if text == "" {
			continue
		}
		type cut struct{ start, end, ord int }
		var cuts []cut
		for _, m := range marker.FindAllStringSubmatchIndex(text, -1) {
			var digits string
			if m[2] >= 0 {
				digits = text[m[2]:m[3]]
			} else {
				digits = text[m[4]:m[5]]
			}
			ord, _ := strconv.Atoi(digits)
			lead := strings.TrimSpace(text[:m[0]]) == ""
			if (lead && len(cuts) == 0) || ord == last+1 {
				cuts = append(cuts, cut{m[0], m[1], ord})
				last = ord
			}
		}

		if len(cuts) == 0 {
			add(0, text)
			continue
		}
		if pre := strings.TrimSpace(text[:cuts[0].start]); pre != "" {
			add(0, pre)
		}
		for i, c := range cuts {
			stop := len(text)
			if i+1 < len(cuts) {
				stop = cuts[i+1].start
			}
			add(c.ord, text[c.end:stop])
		}
	}
	return out
}

// resolve picks a link for an entry: an explicit URL, else a DOI, else an
// arXiv identifier.
func resolve(text string) *string {
	if u := urlExpr.FindString(text); u != "" {
		u = urls.Stable(strings.TrimRight(u, trailingPunct))
		return &u
	}
	if d := doiExpr.FindString(text); d != "" {
		u := "https://doi.org/" + strings.TrimRight(d, trailingPunct)
		return &u
	}
	if m := arxivExpr.FindStringSubmatch(text); m != nil {
		u := "https://arxiv.org/abs/" + m[1]
		return &u
	}
	return nil
}
