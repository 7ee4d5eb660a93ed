// Package metadata reads document-level facts (title, authors, publication
// date) and the bibliography from a rendered document. Structured sources
// such as <meta> tags and the PDF information dictionary win over guesses
// made from the text. Nothing is invented: a field with no source stays
// empty.
package metadata

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/gaurav-prasanna/smartreader/core"
)

// Options tunes the heuristics. Zero values take the defaults.
type Options struct {
	// TailFraction is the share of trailing blocks searched for numbered
	// references when no reference heading exists.
	TailFraction float64
	// MinTailEntries is how many numbered entries that tail must hold.
	MinTailEntries int
	// BylineBlocks is how many leading blocks are searched for a byline.
	BylineBlocks int
}

func (o *Options) defaults() {
	if o.TailFraction <= 0 {
		o.TailFraction = 0.2
	}
	if o.MinTailEntries <= 0 {
		o.MinTailEntries = 2
	}
	if o.BylineBlocks <= 0 {
		o.BylineBlocks = 15
	}
}

// Extractor implements core.MetadataExtractor. It is stateless.
type Extractor struct {
	opts Options
}

func New(opts Options) *Extractor {
	opts.defaults()
	return &Extractor{opts: opts}
}

var (
	titleKeys = []string{"citation_title", "og:title", "dc.title", "twitter:title", "jsonld:headline", "title"}
	// citation_author carries one name per tag; the rest may list several.
	authorKeys = []string{"author", "article:author", "dc.creator", "jsonld:author"}
	dateKeys   = []string{"citation_publication_date", "citation_date", "article:published_time", "dc.date", "date", "jsonld:datePublished", "creation_date"}
)

// Metadata returns what the document says about itself.
func (e *Extractor) Metadata(doc *core.RenderedDocument) core.DocumentMetadata {
	md := core.DocumentMetadata{SourceURL: doc.URL, Authors: []string{}}
	meta := doc.SourceMetadata
	if meta == nil {
		meta = core.Meta{}
	}

	if t := title(meta, doc.Blocks); t != "" {
		md.Title = &t
	}
	md.Authors = authors(meta)
	if len(md.Authors) == 0 {
		md.Authors = byline(doc.Blocks, e.opts.BylineBlocks)
	}
	if d, ok := published(meta); ok {
		md.PublishedDate = &d
	}
	return md
}

func title(meta core.Meta, blocks []core.ContentBlock) string {
	for _, k := range titleKeys {
		if v := core.CollapseSpace(meta.Get(k)); v != "" {
			return v
		}
	}
	// Largest heading: the smallest level present, first occurrence.
	best := 0
	var text string
	for _, b := range blocks {
		if b.Kind != core.BlockHeading {
			continue
		}
		if t := b.PlainText(); t != "" && (best == 0 || b.Level < best) {
			best, text = b.Level, t
		}
	}
	return text
}

var (
	andSep      = regexp.MustCompile(`(?i)\s+(?:and|&)\s+`)
	semicolon   = regexp.MustCompile(`\s*;\s*`)
	looksLikeID = regexp.MustCompile(`^(?i:https?://|www\.|@)`)
)

func authors(meta core.Meta) []string {
	if vs := meta.Values("citation_author"); len(vs) > 0 {
		return dedupe(vs)
	}
	for _, k := range authorKeys {
		var names []string
		for _, v := range meta.Values(k) {
			names = append(names, splitNames(v)...)
		}
		if out := dedupe(names); len(out) > 0 {
			return out
		}
	}
	return []string{}
}

// splitNames breaks "A; B", "A and B" and "A, B" lists apart. Commas only
// split when every part is a full name, so "Lovelace, Ada" stays whole.
func splitNames(v string) []string {
	var out []string
	for _, part := range semicolon.Split(v, -1) {
		for _, p := range andSep.Split(part, -1) {
			pieces := strings.Split(p, ",")
			whole := true
			for _, pc := range pieces {
				if len(strings.Fields(pc)) < 2 {
					whole = false
				}
			}
			if len(pieces) > 1 && whole {
				out = append(out, pieces...)
			} else {
				out = append(out, p)
			}
		}
	}
	return out
}

func dedupe(names []string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, n := range names {
		n = strings.Trim(core.CollapseSpace(n), ",;")
		if n == "" || looksLikeID.MatchString(n) {
			continue
		}
		k := strings.ToLower(n)
		if !seen[k] {
			seen[k] = true
			out = append(out, n)
		}
	}
	return out
}

var bylineExpr = regexp.MustCompile(`^(?i:by|written by|authors?:)\s+(.+)$`)

// byline looks for a "By First Last" line near the top of the document.
func byline(blocks []core.ContentBlock, limit int) []string {
	for i, b := range blocks {
		if i >= limit {
			break
		}
		if b.Kind != core.BlockParagraph && b.Kind != core.BlockHeading && b.Kind != core.BlockListItem {
			continue
		}
		m := bylineExpr.FindStringSubmatch(b.PlainText())
		if m == nil {
			continue
		}
		// Cut trailing date or role ("By Jane Doe | March 3, 2024").
		rest := m[1]
		if i := strings.IndexAny(rest, "|·•—"); i >= 0 {
			rest = rest[:i]
		}
		var names []string
		for _, n := range splitNames(rest) {
			n = core.CollapseSpace(n)
			if personName(n) {
				names = append(names, n)
			}
		}
		if len(names) > 0 {
			return dedupe(names)
		}
	}
	return []string{}
}

// personName accepts two to five capitalised words.
func personName(s string) bool {
	words := strings.Fields(s)
	if len(words) < 2 || len(words) > 5 {
		return false
	}
	for _, w := range words {
		r := []rune(w)
		if !unicode.IsUpper(r[0]) {
			return false
		}
	}
	return true
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	time.RFC1123Z,
	time.RFC1123,
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2006",
	"2006-01",
	"2006",
}

var pdfDate = regexp.MustCompile(`^D:(\d{4})(\d{2})?(\d{2})?`)

func published(meta core.Meta) (core.Date, bool) {
	for _, k := range dateKeys {
		for _, v := range meta.Values(k) {
			if t, ok := parseDate(v); ok {
				return core.Date{Time: t}, true
			}
		}
	}
	return core.Date{}, false
}

// parseDate reads the formats found in meta tags and PDF info strings.
func parseDate(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if m := pdfDate.FindStringSubmatch(v); m != nil {
		s, layout := m[1], "2006"
		if m[2] != "" {
			s, layout = s+m[2], layout+"01"
		}
		if m[3] != "" {
			s, layout = s+m[3], layout+"02"
		}
		t, err := time.Parse(layout, s)
		return t, err == nil
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, v); err == nil {
			y, mo, d := t.Date()
			return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
