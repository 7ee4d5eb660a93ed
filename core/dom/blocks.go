// Package dom turns a rendered HTML page into ordered content blocks and
// collects the metadata the page declares about itself.
package dom

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/gaurav-prasanna/smartreader/core"
	"github.com/gaurav-prasanna/smartreader/core/urls"
)

// skippedTags never contribute content.
var skippedTags = map[string]bool{
	"head": true, "script": true, "style": true, "noscript": true, "template": true,
	"link": true, "meta": true, "svg": true, "canvas": true, "iframe": true,
	"object": true, "embed": true, "video": true, "audio": true, "source": true,
	"track": true, "map": true, "dialog": true,
	"input": true, "button": true, "select": true, "textarea": true, "option": true,
}

// blockTags start a new block. Anything else is inline unless it wraps
// block content.
var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "body": true,
	"caption": true, "center": true, "dd": true, "details": true, "div": true,
	"dl": true, "dt": true, "fieldset": true, "figcaption": true, "figure": true,
	"footer": true, "form": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "header": true, "hgroup": true, "hr": true, "legend": true,
	"li": true, "main": true, "menu": true, "nav": true, "ol": true, "p": true,
	"pre": true, "section": true, "summary": true, "table": true, "tbody": true,
	"td": true, "tfoot": true, "th": true, "thead": true, "tr": true, "ul": true,
}

// inlinePolicy keeps only inline formatting and links; every other tag is
// stripped down to its text.
var inlinePolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowStandardURLs()
	p.RequireNoFollowOnLinks(false)
	p.AllowAttrs("href").OnElements("a")
	p.AllowElements(
		"p", "div", "br",
		"b", "strong", "i", "em", "code", "kbd", "samp", "var",
		"s", "del", "strike", "sub", "sup", "mark", "small", "q", "cite", "abbr",
	)
	return p
}()

// Document parses rendered HTML into a web-page RenderedDocument.
func Document(rawHTML, pageURL string, truncated bool) (*core.RenderedDocument, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	base, _ := url.Parse(pageURL)
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if resolved := urls.Resolve(base, href); resolved != "" {
			base, _ = url.Parse(resolved)
		}
	}

	return &core.RenderedDocument{
		Kind:           core.KindWebPage,
		URL:            pageURL,
		Blocks:         Blocks(doc, base),
		SourceMetadata: SourceMetadata(doc),
		DOM:            doc,
		Truncated:      truncated,
	}, nil
}

// Blocks walks <body> in document order and emits one block per heading,
// paragraph, list item, data table, standalone link and image. Every
// block's Origin.Node points at the node it was read from.
func Blocks(doc *goquery.Document, base *url.URL) []core.ContentBlock {
	w := &walker{base: base}
	if base != nil {
		w.domain = base.Scheme + "://" + base.Host
	}

	// Absolute hrefs keep links meaningful once the block leaves the page.
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if abs := urls.Resolve(base, s.AttrOr("href", "")); abs != "" {
			s.SetAttr("href", abs)
		}
	})

	root := doc.Find("body").First()
	if root.Length() == 0 {
		root = doc.Selection
	}
	for _, n := range root.Nodes {
		w.container(n, 0)
	}
	return w.blocks
}

type walker struct {
	base   *url.URL
	domain string
	blocks []core.ContentBlock
	run    []*html.Node
}

func (w *walker) emit(b core.ContentBlock, n *html.Node) {
	b.Origin.Node = n
	w.blocks = append(w.blocks, b)
}

func (w *walker) container(n *html.Node, depth int) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.node(c, depth)
	}
	w.flush()
}

func (w *walker) node(n *html.Node, depth int) {
	switch n.Type {
	case html.TextNode:
		w.run = append(w.run, n)
		return
	case html.ElementNode:
	default:
		return
	}
	if Skipped(n) {
		return
	}

	tag := n.Data
	switch {
	case headingLevel(tag) > 0:
		w.flush()
		if text := core.CollapseSpace(TextOf(n)); text != "" {
			w.emit(core.Heading(headingLevel(tag), text), n)
		}
	case tag == "ul" || tag == "ol" || tag == "menu":
		w.flush()
		w.list(n, depth)
	case tag == "li":
		w.flush()
		w.listItem(n, depth)
	case tag == "table":
		w.flush()
		w.table(n, depth)
	case tag == "pre":
		w.flush()
		if text := core.CollapseSpace(TextOf(n)); text != "" {
			w.emit(core.Paragraph(text), n)
		}
	case tag == "hr":
		w.flush()
	case !blockTags[tag] && !hasBlockDescendant(n):
		w.run = append(w.run, n)
	default:
		w.flush()
		w.container(n, depth)
	}
}

// flush turns the pending inline run into a paragraph, a standalone link
// or image, plus any images embedded in running text.
func (w *walker) flush() {
	run := w.run
	w.run = nil
	if len(run) == 0 {
		return
	}

	if sole := soleElement(run); sole != nil {
		switch sole.Data {
		case "img":
			w.image(sole)
			return
		case "a":
			href := strings.TrimSpace(attr(sole, "href"))
			if img := onlyImage(sole); img != nil {
				w.image(img)
				return
			}
			text := w.inline(children(sole))
			if href != "" && text != "" && !strings.HasPrefix(href, "#") {
				w.emit(core.Link(text, href), sole)
				return
			}
		}
	}

	if text := w.inline(run); text != "" {
		w.emit(core.Paragraph(text), run[0])
	}
	for _, n := range run {
		for _, img := range findAll(n, "img") {
			w.image(img)
		}
	}
}

// inline converts a run of inline nodes to single-line Markdown.
func (w *walker) inline(nodes []*html.Node) string {
	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return core.CollapseSpace(textOfNodes(nodes))
		}
	}
	clean := inlinePolicy.Sanitize(buf.String())
	if strings.TrimSpace(clean) == "" {
		return ""
	}
	var opts []converter.ConvertOptionFunc
	if w.domain != "" {
		opts = append(opts, converter.WithDomain(w.domain))
	}
	md, err := htmltomarkdown.ConvertString(clean, opts...)
	if err != nil {
		return core.CollapseSpace(textOfNodes(nodes))
	}
	return core.CollapseSpace(md)
}

func (w *walker) list(n *html.Node, depth int) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || Skipped(c) {
			continue
		}
		switch c.Data {
		case "li":
			w.listItem(c, depth)
		case "ul", "ol":
			w.list(c, depth+1)
		default:
			w.node(c, depth)
			w.flush()
		}
	}
}

func (w *walker) listItem(li *html.Node, depth int) {
	var own, nested []*html.Node
	for c := li.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
			nested = append(nested, c)
			continue
		}
		if c.Type == html.ElementNode && Skipped(c) {
			continue
		}
		own = append(own, c)
	}
	if text := w.inline(own); text != "" {
		w.emit(core.ListItem(depth, text), li)
	}
	for _, l := range nested {
		w.list(l, depth+1)
	}
}

func (w *walker) table(n *html.Node, depth int) {
	if isLayoutTable(n) {
		w.container(n, depth)
		return
	}

	var rows [][]string
	var caption string
	var visit func(*html.Node)
	visit = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "caption":
				caption = core.CollapseSpace(TextOf(c))
			case "thead", "tbody", "tfoot":
				visit(c)
			case "tr":
				var cells []string
				for cell := c.FirstChild; cell != nil; cell = cell.NextSibling {
					if cell.Type == html.ElementNode && (cell.Data == "td" || cell.Data == "th") {
						cells = append(cells, w.inline(children(cell)))
					}
				}
				if len(cells) > 0 {
					rows = append(rows, cells)
				}
			}
		}
	}
	visit(n)

	if caption != "" {
		w.emit(core.Paragraph(caption), n)
	}
	if len(rows) > 0 {
		w.emit(core.Table(rows), n)
	}
}

// isLayoutTable reports tables used for page layout rather than data.
func isLayoutTable(n *html.Node) bool {
	switch strings.ToLower(attr(n, "role")) {
	case "presentation", "none":
		return true
	}
	if len(findAll(n, "table")) > 1 {
		return true
	}
	for _, tag := range []string{"h1", "h2", "h3", "ul", "ol", "article", "section", "nav"} {
		if len(findAll(n, tag)) > 0 {
			return true
		}
	}
	return false
}

func (w *walker) image(n *html.Node) {
	src := ""
	for _, key := range []string{"src", "data-src", "data-original", "data-lazy-src"} {
		v := strings.TrimSpace(attr(n, key))
		if v != "" && !strings.HasPrefix(strings.ToLower(v), "data:") {
			src = v
			break
		}
	}
	if src == "" {
		if first := strings.Fields(strings.Split(attr(n, "srcset"), ",")[0]); len(first) > 0 {
			src = first[0]
		}
	}
	src = urls.Resolve(w.base, src)
	if src == "" {
		return
	}
	w.emit(core.Image(core.CollapseSpace(attr(n, "alt")), src), n)
}

// soleElement returns the single <a> or <img> a run consists of, looking
// through wrappers such as <strong><a>…</a></strong>.
func soleElement(run []*html.Node) *html.Node {
	var only *html.Node
	for _, n := range run {
		switch n.Type {
		case html.TextNode:
			if strings.TrimSpace(n.Data) != "" {
				return nil
			}
		case html.ElementNode:
			if n.Data == "br" {
				continue
			}
			if only != nil {
				return nil
			}
			only = n
		}
	}
	if only == nil {
		return nil
	}
	if only.Data == "a" || only.Data == "img" {
		return only
	}
	return soleElement(children(only))
}

// onlyImage returns the image inside a link that has no text of its own.
func onlyImage(a *html.Node) *html.Node {
	if strings.TrimSpace(TextOf(a)) != "" {
		return nil
	}
	if imgs := findAll(a, "img"); len(imgs) == 1 {
		return imgs[0]
	}
	return nil
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func hasBlockDescendant(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (blockTags[c.Data] || hasBlockDescendant(c)) {
			return true
		}
	}
	return false
}

func children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var visit func(*html.Node)
	visit = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				if c.Data == tag {
					out = append(out, c)
				}
				visit(c)
			}
		}
	}
	if n.Type == html.ElementNode && n.Data == tag {
		out = append(out, n)
	}
	visit(n)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// Skipped reports elements that never carry readable content: scripts,
// media, form controls and hidden subtrees.
func Skipped(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if skippedTags[n.Data] {
		return true
	}
	for _, a := range n.Attr {
		switch a.Key {
		case "hidden":
			return true
		case "aria-hidden":
			if strings.EqualFold(a.Val, "true") {
				return true
			}
		case "style":
			style := strings.ReplaceAll(strings.ToLower(a.Val), " ", "")
			if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
				return true
			}
		}
	}
	return false
}

// TextOf returns the concatenated text under n, skipping content that is
// never rendered.
func TextOf(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(p *html.Node) {
		switch p.Type {
		case html.TextNode:
			b.WriteString(p.Data)
			return
		case html.ElementNode:
			if Skipped(p) {
				return
			}
			if blockTags[p.Data] || p.Data == "br" {
				defer b.WriteByte(' ')
			}
		}
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return b.String()
}

func textOfNodes(nodes []*html.Node) string {
	var b strings.Builder
	for _, n := range nodes {
		b.WriteString(TextOf(n))
	}
	return b.String()
}
