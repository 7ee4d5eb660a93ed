package extract

import (
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"

	"github.com/gaurav-prasanna/smartreader/core"
	"github.com/gaurav-prasanna/smartreader/core/dom"
)

// containerTags are elements that may hold the main content.
var containerTags = map[string]bool{
	"body": true, "main": true, "article": true, "section": true, "div": true,
	"p": true, "blockquote": true, "pre": true, "ul": true, "ol": true,
	"table": true, "td": true, "dl": true, "figure": true, "details": true,
}

// nodeStat holds size counters for a DOM subtree, boilerplate excluded.
type nodeStat struct {
	text, markup, links, headings int
	boiler                        bool
}

// analysis is the per-call view of one DOM. Nothing in it is shared.
type analysis struct {
	stats    map[*html.Node]*nodeStat
	order    []*html.Node
	headings []*html.Node
	bodyText int
}

func analyse(root *html.Node) *analysis {
	a := &analysis{stats: make(map[*html.Node]*nodeStat), bodyText: visibleText(root)}
	a.walk(root, false)
	return a
}

func (a *analysis) walk(n *html.Node, inArticle bool) *nodeStat {
	st := &nodeStat{}
	a.stats[n] = st
	st.boiler = isBoilerplate(n, inArticle, a.bodyText)
	if st.boiler {
		return st
	}
	a.order = append(a.order, n)

	st.markup = 2*len(n.Data) + 5
	for _, at := range n.Attr {
		st.markup += len(at.Key) + len(at.Val) + 4
	}
	if opensArticle(n) {
		inArticle = true
	}
	if isHeading(n) {
		st.headings++
		a.headings = append(a.headings, n)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			t := visibleLen(c.Data)
			st.text += t
			st.markup += t
		case html.ElementNode:
			if dom.Skipped(c) {
				st.markup += 2*len(c.Data) + 5
				continue
			}
			cs := a.walk(c, inArticle)
			if cs.boiler {
				continue
			}
			st.text += cs.text
			st.markup += cs.markup
			st.links += cs.links
			st.headings += cs.headings
		}
	}
	if n.Data == "a" {
		st.links = st.text
	}
	return st
}

func (a *analysis) region(n *html.Node) Region {
	st := a.stats[n]
	return Region{
		Node:        n,
		TextLen:     st.text,
		MarkupLen:   st.markup,
		LinkTextLen: st.links,
		Headings:    st.headings,
	}
}

func (d *Distiller) distillHTML(doc *core.RenderedDocument) []core.ContentBlock {
	root := doc.DOM.Find("body").First()
	if root.Length() == 0 {
		return keep(doc.Blocks, nil, nil)
	}
	body := root.Nodes[0]
	a := analyse(body)

	minLen, tol := d.opts.MinTextLen, d.opts.TieTolerance
	if doc.Truncated {
		minLen /= 2
		tol = d.opts.TruncatedTolerance
	}

	var (
		cands  []*html.Node
		scores []float64
		best   float64
	)
	for _, n := range a.order {
		if !containerTags[n.Data] || a.stats[n].text < minLen {
			continue
		}
		s := d.scorer.Score(a.region(n))
		cands = append(cands, n)
		scores = append(scores, s)
		if s > best {
			best = s
		}
	}
	if best <= 0 {
		log.Debug().Str("url", doc.URL).Msg("no scoring region, keeping body")
		return keep(doc.Blocks, []*html.Node{body}, a)
	}

	title := doc.SourceMetadata.Get("title")
	if title == "" {
		title = doc.SourceMetadata.Get("og:title")
	}
	titled := titleHeadings(a.headings, title)

	var winner *html.Node
	var winnerScore float64
	var winnerTitled bool
	for i, n := range cands {
		if scores[i] < best*(1-tol) {
			continue
		}
		hasTitle := containsAny(n, titled)
		switch {
		case winner == nil,
			hasTitle && !winnerTitled,
			hasTitle == winnerTitled && scores[i] > winnerScore:
			winner, winnerScore, winnerTitled = n, scores[i], hasTitle
		}
	}

	region := d.extend(a, winner)
	log.Debug().
		Str("url", doc.URL).
		Str("region", describe(winner)).
		Float64("score", winnerScore).
		Int("nodes", len(region)).
		Msg("main region selected")
	return keep(doc.Blocks, region, a)
}

// extend grows the winning node to neighbouring siblings that are nearly
// as dense, plus headings directly around it.
func (d *Distiller) extend(a *analysis, n *html.Node) []*html.Node {
	win := a.region(n)
	minDensity := win.Density() * d.opts.SiblingRatio

	joins := func(s *html.Node) (join, stop bool) {
		switch s.Type {
		case html.TextNode:
			return false, visibleLen(s.Data) > 0
		case html.ElementNode:
		default:
			return false, false
		}
		st, ok := a.stats[s]
		if !ok {
			return false, false
		}
		if st.boiler {
			return false, true
		}
		if isHeading(s) {
			return true, false
		}
		if st.text == 0 {
			return false, false
		}
		r := a.region(s)
		if r.Density() >= minDensity && r.LinkDensity() <= d.opts.MaxLinkDensity {
			return true, false
		}
		return false, true
	}

	var before []*html.Node
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		join, stop := joins(s)
		if stop {
			break
		}
		if join {
			before = append(before, s)
		}
	}
	var after []*html.Node
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		join, stop := joins(s)
		if stop {
			break
		}
		if join {
			after = append(after, s)
		}
	}
	for len(after) > 0 && isHeading(after[len(after)-1]) {
		after = after[:len(after)-1]
	}

	region := make([]*html.Node, 0, len(before)+1+len(after))
	for i := len(before) - 1; i >= 0; i-- {
		region = append(region, before[i])
	}
	region = append(region, n)
	return append(region, after...)
}

// keep returns the blocks whose origin lies inside one of roots and not
// under a boilerplate element. A nil roots keeps every block outside
// boilerplate.
func keep(blocks []core.ContentBlock, roots []*html.Node, a *analysis) []core.ContentBlock {
	inRoots := make(map[*html.Node]bool, len(roots))
	for _, r := range roots {
		inRoots[r] = true
	}
	var out []core.ContentBlock
	for _, b := range blocks {
		n := b.Origin.Node
		if n == nil {
			continue
		}
		inside := roots == nil
		for p := n; p != nil; p = p.Parent {
			if a != nil {
				if st, ok := a.stats[p]; ok && st.boiler {
					inside = false
					break
				}
			}
			if inRoots[p] {
				inside = true
				if a == nil {
					break
				}
			}
		}
		if inside {
			out = append(out, b)
		}
	}
	return out
}

// titleHeadings returns headings whose text matches the page title. Titles
// often carry a site suffix ("Post | Blog"), so containment counts.
func titleHeadings(headings []*html.Node, title string) []*html.Node {
	t := fold(title)
	if t == "" {
		return nil
	}
	var out []*html.Node
	for _, h := range headings {
		ht := fold(dom.TextOf(h))
		if len(ht) < 3 {
			continue
		}
		if ht == t || strings.Contains(t, ht) || strings.Contains(ht, t) {
			out = append(out, h)
		}
	}
	return out
}

func containsAny(n *html.Node, targets []*html.Node) bool {
	for _, t := range targets {
		for p := t; p != nil; p = p.Parent {
			if p == n {
				return true
			}
		}
	}
	return false
}

func isHeading(n *html.Node) bool {
	if n.Type != html.ElementNode || len(n.Data) != 2 || n.Data[0] != 'h' {
		return false
	}
	return n.Data[1] >= '1' && n.Data[1] <= '6'
}

// visibleLen counts non-space runes.
func visibleLen(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

func fold(s string) string {
	return strings.ToLower(core.CollapseSpace(s))
}

func describe(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(n.Data)
	for _, a := range n.Attr {
		switch a.Key {
		case "id":
			b.WriteString("#" + a.Val)
		case "class":
			for _, c := range strings.Fields(a.Val) {
				b.WriteString("." + c)
			}
		}
	}
	return b.String()
}
