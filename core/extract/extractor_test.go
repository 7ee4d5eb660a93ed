package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/smartreader/core"
	"github.com/gaurav-prasanna/smartreader/core/dom"
)

func sentence(word string, n int) string {
	return strings.TrimSpace(strings.Repeat(word+" ", n))
}

func texts(blocks []core.ContentBlock) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.PlainText()
	}
	return out
}

func render(t *testing.T, page string, truncated bool) *core.RenderedDocument {
	t.Helper()
	doc, err := dom.Document(page, "https://example.com/post", truncated)
	require.NoError(t, err)
	return doc
}

func TestDistillKeepsArticleAndDropsFurniture(t *testing.T) {
	page := `<html><head><title>Understanding Widgets | Example Blog</title></head><body>
	<header class="site-header"><a href="/">Home</a> <a href="/about">About us</a></header>
	<nav><ul><li><a href="/a">Archive</a></li><li><a href="/b">Categories</a></li></ul></nav>
	<div class="layout">
	  <main>
	    <article>
	      <h1>Understanding Widgets</h1>
	      <p>` + sentence("widgets", 30) + `</p>
	      <p>` + sentence("gadgets", 30) + `</p>
	      <p>` + sentence("gizmos", 30) + `</p>
	    </article>
	  </main>
	  <aside class="sidebar"><p>` + sentence("promo", 40) + `</p></aside>
	</div>
	<div class="cookie-consent"><p>` + sentence("cookies", 30) + `</p></div>
	<footer><p>Copyright 2024 Example Blog. All rights reserved.</p></footer>
	</body></html>`

	blocks, err := New(Options{}, nil).Distill(render(t, page, false))
	require.NoError(t, err)

	got := texts(blocks)
	require.Len(t, got, 4)
	assert.Equal(t, "Understanding Widgets", got[0])
	assert.True(t, strings.HasPrefix(got[1], "widgets"))
	assert.True(t, strings.HasPrefix(got[3], "gizmos"))
	joined := strings.Join(got, " ")
	for _, junk := range []string{"promo", "cookies", "Copyright", "About us", "Archive"} {
		assert.NotContains(t, joined, junk)
	}
}

func TestDistillTieBreaksOnTitleHeading(t *testing.T) {
	page := `<html><head><title>Real Title</title></head><body>
	<div><section><h2>Other Story</h2><p>` + sentence("other", 20) + `</p></section></div>
	<div><section><h2>Real Title</h2><p>` + sentence("real", 20) + `</p></section></div>
	</body></html>`

	flat := ScorerFunc(func(r Region) float64 {
		if r.Node != nil && r.Node.Data == "section" {
			return 1
		}
		return 0.1
	})
	blocks, err := New(Options{}, flat).Distill(render(t, page, false))
	require.NoError(t, err)

	got := texts(blocks)
	require.Len(t, got, 2)
	assert.Equal(t, "Real Title", got[0])
	assert.True(t, strings.HasPrefix(got[1], "real"))
}

func TestDistillExtendsToDenseSiblings(t *testing.T) {
	page := `<html><head><title>Notes</title></head><body>
	<div id="content">
	  <h2>Part one</h2>
	  <div class="chunk"><p>` + sentence("alpha", 40) + `</p><p>` + sentence("beta", 40) + `</p></div>
	  <div class="chunk"><p>` + sentence("gamma", 20) + `</p></div>
	</div>
	<div class="share"><a href="/t">Tweet</a></div>
	</body></html>`

	blocks, err := New(Options{SiblingRatio: 0.5}, ScorerFunc(func(r Region) float64 {
		if r.Node != nil && r.Node.Data == "div" && r.TextLen > 300 && r.TextLen < 400 {
			return 2
		}
		return 1
	})).Distill(render(t, page, false))
	require.NoError(t, err)

	got := texts(blocks)
	require.Len(t, got, 4)
	assert.Equal(t, "Part one", got[0])
	assert.True(t, strings.HasPrefix(got[3], "gamma"))
}

func TestDistillShortPageKeepsBody(t *testing.T) {
	page := `<html><head><title>T</title></head><body><nav><a href="/x">Menu</a></nav><h1>H</h1><p>Body</p></body></html>`
	blocks, err := New(Options{}, nil).Distill(render(t, page, false))
	require.NoError(t, err)
	assert.Equal(t, []string{"H", "Body"}, texts(blocks))
}

func TestDistillTruncatedPageStillYieldsContent(t *testing.T) {
	page := `<html><body><nav><a href="/x">Menu</a></nav><article><p>` + sentence("partial", 5) + `</p></article>`
	blocks, err := New(Options{}, nil).Distill(render(t, page, true))
	require.NoError(t, err)
	require.NotEmpty(t, blocks)
	assert.True(t, strings.HasPrefix(blocks[0].PlainText(), "partial"))
}

func TestDistillOnlyBoilerplateIsSoftFailure(t *testing.T) {
	page := `<html><body><nav><ul><li><a href="/a">` + sentence("link", 20) + `</a></li></ul></nav></body></html>`
	doc := render(t, page, false)
	require.NotEmpty(t, doc.Blocks)

	blocks, err := New(Options{}, nil).Distill(doc)
	var ef *core.ExtractionFailure
	require.ErrorAs(t, err, &ef)
	assert.Equal(t, "https://example.com/post", ef.URL)
	assert.Equal(t, doc.Blocks, blocks)
}

func TestDistillEmptyDocument(t *testing.T) {
	blocks, err := New(Options{}, nil).Distill(&core.RenderedDocument{Kind: core.KindWebPage})
	assert.Nil(t, blocks)
	assert.True(t, core.IsSoft(err))
}

func TestDistillWithoutDOMPassesBlocksThrough(t *testing.T) {
	in := []core.ContentBlock{core.Heading(1, "A"), core.Paragraph("b")}
	blocks, err := New(Options{}, nil).Distill(&core.RenderedDocument{Kind: core.KindWebPage, Blocks: in})
	require.NoError(t, err)
	assert.Equal(t, in, blocks)
}

func pdfBlock(b core.ContentBlock, page int, y float64) core.ContentBlock {
	b.Origin = core.Origin{Page: page, Y: y, FontSize: 10}
	return b
}

func TestDistillPDFStripsRunningHeadersAndFooters(t *testing.T) {
	var blocks []core.ContentBlock
	for p, word := range []string{"alpha", "beta", "gamma", "delta"} {
		page := p + 1
		blocks = append(blocks,
			pdfBlock(core.Paragraph("Journal of Tests, Vol. 3"), page, 30),
			pdfBlock(core.Paragraph(sentence(word, 30)), page, 100),
			pdfBlock(core.Paragraph(fmt.Sprintf("Page %d", page)), page, 800.4-float64(page)*0.2),
		)
	}
	blocks = append(blocks,
		pdfBlock(core.Paragraph("See appendix"), 1, 400),
		pdfBlock(core.Paragraph("See appendix"), 2, 400),
	)

	out, err := New(Options{}, nil).Distill(&core.RenderedDocument{Kind: core.KindPDF, Blocks: blocks, Pages: 4})
	require.NoError(t, err)

	joined := strings.Join(texts(out), "\n")
	assert.NotContains(t, joined, "Journal of Tests")
	assert.NotContains(t, joined, "Page ")
	assert.Contains(t, joined, "See appendix")
	assert.Equal(t, 4+2, len(out))
}

func TestDistillPDFFooterAtDifferentHeightsSurvives(t *testing.T) {
	blocks := []core.ContentBlock{
		pdfBlock(core.Paragraph("Note 1"), 1, 100),
		pdfBlock(core.Paragraph("Note 2"), 2, 300),
		pdfBlock(core.Paragraph("Note 3"), 3, 500),
	}
	out, err := New(Options{}, nil).Distill(&core.RenderedDocument{Kind: core.KindPDF, Blocks: blocks})
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestDistillPDFPreamble(t *testing.T) {
	body := []core.ContentBlock{
		pdfBlock(core.Heading(1, "Introduction"), 1, 200),
		pdfBlock(core.Paragraph(sentence("method", 60)), 1, 230),
		pdfBlock(core.Paragraph(sentence("results", 60)), 2, 100),
		pdfBlock(core.Paragraph(sentence("discussion", 40)), 2, 300),
	}

	t.Run("weak stamp dropped", func(t *testing.T) {
		blocks := append([]core.ContentBlock{pdfBlock(core.Paragraph("arXiv:2101.00001v1 [cs.CL]"), 1, 20)}, body...)
		out, err := New(Options{}, nil).Distill(&core.RenderedDocument{Kind: core.KindPDF, Blocks: blocks})
		require.NoError(t, err)
		assert.Equal(t, "Introduction", out[0].Text)
	})

	t.Run("abstract kept", func(t *testing.T) {
		blocks := append([]core.ContentBlock{pdfBlock(core.Paragraph(sentence("abstract", 100)), 1, 100)}, body...)
		out, err := New(Options{}, nil).Distill(&core.RenderedDocument{Kind: core.KindPDF, Blocks: blocks})
		require.NoError(t, err)
		assert.Equal(t, core.BlockParagraph, out[0].Kind)
		assert.Len(t, out, 5)
	})
}

func TestDensityScorer(t *testing.T) {
	s := DensityScorer{MaxLinkDensity: 0.5}
	dense := Region{TextLen: 1000, MarkupLen: 1100}
	sparse := Region{TextLen: 1000, MarkupLen: 5000}
	linky := Region{TextLen: 1000, MarkupLen: 1100, LinkTextLen: 600}

	assert.Greater(t, s.Score(dense), s.Score(sparse))
	assert.Zero(t, s.Score(linky))
	assert.Zero(t, s.Score(Region{}))
	assert.Equal(t, 1.0, logScale(50))
	assert.Equal(t, 3.0, logScale(300))
}

func TestIsBoilerplateWords(t *testing.T) {
	assert.Equal(t, []string{"post", "sidebar", "left"}, words("post-sidebar__left"))

	doc := render(t, `<html><body>
	<div id="dl" class="download-box">x</div>
	<div class="ad-slot">x</div>
	<article><header class="post-header">x</header></article>
	<header>x</header>
	</body></html>`, false)

	find := func(sel string) bool {
		n := doc.DOM.Find(sel).Nodes[0]
		inArticle := doc.DOM.Find(sel).ParentsFiltered("article, main").Length() > 0
		return isBoilerplate(n, inArticle, 1000)
	}
	assert.False(t, find(".download-box"))
	assert.True(t, find(".ad-slot"))
	assert.False(t, find(".post-header"))
	assert.True(t, find("body > header"))
}

func TestDistillContentWrapperWithFurnitureClass(t *testing.T) {
	page := `<html><head><title>Rivers</title></head><body>
	<nav><a href="/">Home</a> <a href="/about">About</a> <a href="/contact">Contact</a></nav>
	<div class="site-content has-sidebar">
	  <article>
	    <h1>Rivers</h1>
	    <p>` + sentence("rivers", 60) + `</p>
	    <p>` + sentence("deltas", 60) + `</p>
	  </article>
	</div>
	</body></html>`

	blocks, err := New(Options{}, nil).Distill(render(t, page, false))
	require.NoError(t, err)
	got := texts(blocks)
	require.Len(t, got, 3)
	assert.Equal(t, "Rivers", got[0])
	assert.NotContains(t, strings.Join(got, " "), "Contact")
}

func TestFurnitureClassOnTextHeavyWrapper(t *testing.T) {
	doc := render(t, `<html><body>
	<div class="menu"><a href="/">Home</a></div>
	<div class="widget-area"><p>`+sentence("story", 80)+`</p></div>
	</body></html>`, false)
	total := visibleText(doc.DOM.Find("body").Nodes[0])

	assert.True(t, isBoilerplate(doc.DOM.Find(".menu").Nodes[0], false, total))
	assert.False(t, isBoilerplate(doc.DOM.Find(".widget-area").Nodes[0], false, total))
}
