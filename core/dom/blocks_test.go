package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/smartreader/core"
)

func kinds(blocks []core.ContentBlock) []core.BlockKind {
	out := make([]core.BlockKind, len(blocks))
	for i, b := range blocks {
		out[i] = b.Kind
	}
	return out
}

func TestDocumentMinimalPage(t *testing.T) {
	doc, err := Document(`<html><head><title>T</title></head><body><h1>H</h1><p>Body</p></body></html>`, "https://example.com/", false)
	require.NoError(t, err)

	assert.Equal(t, core.KindWebPage, doc.Kind)
	assert.Equal(t, "T", doc.SourceMetadata.Get("title"))
	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, core.BlockHeading, doc.Blocks[0].Kind)
	assert.Equal(t, 1, doc.Blocks[0].Level)
	assert.Equal(t, "H", doc.Blocks[0].Text)
	assert.Equal(t, "Body", doc.Blocks[1].Text)
	for _, b := range doc.Blocks {
		assert.NotNil(t, b.Origin.Node, "block %q has no origin", b.Text)
	}
}

func TestBlocksStructure(t *testing.T) {
	page := `<html><body>
	<script>var x = 1;</script>
	<div class="content">
	  Loose text <em>with emphasis</em> and a <a href="/docs">relative link</a>.
	  <h2>Section</h2>
	  <ul>
	    <li>first</li>
	    <li>second
	      <ol><li>inner</li></ol>
	    </li>
	  </ul>
	  <table>
	    <caption>Numbers</caption>
	    <tr><th>Name</th><th>Count</th></tr>
	    <tr><td>a</td><td>1</td></tr>
	  </table>
	  <p><a href="https://other.test/page">Standalone link</a></p>
	  <figure><img src="/img/chart.png" alt="Chart"><figcaption>Figure 1: growth</figcaption></figure>
	  <p><img src="data:image/png;base64,AAAA" data-src="lazy.png" alt="Lazy"></p>
	  <pre>line one
line two</pre>
	  <form><input type="text"><button>Go</button></form>
	  <div hidden>secret</div>
	  <div style="display: none">also secret</div>
	</div>
	</body></html>`

	doc, err := Document(page, "https://example.com/guide/", false)
	require.NoError(t, err)

	assert.Equal(t, []core.BlockKind{
		core.BlockParagraph,
		core.BlockHeading,
		core.BlockListItem, core.BlockListItem, core.BlockListItem,
		core.BlockParagraph,
		core.BlockTable,
		core.BlockLink,
		core.BlockImage,
		core.BlockParagraph,
		core.BlockImage,
		core.BlockParagraph,
	}, kinds(doc.Blocks))

	b := doc.Blocks
	assert.Contains(t, b[0].Text, "Loose text")
	assert.Contains(t, b[0].Text, "[relative link](https://example.com/docs)")
	assert.Equal(t, 2, b[1].Level)
	assert.Equal(t, 0, b[2].Depth)
	assert.Equal(t, "second", b[3].Text)
	assert.Equal(t, 1, b[4].Depth)
	assert.Equal(t, "inner", b[4].Text)
	assert.Equal(t, "Numbers", b[5].Text)
	assert.Equal(t, [][]string{{"Name", "Count"}, {"a", "1"}}, b[6].Rows)
	assert.Equal(t, "https://other.test/page", b[7].Href)
	assert.Equal(t, "Standalone link", b[7].Text)
	assert.Equal(t, "https://example.com/img/chart.png", b[8].Src)
	assert.Equal(t, "Chart", b[8].Alt)
	assert.Equal(t, "Figure 1: growth", b[9].Text)
	assert.Equal(t, "https://example.com/guide/lazy.png", b[10].Src)
	assert.Equal(t, "line one line two", b[11].Text)

	for _, blk := range b {
		assert.NotContains(t, blk.Text, "secret")
		assert.NotContains(t, blk.Text, "var x")
	}
}

func TestLayoutTableIsDescended(t *testing.T) {
	page := `<html><body><table role="presentation"><tr><td><h1>Title</h1><p>Text in a layout cell.</p></td></tr></table></body></html>`
	doc, err := Document(page, "https://example.com/", false)
	require.NoError(t, err)
	assert.Equal(t, []core.BlockKind{core.BlockHeading, core.BlockParagraph}, kinds(doc.Blocks))
}

func TestSourceMetadata(t *testing.T) {
	page := `<html lang="en"><head>
	<title>Page Title</title>
	<meta name="citation_title" content="A Study">
	<meta name="citation_author" content="Doe, Jane">
	<meta name="citation_author" content="Roe, Rick">
	<meta property="og:title" content="OG Title">
	<meta property="article:published_time" content="2024-02-03T10:00:00Z">
	<link rel="canonical" href="https://example.com/study">
	<script type="application/ld+json">
	{"@context":"https://schema.org","@graph":[{"@type":"Article","headline":"LD Headline","datePublished":"2024-02-01","author":[{"@type":"Person","name":"Ann Lee"},"Bo Chan"]}]}
	</script>
	</head><body><p>x</p></body></html>`

	doc, err := Document(page, "https://example.com/study", false)
	require.NoError(t, err)
	m := doc.SourceMetadata

	assert.Equal(t, "Page Title", m.Get("title"))
	assert.Equal(t, "en", m.Get("lang"))
	assert.Equal(t, "A Study", m.Get("citation_title"))
	assert.Equal(t, []string{"Doe, Jane", "Roe, Rick"}, m.Values("citation_author"))
	assert.Equal(t, "OG Title", m.Get("og:title"))
	assert.Equal(t, "2024-02-03T10:00:00Z", m.Get("article:published_time"))
	assert.Equal(t, "https://example.com/study", m.Get("canonical"))
	assert.Equal(t, "LD Headline", m.Get("jsonld:headline"))
	assert.Equal(t, "2024-02-01", m.Get("jsonld:datePublished"))
	assert.Equal(t, []string{"Ann Lee", "Bo Chan"}, m.Values("jsonld:author"))
}

func TestTruncatedFlagCarried(t *testing.T) {
	doc, err := Document(`<html><body><p>partial</p>`, "https://example.com/", true)
	require.NoError(t, err)
	assert.True(t, doc.Truncated)
	assert.NotEmpty(t, doc.Blocks)
}
