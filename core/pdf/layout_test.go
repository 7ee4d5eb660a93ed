package pdf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/smartreader/core"
)

func layout(t *testing.T, page int, stream string) []core.ContentBlock {
	t.Helper()
	e := New(Options{})
	ls := e.lines(page, interpret([]byte(stream)), -1)
	body, _ := bodySizes(ls)
	return e.blocks(e.paragraphs(ls, body), "https://example.com/a.pdf")
}

func TestLayoutHeadingsAndParagraphs(t *testing.T) {
	stream := `
BT /F1 20 Tf 72 760 Td (Main Title) Tj ET
BT /F1 14 Tf 72 720 Td (1 Introduction) Tj ET
BT /F1 10 Tf 72 700 Td (The first line of a paragraph that is long) Tj ET
BT /F1 10 Tf 72 688 Td (and its second line which is also long.) Tj ET
BT /F1 10 Tf 72 660 Td (A new paragraph after a wide gap in text.) Tj ET
BT /F1 14 Tf 72 630 Td (2 Method) Tj ET
BT /F1 10 Tf 72 610 Td (Hyphen- ) Tj ET
BT /F1 10 Tf 72 598 Td (ated words join up here in the paragraph.) Tj ET
`
	blocks := layout(t, 1, stream)
	require.Len(t, blocks, 6)

	assert.Equal(t, "Main Title", blocks[0].Text)
	assert.Equal(t, 1, blocks[0].Level)
	assert.Equal(t, core.BlockHeading, blocks[1].Kind)
	assert.Equal(t, 2, blocks[1].Level)
	assert.Equal(t, "The first line of a paragraph that is long and its second line which is also long.", blocks[2].Text)
	assert.Equal(t, core.BlockParagraph, blocks[3].Kind)
	assert.Equal(t, 2, blocks[4].Level)
	assert.Equal(t, "Hyphenated words join up here in the paragraph.", blocks[5].Text)

	assert.Equal(t, 1, blocks[2].Origin.Page)
	assert.Equal(t, 700.0, blocks[2].Origin.Y)
	assert.Equal(t, 10.0, blocks[2].Origin.FontSize)
}

func TestLayoutJoinsRunsOnOneLine(t *testing.T) {
	stream := `
BT /F1 10 Tf 72 700 Td (Left) Tj ET
BT /F1 10 Tf 200 700 Td (right) Tj ET
BT /F1 10 Tf 72 688 Td (Ker) Tj 15 0 Td (ned) Tj ET
`
	blocks := layout(t, 1, stream)
	require.Len(t, blocks, 1)
	assert.Equal(t, "Left right Kerned", blocks[0].Text)
}

func TestLayoutBulletsAndFigures(t *testing.T) {
	stream := `
BT /F1 10 Tf 72 700 Td (Some introductory words for the list.) Tj ET
BT /F1 10 Tf 72 688 Td (\225 first point) Tj ET
BT /F1 10 Tf 72 676 Td (\225 second point) Tj ET
q 200 0 0 100 72 550 cm /Im0 Do Q
BT /F1 9 Tf 72 535 Td (Figure 2: A chart of things) Tj ET
q 100 0 0 50 72 400 cm /Im1 Do Q
`
	blocks := layout(t, 3, stream)
	require.Len(t, blocks, 5)
	assert.Equal(t, core.ListItem(0, "first point"), stripOrigin(blocks[1]))
	assert.Equal(t, core.ListItem(0, "second point"), stripOrigin(blocks[2]))
	assert.Equal(t, core.Image("Figure 2: A chart of things", "https://example.com/a.pdf#page=3"), stripOrigin(blocks[3]))
	assert.Equal(t, core.Image("Figure on page 3", "https://example.com/a.pdf#page=3"), stripOrigin(blocks[4]))
}

func TestLinesRespectImageBudget(t *testing.T) {
	e := New(Options{})
	runs := interpret([]byte("q 1 0 0 1 0 0 cm /Fm0 Do Q q 1 0 0 1 0 0 cm /Im0 Do Q"))
	assert.Len(t, e.lines(1, runs, 0), 0)
	assert.Len(t, e.lines(1, runs, 1), 1)
	assert.Len(t, e.lines(1, runs, -1), 2)
}

func TestBodySizeWeighsCharacters(t *testing.T) {
	ls := []line{
		{text: "Big heading", size: 24},
		{text: "a much longer line of ordinary body text", size: 10},
		{text: "another body line", size: 10.1},
	}
	assert.Equal(t, 10.0, bodySize(ls))
}

func stripOrigin(b core.ContentBlock) core.ContentBlock {
	b.Origin = core.Origin{}
	return b
}

func TestBodySizeIsPerPage(t *testing.T) {
	long := strings.Repeat("ordinary body text ", 15)
	ls := []line{
		{page: 1, text: "Title Page", size: 20},
		{page: 1, text: "A Study", size: 14},
		{page: 2, text: long, size: 10},
		{page: 2, text: long, size: 10},
		{page: 3, text: long, size: 12},
		{page: 3, text: long, size: 12},
		{page: 3, text: long, size: 12},
	}
	pages, doc := bodySizes(ls)
	assert.Equal(t, 12.0, doc)
	assert.Equal(t, 10.0, pages[2])
	assert.Equal(t, 12.0, pages[3])
	// Too little text on the title page to trust its own mode.
	assert.Equal(t, 12.0, pages[1])

	e := New(Options{})
	paras := e.paragraphs([]line{
		{page: 2, text: "Setup", size: 12, y: 700},
		{page: 2, text: long, size: 10, y: 650},
		{page: 3, text: "Results", size: 12, y: 700},
		{page: 3, text: long, size: 12, y: 650},
	}, pages)
	require.Len(t, paras, 4)
	assert.True(t, paras[0].heading)
	assert.False(t, paras[2].heading)
}
