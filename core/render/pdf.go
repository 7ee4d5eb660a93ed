// Package render: PDF renderer.
// Lays the document out with gofpdf: a title block from the metadata, then
// every Markdown block with its own style, then the reference list.
// Images are shown as their alt text; the bytes are never fetched.
package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/gaurav-prasanna/smartreader/core"
	"github.com/gaurav-prasanna/smartreader/core/normalize"
)

// PDFRenderer renders a document as a PDF.
type PDFRenderer struct{}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

func (r *PDFRenderer) Render(doc *core.ExtractedDocument) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	title := ""
	if doc.Metadata.Title != nil {
		title = *doc.Metadata.Title
		pdf.SetTitle(title, true)
	}
	if len(doc.Metadata.Authors) > 0 {
		pdf.SetAuthor(strings.Join(doc.Metadata.Authors, ", "), true)
	}
	pdf.SetCreator("smartreader", false)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Helvetica", "B", 18)
		pdf.MultiCell(0, 8, tr(title), "", "L", false)
		pdf.Ln(2)
	}
	byline := strings.Join(doc.Metadata.Authors, ", ")
	if doc.Metadata.PublishedDate != nil {
		if byline != "" {
			byline += " · "
		}
		byline += doc.Metadata.PublishedDate.String()
	}
	if byline != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(byline), "", "L", false)
	}

	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.MultiCell(0, 5, tr("Source: "+doc.Metadata.SourceURL), "", "L", false)
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(6)

	for _, b := range normalize.Parse(doc.Markdown) {
		renderBlock(pdf, tr, b)
	}

	if len(doc.References) > 0 {
		renderHeading(pdf, tr, "References", 2)
		pdf.SetFont("Helvetica", "", 9)
		for i, ref := range doc.References {
			label := strconv.Itoa(i + 1)
			if ref.Ordinal != nil {
				label = strconv.Itoa(*ref.Ordinal)
			}
			pdf.MultiCell(0, 4.5, tr("["+label+"] "+ref.RawText), "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for PDF output.
func (r *PDFRenderer) Extension() string {
	return ".pdf"
}

func renderBlock(pdf *gofpdf.Fpdf, tr func(string) string, b core.ContentBlock) {
	switch b.Kind {
	case core.BlockHeading:
		renderHeading(pdf, tr, core.StripInline(b.Text), b.Level)
	case core.BlockListItem:
		pdf.SetFont("Helvetica", "", 10)
		indent := 5.0 * float64(b.Depth)
		left, _, _, _ := pdf.GetMargins()
		pdf.SetX(left + indent)
		pdf.MultiCell(0, 5, tr("• "+core.StripInline(b.Text)), "", "L", false)
	case core.BlockTable:
		renderTable(pdf, tr, b.Rows)
	case core.BlockImage:
		pdf.SetFont("Helvetica", "I", 9)
		pdf.SetTextColor(100, 100, 100)
		pdf.MultiCell(0, 5, tr("[Figure: "+b.Alt+"]"), "", "C", false)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(2)
	case core.BlockLink:
		pdf.SetFont("Helvetica", "U", 10)
		pdf.SetTextColor(0, 0, 160)
		pdf.WriteLinkString(5, tr(core.StripInline(b.Text)), b.Href)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(7)
	default:
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(core.StripInline(b.Text)), "", "L", false)
		pdf.Ln(3)
	}
}

// renderHeading sets the font size based on heading level and writes text.
func renderHeading(pdf *gofpdf.Fpdf, tr func(string) string, text string, level int) {
	sizes := map[int]float64{1: 18, 2: 15, 3: 13, 4: 12, 5: 11, 6: 10}
	size, ok := sizes[level]
	if !ok {
		size = 10
	}
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", size)
	pdf.MultiCell(0, size*0.6, tr(text), "", "L", false)
	pdf.Ln(2)
}

// renderTable draws rows as equal-width bordered cells; the first row is
// the header.
func renderTable(pdf *gofpdf.Fpdf, tr func(string) string, rows [][]string) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	cols := len(rows[0])
	w := (pageW - left - right) / float64(cols)
	for i, row := range rows {
		style := ""
		if i == 0 {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 9)
		for c := 0; c < cols; c++ {
			cell := ""
			if c < len(row) {
				cell = core.StripInline(row[c])
			}
			pdf.CellFormat(w, 6, tr(cell), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(3)
}
