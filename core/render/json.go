// Package render: JSON renderer.
// Serializes the extracted document as
// {markdown, metadata, references, ...} plus a structural outline
// read back from the Markdown: headings, links and block counts.
package render

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/gaurav-prasanna/smartreader/core"
	"github.com/gaurav-prasanna/smartreader/core/normalize"
)

// JSONRenderer produces structured JSON output.
type JSONRenderer struct {
	// Outline adds the structure section.
	Outline bool
}

// NewJSONRenderer creates a JSONRenderer with the outline enabled.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{Outline: true}
}

type heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

type link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

type structure struct {
	Headings   []heading `json:"headings"`
	Links      []link    `json:"links"`
	Paragraphs int       `json:"paragraphs"`
	ListItems  int       `json:"list_items"`
	Tables     int       `json:"tables"`
	Images     int       `json:"images"`
}

type document struct {
	*core.ExtractedDocument
	Structure *structure `json:"structure,omitempty"`
}

func (r *JSONRenderer) Render(doc *core.ExtractedDocument) ([]byte, error) {
	out := document{ExtractedDocument: doc}
	if doc.References == nil {
		cp := *doc
		cp.References = []core.Reference{}
		out.ExtractedDocument = &cp
	}
	if r.Outline {
		out.Structure = outline(doc.Markdown)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return data, nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}

// linkRegex matches Markdown links [text](url) but not images.
var linkRegex = regexp.MustCompile(`(?:^|[^!\\])\[((?:[^\]\\]|\\.)*)\]\(([^\s()]+)\)`)

func outline(md string) *structure {
	s := &structure{Headings: []heading{}, Links: []link{}}
	for _, b := range normalize.Parse(md) {
		switch b.Kind {
		case core.BlockHeading:
			s.Headings = append(s.Headings, heading{Level: b.Level, Text: core.StripInline(b.Text)})
		case core.BlockParagraph:
			s.Paragraphs++
		case core.BlockListItem:
			s.ListItems++
		case core.BlockTable:
			s.Tables++
		case core.BlockImage:
			s.Images++
		}
	}
	for _, m := range linkRegex.FindAllStringSubmatch(md, -1) {
		s.Links = append(s.Links, link{Text: core.StripInline(m[1]), Href: m[2]})
	}
	return s
}
