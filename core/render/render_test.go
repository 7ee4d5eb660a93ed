package render

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/gaurav-prasanna/smartreader/core"
)

func sampleDoc() *core.ExtractedDocument {
	title := "On Widgets"
	one := 1
	ref := "https://example.org/widgets"
	return &core.ExtractedDocument{
		Markdown: "# Widgets\n\nWidgets are small. See [the catalogue](https://example.com/cat).\n\n" +
			"- first\n  - nested\n\n| Name | Size |\n| --- | --- |\n| Bolt | 3 |\n\n![Figure 1: A widget](https://example.com/w.png)\n",
		Metadata: core.DocumentMetadata{
			Title:         &title,
			Authors:       []string{"Ada Lovelace", "Charles Babbage"},
			PublishedDate: &core.Date{Time: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
			SourceURL:     "https://example.com/widgets",
		},
		References: []core.Reference{{RawText: "Widget atlas. https://example.org/widgets", Ordinal: &one, ResolvedURL: &ref}},
		Kind:       core.KindWebPage,
	}
}

func TestMarkdownFrontMatter(t *testing.T) {
	out, err := NewMarkdownRenderer().Render(sampleDoc())
	require.NoError(t, err)

	s := string(out)
	require.True(t, strings.HasPrefix(s, "---\n"))
	end := strings.Index(s[4:], "---\n")
	require.Positive(t, end)

	var fm map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(s[4:4+end]), &fm))
	assert.Equal(t, "On Widgets", fm["title"])
	assert.Equal(t, "2024-03-01", fm["published_date"])
	assert.Equal(t, "https://example.com/widgets", fm["source"])
	assert.True(t, strings.HasSuffix(s, sampleDoc().Markdown))
	assert.Equal(t, ".md", NewMarkdownRenderer().Extension())
}

func TestMarkdownWithoutFrontMatter(t *testing.T) {
	doc := sampleDoc()
	out, err := (&MarkdownRenderer{}).Render(doc)
	require.NoError(t, err)
	assert.Equal(t, doc.Markdown, string(out))
}

func TestJSONShape(t *testing.T) {
	out, err := NewJSONRenderer().Render(sampleDoc())
	require.NoError(t, err)

	var got struct {
		Markdown string `json:"markdown"`
		Metadata struct {
			Title         *string  `json:"title"`
			Authors       []string `json:"authors"`
			PublishedDate string   `json:"published_date"`
		} `json:"metadata"`
		References []struct {
			RawText     string  `json:"raw_text"`
			Ordinal     *int    `json:"ordinal"`
			ResolvedURL *string `json:"resolved_url"`
		} `json:"references"`
		Structure structure `json:"structure"`
	}
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "On Widgets", *got.Metadata.Title)
	assert.Equal(t, "2024-03-01", got.Metadata.PublishedDate)
	require.Len(t, got.References, 1)
	assert.Equal(t, 1, *got.References[0].Ordinal)

	assert.Equal(t, []heading{{Level: 1, Text: "Widgets"}}, got.Structure.Headings)
	assert.Equal(t, []link{{Text: "the catalogue", Href: "https://example.com/cat"}}, got.Structure.Links)
	assert.Equal(t, 1, got.Structure.Tables)
	assert.Equal(t, 2, got.Structure.ListItems)
	assert.Equal(t, 1, got.Structure.Images)
}

func TestJSONMissingFieldsAreNull(t *testing.T) {
	doc := &core.ExtractedDocument{Markdown: "text\n", Metadata: core.DocumentMetadata{SourceURL: "https://x.test/"}}
	out, err := (&JSONRenderer{}).Render(doc)
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, `"title": null`)
	assert.Contains(t, s, `"published_date": null`)
	assert.Contains(t, s, `"references": []`)
	assert.NotContains(t, s, `"structure"`)
}

func TestPDFRenders(t *testing.T) {
	out, err := NewPDFRenderer().Render(sampleDoc())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF-"))
	assert.Equal(t, ".pdf", NewPDFRenderer().Extension())

	out, err = NewPDFRenderer().Render(&core.ExtractedDocument{})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
