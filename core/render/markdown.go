// Package render provides output renderers for extracted documents.
// This file implements the Markdown renderer: the canonical Markdown
// behind a YAML front matter block carrying the document metadata.
package render

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/gaurav-prasanna/smartreader/core"
)

// MarkdownRenderer writes the document Markdown with front matter.
type MarkdownRenderer struct {
	// FrontMatter disables the metadata header when false.
	FrontMatter bool
}

// NewMarkdownRenderer creates a MarkdownRenderer that emits front matter.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{FrontMatter: true}
}

type frontMatter struct {
	Title         string   `yaml:"title,omitempty"`
	Authors       []string `yaml:"authors,omitempty"`
	PublishedDate string   `yaml:"published_date,omitempty"`
	Source        string   `yaml:"source"`
	Kind          string   `yaml:"kind"`
	Truncated     bool     `yaml:"truncated,omitempty"`
	LowConfidence bool     `yaml:"low_confidence,omitempty"`
	References    int      `yaml:"references,omitempty"`
	Warnings      []string `yaml:"warnings,omitempty"`
}

func (r *MarkdownRenderer) Render(doc *core.ExtractedDocument) ([]byte, error) {
	if !r.FrontMatter {
		return []byte(doc.Markdown), nil
	}

	fm := frontMatter{
		Authors:       doc.Metadata.Authors,
		Source:        doc.Metadata.SourceURL,
		Kind:          string(doc.Kind),
		Truncated:     doc.Truncated,
		LowConfidence: doc.LowConfidence,
		References:    len(doc.References),
		Warnings:      doc.Warnings,
	}
	if doc.Metadata.Title != nil {
		fm.Title = *doc.Metadata.Title
	}
	if doc.Metadata.PublishedDate != nil {
		fm.PublishedDate = doc.Metadata.PublishedDate.String()
	}
	head, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("marshaling front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(head)
	buf.WriteString("---\n\n")
	buf.WriteString(doc.Markdown)
	return buf.Bytes(), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}
