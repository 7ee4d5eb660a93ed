package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ResourceKind is the classification of a fetched URL.
type ResourceKind string

const (
	KindUnknown ResourceKind = "unknown"
	KindWebPage ResourceKind = "web_page"
	KindPDF     ResourceKind = "pdf"
)

// Resource is the raw input of one read: a URL and whatever bytes and
// headers were acquired for it.
type Resource struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        []byte
}

// BlockKind tags a ContentBlock.
type BlockKind string

const (
	BlockHeading   BlockKind = "heading"
	BlockParagraph BlockKind = "paragraph"
	BlockListItem  BlockKind = "list_item"
	BlockTable     BlockKind = "table"
	BlockLink      BlockKind = "link"
	BlockImage     BlockKind = "image"
)

// Origin records where a block came from in the source. Exactly one of
// Node (web pages) or Page (PDFs, 1-based) is set.
type Origin struct {
	Node     *html.Node
	Page     int
	X, Y     float64
	FontSize float64
}

// ContentBlock is one structural unit of a document in reading order.
//
// Which fields are meaningful depends on Kind:
//
//	heading    Level, Text
//	paragraph  Text
//	list_item  Depth, Text
//	table      Rows
//	link       Text, Href
//	image      Alt, Src
type ContentBlock struct {
	Kind   BlockKind  `json:"kind"`
	Level  int        `json:"level,omitempty"`
	Depth  int        `json:"depth,omitempty"`
	Text   string     `json:"text,omitempty"`
	Rows   [][]string `json:"rows,omitempty"`
	Href   string     `json:"href,omitempty"`
	Alt    string     `json:"alt,omitempty"`
	Src    string     `json:"src,omitempty"`
	Origin Origin     `json:"-"`
}

func Heading(level int, text string) ContentBlock {
	return ContentBlock{Kind: BlockHeading, Level: level, Text: text}
}

func Paragraph(text string) ContentBlock {
	return ContentBlock{Kind: BlockParagraph, Text: text}
}

func ListItem(depth int, text string) ContentBlock {
	return ContentBlock{Kind: BlockListItem, Depth: depth, Text: text}
}

func Table(rows [][]string) ContentBlock {
	return ContentBlock{Kind: BlockTable, Rows: rows}
}

func Link(text, href string) ContentBlock {
	return ContentBlock{Kind: BlockLink, Text: text, Href: href}
}

func Image(alt, src string) ContentBlock {
	return ContentBlock{Kind: BlockImage, Alt: alt, Src: src}
}

// PlainText returns the human-visible text of the block with inline
// Markdown removed. Tables are flattened row by row.
func (b ContentBlock) PlainText() string {
	switch b.Kind {
	case BlockTable:
		rows := make([]string, 0, len(b.Rows))
		for _, r := range b.Rows {
			rows = append(rows, strings.Join(r, " "))
		}
		return StripInline(strings.Join(rows, " "))
	case BlockImage:
		return b.Alt
	default:
		return StripInline(b.Text)
	}
}

// Meta is the raw key/value metadata a source declares about itself
// (<meta> tags, PDF info dictionary). Keys are lower-case.
type Meta map[string][]string

// Add appends a value under key, ignoring blank values.
func (m Meta) Add(key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	key = strings.ToLower(strings.TrimSpace(key))
	m[key] = append(m[key], value)
}

// Get returns the first value stored under key.
func (m Meta) Get(key string) string {
	if v := m[strings.ToLower(key)]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// Values returns every value stored under key.
func (m Meta) Values(key string) []string {
	return m[strings.ToLower(key)]
}

// RenderedDocument is the intermediate representation both the PDF
// extractor and the page renderer produce.
type RenderedDocument struct {
	Kind           ResourceKind
	URL            string
	Blocks         []ContentBlock
	SourceMetadata Meta
	// DOM is the parsed page for web documents. Block origins point into it.
	DOM       *goquery.Document
	Truncated bool
	Pages     int
}

// Date is a calendar date serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("parsing date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// DocumentMetadata describes the document as a whole. Fields the source
// does not provide are left nil or empty.
type DocumentMetadata struct {
	Title         *string  `json:"title"`
	Authors       []string `json:"authors"`
	PublishedDate *Date    `json:"published_date"`
	SourceURL     string   `json:"source_url"`
}

// Reference is one entry of a document's bibliography.
type Reference struct {
	RawText     string  `json:"raw_text"`
	Ordinal     *int    `json:"ordinal"`
	ResolvedURL *string `json:"resolved_url"`
}

// ExtractedDocument is the result of reading one URL.
type ExtractedDocument struct {
	Markdown      string           `json:"markdown"`
	Metadata      DocumentMetadata `json:"metadata"`
	References    []Reference      `json:"references"`
	Kind          ResourceKind     `json:"kind"`
	Truncated     bool             `json:"truncated"`
	LowConfidence bool             `json:"low_confidence"`
	Warnings      []string         `json:"warnings,omitempty"`
}
