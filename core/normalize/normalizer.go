// Package normalize implements the Normalizer interface.
// It renders content blocks as Markdown, which serves as the
// canonical intermediate format for all downstream renderers, and parses
// that Markdown back into blocks.
package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gaurav-prasanna/smartreader/core"
)

// ErrInvalidBlock is returned for a block whose kind is not one of the
// six known kinds.
var ErrInvalidBlock = errors.New("invalid content block")

// MarkdownNormalizer renders blocks as Markdown.
type MarkdownNormalizer struct{}

// New creates a MarkdownNormalizer.
func New() *MarkdownNormalizer {
	return &MarkdownNormalizer{}
}

// Normalize converts blocks into Markdown.
func (n *MarkdownNormalizer) Normalize(blocks []core.ContentBlock) (string, error) {
	return ToMarkdown(blocks)
}

// ToMarkdown renders blocks in order. Consecutive list items are joined by
// a single newline, every other pair of blocks by a blank line. The result
// depends only on the blocks, and rendering the output of Parse reproduces
// it exactly.
func ToMarkdown(blocks []core.ContentBlock) (string, error) {
	var b strings.Builder
	prev := core.BlockKind("")
	for i, blk := range blocks {
		line, ok, err := renderBlock(blk)
		if err != nil {
			return "", fmt.Errorf("block %d: %w", i, err)
		}
		if !ok {
			continue
		}
		if b.Len() > 0 {
			if prev == core.BlockListItem && blk.Kind == core.BlockListItem {
				b.WriteString("\n")
			} else {
				b.WriteString("\n\n")
			}
		}
		b.WriteString(line)
		prev = blk.Kind
	}
	if b.Len() == 0 {
		return "", nil
	}
	b.WriteString("\n")
	return b.String(), nil
}

// renderBlock returns the Markdown for one block, or ok=false when the
// block carries no content.
func renderBlock(blk core.ContentBlock) (string, bool, error) {
	switch blk.Kind {
	case core.BlockHeading:
		text := core.CollapseSpace(blk.Text)
		if text == "" {
			return "", false, nil
		}
		return strings.Repeat("#", clamp(blk.Level, 1, 6)) + " " + text, true, nil

	case core.BlockParagraph:
		return renderParagraph(blk.Text)

	case core.BlockListItem:
		text := core.CollapseSpace(blk.Text)
		if text == "" {
			return "", false, nil
		}
		return strings.Repeat("  ", max(blk.Depth, 0)) + "- " + text, true, nil

	case core.BlockTable:
		return renderTable(blk.Rows)

	case core.BlockLink:
		text := core.CollapseSpace(blk.Text)
		href := escapeURL(strings.TrimSpace(blk.Href))
		if href == "" {
			return renderParagraph(text)
		}
		if text == "" {
			text = href
		}
		return "[" + escapeBrackets(text) + "](" + href + ")", true, nil

	case core.BlockImage:
		src := escapeURL(strings.TrimSpace(blk.Src))
		if src == "" {
			return "", false, nil
		}
		return "![" + escapeBrackets(core.CollapseSpace(blk.Alt)) + "](" + src + ")", true, nil
	}
	return "", false, fmt.Errorf("%w: kind %q", ErrInvalidBlock, blk.Kind)
}

// Lines a paragraph must not start with, or it would read back as a
// different kind of block.
var (
	headingStart = regexp.MustCompile(`^#{1,6}(\s|$)`)
	bulletStart  = regexp.MustCompile(`^[-*+](\s|$)`)
	ordinalStart = regexp.MustCompile(`^\d{1,9}[.)](\s|$)`)
	ruleLine     = regexp.MustCompile(`^([*_-]\s*){3,}$`)
)

func renderParagraph(text string) (string, bool, error) {
	text = core.CollapseSpace(text)
	if text == "" {
		return "", false, nil
	}
	if needsEscape(text) {
		text = `\` + text
	}
	return text, true, nil
}

func needsEscape(text string) bool {
	if strings.HasPrefix(text, `\`) {
		return false
	}
	switch text[0] {
	case '|', '>', '<':
		return true
	}
	return headingStart.MatchString(text) ||
		bulletStart.MatchString(text) ||
		ordinalStart.MatchString(text) ||
		ruleLine.MatchString(text) ||
		strings.HasPrefix(text, "```") ||
		strings.HasPrefix(text, "~~~")
}

func renderTable(rows [][]string) (string, bool, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return "", false, nil
	}
	width := len(rows[0])
	empty := true
	lines := make([]string, 0, len(rows)+1)
	for i, row := range rows {
		cells := make([]string, width)
		for j := 0; j < width && j < len(row); j++ {
			cells[j] = escapePipes(core.CollapseSpace(row[j]))
			if cells[j] != "" {
				empty = false
			}
		}
		lines = append(lines, "| "+strings.Join(cells, " | ")+" |")
		if i == 0 {
			sep := make([]string, width)
			for j := range sep {
				sep[j] = "---"
			}
			lines = append(lines, "| "+strings.Join(sep, " | ")+" |")
		}
	}
	if empty {
		return "", false, nil
	}
	return strings.Join(lines, "\n"), true, nil
}

// escapePipes escapes every "|" not already escaped.
func escapePipes(s string) string {
	return escapeUnescaped(s, "|")
}

// escapeBrackets escapes every "[" and "]" not already escaped.
func escapeBrackets(s string) string {
	return escapeUnescaped(s, "[]")
}

func escapeUnescaped(s, chars string) string {
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if !escaped && strings.ContainsRune(chars, r) {
			b.WriteByte('\\')
		}
		escaped = !escaped && r == '\\'
		b.WriteRune(r)
	}
	return b.String()
}

var urlEscaper = strings.NewReplacer(
	" ", "%20", "\t", "%09", "\n", "%0A",
	"(", "%28", ")", "%29", "<", "%3C", ">", "%3E",
)

// escapeURL percent-encodes the characters that would end a Markdown
// link destination early.
func escapeURL(u string) string {
	return urlEscaper.Replace(u)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
