package normalize

import (
	"regexp"
	"strings"

	"github.com/gaurav-prasanna/smartreader/core"
)

var (
	headingLine  = regexp.MustCompile(`^(#{1,6}) (.+)$`)
	listLine     = regexp.MustCompile(`^((?:  )*)- (.+)$`)
	linkLine     = regexp.MustCompile(`^\[((?:[^\]\\]|\\.)*)\]\(([^\s()<>]*)\)$`)
	imageLine    = regexp.MustCompile(`^!\[((?:[^\]\\]|\\.)*)\]\(([^\s()<>]*)\)$`)
	separatorRow = regexp.MustCompile(`^\|(\s*:?-+:?\s*\|)+$`)
)

// Parse reads Markdown in the shape ToMarkdown produces back into blocks.
// Escaped lines (leading backslash) stay paragraphs verbatim. Anything it
// does not recognize is a paragraph.
func Parse(markdown string) []core.ContentBlock {
	lines := strings.Split(markdown, "\n")
	var blocks []core.ContentBlock
	for i := 0; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if strings.HasPrefix(line, "|") {
			var rows [][]string
			start := i
			for ; i < len(lines) && strings.HasPrefix(lines[i], "|"); i++ {
				row := strings.TrimRight(lines[i], " \t\r")
				// Only the second line of a table is its separator.
				if i == start+1 && separatorRow.MatchString(row) {
					continue
				}
				rows = append(rows, splitRow(row))
			}
			i--
			blocks = append(blocks, core.Table(rows))
			continue
		}

		switch {
		case strings.HasPrefix(line, `\`):
			blocks = append(blocks, core.Paragraph(line))
		case headingLine.MatchString(line):
			m := headingLine.FindStringSubmatch(line)
			blocks = append(blocks, core.Heading(len(m[1]), m[2]))
		case listLine.MatchString(line):
			m := listLine.FindStringSubmatch(line)
			blocks = append(blocks, core.ListItem(len(m[1])/2, m[2]))
		case imageLine.MatchString(line):
			m := imageLine.FindStringSubmatch(line)
			blocks = append(blocks, core.Image(m[1], m[2]))
		case linkLine.MatchString(line):
			m := linkLine.FindStringSubmatch(line)
			blocks = append(blocks, core.Link(m[1], m[2]))
		default:
			blocks = append(blocks, core.Paragraph(line))
		}
	}
	return blocks
}

// splitRow splits a pipe table row on unescaped pipes.
func splitRow(row string) []string {
	row = strings.TrimPrefix(row, "|")
	if strings.HasSuffix(row, "|") && !strings.HasSuffix(row, `\|`) {
		row = row[:len(row)-1]
	}
	var (
		cells   []string
		cur     strings.Builder
		escaped bool
	)
	for _, r := range row {
		if r == '|' && !escaped {
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()
			continue
		}
		escaped = !escaped && r == '\\'
		cur.WriteRune(r)
	}
	cells = append(cells, strings.TrimSpace(cur.String()))
	return cells
}
