// Package chunk splits Markdown into pages of roughly equal size so that
// long documents can be handed to an agent a piece at a time. Pages break
// between blocks, never inside one, unless a single block is larger than
// a whole page.
package chunk

import "strings"

// Chunker splits Markdown into word-bounded pages.
type Chunker struct {
	MaxWords int // words per page
}

// New creates a Chunker with the given page size.
// Defaults to 2000 if maxWords <= 0.
func New(maxWords int) *Chunker {
	if maxWords <= 0 {
		maxWords = 2000
	}
	return &Chunker{MaxWords: maxWords}
}

// Chunk returns the pages of markdown in order. Joining them with "\n\n"
// gives back the input blocks.
func (c *Chunker) Chunk(markdown string) []string {
	var (
		pages []string
		cur   []string
		words int
	)
	flush := func() {
		if len(cur) > 0 {
			pages = append(pages, strings.Join(cur, "\n\n"))
			cur, words = nil, 0
		}
	}
	for _, block := range blocks(markdown) {
		n := len(strings.Fields(block))
		if n > c.MaxWords {
			flush()
			pages = append(pages, split(block, c.MaxWords)...)
			continue
		}
		if words+n > c.MaxWords {
			flush()
		}
		cur = append(cur, block)
		words += n
	}
	flush()
	return pages
}

// blocks splits on blank lines.
func blocks(markdown string) []string {
	var out []string
	for _, b := range strings.Split(markdown, "\n\n") {
		if b = strings.Trim(b, "\n"); strings.TrimSpace(b) != "" {
			out = append(out, b)
		}
	}
	return out
}

// split cuts one oversized block into slices of at most size words.
func split(block string, size int) []string {
	words := strings.Fields(block)
	var chunks []string
	for i := 0; i < len(words); i += size {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}
