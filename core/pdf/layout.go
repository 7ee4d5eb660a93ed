package pdf

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gaurav-prasanna/smartreader/core"
)

// line is a run of text sharing one baseline, or an image placement.
type line struct {
	page  int
	text  string
	x, y  float64
	size  float64
	end   float64 // estimated x where the last run stops
	image bool
}

// estWidth guesses the advance of s at size; glyph metrics are not read.
func estWidth(s string, size float64) float64 {
	return 0.5 * size * float64(utf8.RuneCountInString(s))
}

// lines groups the runs of one page into lines in stream order.
func (e *Extractor) lines(page int, runs []run, maxImages int) []line {
	var (
		out    []line
		cur    *line
		images int
	)
	flush := func() {
		if cur != nil {
			cur.text = core.CollapseSpace(cur.text)
			if cur.text != "" || cur.image {
				out = append(out, *cur)
			}
			cur = nil
		}
	}
	for _, r := range runs {
		if r.image {
			if maxImages >= 0 && images >= maxImages {
				continue
			}
			images++
			flush()
			out = append(out, line{page: page, x: r.x, y: r.y, image: true})
			continue
		}
		size := math.Max(r.size, 1)
		if cur != nil && math.Abs(r.y-cur.y) <= e.opts.LineTolerance*math.Max(size, cur.size) &&
			r.x >= cur.end-size {
			gap := r.x - cur.end
			if gap > 0.15*size && !strings.HasSuffix(cur.text, " ") && !strings.HasPrefix(r.text, " ") {
				cur.text += " "
			}
			cur.text += r.text
			cur.end = math.Max(cur.end, r.x+estWidth(r.text, r.size))
			if r.size > cur.size {
				cur.size = r.size
			}
			continue
		}
		flush()
		cur = &line{page: page, text: r.text, x: r.x, y: r.y, size: r.size, end: r.x + estWidth(r.text, r.size)}
	}
	flush()
	return out
}

// sizeKey buckets font sizes to half points.
func sizeKey(s float64) float64 {
	return math.Round(s*2) / 2
}

// bodySize is the font size carrying the most characters.
func bodySize(lines []line) float64 {
	weight := make(map[float64]int)
	for _, l := range lines {
		if !l.image {
			weight[sizeKey(l.size)] += utf8.RuneCountInString(l.text)
		}
	}
	var best float64
	bestW := -1
	for s, w := range weight {
		if w > bestW || (w == bestW && s < best) {
			best, bestW = s, w
		}
	}
	return best
}

// minPageBody is the number of characters a page needs before its own
// body size is used instead of the document's.
const minPageBody = 200

// bodySizes returns the body font size of each page and of the whole
// document. Sparse pages (title pages, figure pages) take the document's.
func bodySizes(lines []line) (map[int]float64, float64) {
	doc := bodySize(lines)
	byPage := make(map[int][]line)
	chars := make(map[int]int)
	for _, l := range lines {
		byPage[l.page] = append(byPage[l.page], l)
		if !l.image {
			chars[l.page] += utf8.RuneCountInString(l.text)
		}
	}
	out := make(map[int]float64, len(byPage))
	for page, ls := range byPage {
		if chars[page] >= minPageBody {
			out[page] = bodySize(ls)
		} else {
			out[page] = doc
		}
	}
	return out, doc
}

var (
	bulletPrefix  = regexp.MustCompile(`^[•◦▪▫‣∙·●○■□–]\s*`)
	captionPrefix = regexp.MustCompile(`(?i)^(fig\.|figure|image|plate)\s*\d*`)
)

// para is a group of lines that render as one block.
type para struct {
	first   line
	text    string
	size    float64
	heading bool
	bullet  bool
	image   bool
}

// paragraphs merges consecutive lines into paragraphs and headings. A
// line is a heading when it is set larger than its page's body text.
func (e *Extractor) paragraphs(lines []line, body map[int]float64) []para {
	isHeading := func(l line) bool {
		b := body[l.page]
		if b <= 0 || l.size < b*e.opts.HeadingRatio {
			return false
		}
		if utf8.RuneCountInString(l.text) > e.opts.MaxHeadingLen {
			return false
		}
		return strings.IndexFunc(l.text, unicode.IsLetter) >= 0
	}

	var (
		out  []para
		cur  *para
		prev line
	)
	for _, l := range lines {
		if l.image {
			if cur != nil {
				out = append(out, *cur)
				cur = nil
			}
			out = append(out, para{first: l, image: true})
			continue
		}
		h := isHeading(l)
		bullet := bulletPrefix.MatchString(l.text)
		text := l.text
		if bullet {
			text = bulletPrefix.ReplaceAllString(text, "")
		}
		if cur != nil && !bullet && cur.heading == h && prev.page == l.page &&
			math.Abs(sizeKey(l.size)-sizeKey(cur.size)) <= 0.5 {
			gap := prev.y - l.y
			if gap > 0 && gap <= e.opts.ParagraphGap*math.Max(l.size, prev.size) {
				cur.text = joinLine(cur.text, text)
				prev = l
				continue
			}
		}
		if cur != nil {
			out = append(out, *cur)
		}
		cur = &para{first: l, text: text, size: l.size, heading: h, bullet: bullet}
		prev = l
	}
	if cur != nil {
		out = append(out, *cur)
	}
	return out
}

// joinLine appends the next line of a paragraph, undoing end-of-line
// hyphenation when the next line continues in lower case.
func joinLine(acc, next string) string {
	if strings.HasSuffix(acc, "-") && len(acc) > 1 {
		r, _ := utf8.DecodeRuneInString(next)
		before, _ := utf8.DecodeLastRuneInString(acc[:len(acc)-1])
		if unicode.IsLower(r) && unicode.IsLetter(before) {
			return acc[:len(acc)-1] + next
		}
	}
	return acc + " " + next
}

// blocks turns paragraphs into content blocks. Heading levels rank the
// distinct heading sizes of the whole document, largest first.
func (e *Extractor) blocks(paras []para, url string) []core.ContentBlock {
	var sizes []float64
	seen := make(map[float64]bool)
	for _, p := range paras {
		if p.heading && !seen[sizeKey(p.size)] {
			seen[sizeKey(p.size)] = true
			sizes = append(sizes, sizeKey(p.size))
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sizes)))
	level := func(s float64) int {
		for i, v := range sizes {
			if v == sizeKey(s) {
				return min(i+1, 6)
			}
		}
		return 6
	}

	var out []core.ContentBlock
	for i := 0; i < len(paras); i++ {
		p := paras[i]
		if !p.image && p.text == "" {
			continue
		}
		origin := core.Origin{Page: p.first.page, X: p.first.x, Y: p.first.y, FontSize: p.size}
		var b core.ContentBlock
		switch {
		case p.image:
			alt := "Figure on page " + strconv.Itoa(p.first.page)
			if i+1 < len(paras) {
				next := paras[i+1]
				if !next.image && !next.heading && next.first.page == p.first.page && captionPrefix.MatchString(next.text) {
					alt = next.text
					i++
				}
			}
			b = core.Image(alt, url+"#page="+strconv.Itoa(p.first.page))
		case p.heading:
			b = core.Heading(level(p.size), p.text)
		case p.bullet:
			b = core.ListItem(0, p.text)
		default:
			b = core.Paragraph(p.text)
		}
		b.Origin = origin
		out = append(out, b)
	}
	return out
}
