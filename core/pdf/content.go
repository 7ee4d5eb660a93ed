package pdf

import (
	"bytes"
	"encoding/hex"
	"math"
	"strconv"
)

// token kinds produced by the content-stream lexer.
type tokKind int

const (
	tokNumber tokKind = iota
	tokString
	tokName
	tokArrayStart
	tokArrayEnd
	tokDict
	tokOperator
)

type token struct {
	kind tokKind
	num  float64
	str  []byte // raw bytes of strings, names and operators
}

// lexer splits a page content stream into operands and operators.
type lexer struct {
	data []byte
	pos  int
}

func isWhite(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isWhite(c) {
			l.pos++
			continue
		}
		if c == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

// next returns the next token, or false at the end of the stream.
func (l *lexer) next() (token, bool) {
	l.skipSpace()
	if l.pos >= len(l.data) {
		return token{}, false
	}
	c := l.data[l.pos]
	switch {
	case c == '(':
		return token{kind: tokString, str: l.literal()}, true
	case c == '<' && l.pos+1 < len(l.data) && l.data[l.pos+1] == '<':
		l.skipDict()
		return token{kind: tokDict}, true
	case c == '<':
		return token{kind: tokString, str: l.hexString()}, true
	case c == '[':
		l.pos++
		return token{kind: tokArrayStart}, true
	case c == ']':
		l.pos++
		return token{kind: tokArrayEnd}, true
	case c == '/':
		l.pos++
		return token{kind: tokName, str: l.word()}, true
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		w := l.word()
		n, err := strconv.ParseFloat(string(w), 64)
		if err != nil {
			return token{kind: tokOperator, str: w}, true
		}
		return token{kind: tokNumber, num: n}, true
	case isDelim(c):
		l.pos++
		return l.next()
	default:
		return token{kind: tokOperator, str: l.word()}, true
	}
}

func (l *lexer) word() []byte {
	start := l.pos
	for l.pos < len(l.data) && !isWhite(l.data[l.pos]) && !isDelim(l.data[l.pos]) {
		l.pos++
	}
	return l.data[start:l.pos]
}

// literal reads a (...) string, honouring nesting and escapes.
func (l *lexer) literal() []byte {
	l.pos++ // (
	var out []byte
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return out
			}
		case '\\':
			if l.pos >= len(l.data) {
				return out
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && l.pos < len(l.data) && l.data[l.pos] >= '0' && l.data[l.pos] <= '7'; i++ {
						v = v*8 + int(l.data[l.pos]-'0')
						l.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
			continue
		}
		out = append(out, c)
	}
	return out
}

func (l *lexer) hexString() []byte {
	l.pos++ // <
	var digits []byte
	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		if c := l.data[l.pos]; !isWhite(c) {
			digits = append(digits, c)
		}
		l.pos++
	}
	l.pos++ // >
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, hex.DecodedLen(len(digits)))
	n, err := hex.Decode(out, digits)
	if err != nil {
		return nil
	}
	return out[:n]
}

func (l *lexer) skipDict() {
	depth := 0
	for l.pos+1 < len(l.data) {
		switch {
		case l.data[l.pos] == '<' && l.data[l.pos+1] == '<':
			depth++
			l.pos += 2
		case l.data[l.pos] == '>' && l.data[l.pos+1] == '>':
			depth--
			l.pos += 2
			if depth == 0 {
				return
			}
		case l.data[l.pos] == '(':
			l.literal()
		default:
			l.pos++
		}
	}
	l.pos = len(l.data)
}

// skipInlineImage moves past the binary data of an inline image (after
// the ID operator) up to and including EI.
func (l *lexer) skipInlineImage() {
	if l.pos < len(l.data) && isWhite(l.data[l.pos]) {
		l.pos++
	}
	for i := l.pos; i+1 < len(l.data); i++ {
		if l.data[i] == 'E' && l.data[i+1] == 'I' &&
			i > 0 && isWhite(l.data[i-1]) &&
			(i+2 == len(l.data) || isWhite(l.data[i+2])) {
			l.pos = i + 2
			return
		}
	}
	l.pos = len(l.data)
}

// matrix is a PDF affine transform [a b c d e f].
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// mul returns m × n.
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func translate(tx, ty float64) matrix {
	return matrix{1, 0, 0, 1, tx, ty}
}

// run is one piece of shown text at a position, in default user space.
type run struct {
	text string
	x, y float64
	size float64
	// image marks an image placeholder rather than text.
	image bool
}

type gstate struct {
	ctm      matrix
	fontSize float64
	leading  float64
}

// interpret executes a content stream and returns the text runs and
// image placements in stream order.
func interpret(data []byte) []run {
	lx := &lexer{data: data}
	gs := gstate{ctm: identity}
	var (
		stack    []gstate
		tm, tlm  = identity, identity
		operands []token
		inArray  bool
		array    []token
		runs     []run
	)

	show := func(raw []byte) {
		text := decodeText(raw)
		m := tm.mul(gs.ctm)
		size := gs.fontSize * math.Hypot(m[2], m[3])
		if size == 0 {
			size = gs.fontSize
		}
		if text != "" {
			runs = append(runs, run{text: text, x: m[4], y: m[5], size: math.Abs(size)})
		}
		// Glyph widths are unknown; half an em per character is close
		// enough to keep later runs on the line in order.
		tm = translate(0.5*gs.fontSize*float64(len([]rune(text))), 0).mul(tm)
	}
	nextLine := func() {
		tlm = translate(0, -gs.leading).mul(tlm)
		tm = tlm
	}
	num := func(i int) float64 {
		if i >= 0 && i < len(operands) && operands[i].kind == tokNumber {
			return operands[i].num
		}
		return 0
	}
	lastString := func() []byte {
		for i := len(operands) - 1; i >= 0; i-- {
			if operands[i].kind == tokString {
				return operands[i].str
			}
		}
		return nil
	}

	for {
		t, ok := lx.next()
		if !ok {
			break
		}
		switch t.kind {
		case tokArrayStart:
			inArray, array = true, nil
			continue
		case tokArrayEnd:
			inArray = false
			operands = append(operands, token{kind: tokArrayEnd})
			continue
		case tokOperator:
		default:
			if inArray {
				array = append(array, t)
			} else {
				operands = append(operands, t)
			}
			continue
		}

		switch string(t.str) {
		case "q":
			stack = append(stack, gs)
		case "Q":
			if n := len(stack); n > 0 {
				gs, stack = stack[n-1], stack[:n-1]
			}
		case "cm":
			if len(operands) >= 6 {
				gs.ctm = matrix{num(0), num(1), num(2), num(3), num(4), num(5)}.mul(gs.ctm)
			}
		case "BT":
			tm, tlm = identity, identity
		case "Tf":
			// A Tf without a size leaves the current one in place.
			if len(operands) > 0 && operands[len(operands)-1].kind == tokNumber {
				gs.fontSize = num(len(operands) - 1)
			}
		case "TL":
			gs.leading = num(0)
		case "Td":
			tlm = translate(num(0), num(1)).mul(tlm)
			tm = tlm
		case "TD":
			gs.leading = -num(1)
			tlm = translate(num(0), num(1)).mul(tlm)
			tm = tlm
		case "Tm":
			if len(operands) >= 6 {
				tlm = matrix{num(0), num(1), num(2), num(3), num(4), num(5)}
				tm = tlm
			}
		case "T*":
			nextLine()
		case "Tj":
			show(lastString())
		case "'":
			nextLine()
			show(lastString())
		case "\"":
			nextLine()
			show(lastString())
		case "TJ":
			var buf []byte
			for _, el := range array {
				switch el.kind {
				case tokString:
					buf = append(buf, el.str...)
				case tokNumber:
					// Large negative kerning is a word gap.
					if el.num < -200 && len(buf) > 0 && buf[len(buf)-1] != ' ' {
						buf = append(buf, ' ')
					}
				}
			}
			show(buf)
			array = nil
		case "Do":
			m := gs.ctm
			runs = append(runs, run{x: m[4], y: m[5] + m[3], image: true})
		case "ID":
			lx.skipInlineImage()
			m := gs.ctm
			runs = append(runs, run{x: m[4], y: m[5] + m[3], image: true})
		}
		operands = operands[:0]
	}
	return runs
}

// trimRunes drops NUL and other control bytes that survive decoding.
func trimRunes(s string) string {
	return string(bytes.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' && r != '\n' {
			return -1
		}
		return r
	}, []byte(s)))
}
