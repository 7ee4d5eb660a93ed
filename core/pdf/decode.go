package pdf

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/unicode/norm"
)

var utf16BOM = []byte{0xFE, 0xFF}

// decodeText turns the raw bytes of a shown string into UTF-8. Strings
// with a UTF-16BE byte order mark are decoded as such; everything else is
// read as Windows-1252, which agrees with WinAnsiEncoding and with
// PDFDocEncoding for printable text. Ligatures and other compatibility
// forms are folded with NFKC.
func decodeText(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var (
		out []byte
		err error
	)
	if bytes.HasPrefix(raw, utf16BOM) {
		out, err = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(raw)
	} else {
		out, err = charmap.Windows1252.NewDecoder().Bytes(raw)
	}
	if err != nil {
		return ""
	}
	return trimRunes(norm.NFKC.String(string(out)))
}

// decodeInfo cleans a document information string. pdfcpu already
// decodes these, so only whitespace and compatibility forms are touched.
func decodeInfo(s string) string {
	return strings.TrimSpace(norm.NFKC.String(trimRunes(s)))
}
