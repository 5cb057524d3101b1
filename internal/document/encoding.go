package document

import (
	"bytes"
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/text/unicode/norm"
)

// The page font is Helvetica with WinAnsiEncoding, patched through a
// /Differences array so the Turkish letters missing from WinAnsi get codes
// that WinAnsi leaves unused or spends on glyphs Turkish text never needs.
var turkishDifferences = []struct {
	code  byte
	r     rune
	glyph string
}{
	{0x81, 'Ğ', "Gbreve"},
	{0x8D, 'ğ', "gbreve"},
	{0x8E, 'ı', "dotlessi"},
	{0x8F, 'Ş', "Scedilla"},
	{0x90, 'ş', "scedilla"},
	{0x9D, 'İ', "Idotaccent"},
}

// winAnsiHigh maps the 0x80-0x9F block of WinAnsiEncoding.
var winAnsiHigh = map[rune]byte{
	'€': 0x80, '‚': 0x82, 'ƒ': 0x83, '„': 0x84, '…': 0x85, '†': 0x86, '‡': 0x87,
	'ˆ': 0x88, '‰': 0x89, 'Š': 0x8A, '‹': 0x8B, 'Œ': 0x8C,
	'‘': 0x91, '’': 0x92, '“': 0x93, '”': 0x94, '•': 0x95, '–': 0x96, '—': 0x97,
	'˜': 0x98, '™': 0x99, 'š': 0x9A, '›': 0x9B, 'œ': 0x9C, 'ž': 0x9E, 'Ÿ': 0x9F,
}

var encodeTable = func() map[rune]byte {
	m := make(map[rune]byte, len(winAnsiHigh)+len(turkishDifferences))
	for r, b := range winAnsiHigh {
		m[r] = b
	}
	for _, d := range turkishDifferences {
		m[d.r] = d.code
	}
	return m
}()

// fontEncodingDict is the /Encoding entry of the page font.
func fontEncodingDict() types.Dict {
	diff := types.Array{}
	for _, d := range turkishDifferences {
		diff = append(diff, types.Integer(int(d.code)), types.Name(d.glyph))
	}
	return types.Dict{
		"Type":         types.Name("Encoding"),
		"BaseEncoding": types.Name("WinAnsiEncoding"),
		"Differences":  diff,
	}
}

// encodeText converts s to single byte codes of the page font. Runes the
// font cannot show fall back to their base letter, then to '?'.
func encodeText(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if b, ok := encodeRune(r); ok {
			out = append(out, b)
			continue
		}
		if base, ok := baseLetter(r); ok {
			if b, ok := encodeRune(base); ok {
				out = append(out, b)
				continue
			}
		}
		out = append(out, '?')
	}
	return out
}

func encodeRune(r rune) (byte, bool) {
	switch {
	case r >= 0x20 && r <= 0x7E:
		return byte(r), true
	case r >= 0xA0 && r <= 0xFF:
		return byte(r), true
	}
	b, ok := encodeTable[r]
	return b, ok
}

func baseLetter(r rune) (rune, bool) {
	d := norm.NFD.String(string(r))
	for _, c := range d {
		if !unicode.Is(unicode.Mn, c) {
			return c, c != r
		}
	}
	return 0, false
}

// pdfString wraps already encoded bytes as a content stream string operand.
func pdfString(b []byte) string {
	var buf bytes.Buffer
	buf.WriteByte('(')
	for _, c := range b {
		switch c {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case '\r':
			buf.WriteString(`\r`)
		case '\n':
			buf.WriteString(`\n`)
		default:
			buf.WriteByte(c)
		}
	}
	buf.WriteByte(')')
	return buf.String()
}

// literal builds a string literal object for ASCII text such as field names
// and default appearance strings.
func literal(s string) types.StringLiteral {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return types.StringLiteral(r.Replace(s))
}

// textString encodes any Unicode string as a UTF-16BE hex string with byte
// order mark, the form used for field values and document info.
func textString(s string) types.HexLiteral {
	units := utf16.Encode([]rune(s))
	b := make([]byte, 2, 2+2*len(units))
	b[0], b[1] = 0xFE, 0xFF
	for _, u := range units {
		b = append(b, byte(u>>8), byte(u))
	}
	return types.HexLiteral(strings.ToUpper(hex.EncodeToString(b)))
}

// decodeHexText decodes a hex string object into text. UTF-16 with a byte
// order mark is honoured; anything else is taken as PDFDocEncoding, which
// matches Latin-1 for the printable range.
func decodeHexText(h types.HexLiteral) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, string(h))
	if len(digits)%2 == 1 {
		digits += "0"
	}
	b, err := hex.DecodeString(digits)
	if err != nil {
		return "", err
	}
	return decodeTextBytes(b), nil
}

func decodeTextBytes(b []byte) string {
	switch {
	case len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF:
		return decodeUTF16(b[2:], true)
	case len(b) >= 2 && b[0] == 0xFF && b[1] == 0xFE:
		return decodeUTF16(b[2:], false)
	case len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF:
		return string(b[3:])
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

func decodeUTF16(b []byte, bigEndian bool) string {
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		if bigEndian {
			units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
		} else {
			units = append(units, uint16(b[i+1])<<8|uint16(b[i]))
		}
	}
	return string(utf16.Decode(units))
}

// helveticaWidths holds glyph widths for codes 32..126 in 1/1000 em.
var helveticaWidths = [95]int{
	278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278, // space - /
	556, 556, 556, 556, 556, 556, 556, 556, 556, 556, // 0-9
	278, 278, 584, 584, 584, 556, 1015, // : - @
	667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, // A-M
	722, 778, 667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, // N-Z
	278, 278, 278, 469, 556, 333, // [ - `
	556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, // a-m
	556, 556, 556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, // n-z
	334, 260, 334, 584, // { - ~
}

// textWidth measures s in points at the given font size.
func textWidth(s string, size float64) float64 {
	total := 0
	for _, r := range s {
		total += runeWidth(r)
	}
	return float64(total) * size / 1000
}

func runeWidth(r rune) int {
	if r == 'ı' {
		return 222
	}
	if r >= 32 && r <= 126 {
		return helveticaWidths[r-32]
	}
	if base, ok := baseLetter(r); ok && base >= 32 && base <= 126 {
		return helveticaWidths[base-32]
	}
	return 556
}
