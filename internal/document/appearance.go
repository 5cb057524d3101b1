package document

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

const (
	boxPadding  = 2.0
	minFontSize = 6.0
	capHeight   = 0.718
	lineFactor  = 1.15
)

// textBox renders a text field value in the box's own coordinate space,
// origin at the lower left corner of the widget.
type textBox struct {
	W, H      float64
	Size      float64
	Multiline bool
	Font      string // font resource name
}

// ops returns the content stream operators drawing value. marked wraps the
// output in the /Tx marked content sequence used inside field appearances.
func (b textBox) ops(value string, marked bool) []byte {
	var buf bytes.Buffer
	if marked {
		buf.WriteString("/Tx BMC\n")
	}
	buf.WriteString("q\n")
	fmt.Fprintf(&buf, "%s %s %s %s re W n\n",
		num(boxPadding/2), num(boxPadding/2), num(b.W-boxPadding), num(b.H-boxPadding))

	if value != "" {
		if b.Multiline {
			b.multiline(&buf, value)
		} else {
			b.singleLine(&buf, value)
		}
	}

	buf.WriteString("Q\n")
	if marked {
		buf.WriteString("EMC\n")
	}
	return buf.Bytes()
}

func (b textBox) singleLine(buf *bytes.Buffer, value string) {
	value = strings.Join(strings.Fields(value), " ")
	size := b.Size
	avail := b.W - 2*boxPadding
	for size > minFontSize && textWidth(value, size) > avail {
		size -= 0.5
	}
	y := (b.H - size*capHeight) / 2
	buf.WriteString("BT\n")
	fmt.Fprintf(buf, "/%s %s Tf\n0 g\n", b.Font, num(size))
	fmt.Fprintf(buf, "%s %s Td\n", num(boxPadding), num(y))
	fmt.Fprintf(buf, "%s Tj\n", pdfString(encodeText(value)))
	buf.WriteString("ET\n")
}

func (b textBox) multiline(buf *bytes.Buffer, value string) {
	lines := wrapText(value, b.Size, b.W-2*boxPadding)
	leading := b.Size * lineFactor
	y := b.H - boxPadding - b.Size
	buf.WriteString("BT\n")
	fmt.Fprintf(buf, "/%s %s Tf\n0 g\n%s TL\n", b.Font, num(b.Size), num(leading))
	fmt.Fprintf(buf, "%s %s Td\n", num(boxPadding), num(y))
	for i, line := range lines {
		if y-float64(i)*leading < boxPadding {
			break
		}
		if i > 0 {
			buf.WriteString("T*\n")
		}
		fmt.Fprintf(buf, "%s Tj\n", pdfString(encodeText(line)))
	}
	buf.WriteString("ET\n")
}

// wrapText breaks value into lines no wider than width, keeping explicit
// line breaks. A single word wider than the line is placed on its own line.
func wrapText(value string, size, width float64) []string {
	var lines []string
	value = strings.ReplaceAll(value, "\r\n", "\n")
	for _, para := range strings.Split(value, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			candidate := line + " " + w
			if textWidth(candidate, size) > width {
				lines = append(lines, line)
				line = w
				continue
			}
			line = candidate
		}
		lines = append(lines, line)
	}
	return lines
}

// staticText draws a label at an absolute page position.
func staticText(buf *bytes.Buffer, font string, size, x, y float64, text string) {
	fmt.Fprintf(buf, "BT\n/%s %s Tf\n%s %s Td\n%s Tj\nET\n",
		font, num(size), num(x), num(y), pdfString(encodeText(text)))
}

// num formats a coordinate with at most two decimals.
func num(f float64) string {
	s := strconv.FormatFloat(f, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}
