package document

import (
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeText(t *testing.T) {
	tests := []struct {
		in   string
		want []byte
	}{
		{"Kira 15000", []byte("Kira 15000")},
		{"çöüÇÖÜ", []byte{0xE7, 0xF6, 0xFC, 0xC7, 0xD6, 0xDC}},
		{"ğĞşŞıİ", []byte{0x8D, 0x81, 0x90, 0x8F, 0x8E, 0x9D}},
		{"€", []byte{0x80}},
		{"ā", []byte("a")},
		{"日", []byte("?")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, encodeText(tt.in))
		})
	}
}

func TestFontEncodingCoversTurkish(t *testing.T) {
	d := fontEncodingDict()
	diff, ok := d["Differences"].(types.Array)
	require.True(t, ok)
	assert.Len(t, diff, 2*len(turkishDifferences))
	assert.Equal(t, types.Name("WinAnsiEncoding"), d["BaseEncoding"])
}

func TestPDFStringEscapes(t *testing.T) {
	assert.Equal(t, `(a\(b\)c\\d\ne)`, pdfString([]byte("a(b)c\\d\ne")))
	assert.Equal(t, `field\(1\)`, string(literal("field(1)")))
}

func TestTextStringRoundTrip(t *testing.T) {
	for _, s := range []string{"", "Ayşe Demir", "KİRA SÖZLEŞMESİ", "çift\nsatır", "emoji 🙂"} {
		h := textString(s)
		assert.True(t, strings.HasPrefix(string(h), "FEFF"))
		got, err := decodeHexText(h)
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestDecodeTextBytes(t *testing.T) {
	assert.Equal(t, "Ab", decodeTextBytes([]byte{0xFF, 0xFE, 'A', 0, 'b', 0}))
	assert.Equal(t, "ş", decodeTextBytes([]byte{0xEF, 0xBB, 0xBF, 0xC5, 0x9F}))
	assert.Equal(t, "é", decodeTextBytes([]byte{0xE9}))

	_, err := decodeHexText(types.HexLiteral("zz"))
	assert.Error(t, err)
}

func TestTextWidth(t *testing.T) {
	assert.InDelta(t, 5.56, textWidth("a", 10), 0.001)
	assert.InDelta(t, 2.22, textWidth("ı", 10), 0.001)
	assert.InDelta(t, textWidth("S", 10), textWidth("Ş", 10), 0.001)
}

func TestWrapText(t *testing.T) {
	lines := wrapText("bir iki üç dört beş altı yedi", 10, 60)
	assert.Greater(t, len(lines), 1)
	for _, l := range lines {
		if strings.Contains(l, " ") {
			assert.LessOrEqual(t, textWidth(l, 10), 60.0)
		}
	}
	assert.Equal(t, []string{"a", "", "b"}, wrapText("a\r\n\r\nb", 10, 100))
}

func TestFontSizeFromDA(t *testing.T) {
	tests := map[string]float64{
		"/Helv 10 Tf 0 g":  10,
		"/Helv 0 Tf 0 g":   0,
		"0 g /F1 8.5 Tf":   8.5,
		"":                 0,
		"/Helv Tf":         0,
	}
	for da, want := range tests {
		assert.Equal(t, want, fontSizeFromDA(da), da)
	}
}

func TestTextBoxShrinksLongValues(t *testing.T) {
	b := textBox{W: 60, H: 16, Size: 10, Font: "Helv"}
	ops := string(b.ops(strings.Repeat("W", 30), true))
	assert.True(t, strings.HasPrefix(ops, "/Tx BMC\n"))
	assert.Contains(t, ops, "/Helv 6 Tf")

	assert.NotContains(t, string(b.ops("", false)), "BT")
}

func TestNum(t *testing.T) {
	assert.Equal(t, "10", num(10))
	assert.Equal(t, "595.28", num(595.28))
	assert.Equal(t, "0.5", num(0.5))
	assert.Equal(t, "0", num(-0.001))
}
