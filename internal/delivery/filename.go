package delivery

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DateLayout is the date part of every delivered file name.
const DateLayout = "2006-01-02"

// Placeholder stands in for a counterparty name that leaves nothing after
// slugging.
const Placeholder = "isimsiz"

// Filename returns "<kind>-<slug>-<yyyy-mm-dd>.pdf" for a document about
// counterparty, dated date.
func Filename(kind, counterparty string, date time.Time) string {
	k := Slug(kind)
	if k == "" {
		k = "belge"
	}
	s := Slug(counterparty)
	if s == "" {
		s = Placeholder
	}
	return k + "-" + s + "-" + date.Format(DateLayout) + ".pdf"
}

// Slug lower-cases s, folds accented letters to ASCII and collapses every
// run of other characters into a single hyphen. The result has no leading
// or trailing hyphen and may be empty.
func Slug(s string) string {
	s = strings.NewReplacer("ı", "i", "İ", "I").Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	pendingDash := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
