package document

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Info summarizes a document for callers that only need to know what they
// are holding.
type Info struct {
	Pages     int     `json:"pages"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Size      int     `json:"size"`
	Fillable  bool    `json:"fillable"`
	Flattened bool    `json:"flattened"`
	Fields    []Field `json:"fields,omitempty"`
}

// Inspect reports page geometry and form state of doc.
func Inspect(ctx context.Context, doc []byte) (info Info, err error) {
	if err := ctx.Err(); err != nil {
		return Info{}, fmt.Errorf("inspect: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			info, err = Info{}, malformed("inspect", r)
		}
	}()
	pctx, err := readContext(doc)
	if err != nil {
		return Info{}, err
	}

	info = Info{Pages: pctx.PageCount, Size: len(doc)}

	pages, err := pageDicts(pctx)
	if err != nil {
		return Info{}, parseErr("page tree", err)
	}
	if len(pages) > 0 {
		if obj, found := inheritedAttr(pctx, pages[0], "MediaBox"); found {
			if r, ok := arrayRect(pctx, obj); ok {
				info.Width, info.Height = r.W, r.H
			}
		}
	}

	found, err := formFields(pctx)
	if err != nil {
		return Info{}, err
	}
	info.Fields = found
	info.Fillable = len(found) > 0
	info.Flattened = !info.Fillable
	return info, nil
}

// Text returns the plain text of every page, one block per page. Field
// values only show up once a document is flattened.
func Text(ctx context.Context, doc []byte) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("text: %w", err)
	}
	if len(doc) == 0 {
		return "", parseErr("text", ErrEmptyDocument)
	}

	// the reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text, err = "", parseErr("text", fmt.Errorf("malformed document: %v", r))
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		return "", parseErr("text", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		s, err := page.GetPlainText(nil)
		if err != nil {
			return "", parseErr(fmt.Sprintf("text page %d", i), err)
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(s)
	}
	return b.String(), nil
}
