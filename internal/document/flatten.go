package document

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/rs/zerolog"
)

const (
	flatFontName  = "FlatHelv"
	flatXObjectNm = "FlatAP"
)

// Preparer turns fillable documents into static, print ready documents.
type Preparer struct {
	fontSize float64
	log      zerolog.Logger
}

// NewPreparer creates a print preparer for the given configuration.
func NewPreparer(cfg Config) *Preparer {
	size := 10.0
	if cfg.Layout != nil && cfg.Layout.Font.Size > 0 {
		size = cfg.Layout.Font.Size
	}
	return &Preparer{
		fontSize: size,
		log:      cfg.Logger.With().Str("component", "preparer").Logger(),
	}
}

// Flatten merges every widget's current value into its page content and
// removes the interactive form. A document without a form is returned
// unchanged.
func (p *Preparer) Flatten(ctx context.Context, doc []byte) (out []byte, err error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("flatten: %w", err)
	}
	if len(doc) == 0 {
		return nil, parseErr("read", ErrEmptyDocument)
	}
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, malformed("flatten", r)
		}
	}()

	pctx, err := readValidated(doc)
	if err != nil {
		return nil, err
	}

	acroForm, err := acroFormDict(pctx)
	if err != nil {
		return nil, parseErr("acroform", err)
	}
	if acroForm == nil {
		p.log.Debug().Msg("document has no form, nothing to flatten")
		return doc, nil
	}

	pages, err := pageDicts(pctx)
	if err != nil {
		return nil, parseErr("page tree", err)
	}

	merged := 0
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("flatten: %w", err)
		}
		n, err := p.flattenPage(pctx, page)
		if err != nil {
			return nil, buildErr(fmt.Sprintf("flatten page %d", i+1), err)
		}
		merged += n
	}

	root, err := pctx.Catalog()
	if err != nil {
		return nil, parseErr("catalog", err)
	}
	delete(root, "AcroForm")

	var buf bytes.Buffer
	if err := api.WriteContext(pctx, &buf); err != nil {
		return nil, buildErr("write flattened", err)
	}

	p.log.Debug().Int("widgets", merged).Int("pages", len(pages)).Msg("document flattened")
	return buf.Bytes(), nil
}

// readValidated parses and validates doc for rewriting.
func readValidated(doc []byte) (pctx *model.Context, err error) {
	defer func() {
		if r := recover(); r != nil {
			pctx, err = nil, malformed("read", r)
		}
	}()
	pctx, err = api.ReadValidateAndOptimize(bytes.NewReader(doc), relaxedConfiguration())
	if err != nil {
		return nil, parseErr("read", err)
	}
	return pctx, nil
}

// flattenPage draws and removes the widgets of one page and returns how many
// were merged.
func (p *Preparer) flattenPage(pctx *model.Context, page types.Dict) (int, error) {
	annotsObj, found := page.Find("Annots")
	if !found {
		return 0, nil
	}
	annots, err := pctx.DereferenceArray(annotsObj)
	if err != nil {
		return 0, err
	}

	var keep types.Array
	var ops bytes.Buffer
	var res *pageResourceSet
	merged := 0

	for _, a := range annots {
		d, err := pctx.DereferenceDict(a)
		if err != nil || d == nil || !isWidget(pctx, d) {
			keep = append(keep, a)
			continue
		}
		merged++

		w := widgetAttributes(pctx, d)
		if w.annotFlags&annotHidden != 0 {
			continue
		}
		rect, ok := widgetRect(pctx, d)
		if !ok {
			continue
		}
		if res == nil {
			if res, err = newPageResourceSet(pctx, page); err != nil {
				return 0, err
			}
		}

		if kindOf(w.ft, w.flags) == KindText {
			value := ""
			if w.value != nil {
				value, _ = textValue(pctx, w.value)
			}
			fontName, err := res.font()
			if err != nil {
				return 0, err
			}
			size := fontSizeFromDA(w.da)
			if size <= 0 {
				size = p.fontSize
			}
			box := textBox{W: rect.W, H: rect.H, Size: size, Multiline: w.flags&flagMultiline != 0, Font: fontName}
			fmt.Fprintf(&ops, "q 1 0 0 1 %s %s cm\n", num(rect.X), num(rect.Y))
			ops.Write(box.ops(value, false))
			ops.WriteString("Q\n")
			continue
		}

		if ref, ok := normalAppearance(pctx, d); ok {
			name, err := res.xobject(ref)
			if err != nil {
				return 0, err
			}
			fmt.Fprintf(&ops, "q 1 0 0 1 %s %s cm /%s Do Q\n", num(rect.X), num(rect.Y), name)
		}
	}

	if merged == 0 {
		return 0, nil
	}
	if len(keep) == 0 {
		delete(page, "Annots")
	} else {
		page["Annots"] = keep
	}
	if ops.Len() > 0 {
		if err := appendContent(pctx, page, ops.Bytes()); err != nil {
			return 0, err
		}
	}
	return merged, nil
}

func isWidget(pctx *model.Context, d types.Dict) bool {
	st, found := d.Find("Subtype")
	if !found {
		return false
	}
	n, err := pctx.DereferenceName(st, model.V10, nil)
	return err == nil && n == "Widget"
}

// widgetAttr holds a widget's own and inherited field attributes.
type widgetAttr struct {
	inherited
	annotFlags int
}

// widgetAttributes resolves inheritable field attributes by walking from
// the widget up its /Parent chain and applying them top down.
func widgetAttributes(pctx *model.Context, d types.Dict) widgetAttr {
	chain := []types.Dict{d}
	cur := d
	for i := 0; i < maxFieldDepth; i++ {
		parentObj, found := cur.Find("Parent")
		if !found {
			break
		}
		parent, err := pctx.DereferenceDict(parentObj)
		if err != nil || parent == nil {
			break
		}
		chain = append(chain, parent)
		cur = parent
	}

	var attrs inherited
	for i := len(chain) - 1; i >= 0; i-- {
		attrs = nodeAttributes(pctx, chain[i], attrs)
	}

	w := widgetAttr{inherited: attrs}
	if f, found := d.Find("F"); found {
		if i, err := pctx.DereferenceInteger(f); err == nil && i != nil {
			w.annotFlags = i.Value()
		}
	}
	return w
}

// widgetRect returns the normalized widget rectangle.
func widgetRect(pctx *model.Context, d types.Dict) (Rect, bool) {
	return arrayRect(pctx, d["Rect"])
}

// arrayRect normalizes a [x1 y1 x2 y2] rectangle array.
func arrayRect(pctx *model.Context, obj types.Object) (Rect, bool) {
	arr, err := pctx.DereferenceArray(obj)
	if err != nil || len(arr) != 4 {
		return Rect{}, false
	}
	var c [4]float64
	for i, o := range arr {
		f, err := pctx.DereferenceNumber(o)
		if err != nil {
			return Rect{}, false
		}
		c[i] = f
	}
	x1, x2 := minMax(c[0], c[2])
	y1, y2 := minMax(c[1], c[3])
	if x2-x1 <= 0 || y2-y1 <= 0 {
		return Rect{}, false
	}
	return Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}, true
}

func minMax(a, b float64) (float64, float64) {
	if a > b {
		return b, a
	}
	return a, b
}

// normalAppearance returns the reference of the widget's normal appearance
// stream, picking the /AS state for widgets with several states.
func normalAppearance(pctx *model.Context, d types.Dict) (types.IndirectRef, bool) {
	ap, err := pctx.DereferenceDict(d["AP"])
	if err != nil || ap == nil {
		return types.IndirectRef{}, false
	}
	n, found := ap.Find("N")
	if !found {
		return types.IndirectRef{}, false
	}
	if ref, ok := n.(types.IndirectRef); ok {
		if _, isDict := derefDict(pctx, ref); !isDict {
			return ref, true
		}
	}
	states, err := pctx.DereferenceDict(n)
	if err != nil || states == nil {
		return types.IndirectRef{}, false
	}
	as, found := d.Find("AS")
	if !found {
		return types.IndirectRef{}, false
	}
	state, err := pctx.DereferenceName(as, model.V10, nil)
	if err != nil {
		return types.IndirectRef{}, false
	}
	ref, ok := states[string(state)].(types.IndirectRef)
	return ref, ok
}

// derefDict reports whether obj resolves to a plain dictionary rather than
// a stream.
func derefDict(pctx *model.Context, obj types.Object) (types.Dict, bool) {
	o, err := pctx.Dereference(obj)
	if err != nil {
		return nil, false
	}
	d, ok := o.(types.Dict)
	return d, ok
}

// pageDicts returns the page dictionaries in document order.
func pageDicts(pctx *model.Context) ([]types.Dict, error) {
	root, err := pctx.Catalog()
	if err != nil {
		return nil, err
	}
	var pages []types.Dict
	var walk func(obj types.Object, depth int) error
	walk = func(obj types.Object, depth int) error {
		if depth > maxFieldDepth {
			return fmt.Errorf("page tree deeper than %d levels", maxFieldDepth)
		}
		d, err := pctx.DereferenceDict(obj)
		if err != nil {
			return err
		}
		if d == nil {
			return nil
		}
		kidsObj, found := d.Find("Kids")
		if !found {
			pages = append(pages, d)
			return nil
		}
		kids, err := pctx.DereferenceArray(kidsObj)
		if err != nil {
			return err
		}
		for _, kid := range kids {
			if err := walk(kid, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	pagesObj, found := root.Find("Pages")
	if !found {
		return nil, fmt.Errorf("catalog has no page tree")
	}
	return pages, walk(pagesObj, 0)
}

// inheritedAttr finds key on the page or its nearest ancestor.
func inheritedAttr(pctx *model.Context, page types.Dict, key string) (types.Object, bool) {
	cur := page
	for i := 0; i <= maxFieldDepth && cur != nil; i++ {
		if o, found := cur.Find(key); found {
			return o, true
		}
		parentObj, found := cur.Find("Parent")
		if !found {
			break
		}
		parent, err := pctx.DereferenceDict(parentObj)
		if err != nil {
			break
		}
		cur = parent
	}
	return nil, false
}

// pageResourceSet adds the font and appearance XObjects flattening needs to
// a page's resources.
type pageResourceSet struct {
	pctx     *model.Context
	res      types.Dict
	fontName string
	nextXObj int
}

func newPageResourceSet(pctx *model.Context, page types.Dict) (*pageResourceSet, error) {
	var res types.Dict
	if obj, found := page.Find("Resources"); found {
		d, err := pctx.DereferenceDict(obj)
		if err != nil {
			return nil, err
		}
		res = d
	} else if obj, found := inheritedAttr(pctx, page, "Resources"); found {
		// the page now carries its own copy so added entries stay local
		d, err := pctx.DereferenceDict(obj)
		if err != nil {
			return nil, err
		}
		if d != nil {
			res, _ = d.Clone().(types.Dict)
		}
	}
	if res == nil {
		res = types.NewDict()
	}
	page["Resources"] = res
	return &pageResourceSet{pctx: pctx, res: res}, nil
}

func (s *pageResourceSet) sub(key string) (types.Dict, error) {
	if obj, found := s.res.Find(key); found {
		d, err := s.pctx.DereferenceDict(obj)
		if err != nil {
			return nil, err
		}
		if d != nil {
			return d, nil
		}
	}
	d := types.NewDict()
	s.res[key] = d
	return d, nil
}

func (s *pageResourceSet) font() (string, error) {
	if s.fontName != "" {
		return s.fontName, nil
	}
	fonts, err := s.sub("Font")
	if err != nil {
		return "", err
	}
	name := uniqueKey(fonts, flatFontName)
	ref, err := s.pctx.IndRefForNewObject(helveticaFont("Helvetica"))
	if err != nil {
		return "", err
	}
	fonts[name] = *ref
	s.fontName = name
	return name, nil
}

func (s *pageResourceSet) xobject(ref types.IndirectRef) (string, error) {
	xobjs, err := s.sub("XObject")
	if err != nil {
		return "", err
	}
	s.nextXObj++
	name := uniqueKey(xobjs, fmt.Sprintf("%s%d", flatXObjectNm, s.nextXObj))
	xobjs[name] = ref
	return name, nil
}

func uniqueKey(d types.Dict, base string) string {
	name := base
	for i := 1; ; i++ {
		if _, taken := d[name]; !taken {
			return name
		}
		name = fmt.Sprintf("%s%d", base, i)
	}
}

// appendContent brackets the existing page content in q/Q and appends ops,
// so graphics state left over by the original content cannot leak into the
// merged field values.
func appendContent(pctx *model.Context, page types.Dict, ops []byte) error {
	pre, err := newContentStream(pctx, []byte("q\n"))
	if err != nil {
		return err
	}
	post, err := newContentStream(pctx, append([]byte("Q\n"), ops...))
	if err != nil {
		return err
	}

	contents := types.Array{pre}
	if obj, found := page.Find("Contents"); found {
		o, err := pctx.Dereference(obj)
		if err != nil {
			return err
		}
		if arr, ok := o.(types.Array); ok {
			contents = append(contents, arr...)
		} else {
			contents = append(contents, obj)
		}
	}
	contents = append(contents, post)
	page["Contents"] = contents
	return nil
}

func newContentStream(pctx *model.Context, content []byte) (types.IndirectRef, error) {
	sd := types.StreamDict{Dict: types.NewDict(), Content: content}
	if err := sd.Encode(); err != nil {
		return types.IndirectRef{}, err
	}
	ref, err := pctx.IndRefForNewObject(sd)
	if err != nil {
		return types.IndirectRef{}, err
	}
	return *ref, nil
}
