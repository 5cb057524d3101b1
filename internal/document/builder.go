package document

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/rs/zerolog"

	"github.com/a3tai/mcp-rental-contract/internal/fields"
)

const (
	bodyFont = "Helv"
	boldFont = "HeBo"

	documentTitle = "Kira Sözleşmesi"
)

// Config is the process wide document configuration. It is built once at
// startup and handed to the builder, extractor and preparer.
type Config struct {
	Layout   *Layout
	Producer string
	Logger   zerolog.Logger
}

// DefaultConfig returns a configuration using the embedded layout.
func DefaultConfig(logger zerolog.Logger) (Config, error) {
	layout, err := DefaultLayout()
	if err != nil {
		return Config{}, err
	}
	return Config{Layout: layout, Producer: "mcp-rental-contract", Logger: logger}, nil
}

// Builder produces fillable contract documents.
type Builder struct {
	layout   *Layout
	producer string
	log      zerolog.Logger
}

// NewBuilder creates a builder for the given configuration.
func NewBuilder(cfg Config) *Builder {
	return &Builder{
		layout:   cfg.Layout,
		producer: cfg.Producer,
		log:      cfg.Logger.With().Str("component", "builder").Logger(),
	}
}

// Build renders s as a single page fillable document. Every schema field
// becomes a text field named after it and pre-filled with its value. The
// output depends only on s and the layout.
func (b *Builder) Build(ctx context.Context, s fields.Schema) ([]byte, error) {
	if b.layout == nil {
		return nil, buildErr("layout", fmt.Errorf("no layout configured"))
	}
	if err := b.layout.Validate(); err != nil {
		return nil, buildErr("layout", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, buildErr("start", err)
	}

	t := &objectTable{}
	catalogRef := t.alloc()
	pagesRef := t.alloc()
	pageRef := t.alloc()
	fontRef := t.add(helveticaFont("Helvetica"))
	boldRef := t.add(helveticaFont("Helvetica-Bold"))

	fontResources := types.Dict{bodyFont: fontRef}

	var fieldRefs types.Array
	for _, name := range fields.Names() {
		p, _ := b.layout.Placement(name)
		ref, err := b.addField(t, p, s.Get(name), pageRef, fontResources)
		if err != nil {
			return nil, buildErr("field "+string(name), err)
		}
		fieldRefs = append(fieldRefs, ref)
	}

	if err := ctx.Err(); err != nil {
		return nil, buildErr("fields", err)
	}

	content, err := newFlateStream(nil, b.pageContent())
	if err != nil {
		return nil, buildErr("page content", err)
	}
	contentRef := t.add(content)

	l := b.layout
	t.set(pageRef, types.Dict{
		"Type":     types.Name("Page"),
		"Parent":   pagesRef,
		"MediaBox": types.Array{types.Integer(0), types.Integer(0), types.Float(l.Page.Width), types.Float(l.Page.Height)},
		"Resources": types.Dict{
			"Font":    types.Dict{bodyFont: fontRef, boldFont: boldRef},
			"ProcSet": types.Array{types.Name("PDF"), types.Name("Text")},
		},
		"Contents": contentRef,
		"Annots":   fieldRefs,
	})
	t.set(pagesRef, types.Dict{
		"Type":  types.Name("Pages"),
		"Kids":  types.Array{pageRef},
		"Count": types.Integer(1),
	})

	acroFormRef := t.add(types.Dict{
		"Fields":          fieldRefs,
		"DA":              literal(fmt.Sprintf("/%s 0 Tf 0 g", bodyFont)),
		"DR":              types.Dict{"Font": fontResources},
		"NeedAppearances": types.Boolean(false),
	})
	t.set(catalogRef, types.Dict{
		"Type":     types.Name("Catalog"),
		"Pages":    pagesRef,
		"AcroForm": acroFormRef,
	})

	infoRef := t.add(types.Dict{
		"Title":    textString(documentTitle),
		"Subject":  textString(subject(s)),
		"Producer": literal(b.producer),
		"Creator":  literal(b.producer),
	})

	out, err := writeDocument(t, catalogRef, infoRef)
	if err != nil {
		return nil, buildErr("serialize", err)
	}

	if err := verifyReadable(out); err != nil {
		return nil, buildErr("verify", err)
	}

	b.log.Debug().Int("bytes", len(out)).Int("fields", len(fieldRefs)).Msg("contract document built")
	return out, nil
}

// addField adds one text field with its merged widget and appearance.
func (b *Builder) addField(t *objectTable, p FieldPlacement, value string, pageRef types.IndirectRef,
	fontResources types.Dict,
) (types.IndirectRef, error) {
	size := b.layout.Font.Size
	box := textBox{W: p.Rect.W, H: p.Rect.H, Size: size, Multiline: p.Multiline, Font: bodyFont}

	ap, err := newFlateStream(types.Dict{
		"Type":      types.Name("XObject"),
		"Subtype":   types.Name("Form"),
		"BBox":      types.Array{types.Integer(0), types.Integer(0), types.Float(p.Rect.W), types.Float(p.Rect.H)},
		"Resources": types.Dict{"Font": fontResources},
	}, box.ops(value, true))
	if err != nil {
		return types.IndirectRef{}, err
	}
	apRef := t.add(ap)

	flags := 0
	if p.Multiline {
		flags |= flagMultiline
	}
	tooltip := p.Label
	if tooltip == "" {
		tooltip = string(p.Name)
	}

	r := p.Rect
	return t.add(types.Dict{
		"Type":    types.Name("Annot"),
		"Subtype": types.Name("Widget"),
		"FT":      types.Name("Tx"),
		"T":       literal(string(p.Name)),
		"TU":      textString(tooltip),
		"V":       textString(value),
		"Ff":      types.Integer(flags),
		"DA":      literal(fmt.Sprintf("/%s %s Tf 0 g", bodyFont, num(size))),
		"Rect":    types.Array{types.Float(r.X), types.Float(r.Y), types.Float(r.X + r.W), types.Float(r.Y + r.H)},
		"P":       pageRef,
		"F":       types.Integer(annotPrint),
		"MK":      types.Dict{"BC": types.Array{types.Float(0.6), types.Float(0.6), types.Float(0.6)}},
		"AP":      types.Dict{"N": apRef},
	}), nil
}

// pageContent draws everything that is not a field: title, section headers,
// labels, field underlines and signature blocks.
func (b *Builder) pageContent() []byte {
	l := b.layout
	var buf bytes.Buffer

	titleX := (l.Page.Width - textWidth(l.Title.Text, l.Title.Size)) / 2
	staticText(&buf, boldFont, l.Title.Size, titleX, l.Title.Y, l.Title.Text)

	for _, s := range l.Sections {
		staticText(&buf, boldFont, l.Font.SectionSize, 40, s.Y, s.Title)
		fmt.Fprintf(&buf, "0.3 G 0.8 w 40 %s m %s %s l S\n", num(s.Y-4), num(l.Page.Width-40), num(s.Y-4))
	}

	buf.WriteString("0.6 G 0.5 w\n")
	for _, f := range l.Fields {
		r := f.Rect
		if f.Label != "" {
			staticText(&buf, bodyFont, l.Font.LabelSize, f.LabelX, r.Y+4, f.Label+":")
		}
		if f.Multiline {
			fmt.Fprintf(&buf, "%s %s %s %s re S\n", num(r.X), num(r.Y), num(r.W), num(r.H))
			continue
		}
		fmt.Fprintf(&buf, "%s %s m %s %s l S\n", num(r.X), num(r.Y), num(r.X+r.W), num(r.Y))
	}

	for _, sig := range l.Signatures {
		staticText(&buf, boldFont, l.Font.LabelSize+1, sig.X, sig.Y, sig.Label)
		fmt.Fprintf(&buf, "0 G 0.5 w %s %s m %s %s l S\n",
			num(sig.X), num(sig.Y-50), num(sig.X+sig.Width), num(sig.Y-50))
		staticText(&buf, bodyFont, l.Font.LabelSize, sig.X, sig.Y-62, "Ad Soyad / İmza")
	}
	return buf.Bytes()
}

func helveticaFont(base string) types.Dict {
	return types.Dict{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("Type1"),
		"BaseFont": types.Name(base),
		"Encoding": fontEncodingDict(),
	}
}

func subject(s fields.Schema) string {
	switch {
	case s.TenantName != "" && s.PropertyAddress != "":
		return s.TenantName + " - " + s.PropertyAddress
	case s.TenantName != "":
		return s.TenantName
	default:
		return s.PropertyAddress
	}
}

// relaxedConfiguration is the pdfcpu configuration used for every read.
func relaxedConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	return conf
}

// verifyReadable proves pdfcpu can parse a freshly serialized document.
func verifyReadable(doc []byte) error {
	pctx, err := api.ReadContext(bytes.NewReader(doc), relaxedConfiguration())
	if err != nil {
		return err
	}
	if err := pctx.EnsurePageCount(); err != nil {
		return err
	}
	if pctx.PageCount != 1 {
		return fmt.Errorf("expected a single page, got %d", pctx.PageCount)
	}
	return nil
}
