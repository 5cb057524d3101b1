package document

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/rs/zerolog"

	"github.com/a3tai/mcp-rental-contract/internal/fields"
)

// maxFieldDepth bounds the field tree walk against reference cycles.
const maxFieldDepth = 32

// Field is one terminal interactive field found in a document.
type Field struct {
	Name      string
	Kind      FieldKind
	Value     string
	HasValue  bool
	Multiline bool
	ReadOnly  bool
}

// Extractor reads field values back out of fillable documents.
type Extractor struct {
	log zerolog.Logger
}

// NewExtractor creates an extractor for the given configuration.
func NewExtractor(cfg Config) *Extractor {
	return &Extractor{log: cfg.Logger.With().Str("component", "extractor").Logger()}
}

// Extract returns a complete schema for doc. Text fields whose names match
// the schema are copied; every other field is skipped and reported as a
// mismatch. Only unreadable input is an error.
func (e *Extractor) Extract(ctx context.Context, doc []byte) (s fields.Schema, mismatches []FieldMismatch, err error) {
	if err := ctx.Err(); err != nil {
		return s, nil, fmt.Errorf("extract: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			s, mismatches, err = fields.Schema{}, nil, malformed("extract", r)
		}
	}()

	found, err := readFields(doc)
	if err != nil {
		return s, nil, err
	}

	seen := make(map[string]bool, len(found))
	for _, f := range found {
		var reason string
		switch {
		case !fields.IsKnown(f.Name):
			reason = "not a contract field"
		case seen[f.Name]:
			reason = "duplicate field name"
		}
		if reason == "" {
			switch f.Kind {
			case KindText:
				if f.HasValue {
					_ = s.Set(fields.Name(f.Name), f.Value)
				}
				seen[f.Name] = true
				continue
			case KindCheckbox, KindRadio, KindPushButton, KindChoice, KindSignature, KindUnknown:
				reason = "expected a text field"
			}
		}

		m := FieldMismatch{Name: f.Name, Kind: f.Kind, Reason: reason}
		mismatches = append(mismatches, m)
		e.log.Warn().Str("field", f.Name).Stringer("kind", f.Kind).Str("reason", reason).
			Msg("skipping document field")
	}
	return s, mismatches, nil
}

// readFields parses doc and returns all terminal fields of its form.
func readFields(doc []byte) ([]Field, error) {
	pctx, err := readContext(doc)
	if err != nil {
		return nil, err
	}
	return formFields(pctx)
}

func formFields(pctx *model.Context) ([]Field, error) {
	acroForm, err := acroFormDict(pctx)
	if err != nil {
		return nil, parseErr("acroform", err)
	}
	if acroForm == nil {
		return nil, nil
	}

	arr, err := pctx.DereferenceArray(acroForm["Fields"])
	if err != nil {
		return nil, parseErr("acroform fields", err)
	}

	var out []Field
	for _, obj := range arr {
		collectFields(pctx, obj, inherited{}, 0, &out)
	}
	return out, nil
}

func readContext(doc []byte) (pctx *model.Context, err error) {
	if len(doc) == 0 {
		return nil, parseErr("read", ErrEmptyDocument)
	}
	defer func() {
		if r := recover(); r != nil {
			pctx, err = nil, malformed("read", r)
		}
	}()
	pctx, err = api.ReadContext(bytes.NewReader(doc), relaxedConfiguration())
	if err != nil {
		return nil, parseErr("read", err)
	}
	if err := pctx.EnsurePageCount(); err != nil {
		return nil, parseErr("page count", err)
	}
	return pctx, nil
}

// acroFormDict returns the interactive form dictionary or nil if the
// document has none.
func acroFormDict(pctx *model.Context) (types.Dict, error) {
	root, err := pctx.Catalog()
	if err != nil {
		return nil, err
	}
	obj, found := root.Find("AcroForm")
	if !found {
		return nil, nil
	}
	return pctx.DereferenceDict(obj)
}

// inherited carries the attributes a field node passes to its kids.
type inherited struct {
	name  string
	ft    types.Name
	flags int
	value types.Object
	da    string
}

// collectFields walks one node of the field tree. Nodes with named kids are
// intermediate; everything else is a terminal field. Broken nodes are
// skipped rather than failing the walk.
func collectFields(pctx *model.Context, obj types.Object, parent inherited, depth int, out *[]Field) {
	if depth > maxFieldDepth {
		return
	}
	d, err := pctx.DereferenceDict(obj)
	if err != nil || d == nil {
		return
	}

	node := nodeAttributes(pctx, d, parent)

	if kids, err := pctx.DereferenceArray(d["Kids"]); err == nil && hasNamedKid(pctx, kids) {
		for _, kid := range kids {
			collectFields(pctx, kid, node, depth+1, out)
		}
		return
	}

	f := Field{
		Name:      node.name,
		Kind:      kindOf(node.ft, node.flags),
		Multiline: node.flags&flagMultiline != 0,
		ReadOnly:  node.flags&flagReadOnly != 0,
	}
	if node.value != nil {
		if v, err := textValue(pctx, node.value); err == nil {
			f.Value, f.HasValue = v, true
		}
	}
	*out = append(*out, f)
}

func nodeAttributes(pctx *model.Context, d types.Dict, parent inherited) inherited {
	node := parent
	if t, found := d.Find("T"); found {
		if partial, err := textValue(pctx, t); err == nil {
			if parent.name != "" {
				node.name = parent.name + "." + partial
			} else {
				node.name = partial
			}
		}
	}
	if ft, found := d.Find("FT"); found {
		if n, err := pctx.DereferenceName(ft, model.V10, nil); err == nil {
			node.ft = n
		}
	}
	if ff, found := d.Find("Ff"); found {
		if i, err := pctx.DereferenceInteger(ff); err == nil && i != nil {
			node.flags = i.Value()
		}
	}
	if v, found := d.Find("V"); found {
		node.value = v
	}
	if da, found := d.Find("DA"); found {
		if s, err := pctx.DereferenceStringOrHexLiteral(da, model.V10, nil); err == nil {
			node.da = s
		}
	}
	return node
}

func hasNamedKid(pctx *model.Context, kids types.Array) bool {
	for _, kid := range kids {
		d, err := pctx.DereferenceDict(kid)
		if err != nil || d == nil {
			continue
		}
		if _, found := d.Find("T"); found {
			return true
		}
	}
	return false
}

// textValue decodes a string object. Hex strings are decoded here so UTF-16
// values written by the builder survive unchanged.
func textValue(pctx *model.Context, obj types.Object) (string, error) {
	o, err := pctx.Dereference(obj)
	if err != nil {
		return "", err
	}
	switch v := o.(type) {
	case types.HexLiteral:
		return decodeHexText(v)
	case types.StringLiteral:
		return pctx.DereferenceStringOrHexLiteral(v, model.V10, nil)
	case types.Name:
		return string(v), nil
	case nil:
		return "", fmt.Errorf("missing value")
	}
	return "", fmt.Errorf("unsupported value type %T", o)
}

// fontSizeFromDA returns the font size of a default appearance string such
// as "/Helv 10 Tf 0 g", or 0 for auto size.
func fontSizeFromDA(da string) float64 {
	parts := strings.Fields(da)
	for i := range parts {
		if parts[i] == "Tf" && i >= 1 {
			var size float64
			if _, err := fmt.Sscanf(parts[i-1], "%f", &size); err == nil {
				return size
			}
		}
	}
	return 0
}
