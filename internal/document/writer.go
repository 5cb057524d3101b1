package document

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/filter"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// stream is a stream object waiting to be serialized.
type stream struct {
	dict types.Dict
	data []byte
}

// objectTable collects the numbered objects of a new document. Object 0 is
// the head of the free list and is never allocated.
type objectTable struct {
	objects []any // types.Object or *stream, index = object number - 1
}

func (t *objectTable) alloc() types.IndirectRef {
	t.objects = append(t.objects, nil)
	return *types.NewIndirectRef(len(t.objects), 0)
}

func (t *objectTable) set(ref types.IndirectRef, obj any) {
	t.objects[int(ref.ObjectNumber)-1] = obj
}

func (t *objectTable) add(obj any) types.IndirectRef {
	ref := t.alloc()
	t.set(ref, obj)
	return ref
}

// newFlateStream compresses data with the pdfcpu flate filter.
func newFlateStream(dict types.Dict, data []byte) (*stream, error) {
	f, err := filter.NewFilter(filter.Flate, nil)
	if err != nil {
		return nil, err
	}
	r, err := f.Encode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	encoded, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if dict == nil {
		dict = types.Dict{}
	}
	dict["Filter"] = types.Name(filter.Flate)
	return &stream{dict: dict, data: encoded}, nil
}

// writeDocument serializes the table with a classic cross-reference section.
func writeDocument(t *objectTable, root, info types.IndirectRef) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xE2\xE3\xCF\xD3\n")

	offsets := make([]int, len(t.objects))
	for i, obj := range t.objects {
		if obj == nil {
			return nil, fmt.Errorf("object %d allocated but never set", i+1)
		}
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", i+1)
		switch o := obj.(type) {
		case *stream:
			o.dict["Length"] = types.Integer(len(o.data))
			buf.WriteString(o.dict.PDFString())
			buf.WriteString("\nstream\n")
			buf.Write(o.data)
			buf.WriteString("\nendstream")
		case types.Object:
			buf.WriteString(o.PDFString())
		default:
			return nil, fmt.Errorf("object %d has unsupported type %T", i+1, obj)
		}
		buf.WriteString("\nendobj\n")
	}

	id := sha256.Sum256(buf.Bytes())
	fileID := types.HexLiteral(fmt.Sprintf("%X", id[:16]))

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(t.objects)+1)
	buf.WriteString("0000000000 65535 f\r\n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n\r\n", off)
	}

	trailer := types.Dict{
		"Size": types.Integer(len(t.objects) + 1),
		"Root": root,
		"Info": info,
		"ID":   types.Array{fileID, fileID},
	}
	fmt.Fprintf(&buf, "trailer\n%s\nstartxref\n%d\n%%%%EOF\n", trailer.PDFString(), xref)
	return buf.Bytes(), nil
}
