package document

import (
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// FieldKind enumerates the interactive field kinds a document can carry.
type FieldKind int

const (
	KindUnknown FieldKind = iota
	KindText
	KindCheckbox
	KindRadio
	KindPushButton
	KindChoice
	KindSignature
)

// field flag bits, PDF 32000-1 tables 221, 226, 228
const (
	flagReadOnly   = 1 << 0
	flagMultiline  = 1 << 12
	flagRadio      = 1 << 15
	flagPushButton = 1 << 16
)

// annotation flag bits
const (
	annotHidden = 1 << 1
	annotPrint  = 1 << 2
)

func (k FieldKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindCheckbox:
		return "checkbox"
	case KindRadio:
		return "radio"
	case KindPushButton:
		return "pushbutton"
	case KindChoice:
		return "choice"
	case KindSignature:
		return "signature"
	case KindUnknown:
		return "unknown"
	}
	return "unknown"
}

// kindOf maps a field type name and field flags to a FieldKind.
func kindOf(ft types.Name, flags int) FieldKind {
	switch ft {
	case "Tx":
		return KindText
	case "Btn":
		switch {
		case flags&flagPushButton != 0:
			return KindPushButton
		case flags&flagRadio != 0:
			return KindRadio
		default:
			return KindCheckbox
		}
	case "Ch":
		return KindChoice
	case "Sig":
		return KindSignature
	}
	return KindUnknown
}
