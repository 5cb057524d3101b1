package document

import (
	"errors"
	"fmt"
)

// BuildError reports that a fillable document could not be produced.
type BuildError struct {
	Stage string
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("could not generate document (%s): %v", e.Stage, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// ParseError reports that input bytes are not a readable document.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not open document (%s): %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FieldMismatch is a non-fatal warning raised while extracting fields: the
// document holds a field the schema does not know, or a known field of the
// wrong kind. Extraction skips such fields and carries on.
type FieldMismatch struct {
	Name   string
	Kind   FieldKind
	Reason string
}

func (m FieldMismatch) String() string {
	return fmt.Sprintf("field %q (%s): %s", m.Name, m.Kind, m.Reason)
}

// ErrEmptyDocument is returned for zero-length input.
var ErrEmptyDocument = errors.New("document is empty")

func buildErr(stage string, err error) error {
	return &BuildError{Stage: stage, Err: err}
}

func parseErr(op string, err error) error {
	return &ParseError{Op: op, Err: err}
}

// malformed turns a value recovered from a reader panic into a ParseError.
// pdfcpu panics instead of failing on some truncated inputs.
func malformed(op string, r any) error {
	return parseErr(op, fmt.Errorf("malformed document: %v", r))
}
