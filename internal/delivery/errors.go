package delivery

import (
	"errors"
	"fmt"
)

// DeliveryError reports that the environment refused to take a document:
// a file could not be written, an upload failed or the printer rejected the
// job. Delivery never retries.
type DeliveryError struct {
	Op  string
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed (%s): %v", e.Op, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

var (
	// ErrNoDocument is returned when there are no bytes to deliver.
	ErrNoDocument = errors.New("no document to deliver")
	// ErrInvalidName is returned for file names that would leave the target.
	ErrInvalidName = errors.New("invalid file name")
)

func fail(op string, err error) error {
	return &DeliveryError{Op: op, Err: err}
}
