package store

import (
	"errors"
	"fmt"
)

var (
	// ErrSKUExists is returned by [Catalog.Insert] when a product with a
	// case-insensitively equal SKU is already in the catalog.
	ErrSKUExists = errors.New("sku already in use")

	// ErrInvalidProduct is returned when a product fails validation
	// before any storage is touched.
	ErrInvalidProduct = errors.New("invalid product")

	// ErrInvalidSale is returned when a sale fails validation before any
	// storage is touched.
	ErrInvalidSale = errors.New("invalid sale")

	// ErrInvalidID is returned when a transaction id is malformed or its
	// date segment does not parse as a calendar date. Lookup never falls
	// back to scanning every ledger document.
	ErrInvalidID = errors.New("invalid transaction id")
)

// DecodeError indicates that a document's stored bytes are not a
// well-formed record sequence. It is distinct from "file absent": a
// missing document reads as empty, while corrupt bytes fail the operation
// so possibly-recoverable data is never treated as empty or overwritten.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
