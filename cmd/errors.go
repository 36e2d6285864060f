package cmd

import (
	"fmt"

	sharedErrors "github.com/khanhnv2901/webscan/internal/shared/errors"
)

// PersistenceWarning reports a scan whose results were shown but not saved to history.
type PersistenceWarning struct {
	Err error
}

func (e *PersistenceWarning) Error() string {
	return fmt.Sprintf("results were not saved to history: %v", e.Err)
}

func (e *PersistenceWarning) Unwrap() error {
	return e.Err
}

// UnsupportedFormatError signals an unknown --format value.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format %q (use table, json, csv or csv-basic)", e.Format)
}

func (e *UnsupportedFormatError) Unwrap() error {
	return sharedErrors.ErrUnknownFormat
}
