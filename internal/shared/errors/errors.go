package errors

import "errors"

// Domain errors
var (
	// Persistence errors
	ErrPersistence    = errors.New("history persistence failed")
	ErrSchemaMismatch = errors.New("history schema mismatch")
	ErrUnknownBackend = errors.New("unknown history backend")

	// Input errors
	ErrEmptyInput    = errors.New("no targets supplied")
	ErrUnknownFormat = errors.New("unsupported output format")
	ErrInvalidPath   = errors.New("invalid file path")
)
