package database

import (
	"errors"
)

// Errors. The messages of ErrNotFound and ErrConflict are the ones document
// store clients commonly match on.
var (
	ErrNotFound        = errors.New("missing")
	ErrConflict        = errors.New("Document update conflict") //nolint:stylecheck
	ErrMissingID       = errors.New("document has no _id")
	ErrReadOnly        = errors.New("database is read only")
	ErrShuttingDown    = errors.New("database is shutting down")
	ErrInvalidEnvelope = errors.New("malformed document envelope")
	ErrInvalidName     = errors.New("database name must not be empty")
	ErrStorageMismatch = errors.New("database already open with a different storage type")
)
