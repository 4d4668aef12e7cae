package storage

import "errors"

// Errors for storages.
var (
	ErrNotFound       = errors.New("storage entry not found")
	ErrReadOnly       = errors.New("storage is read only")
	ErrInvalidKey     = errors.New("invalid key")
	ErrUnknownStorage = errors.New("unknown storage type")
)
