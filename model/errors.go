package model

import "errors"

// Errors.
var (
	ErrUnknownClass        = errors.New("unknown record class")
	ErrClassExists         = errors.New("record class already registered")
	ErrInvalidClassName    = errors.New("record class name must not be empty")
	ErrReservedAttribute   = errors.New("attribute name is reserved")
	ErrUndeclaredAttribute = errors.New("attribute is not declared")
	ErrDuplicateAttribute  = errors.New("attribute is declared twice")
)
