package adapter

import (
	"errors"
	"fmt"

	"github.com/safing/portsync/database"
)

// Kind classifies adapter errors.
type Kind uint8

// Error kinds.
const (
	KindTransportFailure Kind = iota
	KindTypeMismatch
	KindStoreConflict
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindTypeMismatch:
		return "type_mismatch"
	case KindStoreConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "transport_failure"
	}
}

// Errors.
var (
	ErrNotConfigured = errors.New("configure Adapter before usage")
	ErrNotPersisted  = errors.New("record has no store metadata")
	ErrMissingName   = errors.New("configuration needs a database name")
)

// Error is the payload of the error event and the error of failed operations.
type Error struct {
	Kind Kind
	ID   string

	// Expected and Received are the type tags of a type mismatch.
	Expected string
	Received string

	Err error
}

func (e *Error) Error() string {
	if e.Kind == KindTypeMismatch {
		return fmt.Sprintf("Wrong type for %s: expected %s, received: %s", e.ID, e.Expected, e.Received)
	}
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func classify(id string, err error) *Error {
	var adapterErr *Error
	if errors.As(err, &adapterErr) {
		return adapterErr
	}

	kind := KindTransportFailure
	switch {
	case errors.Is(err, database.ErrConflict):
		kind = KindStoreConflict
	case errors.Is(err, database.ErrNotFound), errors.Is(err, ErrNotPersisted):
		kind = KindNotFound
	}
	return &Error{
		Kind: kind,
		ID:   id,
		Err:  err,
	}
}
