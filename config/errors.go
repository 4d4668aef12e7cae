package config

import (
	"errors"
	"fmt"
)

// Errors.
var (
	ErrIncompleteCall = errors.New("incomplete option")
	ErrOptionExists   = errors.New("option already registered")
	ErrUnknownOption  = errors.New("unknown option")
	ErrUnknownFormat  = errors.New("unknown config file format")
)

// InvalidOptionError is returned by Register for options that cannot be
// registered.
type InvalidOptionError struct {
	Msg string
	Err error
}

func newInvalidOptionError(msg string, err error) *InvalidOptionError {
	return &InvalidOptionError{Msg: msg, Err: err}
}

func (e *InvalidOptionError) Error() string {
	return "failed to register option: " + e.Msg
}

func (e *InvalidOptionError) Unwrap() error {
	return e.Err
}

// InvalidValueError is returned for values that do not fit their option.
type InvalidValueError struct {
	Option string
	Value  interface{}
	Msg    string
}

func newInvalidValueError(option string, value interface{}, msg string) *InvalidValueError {
	return &InvalidValueError{Option: option, Value: value, Msg: msg}
}

func (e *InvalidValueError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: invalid value %+v", e.Option, e.Value)
	}
	return fmt.Sprintf("%s: invalid value %+v: %s", e.Option, e.Value, e.Msg)
}
