package api

import "errors"

// API Errors.
var (
	ErrAlreadyStarted = errors.New("api server already started")
	ErrNotStarted     = errors.New("api server not started")
)

// internal errors.
var (
	errNoHijacker = errors.New("response does not implement http.Hijacker")
)
