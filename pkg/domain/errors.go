package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrAlreadyStarted is returned when Start is called on an engine that has
// already begun traversal. Starting twice would silently reinitialize position
// and feedback, so it fails loudly instead.
var ErrAlreadyStarted = errors.New("session already started")

// ErrNotStarted is returned by operations that require Start to have run.
var ErrNotStarted = errors.New("session not started")
