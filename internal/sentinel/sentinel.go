// Package sentinel holds the error values shared by stores and their callers.
//
// Stores return these (usually wrapped) and callers test them with errors.Is:
//   - ErrNotFound: the identity has no directory entry
//   - ErrConflict: the identity is already registered
//   - ErrMalformedInput: a required field is missing or the record is not an object
//   - ErrStorageFailure: an append or rewrite could not be completed; prior content is intact
//
// A corrupt stored row is not an error value. Reads skip it and report it through
// the logger and metrics.
package sentinel

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrMalformedInput = errors.New("malformed input")
	ErrStorageFailure = errors.New("storage failure")
)
