package core

import "errors"

// Error kinds. Concrete errors wrap one of these so callers can branch with
// errors.Is regardless of the detailed message.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
)
