package coverage

import (
	"errors"
	"fmt"
)

var (
	// ErrNoListsLoaded is returned when no target lists have been loaded yet
	ErrNoListsLoaded = errors.New("no target lists loaded")

	// ErrUnknownList is returned when the list is not one of the available lists
	ErrUnknownList = errors.New("unknown target list")

	// ErrNoSelection is returned by refresh when no list is selected
	ErrNoSelection = errors.New("no target list selected")

	// ErrInvalidLimit is returned for negative missing-word limits
	ErrInvalidLimit = errors.New("limit must not be negative")
)

// ValidationError reports a call that was rejected locally, before any request was sent.
// It is returned to the caller and never stored in the shared state.
type ValidationError struct {
	Op   string
	List string
	Err  error
}

func (e *ValidationError) Error() string {
	if e.List != "" {
		return fmt.Sprintf("%s %q: %v", e.Op, e.List, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err is or wraps a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
