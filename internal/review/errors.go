package review

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the material is not in the loaded collection.
	ErrNotFound = errors.New("material not found")

	// ErrNotEligible is returned when AI review is refused for the material's
	// current status.
	ErrNotEligible = errors.New("material is not eligible for AI review")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("review client closed")

	// ErrFormNotOpen is returned by Form actions outside the open state.
	ErrFormNotOpen = errors.New("review form is not open")

	// errSettled stops a revert once the server has replaced the patch.
	errSettled = errors.New("entry already settled")
)

// ValidationError marks a single invalid input field. It is produced before
// any network call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
