package backend

import (
	"fmt"
)

// APIError is returned when the backend answers with a non-2xx status or a
// non-zero envelope code.
type APIError struct {
	Op      string // e.g. "list materials"
	Status  int    // HTTP status
	Code    int    // envelope code, 0 when the body was not an envelope
	Message string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: backend error %d (HTTP %d): %s", e.Op, e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Status, e.Message)
}
