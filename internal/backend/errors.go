package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrCredential wraps failures to obtain a bearer credential before an admin call.
var ErrCredential = errors.New("credential unavailable")

// StatusError is returned when the backend answers outside the 2xx range.
type StatusError struct {
	Method   string
	Resource string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s failed with status %d: %s", e.Method, e.Resource, e.Code, e.Body)
}

// IsNotFound returns true if the error indicates a 404 Not Found response.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// StatusCode returns the backend status code carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
