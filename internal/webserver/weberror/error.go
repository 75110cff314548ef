package weberror

import (
	"fmt"
	"net/http"
)

// Error is the payload rendered in case of error, as JSON or through the
// HTML error page.
type Error struct {
	Code    int    `json:"-"`
	Message string `json:"message"`
}

// New returns a new Error.
func New(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Error stringifies the error.
func (e *Error) Error() string {
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Status returns the standard text of the HTTP status code.
func (e *Error) Status() string {
	return http.StatusText(e.Code)
}
