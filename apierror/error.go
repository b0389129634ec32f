// Package apierror carries place provider failures in a form the caching
// layers can classify without parsing error text.
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is the error returned by a place provider client. It keeps the
// upstream HTTP status alongside the provider's message so that callers can
// tell a missing place from a throttled or failing provider.
type Error struct {
	err    error
	status int
}

// New wraps err with the upstream HTTP status it arrived with.
func New(err error, status int) *Error {
	return &Error{
		err:    err,
		status: status,
	}
}

// wireError is the JSON envelope some providers put around error messages.
type wireError struct {
	Message string
}

// FromResponse builds the error for a non-OK provider response. A JSON error
// envelope is unwrapped to its message, any other body is used as the message
// verbatim, and an empty body leaves only the status to report.
func FromResponse(status int, body []byte) error {
	var err error
	if msg := errorMessage(body); msg != "" {
		err = errors.New(msg)
	}
	if status == 0 {
		return err
	}
	return New(err, status)
}

func errorMessage(body []byte) string {
	var wire wireError
	if json.Unmarshal(body, &wire) == nil && wire.Message != "" {
		return wire.Message
	}
	return strings.TrimSpace(string(body))
}

// Error reports the status and message together, so a logged fetch failure
// shows both what the provider said and the status it said it with.
func (e *Error) Error() string {
	status := e.statusText()
	switch {
	case e.err == nil:
		return status
	case status == "":
		return e.err.Error()
	}
	return status + ": " + e.err.Error()
}

func (e *Error) statusText() string {
	if e.status == 0 {
		return ""
	}
	if text := http.StatusText(e.status); text != "" {
		return fmt.Sprintf("%d %s", e.status, text)
	}
	return fmt.Sprintf("%d", e.status)
}

// Status returns the HTTP status code carried by the error. It is zero when
// the failure never produced a response.
func (e *Error) Status() int {
	return e.status
}

func (e *Error) Unwrap() error {
	return e.err
}
