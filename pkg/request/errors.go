package request

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidBuilder is returned by terminal calls of a builder whose construction failed, for example by a malformed URL.
	ErrInvalidBuilder = errors.New("invalid request builder")
	// ErrProtocol is recorded when the transport rejects a configuration call, for example a method change after the body was written.
	ErrProtocol = errors.New("protocol violation")
	// ErrBuilderConsumed is returned when a builder is used after its terminal call.
	ErrBuilderConsumed = errors.New("request builder has already been used")
	ErrInvalidTimeout     = errors.New("timeout must be positive")
	ErrUnsupportedCharset = errors.New("unsupported charset")
	ErrUnknownMethod      = errors.New("unknown method")
	ErrUnknownHeader      = errors.New("unknown header")
)

// EncodingError is returned by a terminal call if a form parameter cannot be encoded.
// Nothing is sent in that case.
type EncodingError struct {
	Param   string
	Charset Charset
	Err     error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf(`cannot encode form parameter "%s" to %s: %s`, e.Param, e.Charset, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// StatusError is returned by MakeForResult if the response status is not 200 or 201.
type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf(`request %s "%s" failed: %d %s`, e.Method, e.URL, e.Code, http.StatusText(e.Code))
}

// StatusCode returns the response status code.
func (e *StatusError) StatusCode() int {
	return e.Code
}

// IsResultStatus returns true if the response body of the status is returned by MakeForResult.
func IsResultStatus(code int) bool {
	return code == http.StatusOK || code == http.StatusCreated
}
