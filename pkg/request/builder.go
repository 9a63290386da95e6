package request

import (
	"context"
	"time"
)

// DefaultTimeout is used for both connect and read timeout, if SetTimeout is not called.
const DefaultTimeout = 30 * time.Second

// Factory creates request builders, one builder per request.
type Factory interface {
	// NewRequest creates a builder bound to the URL.
	// A malformed URL does not panic, the builder is invalid and its terminal call fails.
	NewRequest(url string) RequestBuilder
}

// RequestBuilder assembles and sends a single HTTP request.
// It is not safe for concurrent use and it can be sent only once.
type RequestBuilder interface {
	// SetTimeout sets both connect and read timeout.
	SetTimeout(timeout time.Duration) RequestBuilder
	// SetMethod sets the request method.
	// MethodPost does not set the verb directly, it enables the request body.
	SetMethod(method Method) RequestBuilder
	// SetData writes the body immediately to the connection output.
	SetData(body string) RequestBuilder
	// AddFormParam appends a form parameter, parameters are encoded and written as the body by the terminal call.
	AddFormParam(name, value string) RequestBuilder
	// SetHeader sets the header value, a previous value is overwritten.
	SetHeader(header Header, value string) RequestBuilder
	// Make sends the request and returns the response status code.
	Make(ctx context.Context) (int, error)
	// MakeForResult sends the request and returns the response text, if the status is 200 or 201.
	// Otherwise, a *StatusError is returned.
	MakeForResult(ctx context.Context) (string, error)
	// Err returns problems recorded by configuration calls, nil if there is none.
	Err() error
	// State returns the current lifecycle state.
	State() State
}
