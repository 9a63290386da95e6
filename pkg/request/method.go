package request

import (
	"fmt"
	"strings"
)

// Method is an HTTP request method.
type Method int

const (
	MethodGet Method = iota + 1
	MethodPost
	MethodPut
	MethodDelete
	MethodHead
	MethodOptions
	MethodTrace
)

var methodNames = map[Method]string{ //nolint:gochecknoglobals
	MethodGet:     "GET",
	MethodPost:    "POST",
	MethodPut:     "PUT",
	MethodDelete:  "DELETE",
	MethodHead:    "HEAD",
	MethodOptions: "OPTIONS",
	MethodTrace:   "TRACE",
}

// Methods returns all supported methods.
func Methods() []Method {
	return []Method{MethodGet, MethodPost, MethodPut, MethodDelete, MethodHead, MethodOptions, MethodTrace}
}

// ParseMethod converts a wire name, for example "get" or "POST", to the Method.
func ParseMethod(v string) (Method, error) {
	v = strings.ToUpper(strings.TrimSpace(v))
	for _, m := range Methods() {
		if methodNames[m] == v {
			return m, nil
		}
	}
	return 0, fmt.Errorf(`%w "%s"`, ErrUnknownMethod, v)
}

// String returns the wire name of the method.
func (m Method) String() string {
	if v, ok := methodNames[m]; ok {
		return v
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// IsValid returns true if the method is one of the supported methods.
func (m Method) IsValid() bool {
	_, ok := methodNames[m]
	return ok
}

// EnablesOutput returns true for POST.
// Selecting POST does not set the verb, it enables the request body.
func (m Method) EnablesOutput() bool {
	return m == MethodPost
}
