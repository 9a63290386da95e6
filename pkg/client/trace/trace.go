// Package trace extends the httptrace.ClientTrace and adds request builder hooks.
// A custom ClientTrace definition can be registered in the client.Client by the AndTrace method.
package trace

import (
	"context"
	"net/http"
	"net/http/httptrace"
	"reflect"
)

// Factory creates ClientTrace hooks for a request.
// It is called at the beginning of the terminal call, the returned context is used to send the request.
type Factory func(ctx context.Context, method, url string) (context.Context, *ClientTrace)

// ClientTrace is a set of hooks to run at various stages of an outgoing request.
type ClientTrace struct {
	httptrace.ClientTrace // native, low level trace
	// HTTPRequestStart is called when the request is handed to the transport.
	HTTPRequestStart func(request *http.Request)
	// HTTPRequestDone is called when the response headers are received or the transport failed.
	HTTPRequestDone func(response *http.Response, err error)
	// ResponseBodyClosed is called when the response body is released, with the number of read bytes.
	ResponseBodyClosed func(bytes int64, err error)
	// RequestProcessed is called when the terminal call is done.
	// The result is the status code for Make and the response text for MakeForResult, nil if absent.
	RequestProcessed func(result any, err error)
}

// Chain returns a Factory which calls both factories, hooks from the first one are called first.
// Any of the factories can be nil.
func Chain(first, second Factory) Factory {
	switch {
	case first == nil:
		return second
	case second == nil:
		return first
	}
	return func(ctx context.Context, method, url string) (context.Context, *ClientTrace) {
		ctx, firstTrace := first(ctx, method, url)
		ctx, secondTrace := second(ctx, method, url)
		if secondTrace == nil {
			return ctx, firstTrace
		}
		secondTrace.Compose(firstTrace)
		return ctx, secondTrace
	}
}

// Compose modifies t such that it respects the previously-registered hooks in old.
// Hooks from old are called first.
// Copy of httptrace.compose.
func (t *ClientTrace) Compose(old *ClientTrace) {
	if old == nil {
		return
	}
	tv := reflect.ValueOf(t).Elem()
	ov := reflect.ValueOf(old).Elem()
	compose(tv, ov)
	compose(tv.FieldByName("ClientTrace"), ov.FieldByName("ClientTrace"))
}

func compose(tv, ov reflect.Value) {
	structType := tv.Type()
	for i := range structType.NumField() {
		tf := tv.Field(i)
		hookType := tf.Type()
		if hookType.Kind() != reflect.Func {
			continue
		}
		of := ov.Field(i)
		if of.IsNil() {
			continue
		}
		if tf.IsNil() {
			tf.Set(of)
			continue
		}

		// Make a copy of tf for tf to call. (Otherwise it
		// creates a recursive call cycle and stack overflows)
		tfCopy := reflect.ValueOf(tf.Interface())

		// We need to call both tf and of in some order.
		newFunc := reflect.MakeFunc(hookType, func(args []reflect.Value) []reflect.Value {
			of.Call(args)
			return tfCopy.Call(args)
		})
		tv.Field(i).Set(newFunc)
	}
}
