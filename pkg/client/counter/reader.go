// Package counter measures the size of a response body.
package counter

import (
	"errors"
	"io"
)

// ReadCloser counts bytes read from the wrapped body.
// The OnClose callback is invoked once, on the first Close call.
type ReadCloser struct {
	wrapped  io.ReadCloser
	onClose  OnClose
	bytes    int64
	readErr  error
	closed   bool
	closeErr error
}

// OnClose receives the number of read bytes and the first read error, or the close error.
type OnClose func(bytes int64, err error)

func NewReadCloser(wrapped io.ReadCloser, onClose OnClose) *ReadCloser {
	return &ReadCloser{wrapped: wrapped, onClose: onClose}
}

func (w *ReadCloser) Bytes() int64 {
	return w.bytes
}

func (w *ReadCloser) Read(b []byte) (int, error) {
	n, err := w.wrapped.Read(b)
	w.bytes += int64(n)
	if w.readErr == nil || errors.Is(w.readErr, io.EOF) {
		w.readErr = err
	}
	return n, err
}

// Close closes the wrapped body, repeated calls return the first result.
func (w *ReadCloser) Close() error {
	if w.closed {
		return w.closeErr
	}
	w.closed = true
	w.closeErr = w.wrapped.Close()
	if w.onClose != nil {
		// Read error is usually more useful than close error
		var onCloseErr error
		if w.readErr != nil && !errors.Is(w.readErr, io.EOF) {
			onCloseErr = w.readErr
		} else if w.closeErr != nil {
			onCloseErr = w.closeErr
		}
		w.onClose(w.bytes, onCloseErr)
	}
	return w.closeErr
}
