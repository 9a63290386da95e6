package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"

	"github.com/grayfox/go-client/pkg/client/trace"
	"github.com/grayfox/go-client/pkg/request"
)

const ContentTypeFormURLEncoded = "application/x-www-form-urlencoded"

var (
	errAlreadyConnected = fmt.Errorf("%w: already connected", request.ErrProtocol)
	errStreamClosed     = errors.New("output stream is closed")
	errConnClosed       = errors.New("connection is closed")
	errTraceOutput      = fmt.Errorf("%w: HTTP method TRACE doesn't support output", request.ErrProtocol)
)

// conn is a single HTTP connection.
// The request body is buffered by the output stream,
// the request is sent on the first access to the response and the connection is never reused.
type conn struct {
	url            *url.URL
	method         string
	header         http.Header
	body           bytes.Buffer
	doOutput       bool
	outputOpened   bool
	connectTimeout time.Duration
	readTimeout    time.Duration
	// transport is shared by the client, if nil, an own single-connection transport is created
	transport    http.RoundTripper
	ownTransport *http.Transport
	// cancel releases the deadline of a request sent by the shared transport
	cancel   context.CancelFunc
	trace    *trace.ClientTrace
	sent     bool
	sendErr  error
	response *http.Response
	closed   bool
}

// ParseURL parses and checks the URL of a request, only absolute http and https URLs are supported.
func ParseURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf(`unsupported protocol scheme "%s"`, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf(`url "%s" has no host`, rawURL)
	}
	return u, nil
}

func openConn(rawURL string) (*conn, error) {
	u, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return &conn{
		url:            u,
		method:         http.MethodGet,
		header:         make(http.Header),
		connectTimeout: request.DefaultTimeout,
		readTimeout:    request.DefaultTimeout,
	}, nil
}

func (c *conn) setConnectTimeout(v time.Duration) {
	c.connectTimeout = v
}

func (c *conn) setReadTimeout(v time.Duration) {
	c.readTimeout = v
}

func (c *conn) setDoOutput(v bool) {
	c.doOutput = v
}

func (c *conn) setRequestMethod(method string) error {
	if c.sent || c.outputOpened {
		return fmt.Errorf("cannot reset method to %s: %w", method, errAlreadyConnected)
	}
	c.method = method
	return nil
}

func (c *conn) setRequestProperty(key, value string) error {
	if c.sent {
		return fmt.Errorf(`cannot set header "%s": %w`, key, errAlreadyConnected)
	}
	c.header.Set(key, value)
	return nil
}

// requestMethod returns the method used on the wire, GET with output is sent as POST.
func (c *conn) requestMethod() string {
	if c.doOutput && c.method == http.MethodGet {
		return http.MethodPost
	}
	return c.method
}

// outputStream opens a writer to the request body, it enables output.
func (c *conn) outputStream() (io.WriteCloser, error) {
	if c.closed {
		return nil, errConnClosed
	}
	if c.sent {
		return nil, fmt.Errorf("cannot write request body: %w", errAlreadyConnected)
	}
	if c.method == http.MethodTrace {
		return nil, fmt.Errorf("cannot write request body: %w", errTraceOutput)
	}
	c.doOutput = true
	c.outputOpened = true
	return &outputStream{conn: c}, nil
}

// connect sends the request, the result is cached, so the request is sent at most once.
func (c *conn) connect(ctx context.Context) error {
	if c.sent {
		return c.sendErr
	}
	if c.closed {
		return errConnClosed
	}
	c.sent = true
	c.sendErr = c.send(ctx)
	return c.sendErr
}

func (c *conn) send(ctx context.Context) error {
	// The shared transport has no connect and read deadlines, the whole exchange is bounded instead.
	if c.transport != nil {
		ctx, c.cancel = context.WithTimeout(ctx, c.connectTimeout+c.readTimeout)
	}
	if c.trace != nil {
		ctx = httptrace.WithClientTrace(ctx, &c.trace.ClientTrace)
	}

	var body io.Reader
	if c.doOutput {
		body = bytes.NewReader(c.body.Bytes())
		if c.body.Len() > 0 && c.header.Get("Content-Type") == "" {
			c.header.Set("Content-Type", ContentTypeFormURLEncoded)
		}
	}

	req, err := http.NewRequestWithContext(ctx, c.requestMethod(), c.url.String(), body)
	if err != nil {
		return err
	}
	req.Header = c.header.Clone()

	nativeClient := http.Client{
		Transport: roundTripper{trace: c.trace, wrapped: c.roundTripper()},
		// Redirects are not followed, the redirect response is the result.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	startedAt := time.Now()
	res, err := nativeClient.Do(req)
	if err != nil {
		return SendError(req.Context(), req.Method, req.URL.String(), startedAt, c.readTimeout, err)
	}
	c.response = res
	return nil
}

func (c *conn) roundTripper() http.RoundTripper {
	if c.transport != nil {
		return c.transport
	}
	if c.ownTransport == nil {
		c.ownTransport = NewTransport(c.connectTimeout, c.readTimeout)
	}
	return c.ownTransport
}

// responseCode sends the request, if it has not been sent, and returns the status code.
func (c *conn) responseCode(ctx context.Context) (int, error) {
	if err := c.connect(ctx); err != nil {
		return 0, err
	}
	return c.response.StatusCode, nil
}

// inputStream sends the request, if it has not been sent, and returns the response body.
func (c *conn) inputStream(ctx context.Context) (io.ReadCloser, error) {
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	if c.response.Body == nil {
		c.response.Body = http.NoBody
	}
	return c.response.Body, nil
}

// disconnect releases the response body and the underlying connection, it can be called repeatedly.
func (c *conn) disconnect() error {
	if c.closed {
		return nil
	}
	c.closed = true

	var err error
	if c.response != nil && c.response.Body != nil {
		err = c.response.Body.Close()
	}
	if c.ownTransport != nil {
		c.ownTransport.CloseIdleConnections()
	}
	if c.cancel != nil {
		c.cancel()
	}
	return err
}

type outputStream struct {
	conn   *conn
	closed bool
}

func (s *outputStream) Write(p []byte) (int, error) {
	if s.closed {
		return 0, errStreamClosed
	}
	if s.conn.sent || s.conn.closed {
		return 0, fmt.Errorf("cannot write request body: %w", errAlreadyConnected)
	}
	return s.conn.body.Write(p)
}

func (s *outputStream) Close() error {
	s.closed = true
	return nil
}

// roundTripper wraps a http.RoundTripper and adds trace hooks.
type roundTripper struct {
	trace   *trace.ClientTrace
	wrapped http.RoundTripper
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// Trace request start
	if rt.trace != nil && rt.trace.HTTPRequestStart != nil {
		rt.trace.HTTPRequestStart(req)
	}

	// Send
	res, err := rt.wrapped.RoundTrip(req)

	// Trace request done
	if rt.trace != nil && rt.trace.HTTPRequestDone != nil {
		rt.trace.HTTPRequestDone(res, err)
	}

	return res, err
}

// SendError converts an error of a sent request, the message contains the method and the URL.
// Timeout and cancellation are reported with the elapsed time.
func SendError(ctx context.Context, method, rawURL string, startedAt time.Time, readTimeout time.Duration, err error) error {
	// Timeout
	var netErr net.Error
	if deadline, ok := ctx.Deadline(); ok && errors.Is(err, context.DeadlineExceeded) {
		err = urlError(method, rawURL, fmt.Errorf("timeout after %s", deadline.Sub(startedAt).Round(time.Millisecond)))
	} else if errors.Is(err, context.Canceled) {
		err = urlError(method, rawURL, fmt.Errorf("canceled after %s", time.Since(startedAt).Round(time.Millisecond)))
	} else if errors.As(err, &netErr) && netErr.Timeout() {
		if strings.Contains(err.Error(), "awaiting response headers") {
			err = urlError(method, rawURL, fmt.Errorf("timeout after %s", readTimeout))
		} else {
			err = urlError(method, rawURL, fmt.Errorf("timeout after %s: %w", time.Since(startedAt).Round(time.Millisecond), netErr))
		}
	}

	// Url error
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = fmt.Errorf(`request %s "%s" failed: %w`, strings.ToUpper(urlErr.Op), urlErr.URL, urlErr.Err)
	}

	return err
}

func urlError(method, rawURL string, err error) *url.Error {
	return &url.Error{Op: method, URL: rawURL, Err: err}
}
