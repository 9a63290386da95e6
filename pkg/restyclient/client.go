// Package restyclient provides a request.Factory implementation on top of the resty HTTP client.
//
// It is an alternative to the client package, builders of both packages behave the same way.
// Each builder creates its own resty client with a connection-per-request transport,
// redirects are not followed and the response body is read as a stream.
package restyclient

import (
	"fmt"
	"net/http"
	"time"

	"github.com/grayfox/go-client/pkg/client"
	"github.com/grayfox/go-client/pkg/client/trace"
	"github.com/grayfox/go-client/pkg/log"
	"github.com/grayfox/go-client/pkg/request"
)

// Client is a configurable request.Factory based on the resty library.
type Client struct {
	transport    http.RoundTripper
	header       http.Header
	timeout      time.Duration
	charset      request.Charset
	logger       log.Logger
	traceFactory trace.Factory
}

// New creates new Client.
func New() Client {
	c := Client{
		header:  make(http.Header),
		timeout: request.DefaultTimeout,
		charset: request.DefaultCharset,
		logger:  log.NewNoopLogger(),
	}
	c.header.Set("User-Agent", client.DefaultUserAgent)
	c.header.Set("Accept-Encoding", "gzip, br")
	return c
}

// WithUserAgent returns a clone of the Client with user agent set.
func (c Client) WithUserAgent(v string) Client {
	return c.WithHeader(request.HeaderUserAgent, v)
}

// WithHeader returns a clone of the Client with a default header set.
func (c Client) WithHeader(header request.Header, value string) Client {
	if !header.IsValid() {
		panic(fmt.Errorf(`%w: %s`, request.ErrUnknownHeader, header))
	}
	c.header = c.header.Clone()
	c.header.Set(header.String(), value)
	return c
}

// WithTimeout returns a clone of the Client with the default connect and read timeout set.
func (c Client) WithTimeout(timeout time.Duration) Client {
	if timeout <= 0 {
		panic(fmt.Errorf(`%w, found "%s"`, request.ErrInvalidTimeout, timeout))
	}
	c.timeout = timeout
	return c
}

// WithCharset returns a clone of the Client with the charset of form parameters set.
func (c Client) WithCharset(charset request.Charset) Client {
	if _, err := charset.Encoding(); err != nil {
		panic(err)
	}
	c.charset = charset
	return c
}

func (c Client) WithLogger(logger log.Logger) Client {
	c.logger = log.NewLogger(logger)
	return c
}

// WithTransport returns a clone of the Client with a HTTP transport set, it is shared by all builders.
func (c Client) WithTransport(transport http.RoundTripper) Client {
	if transport == nil {
		panic(fmt.Errorf("transport cannot be nil"))
	}
	c.transport = transport
	return c
}

// AndTrace returns a clone of the Client with the trace hooks added.
func (c Client) AndTrace(fn trace.Factory) Client {
	c.traceFactory = trace.Chain(c.traceFactory, fn)
	return c
}

// NewRequest creates a builder bound to the URL, it implements the request.Factory interface.
func (c Client) NewRequest(url string) request.RequestBuilder {
	return newBuilder(c, url)
}
