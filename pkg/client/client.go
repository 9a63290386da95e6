// Package client provides the default request.Factory implementation.
//
// Client creates request builders, each builder owns one connection-per-request
// net/http transport and sends exactly one request.
// Client is an immutable value, With* methods return a modified clone.
//
// Trace hooks can be registered by the AndTrace method, see the trace and trace/otel packages.
package client

import (
	"fmt"
	"net/http"
	"time"

	otelMetric "go.opentelemetry.io/otel/metric"
	otelTrace "go.opentelemetry.io/otel/trace"

	"github.com/grayfox/go-client/pkg/client/trace"
	"github.com/grayfox/go-client/pkg/client/trace/otel"
	"github.com/grayfox/go-client/pkg/log"
	"github.com/grayfox/go-client/pkg/request"
)

const DefaultUserAgent = "grayfox-go-client"

// Client is a configurable request.Factory based on the Go native net/http package.
type Client struct {
	// transport is nil by default, then each connection creates its own transport
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
	c.header.Set("User-Agent", DefaultUserAgent)
	c.header.Set("Accept-Encoding", "gzip, br")
	return c
}

// WithUserAgent returns a clone of the Client with user agent set.
func (c Client) WithUserAgent(v string) Client {
	return c.WithHeader(request.HeaderUserAgent, v)
}

// WithHeader returns a clone of the Client with a default header set.
// Each builder starts with default headers, SetHeader overwrites them.
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

// WithLogger returns a clone of the Client with the logger set.
func (c Client) WithLogger(logger log.Logger) Client {
	c.logger = log.NewLogger(logger)
	return c
}

// WithTransport returns a clone of the Client with a HTTP transport set.
// The transport is shared by all builders, it is useful mainly for tests.
func (c Client) WithTransport(transport http.RoundTripper) Client {
	if transport == nil {
		panic(fmt.Errorf("transport cannot be nil"))
	}
	c.transport = transport
	return c
}

// AndTrace returns a clone of the Client with the trace hooks added.
// Hooks registered earlier are called first.
func (c Client) AndTrace(fn trace.Factory) Client {
	c.traceFactory = trace.Chain(c.traceFactory, fn)
	return c
}

// WithTelemetry returns a clone of the Client with OpenTelemetry tracing and metrics added.
func (c Client) WithTelemetry(tracerProvider otelTrace.TracerProvider, meterProvider otelMetric.MeterProvider, opts ...otel.Option) Client {
	return c.AndTrace(otel.NewTrace(tracerProvider, meterProvider, opts...))
}

// NewRequest creates a builder bound to the URL, it implements the request.Factory interface.
func (c Client) NewRequest(url string) request.RequestBuilder {
	return newConnBuilder(c, url)
}
