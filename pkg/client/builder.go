package client

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/grayfox/go-client/pkg/client/counter"
	"github.com/grayfox/go-client/pkg/client/decode"
	"github.com/grayfox/go-client/pkg/client/trace"
	"github.com/grayfox/go-client/pkg/log"
	"github.com/grayfox/go-client/pkg/request"
)

// connBuilder implements request.RequestBuilder over a single conn.
type connBuilder struct {
	url         string
	conn        *conn
	openErr     error
	charset     request.Charset
	formParams  request.FormParams
	lifecycle   request.Lifecycle
	diagnostics *multierror.Error
	logger      log.Logger
	trace       *trace.ClientTrace
	factory     trace.Factory
}

func newConnBuilder(c Client, url string) *connBuilder {
	b := &connBuilder{
		url:     url,
		charset: c.charset,
		logger:  log.NewLogger(c.logger).WithFields(log.Fields{log.URLField: url}),
		factory: c.traceFactory,
	}
	if b.charset == 0 {
		b.charset = request.DefaultCharset
	}

	conn, err := openConn(url)
	if err != nil {
		b.openErr = fmt.Errorf(`%w: cannot open connection to "%s": %w`, request.ErrInvalidBuilder, url, err)
		b.record(b.openErr, "cannot create request")
		return b
	}

	timeout := c.timeout
	if timeout <= 0 {
		timeout = request.DefaultTimeout
	}
	conn.setConnectTimeout(timeout)
	conn.setReadTimeout(timeout)
	conn.transport = c.transport
	for key, values := range c.header {
		for _, v := range values {
			conn.header.Add(key, v)
		}
	}

	b.conn = conn
	b.logger.Debug("request created")
	return b
}

func (b *connBuilder) SetTimeout(timeout time.Duration) request.RequestBuilder {
	if !b.configure() {
		return b
	}
	if timeout <= 0 {
		b.record(fmt.Errorf(`%w, found "%s"`, request.ErrInvalidTimeout, timeout), "cannot set timeout")
		return b
	}
	b.logger.Debug("timeout set", log.Fields{"timeout": timeout})
	b.conn.setConnectTimeout(timeout)
	b.conn.setReadTimeout(timeout)
	return b
}

func (b *connBuilder) SetMethod(method request.Method) request.RequestBuilder {
	if !b.configure() {
		return b
	}
	b.logger.Debug("method set", log.Fields{log.MethodField: method.String()})
	switch {
	case !method.IsValid():
		b.record(fmt.Errorf(`%w "%s"`, request.ErrUnknownMethod, method), "cannot set method")
	case method.EnablesOutput():
		b.conn.setDoOutput(true)
	default:
		if err := b.conn.setRequestMethod(method.String()); err != nil {
			b.record(err, "cannot set method")
		}
	}
	return b
}

func (b *connBuilder) SetData(body string) request.RequestBuilder {
	if !b.configure() {
		return b
	}
	b.logger.Debug("data set", log.Fields{"data": body})
	if err := b.writeBody(body); err != nil {
		b.record(err, "cannot write request body")
	}
	return b
}

func (b *connBuilder) AddFormParam(name, value string) request.RequestBuilder {
	if !b.configure() {
		return b
	}
	b.logger.Debug("form parameter added", log.Fields{"param": name, "value": value})
	b.formParams = b.formParams.Add(name, value)
	return b
}

func (b *connBuilder) SetHeader(header request.Header, value string) request.RequestBuilder {
	if !b.configure() {
		return b
	}
	if !header.IsValid() {
		b.record(fmt.Errorf(`%w "%s"`, request.ErrUnknownHeader, header), "cannot set header")
		return b
	}
	b.logger.Debug("header set", log.Fields{"header": header.String(), "value": value})
	if err := b.conn.setRequestProperty(header.String(), value); err != nil {
		b.record(err, "cannot set header")
	}
	return b
}

func (b *connBuilder) Make(ctx context.Context) (code int, err error) {
	ctx, done, err := b.execute(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		var result any
		if err == nil {
			result = code
		}
		done(result, err)
	}()

	code, err = b.conn.responseCode(ctx)
	if err != nil {
		b.logger.Error(err, "request failed")
		return 0, err
	}

	b.logger.Debug("response received", log.Fields{"responseCode": code})
	return code, nil
}

func (b *connBuilder) MakeForResult(ctx context.Context) (text string, err error) {
	ctx, done, err := b.execute(ctx)
	if err != nil {
		return "", err
	}
	defer func() {
		var result any
		if err == nil {
			result = text
		}
		done(result, err)
	}()

	rawBody, err := b.conn.inputStream(ctx)
	if err != nil {
		b.logger.Error(err, "request failed")
		return "", err
	}
	body := counter.NewReadCloser(rawBody, b.onBodyClose)
	defer func() {
		_ = body.Close() // error is logged by the callback
	}()

	res := b.conn.response
	if !request.IsResultStatus(res.StatusCode) {
		err = &request.StatusError{Method: b.conn.requestMethod(), URL: b.url, Code: res.StatusCode}
		b.logger.Warn(err, "no result", log.Fields{"responseCode": res.StatusCode})
		return "", err
	}

	text, err = decode.Text(body, res.Header)
	if err != nil {
		err = fmt.Errorf(`request %s "%s" failed: %w`, b.conn.requestMethod(), b.url, err)
		b.logger.Error(err, "cannot read response")
		return "", err
	}

	b.logger.Debug("response received", log.Fields{"responseCode": res.StatusCode, "responseText": text})
	return text, nil
}

func (b *connBuilder) Err() error {
	return b.diagnostics.ErrorOrNil()
}

func (b *connBuilder) State() request.State {
	return b.lifecycle.State()
}

// configure checks that the builder can be configured.
// It returns false if the configuration call must be skipped.
func (b *connBuilder) configure() bool {
	if err := b.lifecycle.Configure(); err != nil {
		b.record(err, "cannot configure request")
		return false
	}
	return b.conn != nil
}

// execute starts the terminal call.
// If there is no error, the returned done function must be called, it releases the connection.
func (b *connBuilder) execute(ctx context.Context) (context.Context, func(result any, err error), error) {
	if err := b.lifecycle.Execute(); err != nil {
		b.logger.Warn(err, "cannot send request")
		return ctx, nil, err
	}
	if b.conn == nil {
		b.lifecycle.Done(b.openErr)
		return ctx, nil, b.openErr
	}

	done := func(result any, err error) {
		if closeErr := b.conn.disconnect(); closeErr != nil {
			b.logger.Warn(closeErr, "cannot release connection")
		}
		b.lifecycle.Done(err)
		if b.trace != nil && b.trace.RequestProcessed != nil {
			b.trace.RequestProcessed(result, err)
		}
	}

	// Form parameters are written as the body, an encoding failure aborts the request
	if err := b.flushForm(); err != nil {
		b.logger.Error(err, "cannot send request")
		done(nil, err)
		return ctx, nil, err
	}

	if b.factory != nil {
		ctx, b.trace = b.factory(ctx, b.conn.requestMethod(), b.url)
		b.conn.trace = b.trace
	}

	b.logger.Debug("sending request", log.Fields{log.MethodField: b.conn.requestMethod()})
	return ctx, done, nil
}

func (b *connBuilder) flushForm() error {
	if len(b.formParams) == 0 {
		return nil
	}
	encoded, err := b.formParams.Encode(b.charset)
	if err != nil {
		return err
	}
	b.logger.Debug("form parameters encoded", log.Fields{"data": encoded})
	return b.writeBody(encoded)
}

// writeBody opens the output stream, writes the body and closes the stream on all paths.
func (b *connBuilder) writeBody(body string) (err error) {
	out, err := b.conn.outputStream()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	_, err = io.WriteString(out, body)
	return err
}

func (b *connBuilder) onBodyClose(bytes int64, err error) {
	if err != nil {
		b.logger.Warn(err, "response body closed with error", log.Fields{"bytes": bytes})
	} else {
		b.logger.Debug("response body closed", log.Fields{"bytes": bytes})
	}
	if b.trace != nil && b.trace.ResponseBodyClosed != nil {
		b.trace.ResponseBodyClosed(bytes, err)
	}
}

func (b *connBuilder) record(err error, msg string) {
	b.diagnostics = multierror.Append(b.diagnostics, err)
	b.logger.Warn(err, msg)
}
