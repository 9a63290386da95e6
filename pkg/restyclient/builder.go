package restyclient

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptrace"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-multierror"

	"github.com/grayfox/go-client/pkg/client"
	"github.com/grayfox/go-client/pkg/client/counter"
	"github.com/grayfox/go-client/pkg/client/decode"
	"github.com/grayfox/go-client/pkg/client/trace"
	"github.com/grayfox/go-client/pkg/log"
	"github.com/grayfox/go-client/pkg/request"
)

// builder implements request.RequestBuilder, the request is sent by a resty client created by the terminal call.
type builder struct {
	client      Client
	url         string
	openErr     error
	method      string
	header      http.Header
	body        bytes.Buffer
	doOutput    bool
	bodyWritten bool
	timeout     time.Duration
	formParams  request.FormParams
	lifecycle   request.Lifecycle
	diagnostics *multierror.Error
	logger      log.Logger
	trace       *trace.ClientTrace
}

func newBuilder(c Client, url string) *builder {
	b := &builder{
		client:  c,
		url:     url,
		method:  http.MethodGet,
		header:  c.header.Clone(),
		timeout: c.timeout,
		logger:  log.NewLogger(c.logger).WithFields(log.Fields{log.URLField: url}),
	}
	if b.header == nil {
		b.header = make(http.Header)
	}
	if b.timeout <= 0 {
		b.timeout = request.DefaultTimeout
	}
	if b.client.charset == 0 {
		b.client.charset = request.DefaultCharset
	}

	if _, err := client.ParseURL(url); err != nil {
		b.openErr = fmt.Errorf(`%w: cannot open connection to "%s": %w`, request.ErrInvalidBuilder, url, err)
		b.record(b.openErr, "cannot create request")
		return b
	}

	b.logger.Debug("request created")
	return b
}

func (b *builder) SetTimeout(timeout time.Duration) request.RequestBuilder {
	if !b.configure() {
		return b
	}
	if timeout <= 0 {
		b.record(fmt.Errorf(`%w, found "%s"`, request.ErrInvalidTimeout, timeout), "cannot set timeout")
		return b
	}
	b.logger.Debug("timeout set", log.Fields{"timeout": timeout})
	b.timeout = timeout
	return b
}

func (b *builder) SetMethod(method request.Method) request.RequestBuilder {
	if !b.configure() {
		return b
	}
	b.logger.Debug("method set", log.Fields{log.MethodField: method.String()})
	switch {
	case !method.IsValid():
		b.record(fmt.Errorf(`%w "%s"`, request.ErrUnknownMethod, method), "cannot set method")
	case method.EnablesOutput():
		b.doOutput = true
	case b.bodyWritten:
		b.record(fmt.Errorf("cannot reset method to %s: %w: already connected", method, request.ErrProtocol), "cannot set method")
	default:
		b.method = method.String()
	}
	return b
}

func (b *builder) SetData(body string) request.RequestBuilder {
	if !b.configure() {
		return b
	}
	b.logger.Debug("data set", log.Fields{"data": body})
	if err := b.writeBody(body); err != nil {
		b.record(err, "cannot write request body")
	}
	return b
}

func (b *builder) AddFormParam(name, value string) request.RequestBuilder {
	if !b.configure() {
		return b
	}
	b.logger.Debug("form parameter added", log.Fields{"param": name, "value": value})
	b.formParams = b.formParams.Add(name, value)
	return b
}

func (b *builder) SetHeader(header request.Header, value string) request.RequestBuilder {
	if !b.configure() {
		return b
	}
	if !header.IsValid() {
		b.record(fmt.Errorf(`%w "%s"`, request.ErrUnknownHeader, header), "cannot set header")
		return b
	}
	b.logger.Debug("header set", log.Fields{"header": header.String(), "value": value})
	b.header.Set(header.String(), value)
	return b
}

func (b *builder) Make(ctx context.Context) (code int, err error) {
	res, done, err := b.send(ctx)
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

	code = res.StatusCode()
	b.logger.Debug("response received", log.Fields{"responseCode": code})
	return code, nil
}

func (b *builder) MakeForResult(ctx context.Context) (text string, err error) {
	res, done, err := b.send(ctx)
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

	rawBody := res.RawBody()
	if rawBody == nil {
		rawBody = http.NoBody
	}
	body := counter.NewReadCloser(rawBody, b.onBodyClose)
	defer func() {
		_ = body.Close() // error is logged by the callback
	}()

	if !request.IsResultStatus(res.StatusCode()) {
		err = &request.StatusError{Method: b.requestMethod(), URL: b.url, Code: res.StatusCode()}
		b.logger.Warn(err, "no result", log.Fields{"responseCode": res.StatusCode()})
		return "", err
	}

	text, err = decode.Text(body, res.Header())
	if err != nil {
		err = fmt.Errorf(`request %s "%s" failed: %w`, b.requestMethod(), b.url, err)
		b.logger.Error(err, "cannot read response")
		return "", err
	}

	b.logger.Debug("response received", log.Fields{"responseCode": res.StatusCode(), "responseText": text})
	return text, nil
}

func (b *builder) Err() error {
	return b.diagnostics.ErrorOrNil()
}

func (b *builder) State() request.State {
	return b.lifecycle.State()
}

func (b *builder) configure() bool {
	if err := b.lifecycle.Configure(); err != nil {
		b.record(err, "cannot configure request")
		return false
	}
	return b.openErr == nil
}

// requestMethod returns the method used on the wire, GET with output is sent as POST.
func (b *builder) requestMethod() string {
	if b.doOutput && b.method == http.MethodGet {
		return http.MethodPost
	}
	return b.method
}

func (b *builder) writeBody(body string) error {
	if b.method == http.MethodTrace {
		return fmt.Errorf("cannot write request body: %w: HTTP method TRACE doesn't support output", request.ErrProtocol)
	}
	b.doOutput = true
	b.bodyWritten = true
	b.body.WriteString(body)
	return nil
}

// send executes the request.
// If there is no error, the returned done function must be called, it releases the connection.
func (b *builder) send(ctx context.Context) (res *resty.Response, done func(result any, err error), err error) {
	if err := b.lifecycle.Execute(); err != nil {
		b.logger.Warn(err, "cannot send request")
		return nil, nil, err
	}
	if b.openErr != nil {
		b.lifecycle.Done(b.openErr)
		return nil, nil, b.openErr
	}

	var ownTransport *http.Transport
	var cancel context.CancelFunc
	done = func(result any, err error) {
		if res != nil {
			if body := res.RawBody(); body != nil {
				if closeErr := body.Close(); closeErr != nil {
					b.logger.Warn(closeErr, "cannot release connection")
				}
			}
		}
		if ownTransport != nil {
			ownTransport.CloseIdleConnections()
		}
		if cancel != nil {
			cancel()
		}
		b.lifecycle.Done(err)
		if b.trace != nil && b.trace.RequestProcessed != nil {
			b.trace.RequestProcessed(result, err)
		}
	}

	// Form parameters are written as the body, an encoding failure aborts the request
	if len(b.formParams) > 0 {
		encoded, err := b.formParams.Encode(b.client.charset)
		if err != nil {
			b.logger.Error(err, "cannot send request")
			done(nil, err)
			return nil, nil, err
		}
		b.logger.Debug("form parameters encoded", log.Fields{"data": encoded})
		if err := b.writeBody(encoded); err != nil {
			b.logger.Error(err, "cannot send request")
			done(nil, err)
			return nil, nil, err
		}
	}

	method := b.requestMethod()
	if b.client.traceFactory != nil {
		ctx, b.trace = b.client.traceFactory(ctx, method, b.url)
		if b.trace != nil {
			ctx = httptrace.WithClientTrace(ctx, &b.trace.ClientTrace)
		}
	}

	transport := b.client.transport
	if transport == nil {
		ownTransport = client.NewTransport(b.timeout, b.timeout)
		transport = ownTransport
	} else {
		// The shared transport has no connect and read deadlines, the whole exchange is bounded instead.
		ctx, cancel = context.WithTimeout(ctx, b.timeout+b.timeout)
	}

	req := b.newRestyClient(transport).R().SetContext(ctx)
	req.Header = b.header.Clone()
	if b.doOutput && b.body.Len() > 0 {
		if req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", client.ContentTypeFormURLEncoded)
		}
		req.SetBody(b.body.Bytes())
	}

	b.logger.Debug("sending request", log.Fields{log.MethodField: method})
	startedAt := time.Now()
	res, err = req.Execute(method, b.url)
	if b.trace != nil && b.trace.HTTPRequestDone != nil {
		var rawResponse *http.Response
		if err == nil {
			rawResponse = res.RawResponse
		}
		b.trace.HTTPRequestDone(rawResponse, err)
	}
	if err != nil {
		err = client.SendError(ctx, method, b.url, startedAt, b.timeout, err)
		b.logger.Error(err, "request failed")
		done(nil, err)
		return nil, nil, err
	}

	return res, done, nil
}

func (b *builder) newRestyClient(transport http.RoundTripper) *resty.Client {
	rc := resty.NewWithClient(&http.Client{Transport: transport}).
		SetLogger(restyLogger{logger: b.logger}).
		SetDoNotParseResponse(true).
		// Redirects are not followed, the redirect response is the result.
		SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}))
	if b.trace != nil && b.trace.HTTPRequestStart != nil {
		rc.SetPreRequestHook(func(_ *resty.Client, req *http.Request) error {
			b.trace.HTTPRequestStart(req)
			return nil
		})
	}
	return rc
}

func (b *builder) onBodyClose(bytes int64, err error) {
	if err != nil {
		b.logger.Warn(err, "response body closed with error", log.Fields{"bytes": bytes})
	} else {
		b.logger.Debug("response body closed", log.Fields{"bytes": bytes})
	}
	if b.trace != nil && b.trace.ResponseBodyClosed != nil {
		b.trace.ResponseBodyClosed(bytes, err)
	}
}

func (b *builder) record(err error, msg string) {
	b.diagnostics = multierror.Append(b.diagnostics, err)
	b.logger.Warn(err, msg)
}
