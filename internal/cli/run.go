package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/grayfox/go-client/pkg/client"
	"github.com/grayfox/go-client/pkg/client/decode"
	"github.com/grayfox/go-client/pkg/client/trace"
	"github.com/grayfox/go-client/pkg/config"
	"github.com/grayfox/go-client/pkg/log"
	zaplog "github.com/grayfox/go-client/pkg/log/zap"
	"github.com/grayfox/go-client/pkg/request"
	"github.com/grayfox/go-client/pkg/restyclient"
)

func run(ctx context.Context, cfg *config.Config, opts *options, url string, out, errOut io.Writer) error {
	logger := zaplog.New(cfg.LogLevel, errOut)
	defer func() {
		_ = logger.Sync()
	}()

	factory := newFactory(cfg, logger, errOut)
	b, method, err := build(factory, opts, url)
	if err != nil {
		return err
	}

	r := result{Method: method, URL: url}
	if opts.result {
		var text string
		text, err = b.MakeForResult(ctx)
		if err == nil {
			r.Text = &text
		}
	} else {
		r.StatusCode, err = b.Make(ctx)
	}

	var statusErr *request.StatusError
	if errors.As(err, &statusErr) {
		r.StatusCode = statusErr.StatusCode()
	}
	if err != nil {
		r.Error = err.Error()
	}
	r.State = b.State().String()
	r.Diagnostics = diagnostics(b.Err())

	if opts.json {
		if printErr := printJSON(out, r); printErr != nil {
			return printErr
		}
	} else {
		printText(out, newColorScheme(out, opts.noColor), r)
	}
	return err
}

func newFactory(cfg *config.Config, logger log.Logger, errOut io.Writer) request.Factory {
	var tracer trace.Factory
	switch cfg.Trace {
	case config.TraceLog:
		tracer = trace.LogTracer(errOut)
	case config.TraceDump:
		tracer = trace.DumpTracer(errOut)
	}

	if cfg.Backend == config.BackendResty {
		c := restyclient.New().
			WithTimeout(cfg.Timeout).
			WithUserAgent(cfg.UserAgent).
			WithCharset(cfg.Charset).
			WithLogger(logger)
		if tracer != nil {
			c = c.AndTrace(tracer)
		}
		return c
	}

	c := client.New().
		WithTimeout(cfg.Timeout).
		WithUserAgent(cfg.UserAgent).
		WithCharset(cfg.Charset).
		WithLogger(logger)
	if tracer != nil {
		c = c.AndTrace(tracer)
	}
	return c
}

// build configures the builder from the command options.
// It returns the method used on the wire.
func build(factory request.Factory, opts *options, url string) (request.RequestBuilder, string, error) {
	b := factory.NewRequest(url)
	method := request.MethodGet
	output := opts.data != "" || len(opts.form) > 0

	if opts.timeout > 0 {
		b.SetTimeout(opts.timeout)
	}

	if opts.method != "" {
		m, err := request.ParseMethod(opts.method)
		if err != nil {
			return nil, "", err
		}
		b.SetMethod(m)
		if m.EnablesOutput() {
			output = true
		} else {
			method = m
		}
	}

	contentType := ""
	for _, raw := range opts.headers {
		name, value, found := strings.Cut(raw, ":")
		if !found {
			return nil, "", fmt.Errorf(`invalid header "%s", expected "Name: value"`, raw)
		}
		h, err := request.ParseHeader(strings.TrimSpace(name))
		if err != nil {
			return nil, "", err
		}
		value = strings.TrimSpace(value)
		if h == request.HeaderContentType {
			contentType = value
		}
		b.SetHeader(h, value)
	}

	if opts.data != "" {
		if decode.IsJSON(contentType) && !json.Valid([]byte(opts.data)) {
			return nil, "", fmt.Errorf(`data is not valid JSON, but the Content-Type is "%s"`, contentType)
		}
		b.SetData(opts.data)
	}

	for _, raw := range opts.form {
		name, value, found := strings.Cut(raw, "=")
		if !found {
			return nil, "", fmt.Errorf(`invalid form parameter "%s", expected "name=value"`, raw)
		}
		b.AddFormParam(name, value)
	}

	wireMethod := method.String()
	if output && method == request.MethodGet {
		wireMethod = http.MethodPost
	}
	return b, wireMethod, nil
}
