package otel

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/grayfox/go-client/pkg/request"
)

const (
	maskedAttrValue = "****"
)

type attributes struct {
	config        config
	definitionURL string
	// definition attributes for span and metrics
	definition []attribute.KeyValue
	// httpRequest attributes for span and metrics
	httpRequest []attribute.KeyValue
	// httpRequestExtra attributes for span only
	httpRequestExtra []attribute.KeyValue
	// httpResponse attributes for span and metrics
	httpResponse []attribute.KeyValue
	// httpResponseExtra attributes for span only
	httpResponseExtra []attribute.KeyValue
	// result attributes for the root span and client metrics
	result []attribute.KeyValue
}

func newAttributes(cfg config, method, rawURL string) *attributes {
	out := &attributes{config: cfg}
	reqURL, err := url.Parse(rawURL)
	if err != nil {
		reqURL = &url.URL{Path: rawURL}
	}
	out.definitionURL = out.redactURL(reqURL)

	out.definition = []attribute.KeyValue{
		attribute.String("definition.method", method),
		attribute.String("definition.url.full", out.definitionURL),
		attribute.String("definition.url.path", mustURLPathUnescape(reqURL.Path)),
		attribute.String("definition.url.host.full", reqURL.Host),
	}
	if dotPos := strings.IndexByte(reqURL.Host, '.'); dotPos > 0 {
		out.definition = append(out.definition,
			attribute.String("definition.url.host.prefix", reqURL.Host[:dotPos]),
			attribute.String("definition.url.host.suffix", strings.TrimLeft(reqURL.Host[dotPos:], ".")),
		)
	}
	return out
}

func (v *attributes) SetFromRequest(req *http.Request) {
	if req == nil {
		v.httpRequest = nil
		v.httpRequestExtra = nil
		return
	}

	v.httpRequest = []attribute.KeyValue{
		attribute.String("http.method", req.Method),
		attribute.String("http.url", v.redactURL(req.URL)),
		attribute.String("net.peer.name", req.URL.Hostname()),
	}
	if ua := req.UserAgent(); ua != "" {
		v.httpRequest = append(v.httpRequest, attribute.String("http.user_agent", ua))
	}

	var attrs []attribute.KeyValue
	if req.ContentLength > 0 {
		attrs = append(attrs, attribute.Int64("http.request_content_length", req.ContentLength))
	}
	for key, values := range req.Header {
		key = strings.ToLower(key)
		if key == "user-agent" {
			// Skip, it is already present
			continue
		}
		attrs = append(attrs, attribute.String("http.header."+key, v.headerValue(key, values)))
	}
	sort.SliceStable(attrs, func(i, j int) bool {
		return attrs[i].Key < attrs[j].Key
	})
	v.httpRequestExtra = attrs
}

func (v *attributes) SetFromResponse(res *http.Response, err error) {
	if res == nil {
		v.httpResponse = nil
		v.httpResponseExtra = nil
	} else {
		v.httpResponse = []attribute.KeyValue{
			attribute.Int("http.status_code", res.StatusCode),
		}

		var attrs []attribute.KeyValue
		for key, values := range res.Header {
			key = strings.ToLower(key)
			attrs = append(attrs, attribute.String("http.response.header."+key, v.headerValue(key, values)))
		}
		sort.SliceStable(attrs, func(i, j int) bool {
			return attrs[i].Key < attrs[j].Key
		})
		v.httpResponseExtra = attrs
	}

	var netErr net.Error
	errors.As(err, &netErr)
	v.httpResponseExtra = append(v.httpResponseExtra,
		attribute.Bool("http.response.is_success", isSuccess(res, err)),
		attribute.Bool("http.response.is_redirect", isRedirection(res)),
		attribute.Bool("http.response.error.has", err != nil),
		attribute.Bool("http.response.error.net", netErr != nil),
		attribute.Bool("http.response.error.timeout", netErr != nil && netErr.Timeout()),
		attribute.Bool("http.response.error.cancelled", errors.Is(err, context.Canceled)),
		attribute.Bool("http.response.error.deadline_exceeded", errors.Is(err, context.DeadlineExceeded)),
	)
}

// SetResult sets attributes describing the result of the terminal call.
func (v *attributes) SetResult(result any, err error) {
	var resultType string
	switch result.(type) {
	case int:
		resultType = "status"
	case string:
		resultType = "text"
	default:
		resultType = "absent"
	}
	v.result = []attribute.KeyValue{attribute.String("result.type", resultType)}

	var statusErr *request.StatusError
	if errors.As(err, &statusErr) {
		v.result = append(v.result, attribute.Int("result.status_code", statusErr.StatusCode()))
	}
}

func (v *attributes) headerValue(key string, values []string) string {
	if _, found := v.config.redactedHeaders[key]; found {
		return maskedAttrValue
	}
	return strings.Join(values, ";")
}

// redactURL masks the value of redacted query parameters.
func (v *attributes) redactURL(u *url.URL) string {
	if u.RawQuery == "" || len(v.config.redactedQueryParams) == 0 {
		return mustURLPathUnescape(u.String())
	}

	query := u.Query()
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		_, redacted := v.config.redactedQueryParams[strings.ToLower(k)]
		for _, value := range query[k] {
			if redacted {
				value = maskedAttrValue
			} else {
				value = url.QueryEscape(value)
			}
			parts = append(parts, url.QueryEscape(k)+"="+value)
		}
	}

	clone := *u
	clone.RawQuery = ""
	return mustURLPathUnescape(clone.String()) + "?" + strings.Join(parts, "&")
}
