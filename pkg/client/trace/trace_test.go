package trace_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"

	"github.com/grayfox/go-client/pkg/client"
	"github.com/grayfox/go-client/pkg/client/trace"
)

func TestClientTrace_Compose(t *testing.T) {
	t.Parallel()

	var calls []string
	older := &trace.ClientTrace{
		HTTPRequestStart: func(*http.Request) { calls = append(calls, "older start") },
		RequestProcessed: func(any, error) { calls = append(calls, "older processed") },
	}
	newer := &trace.ClientTrace{
		HTTPRequestStart: func(*http.Request) { calls = append(calls, "newer start") },
	}
	newer.GotFirstResponseByte = func() { calls = append(calls, "newer first byte") }
	older.GotFirstResponseByte = func() { calls = append(calls, "older first byte") }

	newer.Compose(older)
	newer.HTTPRequestStart(nil)
	newer.RequestProcessed(nil, nil)
	newer.GotFirstResponseByte()

	assert.Equal(t, []string{
		"older start",
		"newer start",
		"older processed",
		"older first byte",
		"newer first byte",
	}, calls)
}

func TestClient_AndTrace(t *testing.T) {
	t.Parallel()

	// Mocked response
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://example.com", httpmock.NewStringResponder(200, "OK"))

	var calls []string
	tracer := func(name string) trace.Factory {
		return func(ctx context.Context, method, url string) (context.Context, *trace.ClientTrace) {
			calls = append(calls, name+" factory "+method+" "+url)
			return ctx, &trace.ClientTrace{
				HTTPRequestDone: func(res *http.Response, err error) {
					calls = append(calls, name+" done")
				},
				RequestProcessed: func(result any, err error) {
					assert.Equal(t, 200, result)
					calls = append(calls, name+" processed")
				},
			}
		}
	}

	c := client.New().
		WithTransport(transport).
		AndTrace(tracer("first")).
		AndTrace(tracer("second"))

	code, err := c.NewRequest("https://example.com").Make(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 200, code)
	assert.Equal(t, []string{
		"first factory GET https://example.com",
		"second factory GET https://example.com",
		"first done",
		"second done",
		"first processed",
		"second processed",
	}, calls)
}
