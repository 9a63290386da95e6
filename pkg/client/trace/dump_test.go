package trace_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/keboola/go-utils/pkg/wildcards"
	"github.com/stretchr/testify/assert"

	"github.com/grayfox/go-client/pkg/client"
	"github.com/grayfox/go-client/pkg/client/trace"
)

func TestDumpTracer(t *testing.T) {
	t.Parallel()

	// Mocked response
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("POST", "https://example.com/items", func(req *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusCreated, Header: http.Header{}, Body: io.NopCloser(strings.NewReader("created"))}, nil
	})

	// Logs for trace testing
	var logs strings.Builder

	// Create client
	ctx := context.Background()
	c := client.New().
		WithTransport(transport).
		AndTrace(trace.DumpTracer(&logs))

	// Expected trace
	expected := `
>>>>>> HTTP DUMP
POST /items HTTP/1.1
Host: example.com
%A
a=b&c=d
------
HTTP/0.0 201 Created
%A
------
created
<<<<<< HTTP DUMP END

>>>>>> HTTP REQUEST PROCESSED |  POST https://example.com/items 201 | ERROR: <nil> | HEADERS AT: %s | DONE AT: %s
`

	// Test
	text, err := c.NewRequest("https://example.com/items").
		AddFormParam("a", "b").
		AddFormParam("c", "d").
		MakeForResult(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "created", text)
	wildcards.Assert(t, strings.TrimLeft(expected, "\n"), logs.String())
}
