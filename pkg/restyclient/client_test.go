package restyclient_test

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grayfox/go-client/pkg/client"
	"github.com/grayfox/go-client/pkg/client/trace"
	"github.com/grayfox/go-client/pkg/request"
	. "github.com/grayfox/go-client/pkg/restyclient"
)

// backends returns both request.Factory implementations, they must behave the same way.
func backends() map[string]request.Factory {
	return map[string]request.Factory{
		"conn":  client.New(),
		"resty": New(),
	}
}

func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(req.Body)
		assert.NoError(t, err)
		w.Header().Set("X-Method", req.Method)
		w.Header().Set("X-Content-Type", req.Header.Get("Content-Type"))
		switch req.URL.Path {
		case "/created":
			w.WriteHeader(http.StatusCreated)
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/redirect":
			http.Redirect(w, req, "/echo", http.StatusMovedPermanently)
			return
		}
		_, _ = w.Write([]byte(req.Method + "|" + req.Header.Get("Content-Type") + "|" + string(body)))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestBackends_Make(t *testing.T) {
	t.Parallel()
	server := echoServer(t)
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			code, err := factory.NewRequest(server.URL + "/echo").Make(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, http.StatusOK, code)

			code, err = factory.NewRequest(server.URL + "/missing").Make(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, http.StatusNotFound, code)

			// Redirect is not followed
			code, err = factory.NewRequest(server.URL + "/redirect").Make(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, http.StatusMovedPermanently, code)
		})
	}
}

func TestBackends_MakeForResult(t *testing.T) {
	t.Parallel()
	server := echoServer(t)
	cases := []struct {
		name     string
		build    func(b request.RequestBuilder) request.RequestBuilder
		path     string
		expected string
		status   int
	}{
		{
			name:     "get",
			build:    func(b request.RequestBuilder) request.RequestBuilder { return b },
			path:     "/echo",
			expected: "GET||",
		},
		{
			name: "form",
			build: func(b request.RequestBuilder) request.RequestBuilder {
				return b.SetMethod(request.MethodPost).AddFormParam("a", "1").AddFormParam("b", "two words")
			},
			path:     "/created",
			expected: "POST|application/x-www-form-urlencoded|a=1&b=two+words",
		},
		{
			name: "post without body",
			build: func(b request.RequestBuilder) request.RequestBuilder {
				return b.SetMethod(request.MethodPost)
			},
			path:     "/echo",
			expected: "POST||",
		},
		{
			name: "json",
			build: func(b request.RequestBuilder) request.RequestBuilder {
				return b.SetHeader(request.HeaderContentType, "application/json").SetData(`{"a":1}`)
			},
			path:     "/echo",
			expected: `POST|application/json|{"a":1}`,
		},
		{
			name: "put",
			build: func(b request.RequestBuilder) request.RequestBuilder {
				return b.SetMethod(request.MethodPut).SetData("x=1")
			},
			path:     "/echo",
			expected: "PUT|application/x-www-form-urlencoded|x=1",
		},
		{
			name:   "missing",
			build:  func(b request.RequestBuilder) request.RequestBuilder { return b },
			path:   "/missing",
			status: http.StatusNotFound,
		},
		{
			name:   "redirect",
			build:  func(b request.RequestBuilder) request.RequestBuilder { return b },
			path:   "/redirect",
			status: http.StatusMovedPermanently,
		},
	}

	for name, factory := range backends() {
		for _, tc := range cases {
			t.Run(name+"/"+tc.name, func(t *testing.T) {
				t.Parallel()
				b := tc.build(factory.NewRequest(server.URL + tc.path))
				text, err := b.MakeForResult(context.Background())
				if tc.status == 0 {
					require.NoError(t, err)
					assert.Equal(t, tc.expected, text)
					assert.Equal(t, request.StateCompleted, b.State())
				} else {
					var statusErr *request.StatusError
					require.ErrorAs(t, err, &statusErr)
					assert.Equal(t, tc.status, statusErr.StatusCode())
					assert.Empty(t, text)
					assert.Equal(t, request.StateFailed, b.State())
				}
				assert.NoError(t, b.Err())
			})
		}
	}
}

func TestBackends_Lifecycle(t *testing.T) {
	t.Parallel()
	server := echoServer(t)
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			b := factory.NewRequest(server.URL + "/echo").SetData("a=b")
			code, err := b.Make(context.Background())
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, code)

			// Second terminal call
			_, err = b.Make(context.Background())
			assert.ErrorIs(t, err, request.ErrBuilderConsumed)
			_, err = b.MakeForResult(context.Background())
			assert.ErrorIs(t, err, request.ErrBuilderConsumed)

			// Configuration after the terminal call is recorded
			b.SetHeader(request.HeaderAccept, "text/plain")
			assert.ErrorIs(t, b.Err(), request.ErrBuilderConsumed)
			assert.Equal(t, request.StateCompleted, b.State())
		})
	}
}

func TestBackends_SetMethodAfterData(t *testing.T) {
	t.Parallel()
	server := echoServer(t)
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			b := factory.NewRequest(server.URL + "/echo").
				SetData("a=b").
				SetMethod(request.MethodPut)
			require.Error(t, b.Err())
			assert.ErrorIs(t, b.Err(), request.ErrProtocol)
			assert.Contains(t, b.Err().Error(), "cannot reset method to PUT: protocol violation: already connected")

			// Request is still sent as POST
			text, err := b.MakeForResult(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "POST|application/x-www-form-urlencoded|a=b", text)
		})
	}
}

func TestBackends_TraceWithData(t *testing.T) {
	t.Parallel()
	server := echoServer(t)
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			b := factory.NewRequest(server.URL + "/echo").
				SetMethod(request.MethodTrace).
				SetData("a=b")
			assert.ErrorIs(t, b.Err(), request.ErrProtocol)
			assert.Contains(t, b.Err().Error(), "cannot write request body: protocol violation: HTTP method TRACE doesn't support output")

			// Request is sent without the body
			text, err := b.MakeForResult(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "TRACE||", text)

			// Form parameters cannot be written, the request is aborted
			b = factory.NewRequest(server.URL + "/echo").
				SetMethod(request.MethodTrace).
				AddFormParam("a", "b")
			_, err = b.Make(context.Background())
			assert.ErrorIs(t, err, request.ErrProtocol)
			assert.Equal(t, request.StateFailed, b.State())
		})
	}
}

func TestBackends_SharedTransportTimeout(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-req.Context().Done():
		}
	}))
	t.Cleanup(server.Close)

	factories := map[string]request.Factory{
		"conn":  client.New().WithTransport(&http.Transport{DisableKeepAlives: true}),
		"resty": New().WithTransport(&http.Transport{DisableKeepAlives: true}),
	}
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			startedAt := time.Now()
			b := factory.NewRequest(server.URL).SetTimeout(50 * time.Millisecond)
			_, err := b.Make(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), `request GET "`+server.URL+`" failed: timeout after`)
			assert.Less(t, time.Since(startedAt), 500*time.Millisecond)
			assert.Equal(t, request.StateFailed, b.State())
		})
	}
}

func TestBackends_InvalidURL(t *testing.T) {
	t.Parallel()
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			b := factory.NewRequest("ftp://example.com").SetMethod(request.MethodPost).AddFormParam("a", "b")
			assert.ErrorIs(t, b.Err(), request.ErrInvalidBuilder)

			code, err := b.Make(context.Background())
			assert.ErrorIs(t, err, request.ErrInvalidBuilder)
			assert.Equal(t, 0, code)
			assert.Equal(t, request.StateFailed, b.State())
		})
	}
}

func TestBackends_EncodingFailure(t *testing.T) {
	t.Parallel()
	server := echoServer(t)
	factories := map[string]request.Factory{
		"conn":  client.New().WithCharset(request.CharsetISO88591),
		"resty": New().WithCharset(request.CharsetISO88591),
	}
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			b := factory.NewRequest(server.URL+"/echo").AddFormParam("name", "日本")
			_, err := b.MakeForResult(context.Background())
			var encodingErr *request.EncodingError
			require.ErrorAs(t, err, &encodingErr)
			assert.Equal(t, "name", encodingErr.Param)
			assert.Equal(t, request.StateFailed, b.State())
		})
	}
}

func TestBackends_ReadTimeout(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	t.Cleanup(server.Close)

	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			b := factory.NewRequest(server.URL).SetTimeout(50 * time.Millisecond)
			_, err := b.Make(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), `failed: timeout after`)
			assert.Equal(t, request.StateFailed, b.State())
		})
	}
}

func TestClient_Gzip(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "gzip, br", req.Header.Get("Accept-Encoding"))
		w.Header().Set("Content-Encoding", "gzip")
		gw := gzip.NewWriter(w)
		_, _ = gw.Write([]byte("line1\r\nline2\n"))
		_ = gw.Close()
	}))
	defer server.Close()

	text, err := New().NewRequest(server.URL).MakeForResult(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "line1\nline2", text)
}

func TestClient_MockedTransport(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("POST", "https://example.com/items", func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "my-agent", req.Header.Get("User-Agent"))
		assert.Equal(t, "Bearer token", req.Header.Get("Authorization"))
		body, err := io.ReadAll(req.Body)
		assert.NoError(t, err)
		assert.Equal(t, "a=b", string(body))
		return httpmock.NewStringResponse(http.StatusCreated, "created"), nil
	})
	transport.RegisterResponder("GET", "https://example.com/broken", httpmock.NewErrorResponder(errors.New("connection reset")))

	c := New().
		WithTransport(transport).
		WithUserAgent("my-agent").
		WithHeader(request.HeaderAuthorization, "Bearer token")

	text, err := c.NewRequest("https://example.com/items").AddFormParam("a", "b").MakeForResult(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "created", text)

	_, err = c.NewRequest("https://example.com/broken").Make(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `request GET "https://example.com/broken" failed: connection reset`)
}

func TestClient_Trace(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("POST", "https://example.com/items", httpmock.NewStringResponder(http.StatusCreated, "created"))

	var logs strings.Builder
	c := New().WithTransport(transport).AndTrace(trace.LogTracer(&logs))

	_, err := c.NewRequest("https://example.com/items").SetData("a=b").MakeForResult(context.Background())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, `HTTP_REQUEST[0001] START POST "https://example.com/items"`, lines[0])
	assert.True(t, strings.HasPrefix(lines[1], `HTTP_REQUEST[0001] DONE  POST "https://example.com/items" | 201 | `))
	assert.True(t, strings.HasPrefix(lines[2], `HTTP_REQUEST[0001] BODY  POST "https://example.com/items" | 7B | `))
	assert.Equal(t, `HTTP_REQUEST[0001] END   POST "https://example.com/items" | text=7 chars`, lines[3])
}
