package otel

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSuccess(t *testing.T) {
	t.Parallel()
	assert.False(t, isSuccess(nil, nil))
	assert.False(t, isSuccess(nil, errors.New("some error")))
	assert.False(t, isSuccess(&http.Response{}, errors.New("some error")))
	assert.False(t, isSuccess(&http.Response{StatusCode: http.StatusBadRequest}, nil))
	assert.False(t, isSuccess(&http.Response{StatusCode: http.StatusOK}, errors.New("some error")))
	assert.True(t, isSuccess(&http.Response{StatusCode: http.StatusOK}, nil))
	assert.True(t, isSuccess(&http.Response{StatusCode: http.StatusMovedPermanently}, nil))
}

func TestIsRedirection(t *testing.T) {
	t.Parallel()
	assert.False(t, isRedirection(nil))
	assert.False(t, isRedirection(&http.Response{}))
	assert.False(t, isRedirection(&http.Response{StatusCode: http.StatusOK}))
	assert.False(t, isRedirection(&http.Response{StatusCode: http.StatusBadRequest}))
	assert.True(t, isRedirection(&http.Response{StatusCode: http.StatusTemporaryRedirect}))
}

func TestMustURLPathUnescape(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "/foo bar", mustURLPathUnescape("/foo%20bar"))
	assert.Equal(t, "/foo%zz", mustURLPathUnescape("/foo%zz"))
}

func TestRedactURL(t *testing.T) {
	t.Parallel()
	cfg := newConfig([]Option{WithRedactedQueryParam("Token")})
	attrs := newAttributes(cfg, "GET", "https://example.com/items?token=secret&page=2")
	assert.Equal(t, "https://example.com/items?page=2&token=****", attrs.definitionURL)
}
