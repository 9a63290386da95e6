package request

import (
	"fmt"
	"strings"
)

// Header is a symbolic identifier of a request header.
type Header int

const (
	HeaderAccept Header = iota + 1
	HeaderAcceptCharset
	HeaderAcceptEncoding
	HeaderAcceptLanguage
	HeaderAuthorization
	HeaderCacheControl
	HeaderConnection
	HeaderContentEncoding
	HeaderContentLanguage
	HeaderContentType
	HeaderCookie
	HeaderIfModifiedSince
	HeaderIfNoneMatch
	HeaderOrigin
	HeaderReferer
	HeaderUserAgent
)

var headerNames = []string{ //nolint:gochecknoglobals
	HeaderAccept:          "Accept",
	HeaderAcceptCharset:   "Accept-Charset",
	HeaderAcceptEncoding:  "Accept-Encoding",
	HeaderAcceptLanguage:  "Accept-Language",
	HeaderAuthorization:   "Authorization",
	HeaderCacheControl:    "Cache-Control",
	HeaderConnection:      "Connection",
	HeaderContentEncoding: "Content-Encoding",
	HeaderContentLanguage: "Content-Language",
	HeaderContentType:     "Content-Type",
	HeaderCookie:          "Cookie",
	HeaderIfModifiedSince: "If-Modified-Since",
	HeaderIfNoneMatch:     "If-None-Match",
	HeaderOrigin:          "Origin",
	HeaderReferer:         "Referer",
	HeaderUserAgent:       "User-Agent",
}

// Headers returns all known headers.
func Headers() []Header {
	out := make([]Header, 0, len(headerNames)-1)
	for h := HeaderAccept; int(h) < len(headerNames); h++ {
		out = append(out, h)
	}
	return out
}

// ParseHeader converts a wire name, compared case-insensitively, to the Header.
func ParseHeader(v string) (Header, error) {
	v = strings.TrimSpace(v)
	for _, h := range Headers() {
		if strings.EqualFold(h.String(), v) {
			return h, nil
		}
	}
	return 0, fmt.Errorf(`%w "%s"`, ErrUnknownHeader, v)
}

// String returns the wire name of the header.
func (h Header) String() string {
	if h.IsValid() {
		return headerNames[h]
	}
	return fmt.Sprintf("Header(%d)", int(h))
}

func (h Header) IsValid() bool {
	return h > 0 && int(h) < len(headerNames)
}
