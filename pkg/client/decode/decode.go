// Package decode converts a raw response body to text.
// It is shared by all request builder backends.
package decode

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"golang.org/x/text/encoding/htmlindex"
)

// Decode wraps the body by a decompressing reader according to the Content-Encoding header value.
// Closing the returned reader never closes the body.
func Decode(body io.ReadCloser, contentEncoding string) (io.ReadCloser, error) {
	contentEncoding = strings.ToLower(strings.TrimSpace(contentEncoding))
	switch contentEncoding {
	case "gzip":
		if v, err := gzip.NewReader(body); err == nil {
			return v, nil
		} else {
			return nil, fmt.Errorf("cannot decode gzip: %w", err)
		}
	case "br":
		return io.NopCloser(brotli.NewReader(body)), nil
	default:
		return io.NopCloser(body), nil
	}
}

// CharsetReader converts the text in the charset from the Content-Type value to UTF-8.
// Text without charset, in UTF-8 or in an unknown charset is returned unchanged.
func CharsetReader(r io.Reader, contentType string) io.Reader {
	name := Charset(contentType)
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return r
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return r
	}
	return enc.NewDecoder().Reader(r)
}

// Lines reads all lines from the reader and joins them by "\n".
// Line terminators "\n" and "\r\n" are not part of the lines.
func Lines(r io.Reader) (string, error) {
	var lines []string
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			lines = append(lines, line)
		}
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return "", err
		}
	}
	return strings.Join(lines, "\n"), nil
}

// Text reads the whole response body as newline-joined lines.
// The body is decompressed and converted to UTF-8 according to the headers.
// The body itself is not closed, it is the caller's responsibility.
func Text(body io.ReadCloser, header http.Header) (string, error) {
	decoded, err := Decode(body, header.Get("Content-Encoding"))
	if err != nil {
		return "", err
	}
	defer decoded.Close()

	text, err := Lines(CharsetReader(decoded, header.Get("Content-Type")))
	if err != nil {
		return "", fmt.Errorf("cannot read response body: %w", err)
	}
	return text, nil
}
