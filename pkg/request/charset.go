package request

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Charset is a text encoding used to serialize form parameters.
type Charset int

const (
	CharsetUTF8 Charset = iota + 1
	CharsetISO88591
)

// DefaultCharset is used by builders if no other charset is configured.
const DefaultCharset = CharsetUTF8

type charsetDef struct {
	name     string
	aliases  []string
	encoding encoding.Encoding
}

var charsets = map[Charset]charsetDef{ //nolint:gochecknoglobals
	CharsetUTF8:     {name: "UTF-8", aliases: []string{"utf8"}, encoding: unicode.UTF8},
	CharsetISO88591: {name: "ISO-8859-1", aliases: []string{"latin1", "iso8859-1"}, encoding: charmap.ISO8859_1},
}

// ParseCharset converts a charset name, compared case-insensitively, to the Charset.
func ParseCharset(v string) (Charset, error) {
	v = strings.TrimSpace(v)
	for c, def := range charsets {
		if strings.EqualFold(def.name, v) {
			return c, nil
		}
		for _, alias := range def.aliases {
			if strings.EqualFold(alias, v) {
				return c, nil
			}
		}
	}
	return 0, fmt.Errorf(`%w "%s"`, ErrUnsupportedCharset, v)
}

// String returns the canonical name of the charset.
func (c Charset) String() string {
	if def, ok := charsets[c]; ok {
		return def.name
	}
	return fmt.Sprintf("Charset(%d)", int(c))
}

// Encoding returns the text encoding of the charset.
func (c Charset) Encoding() (encoding.Encoding, error) {
	def, ok := charsets[c]
	if !ok {
		return nil, fmt.Errorf(`%w "%s"`, ErrUnsupportedCharset, c)
	}
	return def.encoding, nil
}

var errInvalidUTF8 = errors.New("invalid UTF-8 input")

// EncodeString converts the UTF-8 string to the charset bytes.
// An error is returned if the string is not valid UTF-8 or a rune cannot be represented in the charset.
func (c Charset) EncodeString(s string) (string, error) {
	enc, err := c.Encoding()
	if err != nil {
		return "", err
	}
	if !utf8.ValidString(s) {
		return "", errInvalidUTF8
	}
	return enc.NewEncoder().String(s)
}
