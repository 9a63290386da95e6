package request

import (
	"net/url"
	"strings"

	"github.com/keboola/go-utils/pkg/orderedmap"
)

// FormParam is a single form parameter, name and value are raw, not encoded.
type FormParam struct {
	Name  string
	Value string
}

// FormParams is an ordered list of form parameters, duplicate names are allowed.
type FormParams []FormParam

// FormParamsFromMap converts the ordered map to form parameters, the key order is kept.
// Non-string values are converted by the cast library, nested maps are encoded as JSON.
func FormParamsFromMap(m *orderedmap.OrderedMap) FormParams {
	if m == nil {
		return nil
	}
	out := make(FormParams, 0, len(m.Keys()))
	for _, key := range m.Keys() {
		value, _ := m.Get(key)
		out = append(out, FormParam{Name: key, Value: castToString(value)})
	}
	return out
}

// Add appends a parameter, it does not encode anything.
func (v FormParams) Add(name, value string) FormParams {
	return append(v, FormParam{Name: name, Value: value})
}

// Encode serializes the parameters as application/x-www-form-urlencoded in the insertion order.
// Name and value are converted to the charset and percent-encoded, space is encoded as "+".
// Empty parameters result in an empty string.
func (v FormParams) Encode(charset Charset) (string, error) {
	if len(v) == 0 {
		return "", nil
	}
	var out strings.Builder
	for i, p := range v {
		name, err := charset.EncodeString(p.Name)
		if err != nil {
			return "", &EncodingError{Param: p.Name, Charset: charset, Err: err}
		}
		value, err := charset.EncodeString(p.Value)
		if err != nil {
			return "", &EncodingError{Param: p.Name, Charset: charset, Err: err}
		}
		if i > 0 {
			out.WriteByte('&')
		}
		out.WriteString(url.QueryEscape(name))
		out.WriteByte('=')
		out.WriteString(url.QueryEscape(value))
	}
	return out.String(), nil
}

// AddFormParams appends all parameters to the builder.
func AddFormParams(b RequestBuilder, params FormParams) RequestBuilder {
	for _, p := range params {
		b = b.AddFormParam(p.Name, p.Value)
	}
	return b
}
