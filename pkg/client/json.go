package client

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/grayfox/go-client/pkg/request"
)

// json - replacement of the standard encoding/json library, it is faster for larger bodies.
var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals

const ContentTypeApplicationJSON = "application/json"

// JSONBody encodes the value to JSON, sets the Content-Type header and writes the body.
// If the value cannot be encoded, the builder is not modified.
func JSONBody(b request.RequestBuilder, v any) (request.RequestBuilder, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return b, fmt.Errorf(`cannot encode JSON body: %w`, err)
	}
	return b.SetHeader(request.HeaderContentType, ContentTypeApplicationJSON).SetData(string(body)), nil
}
