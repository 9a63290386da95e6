package request

import (
	jsonlib "encoding/json"
	"fmt"

	"github.com/keboola/go-utils/pkg/orderedmap"
	"github.com/spf13/cast"
)

func castToString(v any) string {
	// Ordered map
	if orderedMap, ok := v.(*orderedmap.OrderedMap); ok {
		// Standard json encoding library is used.
		// JsonIter lib returns non-compact JSON,
		// if custom OrderedMap.MarshalJSON method is used.
		if out, err := jsonlib.Marshal(orderedMap); err == nil {
			return string(out)
		}
	}

	// Other types
	if out, err := cast.ToStringE(v); err == nil {
		return out
	}
	return fmt.Sprintf("%v", v)
}
