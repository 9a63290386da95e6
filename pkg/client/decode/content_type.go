package decode

import (
	"strings"

	"github.com/umisama/go-regexpcache"
)

const (
	ContentTypeApplicationJSON       = "application/json"
	ContentTypeApplicationJSONRegexp = `^application/([a-zA-Z0-9\.\-]+\+)?json$`
	ContentTypeCharsetRegexp         = `(?i);\s*charset\s*=\s*"?([^";\s]+)"?`
)

// IsJSON returns true for "application/json" and "application/*+json" media types, parameters are ignored.
func IsJSON(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return regexpcache.MustCompile(ContentTypeApplicationJSONRegexp).MatchString(strings.TrimSpace(mediaType))
}

// Charset returns the charset parameter of the Content-Type value, or an empty string.
func Charset(contentType string) string {
	m := regexpcache.MustCompile(ContentTypeCharsetRegexp).FindStringSubmatch(contentType)
	if m == nil {
		return ""
	}
	return m[1]
}
