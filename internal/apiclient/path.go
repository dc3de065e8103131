package apiclient

import (
	"sort"
	"strings"
)

const upperhex = "0123456789ABCDEF"

// EncodeURLPath percent-encodes every "/"-delimited segment of path on its
// own, so the delimiters survive untouched. Empty segments stay empty.
func EncodeURLPath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = EncodeURIComponent(segment)
	}
	return strings.Join(segments, "/")
}

// EncodeURIComponent escapes s the way browsers escape a single URI
// component: letters, digits and -_.!~*'() pass through, every other byte is
// written as %XX.
func EncodeURIComponent(s string) string {
	escapes := 0
	for i := 0; i < len(s); i++ {
		if !unreserved(s[i]) {
			escapes++
		}
	}
	if escapes == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*escapes)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

// BuildQuery renders params as a query string with keys in lexicographic
// order. Keys and values are escaped with EncodeURIComponent.
func BuildQuery(params Params) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, EncodeURIComponent(k)+"="+EncodeURIComponent(params[k]))
	}
	return strings.Join(parts, "&")
}

// apiPath maps a logical resource path onto the API root.
func apiPath(path string) string {
	return apiPrefix + EncodeURLPath(strings.TrimPrefix(path, "/"))
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
