package notifications

import (
	"fmt"
	"strings"
)

// Interpolate replaces {key} placeholders in tmpl with values from lookup.
// Keys may be dotted paths such as {author.email}; how they are resolved is
// up to lookup. An opening brace without a closing one is kept as is.
func Interpolate(tmpl string, lookup func(key string) (string, bool)) (string, error) {
	var sb strings.Builder
	sb.Grow(len(tmpl))

	rest := tmpl
	for {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			sb.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			sb.WriteString(rest)
			break
		}
		end += start

		sb.WriteString(rest[:start])
		key := strings.TrimSpace(rest[start+1 : end])
		val, ok := lookup(key)
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrMissingPlaceholder, key)
		}
		sb.WriteString(val)
		rest = rest[end+1:]
	}

	return sb.String(), nil
}

// MapLookup adapts a map to the lookup function used by Interpolate.
func MapLookup(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}
