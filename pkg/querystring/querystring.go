// Package querystring serializes graph filter parameters into URL query strings.
package querystring

import (
	"fmt"
	"net/url"
	"strings"
)

// Parameters maps filter names to values. Values may be scalars or slices;
// slices expand into repeated keys and nil values are skipped.
type Parameters map[string]any

// Encode renders params as a form-encoded query string with keys sorted.
func Encode(params Parameters) string {
	if len(params) == 0 {
		return ""
	}

	values := url.Values{}
	for key, raw := range params {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		for _, v := range flatten(raw) {
			values.Add(key, v)
		}
	}
	return values.Encode()
}

// Append joins path with the encoded params. The path is returned untouched
// when nothing encodes.
func Append(path string, params Parameters) string {
	query := Encode(params)
	if query == "" {
		return path
	}
	if strings.Contains(path, "?") {
		return path + "&" + query
	}
	return path + "?" + query
}

func flatten(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []string:
		return v
	case []int:
		out := make([]string, 0, len(v))
		for _, n := range v {
			out = append(out, fmt.Sprint(n))
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	case fmt.Stringer:
		return []string{v.String()}
	default:
		return []string{fmt.Sprint(v)}
	}
}
