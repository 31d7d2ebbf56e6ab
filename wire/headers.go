package wire

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/http/httpguts"
)

// NormalizeHeaders validates h against HTTP field syntax and returns a copy
// keyed by lower-case names. Names that differ only in case collide and are
// rejected, since HTTP treats them as the same field.
func NormalizeHeaders(h map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(h))

	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := h[name]
		if !httpguts.ValidHeaderFieldName(name) {
			return nil, InvalidHeader(name, "invalid field name")
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return nil, InvalidHeader(name, "invalid field value")
		}
		key := strings.ToLower(name)
		if _, dup := out[key]; dup {
			return nil, Malformed("headers", "duplicate header %q", key)
		}
		out[key] = value
	}
	return out, nil
}

// ResponseHeaderValue checks a value received from the network before it is
// handed to the guest. Values must be valid UTF-8.
func ResponseHeaderValue(name string, raw []string) (string, error) {
	value := strings.Join(raw, ", ")
	if !utf8.ValidString(value) {
		return "", InvalidHeader(name, "value is not valid UTF-8")
	}
	return value, nil
}
