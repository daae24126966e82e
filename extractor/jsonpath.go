package extractor

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// The helpers below read decoded JSON (map[string]any / []any trees)
// along dotted paths. Every read tolerates absence and shape mismatch by
// returning the zero value, so normalizers never need to guard a step.
// Numeric path segments index into arrays: "contentImages.0.url".

// at walks v along a dotted path and returns the value found, or nil.
func at(v any, path string) any {
	if path == "" {
		return v
	}
	cur := v
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			cur = node[seg]
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil
			}
			cur = node[i]
		default:
			return nil
		}
		if cur == nil {
			return nil
		}
	}
	return cur
}

// has reports whether the last segment of path is present as a key, even
// when its value is JSON null.
func has(v any, path string) bool {
	parent, key := v, path
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		parent, key = at(v, path[:i]), path[i+1:]
	}
	m, ok := parent.(map[string]any)
	if !ok {
		return false
	}
	_, ok = m[key]
	return ok
}

// objAt returns the object at path, or nil.
func objAt(v any, path string) map[string]any {
	m, _ := at(v, path).(map[string]any)
	return m
}

// listAt returns the array at path, or nil.
func listAt(v any, path string) []any {
	l, _ := at(v, path).([]any)
	return l
}

// strAt returns the string at path, or "". Numbers are formatted without
// trailing zeros so numeric identifiers (SKUs, style codes) survive.
func strAt(v any, path string) string {
	return text(at(v, path))
}

// firstStr returns the first non-blank string found among paths.
func firstStr(v any, paths ...string) string {
	for _, p := range paths {
		if s := strAt(v, p); strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// text renders a scalar JSON value as a string.
func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	}
	return ""
}

// truthy mirrors loose JSON truthiness: null, false, 0, "" and absent are
// false; objects and arrays (even empty) are true.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	}
	return true
}

// asList wraps a single value into a one-element list and passes arrays
// through, for fields that may be either (offers, image, additionalProperty).
func asList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	}
	return []any{v}
}

// orderedKeys returns the keys of the JSON object at path inside raw in
// document order. Go maps lose member order; candidate scans that must
// pick "the first" entry use this instead of ranging over the map.
func orderedKeys(raw []byte, path string) []string {
	cur := json.RawMessage(raw)
	if path != "" {
		for _, seg := range strings.Split(path, ".") {
			var m map[string]json.RawMessage
			if err := json.Unmarshal(cur, &m); err != nil {
				return nil
			}
			next, ok := m[seg]
			if !ok {
				return nil
			}
			cur = next
		}
	}

	dec := json.NewDecoder(bytes.NewReader(cur))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return keys
		}
		key, ok := tok.(string)
		if !ok {
			return keys
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return keys
		}
		keys = append(keys, key)
	}
	return keys
}
