package utils

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Lookup resolves a dotted path against a decoded JSON tree made of
// map[string]any, []any and scalar values. A segment ending in "[*]" projects
// the remainder of the path over every element of that array, dropping
// elements where the remainder does not resolve.
//
//	Lookup(doc, "prices.primaryPrice")
//	Lookup(doc, "industryAffiliations[*].name")
//
// The boolean is false when any segment is missing or null.
func Lookup(doc any, path string) (any, bool) {
	if doc == nil {
		return nil, false
	}
	if path == "" {
		return doc, true
	}

	seg, rest := path, ""
	if i := strings.IndexByte(path, '.'); i >= 0 {
		seg, rest = path[:i], path[i+1:]
	}

	wildcard := strings.HasSuffix(seg, "[*]")
	key := strings.TrimSuffix(seg, "[*]")

	v := doc
	if key != "" {
		m, ok := doc.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok = m[key]
		if !ok || v == nil {
			return nil, false
		}
	}

	if !wildcard {
		return Lookup(v, rest)
	}

	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]any, 0, len(arr))
	for _, elem := range arr {
		if r, ok := Lookup(elem, rest); ok {
			out = append(out, r)
		}
	}
	return out, true
}

func AsString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	}
	return "", false
}

func AsInt(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n), true
		}
		if f, err := t.Float64(); err == nil {
			return int(f), true
		}
	case float64:
		return int(t), true
	case int:
		return t, true
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n, true
		}
	}
	return 0, false
}

func AsFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f, true
		}
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func AsBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		if b, err := strconv.ParseBool(t); err == nil {
			return b, true
		}
	}
	return false, false
}

// AsStrings keeps the string-convertible elements of an array.
func AsStrings(v any) ([]string, bool) {
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := AsString(e); ok {
			out = append(out, s)
		}
	}
	return out, true
}

func AsMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func AsSlice(v any) ([]any, bool) {
	arr, ok := v.([]any)
	return arr, ok
}
