// Package fieldpath is a small path accessor over generic record trees
// (map[string]any). It replaces ad-hoc nil-chasing with an explicit
// present/absent result: Get short-circuits at the first missing or nil
// segment instead of panicking or returning typed nils.
package fieldpath

import (
	"encoding/json"
	"strings"
)

// Get walks rec by the dotted path and returns the value at the end.
// The boolean is false when any segment is missing, nil, or not an object.
func Get(rec map[string]any, path string) (any, bool) {
	if rec == nil || path == "" {
		return nil, false
	}
	segments := strings.Split(path, ".")
	var current any = rec
	for _, seg := range segments {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := obj[seg]
		if !ok || next == nil {
			return nil, false
		}
		current = next
	}
	return current, true
}

// GetString is Get narrowed to string values.
func GetString(rec map[string]any, path string) (string, bool) {
	v, ok := Get(rec, path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Strip removes a top-level field from every object in objs. Used to drop
// caller-supplied owner references before persistence.
func Strip(field string, objs ...map[string]any) {
	for _, obj := range objs {
		delete(obj, field)
	}
}

// ID unwraps a record identifier from the shapes a relation value can take:
// a bare integer (possibly float64 or json.Number after JSON decoding) or a
// populated record object carrying an "id" field.
func ID(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, t > 0
	case int:
		return int64(t), t > 0
	case float64:
		n := int64(t)
		return n, n > 0 && float64(n) == t
	case json.Number:
		n, err := t.Int64()
		return n, err == nil && n > 0
	case map[string]any:
		inner, ok := t["id"]
		if !ok {
			return 0, false
		}
		return ID(inner)
	default:
		return 0, false
	}
}
