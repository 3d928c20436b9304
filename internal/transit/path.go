package transit

import (
	"encoding/json"
	"math"
	"strconv"
)

// Tree is a decoded JSON object.
type Tree = map[string]any

// GetPath walks tree along path and returns the value found there. It returns def
// when any step is missing, explicitly null, or not an object.
func GetPath(tree any, path []string, def any) any {
	cur := tree
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return def
		}
		next, ok := obj[key]
		if !ok || next == nil {
			return def
		}
		cur = next
	}
	if cur == nil {
		return def
	}
	return cur
}

// Int converts a leaf value to an integer. Non-integral or non-numeric values yield nil.
func Int(v any) *int64 {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return &i
		}
		if f, err := n.Float64(); err == nil {
			return integral(f)
		}
	case float64:
		return integral(n)
	case int:
		i := int64(n)
		return &i
	case int64:
		return &n
	case string:
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return &i
		}
	}
	return nil
}

func integral(f float64) *int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return nil
	}
	i := int64(f)
	return &i
}

// Float converts a leaf value to a float.
func Float(v any) *float64 {
	switch n := v.(type) {
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return &f
		}
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	case int64:
		f := float64(n)
		return &f
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return &f
		}
	}
	return nil
}

// String converts a leaf value to a string. Numbers and booleans are rendered in
// their JSON form; objects and arrays yield nil.
func String(v any) *string {
	var s string
	switch n := v.(type) {
	case string:
		s = n
	case json.Number:
		s = n.String()
	case float64:
		s = strconv.FormatFloat(n, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(n)
	default:
		return nil
	}
	return &s
}

// Bool converts a leaf value to a boolean.
func Bool(v any) *bool {
	switch n := v.(type) {
	case bool:
		return &n
	case string:
		if b, err := strconv.ParseBool(n); err == nil {
			return &b
		}
	}
	return nil
}
