package domain

import (
	"encoding/json"
	"math"
)

// Number converts a decoded JSON number to int64 when it holds a whole value
// that fits, and to float64 otherwise. Unparseable numbers keep their text.
func Number(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	f, err := n.Float64()
	if err != nil {
		return n.String()
	}
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	return f
}

// NormalizeJSON applies Number to every json.Number in a value decoded with
// UseNumber, recursing into lists and objects.
func NormalizeJSON(v any) any {
	switch t := v.(type) {
	case json.Number:
		return Number(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = NormalizeJSON(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = NormalizeJSON(e)
		}
		return out
	}
	return v
}
