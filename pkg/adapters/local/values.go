package local

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// text is the canonical string form of a cell, used for hashing, splitting and grouping.
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// display is the form a cell takes in text renderings.
func display(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case float64:
		return strconv.FormatFloat(t, 'f', 2, 64)
	}
	return text(v)
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

// key is a stable identity for a value or row, used by set semantics.
func key(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%T:%v", v, v)
	}
	return string(b)
}

// truncate shortens s to width characters, marking the cut with "...".
func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

// clampWidth applies the default and minimum cell width.
func clampWidth(width int) int {
	switch {
	case width <= 0:
		return defaultWidth
	case width < minWidth:
		return minWidth
	}
	return width
}
