package common

import (
	"strings"
)

// StringArg returns a trimmed string argument, or "" when absent.
func StringArg(args map[string]interface{}, name string) string {
	if v, ok := args[name].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// IntArg returns a numeric argument. JSON numbers arrive as float64.
func IntArg(args map[string]interface{}, name string, def int) int {
	switch v := args[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

// BoolArg returns a boolean argument and whether it was present.
func BoolArg(args map[string]interface{}, name string) (bool, bool) {
	v, ok := args[name].(bool)
	return v, ok
}

// ClampInt bounds v to [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
