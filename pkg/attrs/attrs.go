// Package attrs reads values back out of slog-style key/value argument lists
// so the same attributes can feed both a log line and an audit event.
package attrs

import "fmt"

// ExtractString returns the value for key in a [k1, v1, k2, v2, ...] list.
// Values implementing fmt.Stringer (typed addresses) are converted. Missing
// keys and other value types yield "".
func ExtractString(attrs []any, key string) string {
	for i := 0; i+1 < len(attrs); i += 2 {
		if k, ok := attrs[i].(string); !ok || k != key {
			continue
		}
		switch v := attrs[i+1].(type) {
		case string:
			return v
		case fmt.Stringer:
			return v.String()
		}
	}
	return ""
}

// FirstString returns the first non-empty value among keys, in order.
func FirstString(attrs []any, keys ...string) string {
	for _, key := range keys {
		if v := ExtractString(attrs, key); v != "" {
			return v
		}
	}
	return ""
}
