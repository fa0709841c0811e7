package router

import "strings"

// sensitiveFields are payload keys redacted before logging or
// inclusion in an error response's details, per spec §4.2/§4.7.
var sensitiveFields = map[string]struct{}{
	"apikey": {},
	"secret": {},
	"token":  {},
	"auth":   {},
}

const maxArrayElements = 10

// isSensitiveField reports whether key names a secret-bearing field,
// matched case-insensitively and by substring (so "apiKey",
// "API_KEY", "authToken" all match).
func isSensitiveField(key string) bool {
	lower := strings.ToLower(key)
	for field := range sensitiveFields {
		if strings.Contains(lower, field) {
			return true
		}
	}
	return false
}

// Redact returns a copy of payload with sensitive field values
// replaced by "***" and long arrays truncated, recursing into nested
// maps and arrays.
func Redact(payload map[string]any) map[string]any {
	return redactMap(payload).(map[string]any)
}

func redactValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return redactMap(val)
	case []any:
		return redactArray(val)
	default:
		return v
	}
}

func redactMap(m map[string]any) any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if isSensitiveField(k) {
			out[k] = "***"
			continue
		}
		out[k] = redactValue(v)
	}
	return out
}

func redactArray(arr []any) any {
	n := len(arr)
	if n <= maxArrayElements {
		out := make([]any, n)
		for i, v := range arr {
			out[i] = redactValue(v)
		}
		return out
	}
	out := make([]any, maxArrayElements+1)
	for i := 0; i < maxArrayElements; i++ {
		out[i] = redactValue(arr[i])
	}
	out[maxArrayElements] = map[string]any{"truncated": n - maxArrayElements}
	return out
}
