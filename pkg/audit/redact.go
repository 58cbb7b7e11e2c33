package audit

import "strings"

// sensitiveKeyDenylist are secret-sounding substrings in a payload key
// name, the same denylist the sanitizer uses for .env key matching
// (pkg/sanitizer/env.go), reused here for audit payload redaction
// (spec §5).
var sensitiveKeyDenylist = []string{
	"password", "token", "secret", "key", "auth", "credential",
}

const redactedPlaceholder = "<REDACTED>"

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, d := range sensitiveKeyDenylist {
		if strings.Contains(lower, d) {
			return true
		}
	}
	return false
}

// Redact returns a deep copy of payload with every value whose key matches
// the sensitive-key denylist replaced by a fixed placeholder, recursing
// into nested maps and slices so a secret cannot hide a level down.
func Redact(payload map[string]any) map[string]any {
	return redactMap(payload)
}

func redactMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if isSensitiveKey(k) {
			out[k] = redactedPlaceholder
			continue
		}
		out[k] = redactValue(v)
	}
	return out
}

func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return redactMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = redactValue(item)
		}
		return out
	default:
		return v
	}
}
