package sanitizer

import (
	"strings"
)

// envKeyDenylist are secret-sounding substrings in a .env key name, ported
// from the original NeverDown redactor.py.
var envKeyDenylist = []string{
	"password", "token", "secret", "key", "auth", "credential",
}

var dbURLPrefixes = []string{"postgres://", "postgresql://", "mysql://", "mongodb://", "mongodb+srv://"}

func looksLikeDBURL(value string) bool {
	for _, p := range dbURLPrefixes {
		if strings.HasPrefix(strings.ToLower(value), p) {
			return true
		}
	}
	return false
}

func keyLooksSecret(key string) bool {
	lower := strings.ToLower(key)
	for _, d := range envKeyDenylist {
		if strings.Contains(lower, d) {
			return true
		}
	}
	return false
}

// SanitizeEnvLine applies the .env-file special case of spec §4.1: for a
// non-comment KEY=VALUE line, redact the value to <REDACTED> (preserving
// surrounding quotes) when the key matches the secret-sounding denylist,
// or the value itself is a database URI, or the value would trip the
// entropy test. The key is always preserved verbatim. Lines that are not
// KEY=VALUE assignments, or whose value does not warrant redaction, are
// returned unchanged.
func SanitizeEnvLine(line string, entropyThreshold float64, minEntropyLen int) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return line, false
	}

	eq := strings.Index(line, "=")
	if eq < 0 {
		return line, false
	}
	key := strings.TrimSpace(line[:eq])
	if key == "" || strings.ContainsAny(key, " \t") {
		return line, false
	}
	rawValue := line[eq+1:]

	leading := rawValue[:len(rawValue)-len(strings.TrimLeft(rawValue, " \t"))]
	value := strings.TrimLeft(rawValue, " \t")
	trailing := ""
	if idx := strings.IndexAny(value, "\r\n"); idx >= 0 {
		trailing = value[idx:]
		value = value[:idx]
	}

	quote := byte(0)
	inner := value
	if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
		quote = value[0]
		inner = value[1 : len(value)-1]
	}

	if strings.HasPrefix(inner, "<REDACTED") {
		return line, false // already carries a pattern-channel placeholder
	}

	shouldRedact := keyLooksSecret(key) || looksLikeDBURL(inner) || IsHighEntropy(inner, entropyThreshold, minEntropyLen)
	if !shouldRedact || inner == "" {
		return line, false
	}

	replacement := "<REDACTED>"
	if quote != 0 {
		replacement = string(quote) + replacement + string(quote)
	}
	return line[:eq+1] + leading + replacement + trailing, true
}
