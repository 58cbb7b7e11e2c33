package verifier

import "testing"

func TestIsSensitiveEnvKey(t *testing.T) {
	cases := map[string]bool{
		"API_KEY":      true,
		"DB_PASSWORD":  true,
		"AUTH_TOKEN":   true,
		"AWS_SECRET":   true,
		"PATH":         false,
		"HOME":         false,
		"NODE_ENV":     false,
	}
	for k, want := range cases {
		if got := isSensitiveEnvKey(k); got != want {
			t.Errorf("isSensitiveEnvKey(%q) = %v, want %v", k, got, want)
		}
	}
}
