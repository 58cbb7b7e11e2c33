package config

// Secret wraps a sensitive configuration value (API key, webhook secret,
// database DSN, bearer token) so that it is never rendered by default
// formatters. Only Value() returns the underlying string.
type Secret string

// String implements fmt.Stringer, deliberately not returning the value.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// GoString prevents %#v from leaking the value in debug output.
func (s Secret) GoString() string {
	return s.String()
}

// MarshalJSON refuses to serialise the secret, matching the "never
// rendered by default formatters" requirement of spec §5. Callers that
// genuinely need the wire value (e.g. an outbound Authorization header)
// must use Value() explicitly.
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"***"`), nil
}

// Value returns the underlying secret string. Call sites must be narrow
// and explicit (building an HTTP header, opening a DB connection) — never
// pass the result to a logger or generic formatter.
func (s Secret) Value() string {
	return string(s)
}

// Empty reports whether no secret was configured.
func (s Secret) Empty() bool {
	return s == ""
}
