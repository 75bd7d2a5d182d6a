package logger

import (
	"log/slog"
	"strings"
)

// SanitizedEmail masks an address for log output, keeping just enough to
// correlate repeated events: first character of the local part and the TLD.
func SanitizedEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at < 1 || at == len(email)-1 || strings.Count(email, "@") != 1 {
		return "[invalid-email]"
	}

	local := email[:at]
	if len(local) > 1 {
		local = local[:1] + strings.Repeat("*", len(local)-1)
	}

	labels := strings.Split(email[at+1:], ".")
	for i := 0; i < len(labels)-1; i++ {
		labels[i] = strings.Repeat("*", len(labels[i]))
	}

	return local + "@" + strings.Join(labels, ".")
}

// RedactedAttr hides a sensitive value in production logs while leaving it
// readable in development.
func RedactedAttr(key, value, env string) slog.Attr {
	if env == "production" {
		return slog.String(key, "[REDACTED]")
	}
	return slog.String(key, value)
}

// Parameter name fragments that mean the whole query string must be
// dropped from request logs.
var sensitiveQueryFragments = []string{
	"password", "token", "secret", "api_key", "apikey", "email", "auth", "otp",
}

// SanitizeQueryString reports whether a raw query string carries anything
// that must not reach the request log.
func SanitizeQueryString(rawQuery string) bool {
	if rawQuery == "" {
		return false
	}
	query := strings.ToLower(rawQuery)
	for _, fragment := range sensitiveQueryFragments {
		if strings.Contains(query, fragment) {
			return true
		}
	}
	return false
}
