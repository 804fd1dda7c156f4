// Package logging holds helpers for keeping secrets out of log output.
package logging

import "regexp"

// RedactedText replaces sensitive values in sanitized strings.
const RedactedText = "[REDACTED]"

var (
	// password=xxx in keyword/value connection strings
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd)=[^;&\s]+`)

	// user:pass@host in URL-style connection strings
	credentialsPattern = regexp.MustCompile(`://[^:/]+:[^@]+@`)

	// session tokens in Authorization headers or error text
	bearerPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]*`)
)

// SanitizeConnectionString masks credentials in a PostgreSQL connection
// string so it can be logged at startup.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}
	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	return credentialsPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@")
}

// SanitizeError masks credentials and session tokens that database or
// HTTP errors may echo back.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	sanitized := passwordPattern.ReplaceAllString(err.Error(), "${1}="+RedactedText)
	sanitized = credentialsPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@")
	return bearerPattern.ReplaceAllString(sanitized, "Bearer "+RedactedText)
}
