// Package redact provides utilities for redacting sensitive information
// from strings before they are logged or returned in error responses.
// The service handles a remote API key that is also embedded into signed
// artifact URIs as a query parameter, so both the bare key and key-bearing
// URLs must never reach log output verbatim.
package redact

import "regexp"

// Constants for redaction placeholders
const (
	RedactionPlaceholder   = "[REDACTED]"
	RedactedKeyPlaceholder = "[REDACTED_KEY]"
	RedactedURLPlaceholder = "[REDACTED_URL_PARAM]"
	RedactedJWTPlaceholder = "[REDACTED_JWT]"
)

// Precompiled regex patterns
var (
	// API keys and similar secrets in key=value shapes.
	apiKeyRegex = regexp.MustCompile(
		`(?i)(api[_-]?key|token|secret|key|access|auth)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`,
	)

	// Signed artifact/download URLs carrying the key as a query parameter.
	urlKeyParamRegex = regexp.MustCompile(`(?i)([?&](?:key|token|access_token)=)[^&\s'"]+`)

	// JWT token pattern - the standard three-part base64url-encoded form.
	jwtTokenRegex = regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`)

	patterns = []*regexp.Regexp{urlKeyParamRegex, jwtTokenRegex, apiKeyRegex}

	patternPlaceholders = map[*regexp.Regexp]string{
		urlKeyParamRegex: "${1}" + RedactedURLPlaceholder,
		jwtTokenRegex:    RedactedJWTPlaceholder,
		apiKeyRegex:      RedactedKeyPlaceholder,
	}
)

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, pattern := range patterns {
		placeholder := RedactionPlaceholder
		if ph, ok := patternPlaceholders[pattern]; ok {
			placeholder = ph
		}
		result = pattern.ReplaceAllString(result, placeholder)
	}

	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}

	return String(err.Error())
}
