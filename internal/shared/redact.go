package shared

import (
	"regexp"
	"strings"
)

const redactedPlaceholder = "[REDACTED]"

// secretPatterns matches secrets people paste into task text ("rotate key
// api_key=..."), so they stay out of the log and the journal.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|apikey|secret[_-]?key|auth[_-]?token|password|passwd)\s*[:=]\s*"?([^\s",]{6,})"?`),
	regexp.MustCompile(`(?i)(Bearer\s+)([A-Za-z0-9_\-./+=]{16,})`),
	regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{30,}\b`),
	regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
}

// Redact replaces secret-bearing patterns in the input with [REDACTED].
func Redact(input string) string {
	if input == "" {
		return input
	}
	result := input
	for _, pat := range secretPatterns {
		result = pat.ReplaceAllStringFunc(result, func(match string) string {
			submatch := pat.FindStringSubmatch(match)
			if len(submatch) >= 3 {
				if strings.TrimRight(submatch[1], " \t") != submatch[1] {
					return submatch[1] + redactedPlaceholder
				}
				return submatch[1] + "=" + redactedPlaceholder
			}
			return redactedPlaceholder
		})
	}
	return result
}

// IsSensitiveKey reports whether a log attribute name looks like it holds a secret.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(strings.TrimSpace(key))
	if lower == "" {
		return false
	}
	for _, token := range []string{"token", "secret", "password", "authorization", "api_key", "apikey"} {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}
