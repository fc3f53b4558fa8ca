// internal/security/scrubber.go
package security

import "regexp"

var (
	// key=value or "key": "value" pairs with sensitive key names
	sensitivePairPattern = regexp.MustCompile(`(?i)(token|secret|password|api[_-]?key|authorization)("?\s*[:=]\s*"?)\S+`)
	// Bearer token pattern
	bearerPattern = regexp.MustCompile(`Bearer\s+\S{20,}`)
	// Long hex strings (32+ chars) are treated as API keys
	hexKeyPattern = regexp.MustCompile(`\b[0-9a-fA-F]{32,}\b`)
)

// ScrubPayload redacts sensitive data from a serialized decision payload
// before it is written to the history table. Evaluator payloads can carry
// raw user metadata, so nothing secret-shaped is persisted verbatim.
func ScrubPayload(payload string) string {
	result := sensitivePairPattern.ReplaceAllString(payload, "${1}${2}[REDACTED]")
	result = bearerPattern.ReplaceAllString(result, "Bearer [REDACTED]")
	result = hexKeyPattern.ReplaceAllString(result, "[REDACTED]")
	return result
}
