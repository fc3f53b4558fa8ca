// internal/security/sanitizer.go
package security

import "strings"

const maxValueLen = 1024

// SanitizeValue cleans a payload value before it is interpolated into a
// notification message: control characters (except tab and newline) and
// code-fence sequences are dropped, and the result is truncated to
// maxValueLen bytes. Payload values originate from trigger evaluators
// reading user files, so they are untrusted.
func SanitizeValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 && r != '\t' && r != '\n' {
			continue
		}
		b.WriteRune(r)
	}

	out := strings.ReplaceAll(b.String(), "```", "")
	if len(out) > maxValueLen {
		out = out[:maxValueLen]
	}
	return out
}
