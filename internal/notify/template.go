// internal/notify/template.go
package notify

import (
	"fmt"
	"regexp"

	"github.com/colebrumley/interruptd/internal/security"
)

var templateVar = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Expand replaces {{variable}} placeholders with values from data.
// Values are sanitized before interpolation since payloads can carry raw
// user metadata.
func Expand(tmpl string, data map[string]any) string {
	return templateVar.ReplaceAllStringFunc(tmpl, func(match string) string {
		varName := match[2 : len(match)-2]
		if val, ok := data[varName]; ok {
			return security.SanitizeValue(fmt.Sprintf("%v", val))
		}
		return match // keep original if not found
	})
}
