package note

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed meeting.md
var defaultTemplate string

// RenderTemplate substitutes {{ key }} placeholders in the embedded meeting
// template. Unknown placeholders are left in place so a malformed values map
// is visible in the rendered note rather than silently dropped.
func RenderTemplate(values map[string]string) string {
	return renderPlaceholders(defaultTemplate, values)
}

// RenderTemplateFile renders the template at path instead of the embedded
// default, for vaults that carry their own meeting layout. The file must
// contain the five managed sentinel pairs for later patching to succeed.
func RenderTemplateFile(path string, values map[string]string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("note: read template %q: %w", path, err)
	}
	return renderPlaceholders(string(raw), values), nil
}

func renderPlaceholders(template string, values map[string]string) string {
	rendered := template
	for key, value := range values {
		rendered = strings.ReplaceAll(rendered, "{{ "+key+" }}", value)
	}
	return rendered
}
