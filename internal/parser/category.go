package parser

import (
	"regexp"
	"strings"
)

// categoryRe matches {{category: Name}}. The name may not contain braces or
// cross a line, so unterminated markers never swallow the following text.
var categoryRe = regexp.MustCompile(`\{\{category:([^{}\n]*)\}\}`)

// ResolveCategories returns the distinct category names referenced by inline
// markers in body, sorted.
func ResolveCategories(body string) []string {
	matches := categoryRe.FindAllStringSubmatch(body, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return normalizeSet(names)
}

// ReplaceCategories rewrites every well-formed marker in text with the
// result of fn. Markers with an empty name are left untouched.
func ReplaceCategories(text string, fn func(name string) string) string {
	return categoryRe.ReplaceAllStringFunc(text, func(marker string) string {
		name := strings.TrimSpace(categoryRe.FindStringSubmatch(marker)[1])
		if name == "" {
			return marker
		}
		return fn(name)
	})
}

// CategoryMarker formats name as an inline marker understood by
// ResolveCategories.
func CategoryMarker(name string) string {
	return "{{category: " + strings.TrimSpace(name) + "}}"
}
