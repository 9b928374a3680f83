// Package sanitize provides text sanitization for user-provided CRM fields.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
	entityReplacer  = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&", "&quot;", "\"", "&#39;", "'")
)

// StripHTML removes HTML tags, including tags hidden behind encoded entities.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = entityReplacer.Replace(result)
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text strips HTML from free-form text such as activity notes.
func Text(s string) string {
	return StripHTML(s)
}

// Line strips HTML and collapses whitespace; used for names, stock numbers
// and other single-line fields.
func Line(s string) string {
	return whitespaceRegex.ReplaceAllString(StripHTML(s), " ")
}

// LinePtr is Line for optional fields. Blank results become nil.
func LinePtr(s *string) *string {
	if s == nil {
		return nil
	}
	result := Line(*s)
	if result == "" {
		return nil
	}
	return &result
}
