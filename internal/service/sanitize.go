package service

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var stripTags = bluemonday.StrictPolicy()

// sanitizeText strips markup and collapses all whitespace to single spaces.
func sanitizeText(s string) string {
	return strings.Join(strings.Fields(stripMarkup(s)), " ")
}

// sanitizeTextarea strips markup but keeps line breaks.
func sanitizeTextarea(s string) string {
	lines := strings.Split(stripMarkup(s), "\n")
	for i, l := range lines {
		lines[i] = strings.Join(strings.Fields(l), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func stripMarkup(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			return r
		}
		return -1
	}, s)
	return html.UnescapeString(stripTags.Sanitize(s))
}
