package utils

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

var stripAll = bluemonday.StrictPolicy()

// SanitizeText removes every HTML element from user input and returns escaped plain text.
// Entities are decoded before sanitizing so pre-escaped markup is stripped like raw markup.
// Length rules apply to the returned text.
func SanitizeText(input string) string {
	return stripAll.Sanitize(html.UnescapeString(input))
}
