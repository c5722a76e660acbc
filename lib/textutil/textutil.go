package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeLabel trims, lowercases and collapses inner whitespace to single spaces,
// so that labels rendered with different spacing compare equal.
func NormalizeLabel(label string) string {
	label = strings.TrimSpace(label)
	label = strings.ToLower(label)
	label = whitespaceRegex.ReplaceAllString(label, " ")
	return label
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n < 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
