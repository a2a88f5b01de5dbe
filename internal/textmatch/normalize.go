// Package textmatch holds the offline text heuristics of the pipeline: quote to
// timestamp resolution and rule-based answer checking.
package textmatch

import (
	"strings"
	"unicode"
)

// NormalizeWords lower-cases s, turns every non-alphanumeric rune into a space
// and collapses runs of whitespace.
func NormalizeWords(s string) string {
	out := make([]rune, 0, len(s))
	space := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && len(out) > 0 {
				out = append(out, ' ')
			}
			space = false
			out = append(out, unicode.ToLower(r))
			continue
		}
		space = true
	}
	return string(out)
}

// NormalizeLabel upper-cases s and drops every non-alphanumeric rune, so
// "b)", " B." and "b" all compare equal.
func NormalizeLabel(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}
