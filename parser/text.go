package parser

import (
	"strings"
	"unicode"
)

// normalizeWhitespace turns every unicode space (NBSP included) into a plain
// space and collapses runs of them
func normalizeWhitespace(text string) string {
	normalized := strings.Builder{}
	for _, r := range text {
		if unicode.IsSpace(r) {
			normalized.WriteRune(' ')
		} else {
			normalized.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(normalized.String()), " ")
}
