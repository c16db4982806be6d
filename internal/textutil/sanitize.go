package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SingleLine folds every run of whitespace and control characters into one
// space and trims the ends, so a value fits in a table cell.
func SingleLine(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	pendingSpace := false
	for _, r := range value {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Truncate shortens value to at most limit runes, marking the cut with an
// ellipsis. A non-positive limit returns value unchanged.
func Truncate(value string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(value) <= limit {
		return value
	}
	if limit == 1 {
		return "…"
	}
	runes := []rune(value)
	return strings.TrimRightFunc(string(runes[:limit-1]), unicode.IsSpace) + "…"
}
