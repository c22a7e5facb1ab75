package logger

import (
	"strings"
	"unicode/utf8"
)

// Truncate flattens s onto one line and cuts it to at most maxLen bytes for log
// previews, adding "..." when cut. The cut never splits a multi-byte rune.
func Truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	cut := max(maxLen, 0)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
