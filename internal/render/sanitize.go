package render

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/x/ansi"
)

// Sanitize makes s safe to print: escape sequences and control characters
// other than newline and tab are removed, everything else is kept verbatim.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			return r
		}
		return -1
	}, ansi.Strip(s))
}

// Name sanitizes a display name and falls back to fallback when nothing is
// left.
func Name(name, fallback string) string {
	if n := strings.TrimSpace(Sanitize(name)); n != "" {
		return n
	}
	return fallback
}
