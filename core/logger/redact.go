package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Sanitize drops control and format runes, keeping tabs and newlines.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
			return -1
		}
		return r
	}, s)
}

// SanitizeLimit applies Sanitize and keeps at most max runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 {
		return ""
	}
	s = Sanitize(s)
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// MaskPseudo keeps the first and last rune of a platform pseudo and stars
// the rest, so log lines can be matched to a request without exposing the
// account name.
func MaskPseudo(pseudo string) string {
	r := []rune(strings.TrimSpace(Sanitize(pseudo)))
	switch n := len(r); {
	case n == 0:
		return ""
	case n <= 2:
		return strings.Repeat("*", n)
	default:
		return string(r[0]) + strings.Repeat("*", n-2) + string(r[n-1])
	}
}
