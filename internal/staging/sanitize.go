package staging

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxTitleLength is the maximum number of characters kept by [SanitizeTitle].
const MaxTitleLength = 100

// SanitizeTitle reduces a media title to a filesystem-safe fragment.
//
// Letters, numbers, space, '.', '_' and '-' are kept; everything else is dropped. The result is
// trimmed and cut to [MaxTitleLength] runes, then trimmed again so that applying it twice gives
// the same output.
func SanitizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == ' ' || r == '.' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}

	out := strings.TrimSpace(b.String())
	if runes := []rune(out); len(runes) > MaxTitleLength {
		out = strings.TrimSpace(string(runes[:MaxTitleLength]))
	}
	return out
}

// fitBytes cuts s to at most n bytes without splitting a rune.
func fitBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 0 {
		return ""
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
