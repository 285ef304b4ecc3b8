package util

import (
	"fmt"
	"math"
	"strings"

	"github.com/mattn/go-runewidth"
)

// FormatTimespan renders seconds as "42s", "3m 5s" or "2h 0m 7s".
func FormatTimespan(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	if seconds < 3600 {
		if seconds < 60 {
			return fmt.Sprintf("%ds", int(seconds))
		}
		return fmt.Sprintf("%dm %ds", int(seconds)/60, int(seconds)%60)
	}
	total := int(seconds)
	return fmt.Sprintf("%dh %dm %ds", total/3600, (total/60)%60, total%60)
}

// FormatClock renders seconds as HH:MM:SS, as shown by the session timer.
func FormatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

// ShortenName truncates name to maxWidth display columns. Names listed in
// exceptions are never shortened.
func ShortenName(name string, maxWidth int, exceptions ...string) string {
	for _, e := range exceptions {
		if name == e {
			return name
		}
	}
	if runewidth.StringWidth(name) <= maxWidth {
		return name
	}
	return runewidth.Truncate(name, maxWidth, "")
}

// TitleCase upper-cases the first letter of every word and lower-cases the
// rest. Any non-letter rune, digits included, ends a word.
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	startOfWord := true
	for _, r := range s {
		if isWordLetter(r) {
			if startOfWord {
				b.WriteString(strings.ToUpper(string(r)))
			} else {
				b.WriteString(strings.ToLower(string(r)))
			}
			startOfWord = false
			continue
		}
		b.WriteRune(r)
		startOfWord = true
	}
	return b.String()
}

func isWordLetter(r rune) bool {
	return strings.ToUpper(string(r)) != strings.ToLower(string(r))
}
