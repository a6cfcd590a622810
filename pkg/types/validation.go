package types

import (
	"regexp"
)

var colorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// IsValidColor reports whether s is a six-digit hex swatch like "#4ECDC4".
// Anything else falls back to a server-assigned palette color.
func IsValidColor(s string) bool {
	return colorRegex.MatchString(s)
}

// TruncateRunes caps s at n runes. Rune-based so a multi-byte character is
// never split mid-sequence.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
