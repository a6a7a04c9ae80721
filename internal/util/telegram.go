package util

import (
	"strings"
	"unicode/utf8"
)

// SanitizeTelegramText removes NUL bytes.
func SanitizeTelegramText(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}

// SplitToBytes cuts s into chunks of at most n bytes, preferring line breaks
// and never splitting a UTF-8 sequence.
func SplitToBytes(s string, n int) []string {
	if n <= 0 || len(s) <= n {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	var out []string
	for len(s) > n {
		cut := n
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if i := strings.LastIndexByte(s[:cut], '\n'); i > 0 {
			cut = i + 1
		}
		if cut == 0 {
			// a single rune wider than n; emit it whole
			_, size := utf8.DecodeRuneInString(s)
			cut = size
		}
		out = append(out, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
