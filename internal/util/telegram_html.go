package util

import (
	"html"
	"regexp"
	"strings"
)

var (
	boldRE   = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
	italicRE = regexp.MustCompile(`\*([^*\n]+)\*`)
)

// literalStar stands in for an escaped asterisk while emphasis is applied.
const literalStar = "\uE000"

// EscapeEmphasis marks every asterisk in s as literal, so user-supplied text
// embedded in a reply is shown as typed.
func EscapeEmphasis(s string) string {
	return strings.ReplaceAll(s, "*", `\*`)
}

// PlainText undoes EscapeEmphasis for outputs that do not render markup.
func PlainText(s string) string {
	return strings.ReplaceAll(s, `\*`, "*")
}

// FormatTelegramHTML escapes s for Telegram's HTML parse mode and turns the
// markdown-style **bold** and *italic* used in bot replies into tags.
// Asterisks escaped with EscapeEmphasis are left as they are.
func FormatTelegramHTML(s string) string {
	s = SanitizeTelegramText(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, literalStar, "")
	s = strings.ReplaceAll(s, `\*`, literalStar)

	esc := html.EscapeString(s)
	esc = boldRE.ReplaceAllString(esc, "<b>$1</b>")
	esc = italicRE.ReplaceAllString(esc, "<i>$1</i>")
	return strings.ReplaceAll(esc, literalStar, "*")
}
