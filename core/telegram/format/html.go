// Package format renders user-provided values safely inside parse_mode=HTML messages.
package format

import (
	"fmt"
	"html"
	"strings"
)

// EscapeHTML escapes <, >, & and quotes as Telegram's HTML parser expects.
func EscapeHTML(s string) string {
	return html.EscapeString(s)
}

// Bold wraps escaped s in <b>.
func Bold(s string) string { return "<b>" + EscapeHTML(s) + "</b>" }

// Italic wraps escaped s in <i>.
func Italic(s string) string { return "<i>" + EscapeHTML(s) + "</i>" }

// Code wraps escaped s in <code>.
func Code(s string) string { return "<code>" + EscapeHTML(s) + "</code>" }

// CodeInt renders an identifier in <code>.
func CodeInt(id int64) string { return fmt.Sprintf("<code>%d</code>", id) }

// UserLink links to a Telegram user profile by id. An empty name falls back to fallback.
func UserLink(id int64, name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		name = fallback
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, id, EscapeHTML(name))
}

// Link renders an anchor with an escaped label.
func Link(url, label string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, EscapeHTML(url), EscapeHTML(label))
}
