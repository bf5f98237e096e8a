// Package keyboard builds inline keyboards from plain button descriptions.
package keyboard

import (
	"github.com/m3rciful/menacebot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// InlineBtn describes one inline button. Exactly one of Unique, URL or WebApp is used,
// in that order of precedence.
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
	URL    string
	WebApp string
}

// Callback is a data button carrying key and optional payload.
func Callback(text, unique string, data ...string) InlineBtn {
	b := InlineBtn{Text: text, Unique: unique}
	if len(data) > 0 {
		b.Data = data[0]
	}
	return b
}

// Link is a button opening url in the browser.
func Link(text, url string) InlineBtn {
	return InlineBtn{Text: text, URL: url}
}

// WebApp is a button opening url as a Telegram mini-app.
func WebApp(text, url string) InlineBtn {
	return InlineBtn{Text: text, WebApp: url}
}

// InlineButtons builds an inline keyboard where each provided button is placed on its own row.
func InlineButtons(buttons ...InlineBtn) *tele.ReplyMarkup {
	rows := make([][]InlineBtn, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []InlineBtn{b})
	}
	return InlineButtonsRows(rows...)
}

// InlineButtonsRows builds an inline keyboard from rows of InlineBtn.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		r := make([]tele.InlineButton, 0, len(row))
		for _, btn := range row {
			r = append(r, toInline(btn))
		}
		inline = append(inline, r)
	}
	markup.InlineKeyboard = inline
	return markup
}

// toInline fills callback data already encoded so the result does not depend on
// telebot rewriting Unique at marshal time.
func toInline(b InlineBtn) tele.InlineButton {
	switch {
	case b.Unique != "":
		return tele.InlineButton{Text: b.Text, Data: callbacks.Data(b.Unique, b.Data)}
	case b.URL != "":
		return tele.InlineButton{Text: b.Text, URL: b.URL}
	case b.WebApp != "":
		return tele.InlineButton{Text: b.Text, WebApp: &tele.WebApp{URL: b.WebApp}}
	default:
		return tele.InlineButton{Text: b.Text}
	}
}

// RemoveKeyboard returns a markup that hides the keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}
