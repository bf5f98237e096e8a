package middleware

import tele "gopkg.in/telebot.v4"

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	AdminChatID int64
	OnReject    tele.HandlerFunc
}

// IsAdmin reports whether the update comes from the admin chat.
// With no admin configured nobody is admin.
func IsAdmin(c tele.Context, adminChatID int64) bool {
	if adminChatID == 0 {
		return false
	}
	chat := c.Chat()
	return chat != nil && chat.ID == adminChatID
}

// RequireAdmin wraps h so that it only runs for the admin chat.
func RequireAdmin(opts AdminOptions, h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if !IsAdmin(c, opts.AdminChatID) {
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			return nil
		}
		return h(c)
	}
}

// AdminOnlyMiddleware ensures that only the admin chat can invoke downstream handlers.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return RequireAdmin(opts, next)
	}
}
