package middleware

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m3rciful/menacebot/core/logger"
	tghelpers "github.com/m3rciful/menacebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// StateGetter is the minimal interface required from an FSM manager.
type StateGetter interface {
	StateName(ctx context.Context, userID int64) string
}

// State returns a middleware that runs next only when the sender is in one of the expected states.
// Other updates are dropped.
func State(mgr StateGetter, expected ...string) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if c.Sender() == nil {
				return nil
			}
			userID := c.Sender().ID
			ctx := tghelpers.BuildContext(c)
			current := mgr.StateName(ctx, userID)
			for _, st := range expected {
				if current == st {
					logger.Debug(ctx, logger.CompTG, "fsm.match",
						slog.String("state", current),
						slog.String("expected", strings.Join(expected, ",")),
					)
					return next(c)
				}
			}
			logger.Debug(ctx, logger.CompTG, "fsm.skip",
				slog.String("state", current),
				slog.String("expected", strings.Join(expected, ",")),
			)
			return nil
		}
	}
}
