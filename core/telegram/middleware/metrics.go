package middleware

import (
	"github.com/m3rciful/menacebot/core/telegram/helpers"
	"github.com/m3rciful/menacebot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

const tallyKey = "tally"

// MessageMetricsMiddleware attaches a delivery tally to the update so handler
// summaries can report how many messages were sent and whether a keyboard was shown.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if _, ok := c.Get(tallyKey).(*sender.Tally); ok {
			return next(c)
		}
		t := &sender.Tally{}
		c.Set(tallyKey, t)
		helpers.StoreContext(c, sender.WithTally(helpers.BuildContext(c), t))
		return next(c)
	}
}

// GetCounters reads message count and keyboard presence flags from context.
func GetCounters(c tele.Context) (int, bool) {
	t, _ := c.Get(tallyKey).(*sender.Tally)
	return t.Counts()
}
