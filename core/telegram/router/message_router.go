package router

import (
	"context"
	"time"

	tg "github.com/m3rciful/menacebot/core/telegram"
	"github.com/m3rciful/menacebot/core/telegram/commands"
	tghelpers "github.com/m3rciful/menacebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// FSM defines the minimal interface for an FSM manager.
type FSM interface {
	InProgress(ctx context.Context, userID int64) bool
	ManagerHandler(c tele.Context) error
}

// MessageOptions controls what happens with non-command messages.
type MessageOptions struct {
	// Inbound runs for every non-command message after the conversation had its turn.
	Inbound tele.HandlerFunc
}

// MediaEndpoints lists the non-text updates relayed like text.
var MediaEndpoints = []string{tele.OnMedia, tele.OnLocation, tele.OnContact, tele.OnVenue, tele.OnDice}

// MessageRoutes builds handlers for text and media. Text starting with "/" that
// reached here matched no registered command and is dropped: commands are never relayed.
func MessageRoutes(fsmMgr FSM, opts MessageOptions) []tg.Route {
	text := func(c tele.Context) error {
		start := time.Now()
		if commands.IsCommand(c.Text()) {
			logHandlerSummary(c, "unknown_command", start, "skip", "ignored", nil)
			return nil
		}

		if fsmMgr != nil && c.Sender() != nil {
			ctx := tghelpers.BuildContext(c)
			if fsmMgr.InProgress(ctx, c.Sender().ID) {
				if err := handleWithSummary(c, "fsm", start, "", "", func() error {
					return fsmMgr.ManagerHandler(c)
				}); err != nil {
					return err
				}
			}
		}
		return inbound(c, opts, time.Now())
	}

	media := func(c tele.Context) error {
		return inbound(c, opts, time.Now())
	}

	routes := []tg.Route{{Endpoint: tele.OnText, Handler: text}}
	for _, ep := range MediaEndpoints {
		routes = append(routes, tg.Route{Endpoint: ep, Handler: media})
	}
	return routes
}

func inbound(c tele.Context, opts MessageOptions, start time.Time) error {
	if opts.Inbound == nil {
		logHandlerSummary(c, "inbound", start, "skip", "ok", nil)
		return nil
	}
	return handleWithSummary(c, "inbound", start, "", "", func() error {
		return opts.Inbound(c)
	})
}
